package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fittude/fitauth/clock"
	"github.com/fittude/fitauth/store"
	"github.com/redis/go-redis/v9"
)

func newMemoryLimiter(max int, window time.Duration) (*Limiter, *clock.Fake) {
	fc := clock.NewFake(time.Unix(1_700_000_000, 0))
	return New(store.NewMemory(fc), Config{
		Enabled:     true,
		MaxRequests: max,
		Window:      window,
	}), fc
}

func TestAdmitThreeThenReject(t *testing.T) {
	l, _ := newMemoryLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d, err := l.Admit(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("request %d: unexpected error %v", i, err)
		}
		if d.Remaining != 3-i {
			t.Fatalf("request %d: expected remaining %d, got %d", i, 3-i, d.Remaining)
		}
	}

	d, err := l.Admit(ctx, "10.0.0.1")
	if !errors.Is(err, ErrLimited) {
		t.Fatalf("expected ErrLimited, got %v", err)
	}
	if d.Allowed || d.Remaining != 0 || d.Limit != 3 {
		t.Fatalf("unexpected rejecting decision %+v", d)
	}
	if d.ResetAfter <= 0 || d.ResetAfter > time.Minute {
		t.Fatalf("expected reset within window, got %s", d.ResetAfter)
	}
}

func TestAdmitOtherIdentityUnaffected(t *testing.T) {
	l, _ := newMemoryLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, _ = l.Admit(ctx, "10.0.0.1")
	}
	if _, err := l.Admit(ctx, "10.0.0.2"); err != nil {
		t.Fatalf("expected second identity to be admitted, got %v", err)
	}
}

func TestAdmitAfterWindowElapses(t *testing.T) {
	l, fc := newMemoryLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := l.Admit(ctx, "10.0.0.1"); err != nil {
			t.Fatalf("unexpected error %v", err)
		}
	}
	if _, err := l.Admit(ctx, "10.0.0.1"); !errors.Is(err, ErrLimited) {
		t.Fatalf("expected ErrLimited, got %v", err)
	}

	fc.Advance(time.Minute)

	d, err := l.Admit(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("expected fresh window, got %v", err)
	}
	if d.Remaining != 2 {
		t.Fatalf("expected count restarted at 1 (remaining 2), got remaining %d", d.Remaining)
	}
}

func TestAdmitDisabledAlwaysAllows(t *testing.T) {
	l := New(nil, Config{Enabled: false, MaxRequests: 1, Window: time.Second})
	for i := 0; i < 10; i++ {
		d, err := l.Admit(context.Background(), "x")
		if err != nil || !d.Allowed {
			t.Fatalf("expected disabled limiter to allow, got %+v %v", d, err)
		}
	}
}

func TestAdmitStoreUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	l := New(store.NewRedis(rdb), Config{Enabled: true, MaxRequests: 3, Window: time.Minute})
	_, err = l.Admit(context.Background(), "10.0.0.1")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if errors.Is(err, ErrLimited) {
		t.Fatal("infrastructure failure must not look like a limit rejection")
	}
}

func TestAdmitCanceledContext(t *testing.T) {
	l, _ := newMemoryLimiter(3, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := l.Admit(ctx, "10.0.0.1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestAdmitUsesPrefixedKeysInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	l := New(store.NewRedis(rdb), Config{Enabled: true, MaxRequests: 3, Window: time.Minute})
	if _, err := l.Admit(context.Background(), "192.168.1.9"); err != nil {
		t.Fatalf("admit: %v", err)
	}
	if !mr.Exists("rate_limit:192.168.1.9") {
		t.Fatalf("expected rate_limit:192.168.1.9 to exist, keys=%v", mr.Keys())
	}
}
