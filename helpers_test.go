package fitauth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fittude/fitauth/clock"
	"github.com/redis/go-redis/v9"
)

var testEpoch = time.Unix(1_700_000_000, 0)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.SessionKey = []byte("session-secret-0123456789")
	cfg.JWT.RefreshKey = []byte("refresh-secret-9876543210")
	return cfg
}

type testEnv struct {
	engine *Engine
	clock  *clock.Fake
	mr     *miniredis.Miniredis
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{
		Addr:       mr.Addr(),
		MaxRetries: -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func newTestEnv(t *testing.T, cfg Config, sink AuditSink) *testEnv {
	t.Helper()

	mr, rdb := newTestRedis(t)
	fc := clock.NewFake(testEpoch)

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithClock(fc).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, clock: fc, mr: mr}
}

// replay builds a request carrying every cookie rec set.
func replay(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/refresh_token", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}
