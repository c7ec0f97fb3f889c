package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fittude/fitauth"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

func main() {
	var (
		subjects    = pflag.Int("subjects", 10000, "number of subjects to issue credentials for")
		concurrency = pflag.Int("concurrency", 256, "number of concurrent workers")
		ops         = pflag.Int("ops", 200000, "operations per phase")
		maxRequests = pflag.Int("max-requests", 100, "admission limit per identity per window")
		identities  = pflag.Int("identities", 64, "distinct client identities in the admission phase")
		redisAddr   = pflag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	pflag.Parse()

	if *subjects <= 0 || *concurrency <= 0 || *ops <= 0 || *maxRequests <= 0 || *identities <= 0 {
		fmt.Fprintln(os.Stderr, "subjects, concurrency, ops, max-requests and identities must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := fitauth.DefaultConfig()
	cfg.JWT.SessionKey = []byte("loadtest-session-key-0123456789")
	cfg.JWT.RefreshKey = []byte("loadtest-refresh-key-9876543210")
	cfg.RateLimit.MaxRequests = *maxRequests
	cfg.RateLimit.Window = time.Hour
	cfg.RateLimit.KeyPrefix = fmt.Sprintf("loadtest:%d", time.Now().UnixNano())
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := fitauth.New().WithConfig(cfg).WithRedis(client).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	pairs := make([]fitauth.TokenPair, *subjects)
	fmt.Printf("issuing %d credential pairs...\n", *subjects)
	startSeed := time.Now()
	for i := range pairs {
		pair, err := engine.IssueTokens(ctx, strconv.Itoa(i), i%2 == 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
		pairs[i] = pair
	}
	fmt.Printf("issued in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validateStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand) error {
		idx := r.Intn(len(pairs))
		subject, err := engine.Validate(ctx, pairs[idx].Session.Value)
		if err == nil && subject != strconv.Itoa(idx) {
			return fmt.Errorf("subject mismatch: got %s want %d", subject, idx)
		}
		return err
	})

	renewStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand) error {
		pair := pairs[r.Intn(len(pairs))]
		req := httptest.NewRequest(http.MethodPost, "/refresh_token", nil)
		req.AddCookie(&http.Cookie{Name: engine.CookieName(), Value: pair.Refresh.Value})
		_, err := engine.Renew(ctx, fitauth.NewHTTPTransport(nil, req))
		return err
	})

	var admitted = make([]int64, *identities)
	admitStats := runPhase(*ops, *concurrency, 104729, func(r *rand.Rand) error {
		id := r.Intn(*identities)
		_, err := engine.Admit(ctx, fmt.Sprintf("198.51.100.%d", id))
		if err == nil {
			atomic.AddInt64(&admitted[id], 1)
			return nil
		}
		if errors.Is(err, fitauth.ErrRequestLimitExceeded) {
			return nil
		}
		return err
	})

	overAdmitted := 0
	for _, n := range admitted {
		if n > int64(*maxRequests) {
			overAdmitted++
		}
	}

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("renew", renewStats)
	printStats("admit", admitStats)
	fmt.Printf("admission: identities=%d over_limit=%d\n", *identities, overAdmitted)

	snapshot := engine.MetricsSnapshot()
	fmt.Printf("metrics: validate_success=%d renew_success=%d admitted=%d rate_limited=%d\n",
		snapshot.Counters[fitauth.MetricValidateSuccess],
		snapshot.Counters[fitauth.MetricRenewSuccess],
		snapshot.Counters[fitauth.MetricAdmitted],
		snapshot.Counters[fitauth.MetricRateLimited],
	)

	if overAdmitted > 0 || validateStats.failures > 0 || renewStats.failures > 0 || admitStats.failures > 0 {
		os.Exit(1)
	}
}

func runPhase(ops, concurrency int, seed int64, op func(r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
