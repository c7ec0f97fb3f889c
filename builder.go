package fitauth

import (
	"errors"
	"strings"

	"github.com/fittude/fitauth/clock"
	"github.com/fittude/fitauth/internal/rate"
	"github.com/fittude/fitauth/jwt"
	"github.com/fittude/fitauth/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder defines a public type used by fitauth APIs.
//
// A Builder is single-use: the second call to Build fails.
type Builder struct {
	config   Config
	redis    redis.UniversalClient
	counters store.CounterStore
	clock    clock.Clock
	logger   *zerolog.Logger

	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration with a private copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis backs admission control with client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCounterStore backs admission control with an arbitrary store. It takes
// precedence over WithRedis.
func (b *Builder) WithCounterStore(counters store.CounterStore) *Builder {
	b.counters = counters
	return b
}

// WithClock overrides the system clock.
func (b *Builder) WithClock(c clock.Clock) *Builder {
	b.clock = c
	return b
}

// WithLogger sets the engine logger. The default discards everything.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and assembles an [Engine].
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	counters := b.counters
	if counters == nil && b.redis != nil {
		counters = store.NewRedis(b.redis)
	}
	if counters == nil && cfg.RateLimit.Enabled {
		return nil, errors.New("redis client or counter store required when rate limiting is enabled")
	}

	codec, err := jwt.NewCodec(jwt.Config{
		SigningMethod: jwt.SigningMethod(strings.ToLower(cfg.JWT.SigningMethod)),
		SessionKey:    cloneBytes(cfg.JWT.SessionKey),
		RefreshKey:    cloneBytes(cfg.JWT.RefreshKey),
		Issuer:        cfg.JWT.Issuer,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config: cfg,
		codec:  codec,
		clock:  b.clock,
		logger: zerolog.Nop(),
	}
	if engine.clock == nil {
		engine.clock = clock.System{}
	}
	if b.logger != nil {
		engine.logger = b.logger.With().Str("component", "fitauth").Logger()
	}

	engine.limiter = rate.New(counters, rate.Config{
		Enabled:     cfg.RateLimit.Enabled,
		MaxRequests: cfg.RateLimit.MaxRequests,
		Window:      cfg.RateLimit.Window,
		KeyPrefix:   cfg.RateLimit.KeyPrefix,
	})
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink, engine.metrics)

	b.built = true

	return engine, nil
}
