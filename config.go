package fitauth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fittude/fitauth/jwt"
)

// Config defines a public type used by fitauth APIs.
//
// Config instances are built once at process start and then treated as
// immutable; [Builder.WithConfig] keeps its own deep copy.
type Config struct {
	JWT       JWTConfig
	Cookie    CookieConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines the credential lifetimes and signing secrets.
//
// ShortRefreshTTL applies to logins that did not ask to stay signed in.
type JWTConfig struct {
	SessionTTL      time.Duration
	RefreshTTL      time.Duration
	ShortRefreshTTL time.Duration
	SigningMethod   string // "hs256" (default), "hs384", "hs512"
	SessionKey      []byte
	RefreshKey      []byte
	Issuer          string
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig defines how the refresh credential is carried.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig defines the admission window shared by every route.
type RateLimitConfig struct {
	Enabled     bool
	MaxRequests int
	Window      time.Duration
	KeyPrefix   string
}

// AuditConfig defines a public type used by fitauth APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by fitauth APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults. Signing secrets are left
// empty and must be supplied before Build.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SessionTTL:      15 * time.Minute,
			RefreshTTL:      7 * 24 * time.Hour,
			ShortRefreshTTL: 24 * time.Hour,
			SigningMethod:   string(jwt.MethodHS256),
		},
		Cookie: CookieConfig{
			Name:     "refresh_token",
			Path:     "/",
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			MaxRequests: 100,
			Window:      time.Minute,
			KeyPrefix:   "rate_limit",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.SessionKey = cloneBytes(cfg.JWT.SessionKey)
	out.JWT.RefreshKey = cloneBytes(cfg.JWT.RefreshKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first configuration problem found, or nil.
func (c *Config) Validate() error {
	if c.JWT.SessionTTL <= 0 {
		return errors.New("JWT SessionTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.ShortRefreshTTL <= 0 {
		return errors.New("JWT ShortRefreshTTL must be > 0")
	}
	if c.JWT.ShortRefreshTTL > c.JWT.RefreshTTL {
		return errors.New("JWT ShortRefreshTTL must be <= RefreshTTL")
	}
	if c.JWT.SessionTTL >= c.JWT.ShortRefreshTTL {
		return errors.New("JWT SessionTTL must be shorter than ShortRefreshTTL")
	}
	for _, ttl := range []time.Duration{c.JWT.SessionTTL, c.JWT.RefreshTTL, c.JWT.ShortRefreshTTL} {
		if ttl%time.Second != 0 {
			return errors.New("JWT TTLs must be whole seconds")
		}
	}
	switch jwt.SigningMethod(strings.ToLower(c.JWT.SigningMethod)) {
	case jwt.MethodHS256, jwt.MethodHS384, jwt.MethodHS512:
	default:
		return errors.New("unsupported JWT signing method")
	}
	if len(c.JWT.SessionKey) == 0 {
		return errors.New("JWT SessionKey is required")
	}
	if len(c.JWT.RefreshKey) == 0 {
		return errors.New("JWT RefreshKey is required")
	}
	if len(c.JWT.SessionKey) < jwt.MinKeyLength || len(c.JWT.RefreshKey) < jwt.MinKeyLength {
		return errors.New("JWT keys must be at least 16 bytes")
	}
	if string(c.JWT.SessionKey) == string(c.JWT.RefreshKey) {
		return errors.New("JWT SessionKey and RefreshKey must differ")
	}

	if strings.TrimSpace(c.Cookie.Name) == "" {
		return errors.New("Cookie Name is required")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("Cookie SameSite=None requires Secure")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.MaxRequests <= 0 {
			return errors.New("RateLimit MaxRequests must be > 0")
		}
		if c.RateLimit.Window < time.Second {
			return errors.New("RateLimit Window must be >= 1s")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
