// Package settings loads the server configuration.
//
// Configuration comes from one YAML file named by --config, layered over
// built-in defaults. Secrets and connection strings may then be overridden
// from the environment:
//
//	JWT_SESSION_KEY, JWT_REFRESH_KEY, REDIS_ADDR, DATABASE_URL, CORS_ORIGINS
//
// Durations are written as Go duration strings ("15m", "168h").
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fittude/fitauth"
	"gopkg.in/yaml.v3"
)

// Settings is the fully resolved server configuration.
type Settings struct {
	Server   Server
	Redis    Redis
	Database Database
	Log      Log
	Auth     fitauth.Config
}

// Server configures the HTTP listener.
type Server struct {
	AppName           string        `yaml:"app_name"`
	Addr              string        `yaml:"addr"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins       []string      `yaml:"cors_origins"`
	TrustForwardedFor bool          `yaml:"trust_forwarded_for"`
}

// Redis configures the shared counter store.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Database configures the users table connection. An empty URL disables login.
type Database struct {
	URL string `yaml:"url"`
}

// Log configures zerolog output.
type Log struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type jwtSection struct {
	SessionTTL      time.Duration `yaml:"session_ttl"`
	RefreshTTL      time.Duration `yaml:"refresh_ttl"`
	ShortRefreshTTL time.Duration `yaml:"short_refresh_ttl"`
	SigningMethod   string        `yaml:"signing_method"`
	Issuer          string        `yaml:"issuer"`
	SessionKey      string        `yaml:"session_key"`
	RefreshKey      string        `yaml:"refresh_key"`
}

type cookieSection struct {
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
	Domain   string `yaml:"domain"`
	Secure   bool   `yaml:"secure"`
	SameSite string `yaml:"same_site"`
}

type rateLimitSection struct {
	Enabled     bool          `yaml:"enabled"`
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
	KeyPrefix   string        `yaml:"key_prefix"`
}

type auditSection struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

type metricsSection struct {
	Enabled          bool `yaml:"enabled"`
	LatencyHistogram bool `yaml:"latency_histogram"`
}

// file mirrors the YAML layout. It is pre-filled with defaults before
// decoding, so absent keys keep their default value.
type file struct {
	Server    Server           `yaml:"server"`
	Redis     Redis            `yaml:"redis"`
	Database  Database         `yaml:"database"`
	Log       Log              `yaml:"log"`
	JWT       jwtSection       `yaml:"jwt"`
	Cookie    cookieSection    `yaml:"cookie"`
	RateLimit rateLimitSection `yaml:"rate_limit"`
	Audit     auditSection     `yaml:"audit"`
	Metrics   metricsSection   `yaml:"metrics"`
}

func defaults() file {
	auth := fitauth.DefaultConfig()
	return file{
		Server: Server{
			AppName:         "fitauth",
			Addr:            ":8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Redis: Redis{Addr: "localhost:6379"},
		Log:   Log{Level: "info"},
		JWT: jwtSection{
			SessionTTL:      auth.JWT.SessionTTL,
			RefreshTTL:      auth.JWT.RefreshTTL,
			ShortRefreshTTL: auth.JWT.ShortRefreshTTL,
			SigningMethod:   auth.JWT.SigningMethod,
		},
		Cookie: cookieSection{
			Name:     auth.Cookie.Name,
			Path:     auth.Cookie.Path,
			Secure:   auth.Cookie.Secure,
			SameSite: "strict",
		},
		RateLimit: rateLimitSection{
			Enabled:     auth.RateLimit.Enabled,
			MaxRequests: auth.RateLimit.MaxRequests,
			Window:      auth.RateLimit.Window,
			KeyPrefix:   auth.RateLimit.KeyPrefix,
		},
		Audit: auditSection{
			Enabled:    auth.Audit.Enabled,
			BufferSize: auth.Audit.BufferSize,
			DropIfFull: auth.Audit.DropIfFull,
		},
		Metrics: metricsSection{
			Enabled: auth.Metrics.Enabled,
		},
	}
}

// Load reads path (may be empty for defaults only), applies environment
// overrides through getenv and validates the result.
func Load(path string, getenv func(string) string) (*Settings, error) {
	var r io.Reader = bytes.NewReader(nil)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("settings: read %s: %w", path, err)
		}
		r = bytes.NewReader(data)
	}
	return Decode(r, getenv)
}

// Decode is Load for an already opened document.
func Decode(r io.Reader, getenv func(string) string) (*Settings, error) {
	f := defaults()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("settings: decode: %w", err)
	}

	if getenv == nil {
		getenv = os.Getenv
	}
	applyEnv(&f, getenv)

	s, err := f.resolve()
	if err != nil {
		return nil, err
	}
	if err := s.Auth.Validate(); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	return s, nil
}

func applyEnv(f *file, getenv func(string) string) {
	if v := getenv("JWT_SESSION_KEY"); v != "" {
		f.JWT.SessionKey = v
	}
	if v := getenv("JWT_REFRESH_KEY"); v != "" {
		f.JWT.RefreshKey = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		f.Redis.Addr = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		f.Database.URL = v
	}
	if v := getenv("CORS_ORIGINS"); v != "" {
		f.Server.CORSOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				f.Server.CORSOrigins = append(f.Server.CORSOrigins, origin)
			}
		}
	}
}

func (f file) resolve() (*Settings, error) {
	sameSite, err := parseSameSite(f.Cookie.SameSite)
	if err != nil {
		return nil, err
	}

	auth := fitauth.DefaultConfig()
	auth.JWT = fitauth.JWTConfig{
		SessionTTL:      f.JWT.SessionTTL,
		RefreshTTL:      f.JWT.RefreshTTL,
		ShortRefreshTTL: f.JWT.ShortRefreshTTL,
		SigningMethod:   f.JWT.SigningMethod,
		SessionKey:      []byte(f.JWT.SessionKey),
		RefreshKey:      []byte(f.JWT.RefreshKey),
		Issuer:          f.JWT.Issuer,
	}
	auth.Cookie = fitauth.CookieConfig{
		Name:     f.Cookie.Name,
		Path:     f.Cookie.Path,
		Domain:   f.Cookie.Domain,
		Secure:   f.Cookie.Secure,
		SameSite: sameSite,
	}
	auth.RateLimit = fitauth.RateLimitConfig{
		Enabled:     f.RateLimit.Enabled,
		MaxRequests: f.RateLimit.MaxRequests,
		Window:      f.RateLimit.Window,
		KeyPrefix:   f.RateLimit.KeyPrefix,
	}
	auth.Audit = fitauth.AuditConfig{
		Enabled:    f.Audit.Enabled,
		BufferSize: f.Audit.BufferSize,
		DropIfFull: f.Audit.DropIfFull,
	}
	auth.Metrics = fitauth.MetricsConfig{
		Enabled:                 f.Metrics.Enabled,
		EnableLatencyHistograms: f.Metrics.LatencyHistogram,
	}

	return &Settings{
		Server:   f.Server,
		Redis:    f.Redis,
		Database: f.Database,
		Log:      f.Log,
		Auth:     auth,
	}, nil
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(v) {
	case "", "strict":
		return http.SameSiteStrictMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("settings: unknown cookie same_site %q", v)
	}
}
