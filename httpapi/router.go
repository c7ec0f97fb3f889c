// Package httpapi mounts the credential endpoints on a chi router.
//
//	POST /login           email + password -> session (header) + refresh (cookie)
//	POST /refresh_token   refresh cookie -> new session
//	POST /logout          clear the refresh cookie
//	GET  /validate_token  bearer session -> subject
//
// Every route above passes through admission control first. /metrics and
// /healthz do not.
package httpapi

import (
	"context"
	"net/http"

	"github.com/fittude/fitauth"
	"github.com/fittude/fitauth/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Authenticator resolves a login to a subject. It returns
// [fitauth.ErrInvalidLogin] for unknown users and wrong passwords.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (string, error)
}

// AuthenticatorFunc adapts a function to [Authenticator].
type AuthenticatorFunc func(ctx context.Context, email, password string) (string, error)

// Authenticate calls f.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, email, password string) (string, error) {
	return f(ctx, email, password)
}

// Options wires the router.
type Options struct {
	Engine *fitauth.Engine
	// Authenticator backs /login. The route is not mounted when nil.
	Authenticator Authenticator
	Logger        zerolog.Logger

	CORSOrigins []string
	// TrustForwardedFor takes the client address from X-Forwarded-For or
	// X-Real-IP. Enable only behind a proxy that sets them.
	TrustForwardedFor bool

	// Metrics is served at /metrics when non-nil.
	Metrics http.Handler
}

type api struct {
	engine   *fitauth.Engine
	auth     Authenticator
	logger   zerolog.Logger
	validate *validator.Validate
}

// NewRouter builds the HTTP handler.
func NewRouter(opts Options) http.Handler {
	a := &api{
		engine:   opts.Engine,
		auth:     opts.Authenticator,
		logger:   opts.Logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	if opts.TrustForwardedFor {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(opts.Logger))
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders:   []string{"Authorization", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Admission(opts.Engine))

		if a.auth != nil {
			r.Post("/login", a.login)
		}
		r.Post("/refresh_token", a.refreshToken)
		r.Post("/logout", a.logout)
		r.With(middleware.Guard(opts.Engine)).Get("/validate_token", a.validateToken)
	})

	return r
}
