package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fittude/fitauth"
	"github.com/fittude/fitauth/clock"
	"github.com/fittude/fitauth/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var epoch = time.Unix(1_700_000_000, 0)

type harness struct {
	handler http.Handler
	engine  *fitauth.Engine
	clock   *clock.Fake
}

func newHarness(t *testing.T, mutate func(*fitauth.Config)) *harness {
	t.Helper()

	cfg := fitauth.DefaultConfig()
	cfg.JWT.SessionKey = []byte("session-secret-0123456789")
	cfg.JWT.RefreshKey = []byte("refresh-secret-9876543210")
	if mutate != nil {
		mutate(&cfg)
	}

	fc := clock.NewFake(epoch)
	engine, err := fitauth.New().
		WithConfig(cfg).
		WithClock(fc).
		WithCounterStore(store.NewMemory(fc)).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	auth := AuthenticatorFunc(func(_ context.Context, email, password string) (string, error) {
		switch {
		case email == "ana@fit.example" && password == "correct horse":
			return "17", nil
		case email == "down@fit.example":
			return "", errors.New("db: connection refused")
		default:
			return "", fitauth.ErrInvalidLogin
		}
	})

	return &harness{
		handler: NewRouter(Options{
			Engine:        engine,
			Authenticator: auth,
			Logger:        zerolog.Nop(),
			CORSOrigins:   []string{"https://app.fit.example"},
			Metrics:       http.NotFoundHandler(),
		}),
		engine: engine,
		clock:  fc,
	}
}

func (h *harness) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "198.51.100.20:4321"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "refresh_token" {
			return c
		}
	}
	t.Fatal("no refresh_token cookie")
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestLoginRememberMeControlsCookieLifetime(t *testing.T) {
	h := newHarness(t, nil)

	for _, tc := range []struct {
		keep   string
		maxAge int
	}{
		{"false", 86400},
		{"true", 604800},
	} {
		rec := h.do(http.MethodPost, "/login", `{"email":"ana@fit.example","password":"correct horse","keep_login":`+tc.keep+`}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		c := refreshCookie(t, rec)
		require.Equal(t, tc.maxAge, c.MaxAge)
		require.True(t, c.HttpOnly)
		require.True(t, c.Secure)
		require.Equal(t, http.SameSiteStrictMode, c.SameSite)

		body := decode(t, rec)
		require.Equal(t, "Bearer", body["token_type"])
		require.EqualValues(t, 900, body["expires_in"])
		require.True(t, strings.HasPrefix(rec.Header().Get("Authorization"), "Bearer "))
	}
}

func TestLoginRejections(t *testing.T) {
	h := newHarness(t, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{"email":`, http.StatusUnprocessableEntity},
		{"unknown field", `{"email":"ana@fit.example","password":"x","admin":true}`, http.StatusUnprocessableEntity},
		{"bad email", `{"email":"not-an-email","password":"x"}`, http.StatusUnprocessableEntity},
		{"missing password", `{"email":"ana@fit.example"}`, http.StatusUnprocessableEntity},
		{"wrong password", `{"email":"ana@fit.example","password":"nope"}`, http.StatusUnauthorized},
		{"lookup failure", `{"email":"down@fit.example","password":"x"}`, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := h.do(http.MethodPost, "/login", tc.body)
			require.Equal(t, tc.want, rec.Code, rec.Body.String())
			require.Empty(t, rec.Result().Cookies())
			require.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}

func TestRefreshAndValidateFlow(t *testing.T) {
	h := newHarness(t, nil)

	login := h.do(http.MethodPost, "/login", `{"email":"ana@fit.example","password":"correct horse","keep_login":true}`)
	require.Equal(t, http.StatusOK, login.Code)
	cookie := refreshCookie(t, login)
	session := login.Header().Get("Authorization")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/validate_token", nil)
	req.Header.Set("Authorization", session)
	h.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "17", decode(t, rec)["subject"])

	h.clock.Advance(20 * time.Minute)

	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, fitauth.ErrExpiredCredential.Error(), decode(t, rec)["detail"])

	refreshed := h.do(http.MethodPost, "/refresh_token", "", cookie)
	require.Equal(t, http.StatusOK, refreshed.Code)
	require.Empty(t, refreshed.Result().Cookies(), "renew must not rewrite the cookie")
	require.EqualValues(t, 900, decode(t, refreshed)["expires_in"])

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/validate_token", nil)
	req.Header.Set("Authorization", refreshed.Header().Get("Authorization"))
	h.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshWithoutCookieIsBadRequest(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodPost, "/refresh_token", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, fitauth.ErrMissingCredential.Error(), decode(t, rec)["detail"])
}

func TestLogoutClearsCookie(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodPost, "/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "refresh_token", cookies[0].Name)
	require.Less(t, cookies[0].MaxAge, 0)
}

func TestRateLimitAppliesToEveryAuthRoute(t *testing.T) {
	h := newHarness(t, func(c *fitauth.Config) { c.RateLimit.MaxRequests = 2 })

	require.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/refresh_token", "").Code)
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/logout", "").Code)

	rec := h.do(http.MethodPost, "/login", `{"email":"ana@fit.example","password":"correct horse"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))
	require.Empty(t, rec.Result().Cookies(), "rejected requests never reach the handler")

	require.Equal(t, http.StatusNoContent, h.do(http.MethodGet, "/healthz", "").Code, "health is not limited")

	h.clock.Advance(time.Minute)
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/logout", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "https://app.fit.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	require.Equal(t, "https://app.fit.example", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestClientIdentityForwardedHeaders(t *testing.T) {
	for _, tc := range []struct {
		name        string
		trust       bool
		secondAllow bool
	}{
		// Rotating X-Forwarded-For must not open a new window.
		{name: "ignored by default", trust: false, secondAllow: false},
		{name: "trusted behind proxy", trust: true, secondAllow: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := fitauth.DefaultConfig()
			cfg.JWT.SessionKey = []byte("session-secret-0123456789")
			cfg.JWT.RefreshKey = []byte("refresh-secret-9876543210")
			cfg.RateLimit.MaxRequests = 1

			fc := clock.NewFake(epoch)
			engine, err := fitauth.New().
				WithConfig(cfg).
				WithClock(fc).
				WithCounterStore(store.NewMemory(fc)).
				Build()
			require.NoError(t, err)
			t.Cleanup(engine.Close)

			handler := NewRouter(Options{
				Engine:            engine,
				Logger:            zerolog.Nop(),
				TrustForwardedFor: tc.trust,
			})

			send := func(forwarded string) int {
				req := httptest.NewRequest(http.MethodPost, "/logout", nil)
				req.RemoteAddr = "10.0.0.1:5555"
				req.Header.Set("X-Forwarded-For", forwarded)
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, req)
				return rec.Code
			}

			require.Equal(t, http.StatusOK, send("203.0.113.1"))
			second := send("203.0.113.2")
			if tc.secondAllow {
				require.Equal(t, http.StatusOK, second)
				require.Equal(t, http.StatusTooManyRequests, send("203.0.113.1"))
			} else {
				require.Equal(t, http.StatusTooManyRequests, second)
			}
		})
	}
}
