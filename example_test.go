package fitauth_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/fittude/fitauth"
	"github.com/redis/go-redis/v9"
)

// ExampleNew builds an engine backed by a shared Redis counter store.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})

	cfg := fitauth.DefaultConfig()
	cfg.JWT.SessionKey = []byte("replace-with-session-secret")
	cfg.JWT.RefreshKey = []byte("replace-with-refresh-secret")

	engine, err := fitauth.New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		return
	}
	defer engine.Close()
}

// ExampleEngine_Renew issues a pair, stores the refresh cookie and renews
// from it on a later request.
func ExampleEngine_Renew() {
	cfg := fitauth.DefaultConfig()
	cfg.JWT.SessionKey = []byte("replace-with-session-secret")
	cfg.JWT.RefreshKey = []byte("replace-with-refresh-secret")
	cfg.RateLimit.Enabled = false

	engine, err := fitauth.New().WithConfig(cfg).Build()
	if err != nil {
		fmt.Println(err)
		return
	}
	defer engine.Close()

	ctx := context.Background()
	pair, _ := engine.IssueTokens(ctx, "42", false)

	rec := httptest.NewRecorder()
	_ = engine.SetRefreshCookie(fitauth.NewHTTPTransport(rec, nil), pair.Refresh)

	req := httptest.NewRequest(http.MethodPost, "/refresh_token", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	session, err := engine.Renew(ctx, fitauth.NewHTTPTransport(nil, req))
	if err != nil {
		fmt.Println(err)
		return
	}

	subject, _ := engine.Validate(ctx, session.Value)
	fmt.Println(subject, session.ExpiresIn())
	// Output: 42 900
}
