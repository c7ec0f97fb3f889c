package middleware

import (
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/fittude/fitauth"
)

// Admission counts every request against the client's window before the
// wrapped handler runs. Rejections never reach next.
//
// The client identity is the host part of RemoteAddr; put chi's RealIP in
// front of Admission to honor proxy headers.
func Admission(engine *fitauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, fitauth.ErrEngineNotReady)
				return
			}

			ip := ClientIP(r)
			ctx := fitauth.WithClientIP(r.Context(), ip)

			d, err := engine.Admit(ctx, ip)
			if err != nil && !errors.Is(err, fitauth.ErrRequestLimitExceeded) {
				WriteError(w, err)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if err != nil {
				h.Set("Retry-After", strconv.Itoa(retryAfterSeconds(d.ResetAfter)))
				WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP returns the host part of r.RemoteAddr, or RemoteAddr unchanged
// when it carries no port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	return int(math.Ceil(d.Seconds()))
}
