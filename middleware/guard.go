package middleware

import (
	"net/http"
	"strings"

	"github.com/fittude/fitauth"
)

// Guard rejects requests without a valid Bearer session credential. On
// success the subject is bound into the request context, readable with
// [fitauth.SubjectFromContext].
func Guard(engine *fitauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, fitauth.ErrEngineNotReady)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				WriteError(w, fitauth.ErrMissingCredential)
				return
			}

			subject, err := engine.Validate(r.Context(), token)
			if err != nil {
				WriteError(w, err)
				return
			}

			ctx := fitauth.WithSubject(r.Context(), subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
