package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fittude/fitauth"
)

type errorBody struct {
	Detail string `json:"detail"`
}

// StatusCode maps a fitauth error to its fixed HTTP status.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, fitauth.ErrMissingCredential):
		return http.StatusBadRequest
	case errors.Is(err, fitauth.ErrTamperedCredential),
		errors.Is(err, fitauth.ErrExpiredCredential),
		errors.Is(err, fitauth.ErrInvalidLogin):
		return http.StatusUnauthorized
	case errors.Is(err, fitauth.ErrRequestLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, fitauth.ErrCounterStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// message never echoes wrapped detail; only the sentinel text reaches clients.
func message(err error) string {
	for _, known := range []error{
		fitauth.ErrMissingCredential,
		fitauth.ErrTamperedCredential,
		fitauth.ErrExpiredCredential,
		fitauth.ErrInvalidLogin,
		fitauth.ErrRequestLimitExceeded,
		fitauth.ErrCounterStoreUnavailable,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "internal error"
}

// WriteError writes err as a JSON body with its mapped status.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, StatusCode(err), errorBody{Detail: message(err)})
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
