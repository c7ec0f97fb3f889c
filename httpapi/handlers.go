package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fittude/fitauth"
	"github.com/fittude/fitauth/middleware"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 16

type loginRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,max=1024"`
	KeepLogin bool   `json:"keep_login"`
}

type tokenResponse struct {
	Message   string `json:"message"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
}

type messageResponse struct {
	Message string `json:"message"`
	Subject string `json:"subject,omitempty"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		middleware.WriteJSON(w, http.StatusUnprocessableEntity, detailResponse{Detail: "malformed request body"})
		return
	}
	if err := a.validate.Struct(req); err != nil {
		middleware.WriteJSON(w, http.StatusUnprocessableEntity, detailResponse{Detail: validationDetail(err)})
		return
	}

	subject, err := a.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, fitauth.ErrInvalidLogin) {
			a.logger.Error().Err(err).Str("request_id", fitauth.RequestIDFromContext(r.Context())).Msg("login lookup failed")
		}
		middleware.WriteError(w, err)
		return
	}

	pair, err := a.engine.IssueTokens(r.Context(), subject, req.KeepLogin)
	if err != nil {
		a.logger.Error().Err(err).Msg("issue tokens failed")
		middleware.WriteError(w, err)
		return
	}
	if err := a.engine.SetRefreshCookie(fitauth.NewHTTPTransport(w, r), pair.Refresh); err != nil {
		a.logger.Error().Err(err).Msg("set refresh cookie failed")
		middleware.WriteError(w, err)
		return
	}

	writeBearer(w, "Login successful!", pair.Session)
}

func (a *api) refreshToken(w http.ResponseWriter, r *http.Request) {
	tok, err := a.engine.Renew(r.Context(), fitauth.NewHTTPTransport(w, r))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeBearer(w, "Session token refreshed", tok)
}

func (a *api) logout(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.DeleteRefreshCookie(r.Context(), fitauth.NewHTTPTransport(w, r)); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, messageResponse{Message: "Logout successful!"})
}

func (a *api) validateToken(w http.ResponseWriter, r *http.Request) {
	subject, _ := fitauth.SubjectFromContext(r.Context())
	middleware.WriteJSON(w, http.StatusOK, messageResponse{Message: "Token is valid", Subject: subject})
}

func writeBearer(w http.ResponseWriter, msg string, tok fitauth.Token) {
	w.Header().Set("Authorization", "Bearer "+tok.Value)
	w.Header().Set("Cache-Control", "no-store")
	middleware.WriteJSON(w, http.StatusOK, tokenResponse{
		Message:   msg,
		TokenType: "Bearer",
		ExpiresIn: tok.ExpiresIn(),
	})
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return "invalid field " + fe.Field() + ": " + fe.Tag()
	}
	return "invalid request"
}
