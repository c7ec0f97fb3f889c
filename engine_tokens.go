package fitauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fittude/fitauth/jwt"
)

// Token is a freshly minted credential and its lifetime.
type Token struct {
	Value     string
	Class     jwt.Class
	ExpiresAt time.Time
	TTL       time.Duration
}

// ExpiresIn is the credential lifetime in whole seconds.
func (t Token) ExpiresIn() int {
	return int(t.TTL / time.Second)
}

// TokenPair is the result of a successful login.
type TokenPair struct {
	Session Token
	Refresh Token
}

// GenerateSessionToken mints a session credential for subject valid for the
// configured session TTL.
func (e *Engine) GenerateSessionToken(ctx context.Context, subject string) (Token, error) {
	if e == nil || e.codec == nil {
		return Token{}, ErrEngineNotReady
	}
	tok, err := e.mint(subject, jwt.ClassSession, e.config.JWT.SessionTTL)
	if err != nil {
		return Token{}, err
	}
	e.metricInc(MetricSessionIssued)
	return tok, nil
}

// GenerateRefreshToken mints a refresh credential for subject. keepLogin
// selects the long refresh TTL; otherwise the short one applies to this
// credential only.
func (e *Engine) GenerateRefreshToken(ctx context.Context, subject string, keepLogin bool) (Token, error) {
	if e == nil || e.codec == nil {
		return Token{}, ErrEngineNotReady
	}
	ttl := e.config.JWT.ShortRefreshTTL
	if keepLogin {
		ttl = e.config.JWT.RefreshTTL
	}
	tok, err := e.mint(subject, jwt.ClassRefresh, ttl)
	if err != nil {
		return Token{}, err
	}
	e.metricInc(MetricRefreshIssued)
	return tok, nil
}

// IssueTokens mints both credentials for an already authenticated subject.
func (e *Engine) IssueTokens(ctx context.Context, subject string, keepLogin bool) (TokenPair, error) {
	session, err := e.GenerateSessionToken(ctx, subject)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := e.GenerateRefreshToken(ctx, subject, keepLogin)
	if err != nil {
		return TokenPair{}, err
	}

	e.emitAudit(ctx, AuditCredentialIssued, true, subject, jwt.ClassRefresh, "")
	return TokenPair{Session: session, Refresh: refresh}, nil
}

// SetRefreshCookie attaches tok to the outbound response.
func (e *Engine) SetRefreshCookie(t Transport, tok Token) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if t == nil {
		return errors.New("nil transport")
	}
	if tok.Class != jwt.ClassRefresh || tok.Value == "" {
		return errors.New("refresh cookie requires a refresh credential")
	}

	t.SetCookie(&http.Cookie{
		Name:     e.config.Cookie.Name,
		Value:    tok.Value,
		Path:     e.config.Cookie.Path,
		Domain:   e.config.Cookie.Domain,
		MaxAge:   tok.ExpiresIn(),
		Expires:  tok.ExpiresAt.UTC(),
		HttpOnly: true,
		Secure:   e.config.Cookie.Secure,
		SameSite: e.config.Cookie.SameSite,
	})
	return nil
}

// RefreshCredential reads the refresh credential from the inbound cookies.
func (e *Engine) RefreshCredential(t Transport) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if t == nil {
		return "", ErrMissingCredential
	}
	c, err := t.Cookie(e.config.Cookie.Name)
	if err != nil || c.Value == "" {
		return "", ErrMissingCredential
	}
	return c.Value, nil
}

// DeleteRefreshCookie instructs the client to drop its refresh cookie. The
// credential itself stays valid until its own expiry.
func (e *Engine) DeleteRefreshCookie(ctx context.Context, t Transport) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if t == nil {
		return errors.New("nil transport")
	}

	t.SetCookie(&http.Cookie{
		Name:     e.config.Cookie.Name,
		Value:    "",
		Path:     e.config.Cookie.Path,
		Domain:   e.config.Cookie.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		HttpOnly: true,
		Secure:   e.config.Cookie.Secure,
		SameSite: e.config.Cookie.SameSite,
	})

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, AuditLogout, true, "", jwt.ClassRefresh, "")
	return nil
}

// Renew exchanges the refresh cookie on t for a new session credential.
// It never writes to t.
func (e *Engine) Renew(ctx context.Context, t Transport) (Token, error) {
	if e == nil || e.codec == nil {
		return Token{}, ErrEngineNotReady
	}

	raw, err := e.RefreshCredential(t)
	if err != nil {
		e.metricInc(MetricMissingCredential)
		e.metricInc(MetricRenewFailure)
		e.emitAudit(ctx, AuditRenewFailed, false, "", jwt.ClassRefresh, reasonMissing)
		return Token{}, err
	}

	subject, err := e.codec.Decode(raw, jwt.ClassRefresh, e.now())
	if err != nil {
		mapped, reason := e.codecFailure(ctx, jwt.ClassRefresh, err)
		e.metricInc(MetricRenewFailure)
		e.emitAudit(ctx, AuditRenewFailed, false, "", jwt.ClassRefresh, reason)
		return Token{}, mapped
	}

	tok, err := e.GenerateSessionToken(ctx, subject)
	if err != nil {
		e.metricInc(MetricRenewFailure)
		return Token{}, fmt.Errorf("%w: %v", ErrUnknownAuth, err)
	}

	e.metricInc(MetricRenewSuccess)
	e.emitAudit(ctx, AuditCredentialRenewed, true, subject, jwt.ClassSession, "")
	return tok, nil
}

// Validate verifies a presented session credential and returns its subject.
func (e *Engine) Validate(ctx context.Context, token string) (string, error) {
	if e == nil || e.codec == nil {
		return "", ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}

	if token == "" {
		e.metricInc(MetricMissingCredential)
		return "", ErrMissingCredential
	}

	subject, err := e.codec.Decode(token, jwt.ClassSession, e.now())
	if err != nil {
		mapped, reason := e.codecFailure(ctx, jwt.ClassSession, err)
		e.emitAudit(ctx, AuditValidateFailed, false, "", jwt.ClassSession, reason)
		return "", mapped
	}

	e.metricInc(MetricValidateSuccess)
	return subject, nil
}

func (e *Engine) mint(subject string, class jwt.Class, ttl time.Duration) (Token, error) {
	if subject == "" {
		return Token{}, errors.New("empty subject")
	}
	now := e.now()
	value, err := e.codec.Encode(subject, class, ttl, now)
	if err != nil {
		return Token{}, err
	}
	return Token{
		Value:     value,
		Class:     class,
		ExpiresAt: now.Add(ttl).Truncate(time.Second),
		TTL:       ttl,
	}, nil
}

// validateMetric counts session-class failures only; refresh failures are
// counted by Renew as MetricRenewFailure.
func (e *Engine) validateMetric(class jwt.Class, id MetricID) {
	if class == jwt.ClassSession {
		e.metricInc(id)
	}
}

// codecFailure maps a codec error onto the public taxonomy and records it.
// Expiry and tampering are logged at Warn with distinct reasons; anything the
// codec could not even parse is logged at Error.
func (e *Engine) codecFailure(ctx context.Context, class jwt.Class, err error) (error, string) {
	switch {
	case errors.Is(err, jwt.ErrExpired):
		e.validateMetric(class, MetricValidateExpired)
		e.logger.Warn().Str("class", string(class)).Str("reason", reasonExpired).
			Str("request_id", RequestIDFromContext(ctx)).Msg("credential rejected")
		return ErrExpiredCredential, reasonExpired
	case errors.Is(err, jwt.ErrTampered):
		e.validateMetric(class, MetricValidateTampered)
		e.logger.Warn().Str("class", string(class)).Str("reason", reasonSignature).
			Str("ip", clientIPFromContext(ctx)).Str("request_id", RequestIDFromContext(ctx)).
			Err(err).Msg("credential rejected")
		return ErrTamperedCredential, reasonSignature
	default:
		e.validateMetric(class, MetricValidateUnknown)
		e.logger.Error().Str("class", string(class)).Str("reason", reasonMalformed).
			Str("ip", clientIPFromContext(ctx)).Str("request_id", RequestIDFromContext(ctx)).
			Err(err).Msg("unrecognized credential failure")
		return ErrUnknownAuth, reasonMalformed
	}
}
