package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTampered is returned when the signature, algorithm, or class tag does not verify.
	ErrTampered = errors.New("credential signature invalid")
	// ErrExpired is returned when a correctly signed credential is at or past its expiry.
	ErrExpired = errors.New("credential expired")
	// ErrMalformed is returned when the credential cannot be decoded at all.
	ErrMalformed = errors.New("credential malformed")
)

// Class tags which secret signs a credential.
type Class string

const (
	// ClassSession marks the short-lived bearer credential.
	ClassSession Class = "session"
	// ClassRefresh marks the cookie-held credential used to mint session credentials.
	ClassRefresh Class = "refresh"
)

// Valid reports whether c is one of the two known classes.
func (c Class) Valid() bool {
	return c == ClassSession || c == ClassRefresh
}

// SigningMethod names the HMAC variant used for both classes.
type SigningMethod string

const (
	// MethodHS256 signs with HMAC-SHA256.
	MethodHS256 SigningMethod = "hs256"
	// MethodHS384 signs with HMAC-SHA384.
	MethodHS384 SigningMethod = "hs384"
	// MethodHS512 signs with HMAC-SHA512.
	MethodHS512 SigningMethod = "hs512"
)

// MinKeyLength is the shortest secret NewCodec accepts.
const MinKeyLength = 16

// Config holds the codec secrets. It is read once by NewCodec.
type Config struct {
	SigningMethod SigningMethod
	SessionKey    []byte
	RefreshKey    []byte
	Issuer        string
}

// Claims is the payload of a fitauth credential.
type Claims struct {
	Class Class `json:"cls"`
	jwt.RegisteredClaims
}

// Codec signs and verifies credentials. A Codec is immutable after NewCodec
// and safe for concurrent use.
type Codec struct {
	method     jwt.SigningMethod
	sessionKey []byte
	refreshKey []byte
	issuer     string
}

// NewCodec validates cfg and returns a Codec holding private copies of the secrets.
func NewCodec(cfg Config) (*Codec, error) {
	method, err := resolveMethod(cfg.SigningMethod)
	if err != nil {
		return nil, err
	}
	if len(cfg.SessionKey) < MinKeyLength {
		return nil, errors.New("session key too short")
	}
	if len(cfg.RefreshKey) < MinKeyLength {
		return nil, errors.New("refresh key too short")
	}
	if string(cfg.SessionKey) == string(cfg.RefreshKey) {
		return nil, errors.New("session and refresh keys must differ")
	}

	return &Codec{
		method:     method,
		sessionKey: append([]byte(nil), cfg.SessionKey...),
		refreshKey: append([]byte(nil), cfg.RefreshKey...),
		issuer:     cfg.Issuer,
	}, nil
}

// Encode signs a credential for subject that expires at now+ttl. The output is
// deterministic for identical inputs.
func (c *Codec) Encode(subject string, class Class, ttl time.Duration, now time.Time) (string, error) {
	if subject == "" {
		return "", errors.New("empty subject")
	}
	if ttl <= 0 {
		return "", errors.New("ttl must be > 0")
	}
	key, err := c.key(class)
	if err != nil {
		return "", err
	}

	claims := Claims{
		Class: class,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(c.method, claims).SignedString(key)
}

// Decode verifies token as a credential of class at instant now and returns its subject.
func (c *Codec) Decode(token string, class Class, now time.Time) (string, error) {
	claims, err := c.Parse(token, class, now)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Parse verifies token and returns its full claims. Errors are always one of
// ErrTampered, ErrExpired or ErrMalformed, wrapped with the parser's detail.
func (c *Codec) Parse(token string, class Class, now time.Time) (*Claims, error) {
	key, err := c.key(class)
	if err != nil {
		return nil, err
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		options = append(options, jwt.WithIssuer(c.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) && signatureOnlyMalformed(token) {
			return nil, errors.Join(ErrTampered, err)
		}
		return nil, classify(err)
	}
	if !parsed.Valid {
		return nil, ErrTampered
	}
	if claims.Class != class {
		return nil, ErrTampered
	}
	if claims.Subject == "" {
		return nil, ErrMalformed
	}

	return claims, nil
}

// ExpiresAtTime reports the embedded expiry, or the zero time when absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

func (c *Codec) key(class Class) ([]byte, error) {
	switch class {
	case ClassSession:
		return c.sessionKey, nil
	case ClassRefresh:
		return c.refreshKey, nil
	default:
		return nil, errors.New("unknown credential class")
	}
}

// classify folds golang-jwt's error tree into the codec's three sentinels.
// Signature checks run before claim checks, so an expired credential with a
// bad signature reports ErrTampered.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return errors.Join(ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return errors.Join(ErrTampered, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return errors.Join(ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenInvalidClaims),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenNotValidYet):
		return errors.Join(ErrTampered, err)
	default:
		return errors.Join(ErrMalformed, err)
	}
}

// signatureOnlyMalformed reports whether token has a well-formed header and
// payload and only its signature segment fails to decode.
func signatureOnlyMalformed(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[2] == "" {
		return false
	}
	_, _, err := jwt.NewParser().ParseUnverified(parts[0]+"."+parts[1]+".", &Claims{})
	return err == nil
}

func resolveMethod(m SigningMethod) (jwt.SigningMethod, error) {
	switch m {
	case MethodHS256, "":
		return jwt.SigningMethodHS256, nil
	case MethodHS384:
		return jwt.SigningMethodHS384, nil
	case MethodHS512:
		return jwt.SigningMethodHS512, nil
	default:
		return nil, errors.New("unsupported signing method")
	}
}
