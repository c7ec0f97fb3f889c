package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const algorithmID = "argon2id"

// DefaultMaxPasswordBytes caps input size when Config.MaxPasswordBytes is zero.
const DefaultMaxPasswordBytes = 1024

// Lower bounds accepted from both configuration and stored hashes.
const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 8
	minKeyLength   uint32 = 16
)

var (
	// ErrMismatch is returned by Verify when the password does not match.
	ErrMismatch = errors.New("password mismatch")
	// ErrInvalidHash is returned when a stored hash cannot be parsed.
	ErrInvalidHash = errors.New("invalid password hash")
	// ErrTooLong is returned before any hashing for oversized input.
	ErrTooLong = errors.New("password too long")
)

// Config holds Argon2id cost parameters.
type Config struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MaxPasswordBytes int
}

// DefaultConfig matches the parameters of the hashes already stored in the
// users table: 64 MiB, three passes, four lanes.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2 hashes and verifies passwords. It is immutable and safe for
// concurrent use.
type Argon2 struct {
	config Config
}

type encodedHash struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

// NewArgon2 validates cfg.
func NewArgon2(cfg Config) (*Argon2, error) {
	switch {
	case cfg.Memory < minMemoryKB:
		return nil, fmt.Errorf("password memory must be >= %d KiB", minMemoryKB)
	case cfg.Time < minTimeCost:
		return nil, errors.New("password time must be >= 1")
	case cfg.Parallelism < minParallelism:
		return nil, errors.New("password parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, fmt.Errorf("password salt length must be >= %d", minSaltLength)
	case cfg.KeyLength < minKeyLength:
		return nil, fmt.Errorf("password key length must be >= %d", minKeyLength)
	}
	if cfg.MaxPasswordBytes <= 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{config: cfg}, nil
}

// Hash returns a PHC string with unpadded base64 salt and key.
func (a *Argon2) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	if len(password) > a.config.MaxPasswordBytes {
		return "", ErrTooLong
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version,
		a.config.Memory, a.config.Time, a.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks password against a stored PHC hash using the parameters
// recorded in the hash. It returns ErrMismatch for a wrong password and
// ErrInvalidHash for an unreadable hash.
func (a *Argon2) Verify(password, stored string) error {
	if len(password) > a.config.MaxPasswordBytes {
		return ErrTooLong
	}
	h, err := decode(stored)
	if err != nil {
		return err
	}

	computed := argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.parallelism, uint32(len(h.key)))
	if subtle.ConstantTimeCompare(computed, h.key) != 1 {
		return ErrMismatch
	}
	return nil
}

// NeedsRehash reports whether stored was produced with weaker parameters
// than a's configuration.
func (a *Argon2) NeedsRehash(stored string) (bool, error) {
	h, err := decode(stored)
	if err != nil {
		return false, err
	}
	return a.config.Memory > h.memory ||
		a.config.Time > h.time ||
		a.config.Parallelism > h.parallelism ||
		a.config.KeyLength != uint32(len(h.key)), nil
}

func decode(stored string) (*encodedHash, error) {
	parts := strings.Split(stored, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return nil, fmt.Errorf("%w: not an argon2id PHC string", ErrInvalidHash)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported version", ErrInvalidHash)
	}

	var (
		h           encodedHash
		parallelism uint32
	)
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.memory, &h.time, &parallelism); err != nil {
		return nil, fmt.Errorf("%w: bad parameters", ErrInvalidHash)
	}
	if h.memory < minMemoryKB || h.time < minTimeCost || parallelism < uint32(minParallelism) || parallelism > 255 {
		return nil, fmt.Errorf("%w: parameters out of range", ErrInvalidHash)
	}
	h.parallelism = uint8(parallelism)

	var err error
	if h.salt, err = decodeB64(parts[4]); err != nil || len(h.salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: bad salt", ErrInvalidHash)
	}
	if h.key, err = decodeB64(parts[5]); err != nil || len(h.key) < int(minKeyLength) {
		return nil, fmt.Errorf("%w: bad key", ErrInvalidHash)
	}

	return &h, nil
}

// decodeB64 accepts the unpadded form from the PHC spec as well as the padded
// form some older writers emit.
func decodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}
