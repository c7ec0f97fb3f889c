package password

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/argon2"
)

func fastConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newHasher(t *testing.T, cfg Config) *Argon2 {
	t.Helper()
	h, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	hasher := newHasher(t, fastConfig())

	hash, err := hasher.Hash("P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}
	if strings.Contains(hash, "=$") || strings.HasSuffix(hash, "=") {
		t.Fatalf("expected unpadded base64: %s", hash)
	}

	if err := hasher.Verify("P@ssw0rd-Ascii", hash); err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if err := hasher.Verify("wrong-password", hash); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
}

func TestVerifyAcceptsPaddedEncoding(t *testing.T) {
	salt := []byte("0123456789abcdef")
	key := argon2.IDKey([]byte("legacy-password"), salt, 2, 8*1024, 2, 32)
	stored := "$argon2id$v=19$m=8192,t=2,p=2$" +
		base64.StdEncoding.EncodeToString(salt) + "$" +
		base64.StdEncoding.EncodeToString(key)

	hasher := newHasher(t, fastConfig())
	if err := hasher.Verify("legacy-password", stored); err != nil {
		t.Fatalf("padded hash rejected: %v", err)
	}
}

func TestNeedsRehash(t *testing.T) {
	weak := newHasher(t, fastConfig())
	hash, err := weak.Hash("test-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	strong := fastConfig()
	strong.Time = 3
	needs, err := newHasher(t, strong).NeedsRehash(hash)
	if err != nil || !needs {
		t.Fatalf("expected rehash for weaker parameters: %v %v", needs, err)
	}

	needs, err = weak.NeedsRehash(hash)
	if err != nil || needs {
		t.Fatalf("expected no rehash for current parameters: %v %v", needs, err)
	}
}

func TestVerifyInvalidHashes(t *testing.T) {
	hasher := newHasher(t, fastConfig())
	hash, err := hasher.Hash("version-test")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	for name, stored := range map[string]string{
		"not phc":       "not-a-phc-hash",
		"argon2i":       strings.Replace(hash, "argon2id", "argon2i", 1),
		"wrong version": strings.Replace(hash, "$v=19$", "$v=18$", 1),
		"low memory":    strings.Replace(hash, "m=8192", "m=64", 1),
		"bad salt":      strings.Replace(hash, "$m=8192,t=1,p=1$", "$m=8192,t=1,p=1$!!!", 1),
	} {
		if err := hasher.Verify("version-test", stored); !errors.Is(err, ErrInvalidHash) {
			t.Fatalf("%s: expected ErrInvalidHash, got %v", name, err)
		}
	}
}

func TestPasswordLengthBounds(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxPasswordBytes = 64
	hasher := newHasher(t, cfg)

	if _, err := hasher.Hash(""); err == nil {
		t.Fatal("expected empty password hash to fail")
	}
	if _, err := hasher.Hash(strings.Repeat("a", 65)); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}

	exact := strings.Repeat("b", 64)
	hash, err := hasher.Hash(exact)
	if err != nil {
		t.Fatalf("expected max-length password to be accepted: %v", err)
	}
	if err := hasher.Verify(exact, hash); err != nil {
		t.Fatalf("Verify failed for max-length password: %v", err)
	}
	if err := hasher.Verify(strings.Repeat("c", 65), hash); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong from Verify, got %v", err)
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	cfg := fastConfig()
	cfg.Memory = 1024
	if _, err := NewArgon2(cfg); err == nil {
		t.Fatal("expected weak memory to be rejected")
	}
	if _, err := NewArgon2(DefaultConfig()); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}
}
