// Package userdb resolves login credentials against the users table.
package userdb

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/fittude/fitauth"
	"github.com/fittude/fitauth/password"
	"github.com/jackc/pgx/v5"
)

// Querier is the subset of *pgxpool.Pool and pgx.Conn used here.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Verifier checks a plaintext password against a stored hash.
type Verifier interface {
	Verify(password, stored string) error
}

const lookupSQL = `SELECT user_id, password FROM users WHERE email = $1`

// Directory authenticates users stored in Postgres.
type Directory struct {
	db       Querier
	verifier Verifier

	// dummy is verified on unknown emails so both failure paths cost one hash.
	dummy string
}

// New returns a Directory reading from db. hasher also produces the dummy
// hash used to even out timing for unknown users.
func New(db Querier, hasher *password.Argon2) (*Directory, error) {
	if db == nil || hasher == nil {
		return nil, errors.New("userdb: db and hasher are required")
	}
	dummy, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("userdb: %w", err)
	}
	return &Directory{db: db, verifier: hasher, dummy: dummy}, nil
}

// Authenticate returns the subject for email when password matches. Unknown
// emails and wrong passwords both return [fitauth.ErrInvalidLogin].
func (d *Directory) Authenticate(ctx context.Context, email, pw string) (string, error) {
	var (
		userID int64
		stored string
	)
	err := d.db.QueryRow(ctx, lookupSQL, email).Scan(&userID, &stored)
	if errors.Is(err, pgx.ErrNoRows) {
		_ = d.verifier.Verify(pw, d.dummy)
		return "", fitauth.ErrInvalidLogin
	}
	if err != nil {
		return "", fmt.Errorf("userdb: lookup: %w", err)
	}

	switch err := d.verifier.Verify(pw, stored); {
	case err == nil:
		return strconv.FormatInt(userID, 10), nil
	case errors.Is(err, password.ErrMismatch), errors.Is(err, password.ErrTooLong):
		return "", fitauth.ErrInvalidLogin
	default:
		return "", fmt.Errorf("userdb: stored hash for user %d: %w", userID, err)
	}
}
