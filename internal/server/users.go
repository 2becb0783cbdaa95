// users.go - Postgres-backed user directory and password verification.
//
// The directory is the only component that touches user records; handlers
// depend on the UserDirectory interface so tests can swap in an in-memory
// implementation.
package server

import (
	"context"
	"database/sql"
	"log"

	"golang.org/x/crypto/bcrypt"
)

// User is the authenticated identity attached to requests. ID is the
// stable internal reference; Username is the human-chosen name.
type User struct {
	ID       string
	Username string
}

// UserDirectory resolves user records for login and session rehydration.
// Both methods fail soft: a false second return covers unknown users,
// wrong passwords, and inactive accounts alike, so callers cannot tell
// which usernames exist.
type UserDirectory interface {
	Authenticate(ctx context.Context, username, password string) (User, bool)
	ByID(ctx context.Context, id string) (User, bool)
}

// NewUserDirectory returns a UserDirectory backed by the users table.
func NewUserDirectory(db *sql.DB) UserDirectory {
	return &sqlUserDirectory{db: db}
}

type sqlUserDirectory struct {
	db *sql.DB
}

// dummyPasswordHash is compared against when no user row matches, so the
// unknown-username path costs a bcrypt comparison just like the
// wrong-password path. Generated once at startup; the plaintext is never
// a valid credential because it belongs to no account.
var dummyPasswordHash = func() string {
	b, err := bcrypt.GenerateFromPassword([]byte("no-such-user-timing-pad"), bcrypt.DefaultCost)
	if err != nil {
		// bcrypt only fails on oversized input; this input is fixed.
		panic(err)
	}
	return string(b)
}()

func (d *sqlUserDirectory) Authenticate(ctx context.Context, username, password string) (User, bool) {
	var u User
	var passwordHash string

	err := d.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash FROM users WHERE username = $1 AND is_active = TRUE",
		username,
	).Scan(&u.ID, &u.Username, &passwordHash)

	if err != nil {
		if err != sql.ErrNoRows {
			log.Printf("users: lookup by username failed: %v", err)
		}
		// Burn a comparison anyway to keep timing uniform.
		_ = verifyPassword(password, dummyPasswordHash)
		return User{}, false
	}

	if !verifyPassword(password, passwordHash) {
		return User{}, false
	}

	return u, true
}

func (d *sqlUserDirectory) ByID(ctx context.Context, id string) (User, bool) {
	var u User

	err := d.db.QueryRowContext(ctx,
		"SELECT id, username FROM users WHERE id = $1 AND is_active = TRUE",
		id,
	).Scan(&u.ID, &u.Username)

	if err != nil {
		if err != sql.ErrNoRows {
			log.Printf("users: lookup by id failed: %v", err)
		}
		return User{}, false
	}

	return u, true
}

// verifyPassword compares a plaintext password against a stored bcrypt hash.
func verifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashPassword produces a bcrypt digest suitable for the users table.
// User creation happens out of band; this is exported for seeding scripts
// and tests.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
