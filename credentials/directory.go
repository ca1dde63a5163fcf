package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	goSession "github.com/MrEthical07/goSession"
)

// ErrDuplicateEmail is returned when a user with the same email is already registered.
var ErrDuplicateEmail = errors.New("email already registered")

// User is one directory entry. PasswordHash is an argon2id PHC string.
type User struct {
	ID           int64
	Email        string
	Role         goSession.Role
	PasswordHash string
}

// Directory is a concurrency-safe in-memory user table keyed by normalized email.
type Directory struct {
	hasher *Argon2

	mu    sync.RWMutex
	users map[string]User

	// dummyHash is verified for unknown emails so both failure paths cost one argon2 run.
	dummyHash string
}

func NewDirectory(hasher *Argon2) (*Directory, error) {
	if hasher == nil {
		return nil, errors.New("credentials: hasher required")
	}
	dummy, err := hasher.Hash("dummy-password-for-timing")
	if err != nil {
		return nil, err
	}
	return &Directory{
		hasher:    hasher,
		users:     make(map[string]User),
		dummyHash: dummy,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Add registers u. The hash is validated up front so a corrupt entry fails here rather
// than at login.
func (d *Directory) Add(u User) error {
	key := normalizeEmail(u.Email)
	if key == "" {
		return errors.New("credentials: email required")
	}
	if u.ID <= 0 {
		return fmt.Errorf("credentials: invalid user id %d", u.ID)
	}
	if u.Role == "" {
		u.Role = goSession.RoleUser
	}
	if _, err := decodePHC(u.PasswordHash); err != nil {
		return fmt.Errorf("credentials: user %s: %w", key, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateEmail, key)
	}
	d.users[key] = u
	return nil
}

// AddWithPassword hashes password and registers the user.
func (d *Directory) AddWithPassword(id int64, email string, role goSession.Role, password string) error {
	hash, err := d.hasher.Hash(password)
	if err != nil {
		return err
	}
	return d.Add(User{ID: id, Email: email, Role: role, PasswordHash: hash})
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}

// VerifyCredentials implements goSession.CredentialVerifier. Unknown emails and wrong
// passwords both return goSession.ErrInvalidCredentials.
func (d *Directory) VerifyCredentials(ctx context.Context, email, password string) (goSession.Principal, error) {
	if err := ctx.Err(); err != nil {
		return goSession.Principal{}, err
	}

	d.mu.RLock()
	u, ok := d.users[normalizeEmail(email)]
	d.mu.RUnlock()

	hash := u.PasswordHash
	if !ok {
		hash = d.dummyHash
	}
	match, err := d.hasher.Verify(password, hash)
	if err != nil {
		return goSession.Principal{}, err
	}
	if !ok || !match {
		return goSession.Principal{}, goSession.ErrInvalidCredentials
	}
	return goSession.Principal{UserID: u.ID, Email: u.Email, Role: u.Role}, nil
}

var _ goSession.CredentialVerifier = (*Directory)(nil)
