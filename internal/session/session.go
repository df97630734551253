package session

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/itsJ0ker/midnight/internal/database"
)

// ErrInvalidCredentials is returned for any failed login. Unknown email and wrong password are not told apart.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator looks up an admin by exact email and password.
type Authenticator interface {
	FindAdminByCredentials(ctx context.Context, email, password string) (*database.Admin, error)
}

// Session is the identity of the admin using one browser session.
type Session struct {
	Account *database.Admin
}

func (s Session) Authenticated() bool {
	return s.Account != nil
}

// Role returns the role of the account, or an empty role when nobody is logged in.
func (s Session) Role() database.Role {
	if s.Account == nil {
		return ""
	}
	return s.Account.Role
}

// Store holds the current session.
type Store struct {
	mu      sync.RWMutex
	auth    Authenticator
	current Session
}

func NewStore(auth Authenticator) *Store {
	return &Store{auth: auth}
}

// Current returns a copy of the current session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current.Account == nil {
		return Session{}
	}
	account := *s.current.Account
	return Session{Account: &account}
}

// Authenticate replaces the session with the matching account.
// On failure the session is left empty and ErrInvalidCredentials is returned.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*database.Admin, error) {
	admin, err := s.auth.FindAdminByCredentials(ctx, email, password)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil || admin == nil {
		s.current = Session{}
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			log.Error("admin lookup failed", "email", email, "error", err)
		}
		return nil, ErrInvalidCredentials
	}

	s.current = Session{Account: admin}
	log.Info("admin logged in", "email", admin.Email, "role", admin.Role)

	account := *admin
	return &account, nil
}

// Clear ends the session.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Session{}
}
