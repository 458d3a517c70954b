package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var ErrUserNotFound = errors.New("user not found")

// UserStore is the credential store. Put inserts or replaces by username and
// returns the stored user with its id assigned.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (User, error)
	Put(ctx context.Context, user User) (User, error)
}

type InMemoryUserStore struct {
	mu     sync.RWMutex
	users  map[string]User
	nextID int64
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[string]User), nextID: 1}
}

func (s *InMemoryUserStore) GetByUsername(_ context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[strings.TrimSpace(username)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *InMemoryUserStore) Put(_ context.Context, user User) (User, error) {
	if err := validateUser(user); err != nil {
		return User{}, err
	}
	user.Username = strings.TrimSpace(user.Username)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[user.Username]; ok && user.ID == 0 {
		user.ID = existing.ID
	}
	if user.ID == 0 {
		user.ID = s.nextID
	}
	if user.ID >= s.nextID {
		s.nextID = user.ID + 1
	}
	s.users[user.Username] = user
	return user, nil
}

func validateUser(user User) error {
	if strings.TrimSpace(user.Username) == "" || user.PasswordHash == "" {
		return fmt.Errorf("username and password hash are required")
	}
	if !ValidRole(string(user.Role)) {
		return fmt.Errorf("invalid role %q", user.Role)
	}
	return nil
}
