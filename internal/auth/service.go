package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service struct {
	users  UserStore
	tokens *TokenService
}

func NewService(userStore UserStore, tokens *TokenService) (*Service, error) {
	if userStore == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}
	return &Service{users: userStore, tokens: tokens}, nil
}

// Login checks the password against the stored bcrypt hash and issues a token
// carrying the stored role.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			burnPasswordCheck(password)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}

	if !VerifyPassword(password, u.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: token, User: u}, nil
}

func (s *Service) Verify(token string) (Claims, error) {
	return s.tokens.Verify(token)
}

// Provision hashes password and stores the account.
func (s *Service) Provision(ctx context.Context, username, password string, role Role) (User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	u, err := s.users.Put(ctx, User{Username: username, PasswordHash: hash, Role: role})
	if err != nil {
		return User{}, fmt.Errorf("store user: %w", err)
	}
	return u, nil
}

type DemoAccount struct {
	Username string
	Password string
	Role     Role
}

// DemoAccounts are the walkthrough logins. coach1 is a scout account; role
// always comes from the store, never from the username.
func DemoAccounts() []DemoAccount {
	return []DemoAccount{
		{Username: "athlete", Password: "training123", Role: RoleAthlete},
		{Username: "scout1", Password: "scout123", Role: RoleScout},
		{Username: "coach1", Password: "coach123", Role: RoleScout},
	}
}
