package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileUserStore keeps provisioned accounts in a YAML document:
//
//	users:
//	  - id: 1
//	    username: athlete
//	    password_hash: $2a$10$...
//	    role: athlete
type FileUserStore struct {
	path string

	mu     sync.RWMutex
	users  map[string]User
	nextID int64
}

type userFile struct {
	Users []User `yaml:"users"`
}

func NewFileUserStore(path string) (*FileUserStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("user file path is required")
	}

	s := &FileUserStore{
		path:   path,
		users:  make(map[string]User),
		nextID: 1,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileUserStore) GetByUsername(_ context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[strings.TrimSpace(username)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *FileUserStore) Put(_ context.Context, user User) (User, error) {
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
	if err := s.persistLocked(); err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *FileUserStore) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read user file: %w", err)
	}
	if len(b) == 0 {
		return nil
	}

	var decoded userFile
	if err := yaml.Unmarshal(b, &decoded); err != nil {
		return fmt.Errorf("decode user file: %w", err)
	}
	for _, u := range decoded.Users {
		if strings.TrimSpace(u.Username) == "" {
			continue
		}
		if !ValidRole(string(u.Role)) {
			return fmt.Errorf("user %q has invalid role %q", u.Username, u.Role)
		}
		if u.ID <= 0 {
			return fmt.Errorf("user %q has no id", u.Username)
		}
		s.users[u.Username] = u
		if u.ID >= s.nextID {
			s.nextID = u.ID + 1
		}
	}
	return nil
}

func (s *FileUserStore) persistLocked() error {
	out := userFile{Users: make([]User, 0, len(s.users))}
	for _, u := range s.users {
		out.Users = append(out.Users, u)
	}
	sort.Slice(out.Users, func(i, j int) bool { return out.Users[i].ID < out.Users[j].ID })

	b, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode user file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir user file dir: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write user file: %w", err)
	}
	return nil
}
