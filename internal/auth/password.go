package auth

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var passwordCost = bcrypt.DefaultCost

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// HashPassword returns a bcrypt hash suitable for User.PasswordHash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares in constant time via bcrypt.
func VerifyPassword(password, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
}

// burnPasswordCheck spends a bcrypt comparison when the username is unknown
// so lookup misses and wrong passwords take the same time.
func burnPasswordCheck(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("portal-dummy-password"), passwordCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}
