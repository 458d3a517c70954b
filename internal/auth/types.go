package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the account type carried on verified claims.
type Role string

const (
	RoleAthlete Role = "athlete"
	RoleScout   Role = "scout"
)

// ValidRole returns true when role is one of the supported roles.
func ValidRole(role string) bool {
	switch Role(role) {
	case RoleAthlete, RoleScout:
		return true
	default:
		return false
	}
}

type User struct {
	ID           int64  `json:"id" db:"id" yaml:"id"`
	Username     string `json:"username" db:"username" yaml:"username"`
	PasswordHash string `json:"-" db:"password_hash" yaml:"password_hash"`
	Role         Role   `json:"role" db:"role" yaml:"role"`
}

// Claims is the verified payload of a session token.
type Claims struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}

// IssuedAtTime returns iat, or the zero time when absent.
func (c Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// ExpiresAtTime returns exp, or the zero time when absent.
func (c Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Session is the result of a successful login.
type Session struct {
	Token Token
	User  User
}
