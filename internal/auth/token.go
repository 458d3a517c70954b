package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSigningSecret  = errors.New("signing secret is not configured")
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired          = errors.New("token expired")
)

// DefaultTokenTTL is the validity window of an issued session token.
const DefaultTokenTTL = 24 * time.Hour

// TokenConfig is built once at startup and shared by the issuer and verifier.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

// TokenService signs and verifies HS256 session tokens. It holds no mutable
// state besides the injected clock.
type TokenService struct {
	cfg     *TokenConfig
	nowFunc func() time.Time
}

func NewTokenService(cfg *TokenConfig) (*TokenService, error) {
	if cfg == nil || len(cfg.Secret) == 0 {
		return nil, ErrMissingSigningSecret
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("token TTL must be > 0")
	}
	return &TokenService{cfg: cfg, nowFunc: time.Now}, nil
}

// Issue mints a token for a principal whose password the caller has already
// verified.
func (s *TokenService) Issue(userID int64, username string, role Role) (Token, error) {
	if userID <= 0 || username == "" {
		return Token{}, fmt.Errorf("user id and username are required")
	}
	if !ValidRole(string(role)) {
		return Token{}, fmt.Errorf("invalid role %q", role)
	}

	now := s.nowFunc().UTC().Truncate(time.Second)
	exp := now.Add(s.cfg.TTL)
	claims := Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, IssuedAt: now, ExpiresAt: exp}, nil
}

// Verify decodes the token and checks expiry and signature. Expiry is checked
// first so a stale token always reports ErrTokenExpired.
func (s *TokenService) Verify(raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, ErrTokenMalformed
	}

	var unverified Claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &unverified); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if unverified.ExpiresAt == nil {
		return Claims{}, fmt.Errorf("%w: missing exp", ErrTokenMalformed)
	}
	if !s.nowFunc().Before(unverified.ExpiresAt.Time) {
		return Claims{}, ErrTokenExpired
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.nowFunc),
	)
	var claims Claims
	_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return Claims{}, ErrTokenSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrTokenExpired
	default:
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	if claims.UserID <= 0 || claims.Username == "" || !ValidRole(string(claims.Role)) {
		return Claims{}, fmt.Errorf("%w: incomplete identity", ErrTokenMalformed)
	}
	return claims, nil
}
