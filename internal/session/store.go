package session

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"recruitportal/portal-api/internal/auth"
)

// MemoryStore holds the marker for a single tab.
type MemoryStore struct {
	mu     sync.Mutex
	marker *Marker
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (Marker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.marker == nil {
		return Marker{}, false
	}
	return *s.marker, true
}

func (s *MemoryStore) Save(m Marker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marker = &m
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marker = nil
	return nil
}

// CookieName carries the session token for page navigation.
const CookieName = "portal_session"

type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// CookieStore derives the marker from the verified token cookie on every
// request, so an expired or forged token reads as Anonymous.
type CookieStore struct {
	w        http.ResponseWriter
	r        *http.Request
	verifier TokenVerifier
	secure   bool

	loaded bool
	marker *Marker
}

func NewCookieStore(w http.ResponseWriter, r *http.Request, verifier TokenVerifier, secure bool) *CookieStore {
	return &CookieStore{w: w, r: r, verifier: verifier, secure: secure}
}

func (s *CookieStore) Load() (Marker, bool) {
	if !s.loaded {
		s.loaded = true
		s.marker = s.fromCookie()
	}
	if s.marker == nil {
		return Marker{}, false
	}
	return *s.marker, true
}

func (s *CookieStore) fromCookie() *Marker {
	if s.verifier == nil {
		return nil
	}
	c, err := s.r.Cookie(CookieName)
	if err != nil || strings.TrimSpace(c.Value) == "" {
		return nil
	}
	claims, err := s.verifier.Verify(c.Value)
	if err != nil {
		_ = s.Clear()
		return nil
	}
	return &Marker{User: claims.Username, UserType: claims.Role}
}

// Save only updates the request-scoped view; the cookie itself is written by
// SetTokenCookie when the token is issued.
func (s *CookieStore) Save(m Marker) error {
	s.loaded = true
	s.marker = &m
	return nil
}

func (s *CookieStore) Clear() error {
	s.loaded = true
	s.marker = nil
	http.SetCookie(s.w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// SetTokenCookie stores a freshly issued token for page navigation.
func SetTokenCookie(w http.ResponseWriter, token string, expiresAt time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
