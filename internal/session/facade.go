// Package session routes dashboard navigation for the logged-in identity.
//
// A Facade is either Anonymous or Authenticated(username, role). The marker
// that holds the identity is only ever written from verified token claims.
// It drives UX redirects, never authorization; the API re-checks every
// request.
package session

import (
	"fmt"

	"recruitportal/portal-api/internal/auth"
)

type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Marker mirrors the browser session keys user and userType.
type Marker struct {
	User     string    `json:"user"`
	UserType auth.Role `json:"userType"`
}

// MarkerStore persists the marker for the lifetime of one browser session.
type MarkerStore interface {
	Load() (Marker, bool)
	Save(m Marker) error
	Clear() error
}

const (
	LoginPage      = "/login.html"
	AthleteLanding = "/dashboard/index.html"
	ScoutLanding   = "/dashboard/scout-access.html"
)

// DefaultPages maps each protected page to the role it requires.
func DefaultPages() map[string]auth.Role {
	return map[string]auth.Role{
		AthleteLanding:                    auth.RoleAthlete,
		"/dashboard/calendar.html":        auth.RoleAthlete,
		"/dashboard/progress.html":        auth.RoleAthlete,
		"/dashboard/content-manager.html": auth.RoleAthlete,
		ScoutLanding:                      auth.RoleScout,
	}
}

// LandingPage is the dashboard a role is sent to after login.
func LandingPage(role auth.Role) string {
	if role == auth.RoleScout {
		return ScoutLanding
	}
	return AthleteLanding
}

// Decision is either Allow or a redirect target.
type Decision struct {
	Allow    bool
	Redirect string
}

func allow() Decision { return Decision{Allow: true} }

func redirect(to string) Decision { return Decision{Redirect: to} }

type Facade struct {
	store MarkerStore
	pages map[string]auth.Role
}

func New(store MarkerStore, pages map[string]auth.Role) *Facade {
	if pages == nil {
		pages = DefaultPages()
	}
	return &Facade{store: store, pages: pages}
}

func (f *Facade) State() State {
	if _, ok := f.current(); ok {
		return Authenticated
	}
	return Anonymous
}

// Current returns the marker when authenticated.
func (f *Facade) Current() (Marker, bool) {
	return f.current()
}

func (f *Facade) current() (Marker, bool) {
	m, ok := f.store.Load()
	if !ok || m.User == "" || !auth.ValidRole(string(m.UserType)) {
		return Marker{}, false
	}
	return m, true
}

// Login moves to Authenticated using the role on verified claims and returns
// the landing redirect.
func (f *Facade) Login(claims auth.Claims) (Decision, error) {
	if claims.Username == "" || !auth.ValidRole(string(claims.Role)) {
		return Decision{}, fmt.Errorf("claims carry no usable identity")
	}
	if err := f.store.Save(Marker{User: claims.Username, UserType: claims.Role}); err != nil {
		return Decision{}, fmt.Errorf("save session marker: %w", err)
	}
	return redirect(LandingPage(claims.Role)), nil
}

// Logout clears the marker and sends the browser to the login page.
func (f *Facade) Logout() (Decision, error) {
	if err := f.store.Clear(); err != nil {
		return Decision{}, fmt.Errorf("clear session marker: %w", err)
	}
	return redirect(LoginPage), nil
}

// OnLoad runs when the login page loads: an existing marker jumps straight to
// its dashboard.
func (f *Facade) OnLoad() Decision {
	return f.Navigate(LoginPage)
}

// Navigate decides whether path may be shown.
func (f *Facade) Navigate(path string) Decision {
	m, authed := f.current()

	if path == LoginPage {
		if authed {
			return redirect(LandingPage(m.UserType))
		}
		return allow()
	}

	required, protected := f.pages[path]
	if !protected {
		return allow()
	}
	if !authed {
		return redirect(LoginPage)
	}
	if m.UserType != required {
		return redirect(LandingPage(m.UserType))
	}
	return allow()
}
