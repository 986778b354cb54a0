package session

import (
	"time"

	"GuardianAngel/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityKind selects which bearer token authenticates outgoing requests.
type IdentityKind string

const (
	IdentityUser      IdentityKind = "user"
	IdentityResponder IdentityKind = "responder"
)

// Identity is one authenticated principal of the session.
type Identity struct {
	Kind  IdentityKind
	Token string
}

// State is an immutable snapshot of the session.
type State struct {
	AuthToken       string // acting identity's token
	UserToken       string
	ResponderToken  string
	Acting          IdentityKind
	CurrentUser     *models.User
	IsAuthenticated bool

	ShouldNavigateToResponderDashboard bool
}

// ActingIdentity returns the identity currently used for requests.
func (s State) ActingIdentity() Identity {
	return Identity{Kind: s.Acting, Token: s.AuthToken}
}

// HasResponderIdentity reports whether a responder token is available to switch to.
func (s State) HasResponderIdentity() bool {
	return s.ResponderToken != ""
}

// Role is the current user's role, "" when logged out.
func (s State) Role() models.Role {
	if s.CurrentUser == nil {
		return ""
	}
	return s.CurrentUser.Role
}

// EventType names a session state change.
type EventType string

const (
	EventRestored            EventType = "restored"
	EventLoggedIn            EventType = "logged_in"
	EventSignedUp            EventType = "signed_up"
	EventLoggedOut           EventType = "logged_out"
	EventSessionExpired      EventType = "session_expired"
	EventRoleChanged         EventType = "role_changed"
	EventIdentitySwitched    EventType = "identity_switched"
	EventResponderRegistered EventType = "responder_registered"
	EventNavigationReset     EventType = "navigation_reset"
)

// Event is delivered to subscribers after the state has changed.
type Event struct {
	Type  EventType
	State State
}

// Claims decodes the acting token without verifying its signature.
// Only for display and logging, never for authorisation.
func Claims(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ExpiresAt returns the token's exp claim, if any.
func ExpiresAt(token string) (time.Time, bool) {
	claims, err := Claims(token)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
