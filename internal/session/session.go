package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"GuardianAngel/internal/models"
	"GuardianAngel/pkg/apiclient"
	apperrors "GuardianAngel/pkg/errors"
	"GuardianAngel/pkg/logger"
	"GuardianAngel/pkg/storage"

	"go.uber.org/zap"
)

// Persisted keys. The first four are shared with existing installs.
const (
	KeyAuthToken         = "guardian_auth_token"
	KeyUserData          = "guardian_user_data"
	KeyResponderToken    = "responderToken"
	KeyOriginalUserToken = "originalUserToken"
	KeyActingIdentity    = "guardian_acting_identity"
)

var allKeys = []string{KeyAuthToken, KeyUserData, KeyResponderToken, KeyOriginalUserToken, KeyActingIdentity}

// Store owns the authentication lifecycle. It is safe for concurrent use.
type Store struct {
	api   apiclient.Doer
	store storage.Store

	mu             sync.RWMutex
	userToken      string
	responderToken string
	acting         IdentityKind
	user           *models.User
	navToResponder bool

	subMu     sync.Mutex
	subs      map[int]func(Event)
	nextSubID int
}

// New creates an empty, unauthenticated session. Call Restore to load persisted state.
func New(api apiclient.Doer, store storage.Store) *Store {
	return &Store{
		api:    api,
		store:  store,
		acting: IdentityUser,
		subs:   make(map[int]func(Event)),
	}
}

// Subscribe registers fn for every state change and returns its unsubscribe func.
// fn runs synchronously on the goroutine that caused the change, after locks are released.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) publish(t EventType) {
	ev := Event{Type: t, State: s.State()}
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// State returns a snapshot. CurrentUser is a copy.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() State {
	st := State{
		UserToken:                          s.userToken,
		ResponderToken:                     s.responderToken,
		Acting:                             s.acting,
		ShouldNavigateToResponderDashboard: s.navToResponder,
	}
	st.AuthToken = s.actingTokenLocked()
	if s.user != nil {
		u := *s.user
		st.CurrentUser = &u
	}
	st.IsAuthenticated = st.AuthToken != ""
	return st
}

func (s *Store) actingTokenLocked() string {
	if s.acting == IdentityResponder {
		return s.responderToken
	}
	return s.userToken
}

// AuthToken implements apiclient.TokenSource.
func (s *Store) AuthToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actingTokenLocked()
}

// IsAuthenticated reports whether a token is held.
func (s *Store) IsAuthenticated() bool {
	return s.AuthToken() != ""
}

// CurrentUser returns a copy of the logged in user, nil when logged out.
func (s *Store) CurrentUser() *models.User {
	return s.State().CurrentUser
}

// Restore loads the persisted session. A missing or undecodable user leaves the
// session unauthenticated; the stale token stays on disk until Logout.
func (s *Store) Restore(ctx context.Context) error {
	token, err := s.get(ctx, KeyAuthToken)
	if err != nil {
		return err
	}
	rawUser, err := s.get(ctx, KeyUserData)
	if err != nil {
		return err
	}

	var user *models.User
	if token != "" && rawUser != "" {
		var u models.User
		if jerr := json.Unmarshal([]byte(rawUser), &u); jerr != nil {
			logger.Warn("persisted user is unreadable", zap.Error(jerr))
		} else {
			user = &u
		}
	}

	if user == nil {
		s.mu.Lock()
		s.clearLocked()
		s.mu.Unlock()
		s.publish(EventRestored)
		return nil
	}

	responderToken, err := s.get(ctx, KeyResponderToken)
	if err != nil {
		return err
	}
	original, err := s.get(ctx, KeyOriginalUserToken)
	if err != nil {
		return err
	}
	acting, err := s.get(ctx, KeyActingIdentity)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.user = user
	s.responderToken = responderToken
	s.acting = IdentityUser
	s.userToken = token
	if IdentityKind(acting) == IdentityResponder || (acting == "" && responderToken != "" && token == responderToken) {
		s.acting = IdentityResponder
		s.responderToken = token
		s.userToken = original
	}
	s.navToResponder = user.IsResponder()
	s.mu.Unlock()

	s.publish(EventRestored)
	return nil
}

// Login authenticates with email and password. role accepts the display names
// (Patient, Respondent) as well as the wire values. On failure the session is left untouched.
func (s *Store) Login(ctx context.Context, email, password string, role models.Role) (*models.User, error) {
	req := models.LoginRequest{
		Email:     normalizeEmail(email),
		Password:  password,
		LoginType: loginRole(role),
	}
	if err := apiclient.Validate(req); err != nil {
		return nil, err
	}

	var data models.AuthData
	if _, err := s.api.Do(ctx, &apiclient.Request{
		Route:  "auth.login",
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   req,
	}, &data); err != nil {
		return nil, err
	}
	return s.establish(ctx, &data, EventLoggedIn)
}

// Signup creates an account and logs in with the returned tokens.
func (s *Store) Signup(ctx context.Context, email, fullName, phone, password string, role models.Role) (*models.User, error) {
	if role == "" {
		role = models.RoleUser
	}
	req := models.SignupRequest{
		Email:    normalizeEmail(email),
		FullName: strings.TrimSpace(fullName),
		Phone:    strings.TrimSpace(phone),
		Password: password,
		Role:     loginRole(role),
	}
	if err := apiclient.Validate(req); err != nil {
		return nil, err
	}

	var data models.AuthData
	if _, err := s.api.Do(ctx, &apiclient.Request{
		Route:  "auth.signup",
		Method: http.MethodPost,
		Path:   "/auth/signup",
		Body:   req,
	}, &data); err != nil {
		return nil, err
	}
	return s.establish(ctx, &data, EventSignedUp)
}

func (s *Store) establish(ctx context.Context, data *models.AuthData, ev EventType) (*models.User, error) {
	if data.Tokens.AccessToken == "" {
		return nil, apperrors.Decode(errors.New("auth response has no access token"))
	}
	user := data.User
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	rawUser, err := json.Marshal(user)
	if err != nil {
		return nil, apperrors.Wrap(err, "encode user")
	}
	if err := s.store.Set(ctx, KeyAuthToken, data.Tokens.AccessToken); err != nil {
		return nil, apperrors.Wrap(err, "persist session")
	}
	if err := s.store.Set(ctx, KeyUserData, string(rawUser)); err != nil {
		_ = s.store.Delete(ctx, KeyAuthToken)
		return nil, apperrors.Wrap(err, "persist session")
	}
	// a fresh login never inherits a previous responder identity
	if err := s.store.Delete(ctx, KeyResponderToken, KeyOriginalUserToken, KeyActingIdentity); err != nil {
		logger.Warn("clear previous identity failed", zap.Error(err))
	}

	s.mu.Lock()
	s.userToken = data.Tokens.AccessToken
	s.responderToken = ""
	s.acting = IdentityUser
	s.user = &user
	s.navToResponder = user.IsResponder()
	s.mu.Unlock()

	s.publish(ev)
	out := user
	return &out, nil
}

// Logout clears persisted and in-memory state. Calling it twice is harmless.
func (s *Store) Logout() {
	s.terminate(EventLoggedOut)
}

// Expire is Logout triggered by the backend rejecting the token.
func (s *Store) Expire() {
	s.terminate(EventSessionExpired)
}

// ExpireToken expires the session only when token is still one of its identities.
// A 401 for a request issued before a logout or re-login is ignored.
func (s *Store) ExpireToken(token string) {
	s.mu.RLock()
	current := token != "" && (token == s.userToken || token == s.responderToken)
	s.mu.RUnlock()
	if !current {
		logger.Debug("ignoring 401 for a superseded token")
		return
	}
	s.Expire()
}

func (s *Store) terminate(ev EventType) {
	if err := s.store.Delete(context.Background(), allKeys...); err != nil {
		logger.Warn("clear persisted session failed", zap.Error(err))
	}

	s.mu.Lock()
	wasActive := s.actingTokenLocked() != "" || s.user != nil || s.responderToken != ""
	s.clearLocked()
	s.mu.Unlock()

	if wasActive {
		s.publish(ev)
	}
}

func (s *Store) clearLocked() {
	s.userToken = ""
	s.responderToken = ""
	s.acting = IdentityUser
	s.user = nil
	s.navToResponder = false
}

// UpdateRole rewrites the current user's role and persists it.
func (s *Store) UpdateRole(role models.Role) error {
	if _, ok := models.ParseRole(string(role)); !ok {
		return apperrors.Validationf(apperrors.CodeValidation, "unknown role %q", role)
	}

	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return apperrors.Validationf(apperrors.CodeNotAuthenticated, "not authenticated")
	}
	updated := *s.user
	updated.Role = role
	s.mu.Unlock()

	raw, err := json.Marshal(updated)
	if err != nil {
		return apperrors.Wrap(err, "encode user")
	}
	if err := s.store.Set(context.Background(), KeyUserData, string(raw)); err != nil {
		return apperrors.Wrap(err, "persist user")
	}

	s.mu.Lock()
	if s.user != nil {
		s.user.Role = role
	}
	s.navToResponder = role == models.RoleRespondent
	s.mu.Unlock()

	s.publish(EventRoleChanged)
	return nil
}

// MarkAsResponder promotes the current user after a successful responder registration.
func (s *Store) MarkAsResponder() error {
	if err := s.UpdateRole(models.RoleRespondent); err != nil {
		return err
	}
	s.publish(EventResponderRegistered)
	return nil
}

// SaveResponderToken stores the responder identity and makes it the acting one.
// The user token is kept so the session can switch back.
func (s *Store) SaveResponderToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return apperrors.Validation("responder token is empty")
	}

	s.mu.Lock()
	if s.userToken == "" {
		s.mu.Unlock()
		return apperrors.Validationf(apperrors.CodeNotAuthenticated, "not authenticated")
	}
	s.responderToken = token
	s.acting = IdentityResponder
	st := s.stateLocked()
	s.mu.Unlock()

	if err := s.persistIdentity(st); err != nil {
		return err
	}
	s.publish(EventIdentitySwitched)
	return nil
}

// SwitchIdentity changes which token authenticates requests.
func (s *Store) SwitchIdentity(kind IdentityKind) error {
	if kind != IdentityUser && kind != IdentityResponder {
		return apperrors.Validationf(apperrors.CodeValidation, "unknown identity %q", kind)
	}

	s.mu.Lock()
	if s.acting == kind {
		s.mu.Unlock()
		return nil
	}
	if (kind == IdentityUser && s.userToken == "") || (kind == IdentityResponder && s.responderToken == "") {
		s.mu.Unlock()
		return apperrors.Validationf(apperrors.CodeNotAuthenticated, "no %s identity in this session", kind)
	}
	s.acting = kind
	st := s.stateLocked()
	s.mu.Unlock()

	if err := s.persistIdentity(st); err != nil {
		return err
	}
	s.publish(EventIdentitySwitched)
	return nil
}

// RestoreOriginalToken switches back to the user identity.
func (s *Store) RestoreOriginalToken() error {
	return s.SwitchIdentity(IdentityUser)
}

// ResetNavigationState clears the pending responder-dashboard navigation.
func (s *Store) ResetNavigationState() {
	s.mu.Lock()
	changed := s.navToResponder
	s.navToResponder = false
	s.mu.Unlock()
	if changed {
		s.publish(EventNavigationReset)
	}
}

// Claims decodes the acting token; see the package-level Claims.
func (s *Store) Claims() (map[string]interface{}, error) {
	token := s.AuthToken()
	if token == "" {
		return nil, apperrors.Validationf(apperrors.CodeNotAuthenticated, "not authenticated")
	}
	c, err := Claims(token)
	if err != nil {
		return nil, apperrors.Decode(err)
	}
	out := map[string]interface{}{"sub": c.Subject}
	if c.ExpiresAt != nil {
		out["exp"] = c.ExpiresAt.Time
	}
	if c.IssuedAt != nil {
		out["iat"] = c.IssuedAt.Time
	}
	return out, nil
}

func (s *Store) persistIdentity(st State) error {
	ctx := context.Background()
	if err := s.store.Set(ctx, KeyAuthToken, st.AuthToken); err != nil {
		return apperrors.Wrap(err, "persist session")
	}
	if err := s.store.Set(ctx, KeyActingIdentity, string(st.Acting)); err != nil {
		return apperrors.Wrap(err, "persist session")
	}
	if st.ResponderToken != "" {
		if err := s.store.Set(ctx, KeyResponderToken, st.ResponderToken); err != nil {
			return apperrors.Wrap(err, "persist session")
		}
		if err := s.store.Set(ctx, KeyOriginalUserToken, st.UserToken); err != nil {
			return apperrors.Wrap(err, "persist session")
		}
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	v, err := s.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.Wrapf(err, "read %s", key)
	}
	return v, nil
}

// loginRole maps display names onto wire roles; unknown values pass through to validation.
func loginRole(role models.Role) models.Role {
	if r, ok := models.ParseLoginRole(string(role)); ok {
		return r
	}
	return role
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
