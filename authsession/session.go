package authsession

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/jrsteele09/go-auth-session/token"
)

// State is a session's position in the authentication lifecycle.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
	StateExpired         State = "expired"
	StateFailed          State = "failed"
)

// DefaultStorageKey names the storage slot used when none is configured.
const DefaultStorageKey = "authsession.token"

// PersistSettings control whether a successfully obtained token is written
// to the configured store, and under which key.
type PersistSettings struct {
	Enabled    bool
	StorageKey string
}

// Session manages exactly one authentication flow at a time and exposes the
// current valid access token to callers, independent of which OAuth2 grant
// obtained it. A session owns at most one token; re-authentication replaces
// it wholesale.
type Session struct {
	lock    sync.Mutex
	state   State
	current *token.Token
	persist PersistSettings
	flow    *ImplicitFlow // most recent implicit flow; earlier handles are superseded

	httpClient *http.Client
	tokenURL   string
	authURL    string
	store      storage.Store
	nowFunc    func() time.Time
	log        zerolog.Logger
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithHTTPClient sets the client used for token endpoint requests.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Session) {
		s.httpClient = client
	}
}

// WithTokenURL sets the token endpoint used by the client-credentials grant.
func WithTokenURL(tokenURL string) Option {
	return func(s *Session) {
		s.tokenURL = tokenURL
	}
}

// WithAuthURL sets the authorization endpoint used by the implicit grant.
func WithAuthURL(authURL string) Option {
	return func(s *Session) {
		s.authURL = authURL
	}
}

// WithStore sets the key-value store tokens are persisted to. Without a
// store, persistence is a no-op regardless of PersistSettings.
func WithStore(store storage.Store) Option {
	return func(s *Session) {
		s.store = store
	}
}

// WithNowFunc sets the now time function (primarily for testing).
func WithNowFunc(now func() time.Time) Option {
	return func(s *Session) {
		s.nowFunc = now
	}
}

// WithLogger sets the session logger. Defaults to a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// New creates a Session in the unauthenticated state.
func New(options ...Option) *Session {
	s := &Session{
		state:      StateUnauthenticated,
		persist:    PersistSettings{StorageKey: DefaultStorageKey},
		httpClient: http.DefaultClient,
		nowFunc:    time.Now,
		log:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// NewState returns a fresh opaque state value for starting an implicit-grant
// flow.
func NewState() string {
	return uuid.NewString()
}

// State reports the session's current lifecycle state.
func (s *Session) State() State {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state
}

// SetPersistSettings configures token persistence. Takes effect on the next
// successful login; an already-held token is not retroactively persisted.
// An empty storageKey falls back to DefaultStorageKey.
func (s *Session) SetPersistSettings(enabled bool, storageKey string) {
	if storageKey == "" {
		storageKey = DefaultStorageKey
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.persist = PersistSettings{Enabled: enabled, StorageKey: storageKey}
}

// GetValidToken returns the session's current token. It never suspends: the
// check runs against in-memory state only. An authenticated session whose
// token has passed its expiry flips to StateExpired and the call fails with
// ReasonExpired; the caller must re-authenticate, tokens are not refreshed
// automatically.
func (s *Session) GetValidToken() (*token.Token, error) {
	const op = "Session.GetValidToken"

	s.lock.Lock()
	defer s.lock.Unlock()

	switch s.state {
	case StateAuthenticated:
	case StateExpired:
		return nil, newAuthError(op, ReasonExpired, nil)
	default:
		return nil, newAuthError(op, ReasonNotAuthenticated, nil)
	}

	if s.current.Expired(s.nowFunc()) {
		s.current = nil
		s.state = StateExpired
		return nil, newAuthError(op, ReasonExpired, nil)
	}
	return s.current, nil
}

// Logout clears the current token, removes the persisted entry when
// persistence is enabled, and returns the session to the unauthenticated
// state. Logging out of an already unauthenticated session is not an error.
func (s *Session) Logout(ctx context.Context) error {
	s.lock.Lock()
	persist := s.persist
	s.current = nil
	s.flow = nil
	s.state = StateUnauthenticated
	s.lock.Unlock()

	if persist.Enabled && s.store != nil {
		if err := s.store.Delete(ctx, persist.StorageKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return errors.Wrap(err, "[Session.Logout] store.Delete")
		}
	}
	return nil
}

// Restore loads a previously persisted token from the configured store and
// installs it if it has not expired. Fails with ReasonNotAuthenticated when
// persistence is disabled, no store is configured, or no entry exists.
func (s *Session) Restore(ctx context.Context) (*token.Token, error) {
	const op = "Session.Restore"

	s.lock.Lock()
	persist := s.persist
	s.lock.Unlock()

	if !persist.Enabled || s.store == nil {
		return nil, newAuthError(op, ReasonNotAuthenticated, nil)
	}

	raw, err := s.store.Get(ctx, persist.StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newAuthError(op, ReasonNotAuthenticated, nil)
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Session.Restore] store.Get")
	}

	var restored token.Token
	if err := json.Unmarshal(raw, &restored); err != nil {
		return nil, newAuthError(op, ReasonInvalidResponse, err)
	}
	if restored.Expired(s.nowFunc()) {
		return nil, newAuthError(op, ReasonExpired, nil)
	}

	s.lock.Lock()
	if s.state == StateAuthenticating {
		s.lock.Unlock()
		return nil, newAuthError(op, ReasonAlreadyInProgress, nil)
	}
	s.current = &restored
	s.state = StateAuthenticated
	s.lock.Unlock()

	s.log.Debug().Time("expires_at", restored.ExpiresAt).Msg("session restored from storage")
	return &restored, nil
}

// install persists the token (when configured) and moves the session to the
// authenticated state. The storage write completes before the login result
// is delivered to the caller. When flow is non-nil the install is abandoned
// if a newer implicit flow has superseded it in the meantime.
func (s *Session) install(ctx context.Context, op string, tok *token.Token, flow *ImplicitFlow) error {
	s.lock.Lock()
	if flow != nil && s.flow != flow {
		s.lock.Unlock()
		return newAuthError(op, ReasonAlreadyInProgress, errors.New("flow superseded by a newer login"))
	}
	persist := s.persist
	s.lock.Unlock()

	if persist.Enabled && s.store != nil {
		raw, err := json.Marshal(tok)
		if err != nil {
			return errors.Wrapf(err, "[%s] marshalling token", op)
		}
		if err := s.store.Set(ctx, persist.StorageKey, raw); err != nil {
			// Storage is a cache of the authoritative in-memory token,
			// so a failed write does not fail the login.
			s.log.Warn().Err(err).Str("storage_key", persist.StorageKey).Msg("persisting token failed")
		}
	}

	s.lock.Lock()
	// The store write above may have suspended; a flow superseded in the
	// meantime must not commit its token.
	if flow != nil && s.flow != flow {
		s.lock.Unlock()
		return newAuthError(op, ReasonAlreadyInProgress, errors.New("flow superseded by a newer login"))
	}
	s.current = tok
	s.flow = nil
	s.state = StateAuthenticated
	s.lock.Unlock()
	return nil
}

// fail moves the session to the failed state, dropping any current token.
func (s *Session) fail() {
	s.lock.Lock()
	s.current = nil
	s.flow = nil
	s.state = StateFailed
	s.lock.Unlock()
}
