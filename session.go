package portal

import (
	"context"
	"sync"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusIdle          Status = "idle"
	StatusPending       Status = "pending"
	StatusAuthenticated Status = "authenticated"
	StatusError         Status = "error"
)

// Session is an immutable snapshot of the current authentication state.
// Invariant: Status == StatusAuthenticated iff Token != "".
type Session struct {
	Token        string `json:"token,omitempty"`
	User         *User  `json:"user,omitempty"`
	Status       Status `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Authenticated reports whether the session currently holds a credential.
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// Store owns the session state. It is the single shared mutable resource of
// the client: the Authenticator and explicit logout mutate it, guards only
// read snapshots. All mutations are applied atomically under the lock so a
// navigation decision never observes a half-updated session.
type Store struct {
	mu      sync.Mutex
	tokens  TokenStore
	logger  Logger
	session Session

	// previous holds the session as it was before the last SetPending, so
	// calls that resolve without authenticating can put it back.
	previous Session

	transitions map[Status]map[Status]struct{}
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithStoreLogger overrides the default logger.
func WithStoreLogger(logger Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a session store backed by the given token persistence.
func NewStore(tokens TokenStore, opts ...StoreOption) *Store {
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}

	s := &Store{
		tokens: tokens,
		logger: defLogger{},
		session: Session{
			Status: StatusIdle,
		},
		transitions: map[Status]map[Status]struct{}{
			StatusIdle: {
				StatusPending:       {},
				StatusAuthenticated: {},
			},
			StatusPending: {
				StatusAuthenticated: {},
				StatusError:         {},
				StatusIdle:          {},
			},
			StatusAuthenticated: {
				StatusPending: {},
				StatusIdle:    {},
			},
			StatusError: {
				StatusPending: {},
				StatusIdle:    {},
			},
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Restore loads a persisted token, if any, and marks the session
// authenticated optimistically. The token is not verified against the server;
// identity is hydrated best effort from unverified token claims.
func (s *Store) Restore(ctx context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.tokens.Load(ctx)
	if err != nil {
		s.logger.Warn("session restore: unable to read persisted token: %v", err)
		return s.snapshotLocked(), err
	}

	if token == "" {
		return s.snapshotLocked(), nil
	}

	s.session = Session{
		Token:  token,
		User:   IdentityFromToken(token),
		Status: StatusAuthenticated,
	}

	s.logger.Debug("session restored from persisted token")
	return s.snapshotLocked(), nil
}

// SetPending marks an auth call as in flight. It fails with
// ErrLoginInProgress when another call already holds the pending state, which
// is what enforces the single-flight contract.
func (s *Store) SetPending() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Status == StatusPending {
		return ErrLoginInProgress
	}

	if err := s.checkTransition(s.session.Status, StatusPending); err != nil {
		return err
	}

	s.previous = s.session
	s.session.Status = StatusPending
	s.session.ErrorMessage = ""
	return nil
}

// SetAuthenticated stores the credential and identity, persists the token,
// and clears any previous error.
func (s *Store) SetAuthenticated(ctx context.Context, token string, user *User) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTransition(s.session.Status, StatusAuthenticated); err != nil {
		return s.snapshotLocked(), err
	}

	if err := s.tokens.Save(ctx, token); err != nil {
		// Keep the in-memory session usable even if persistence is degraded;
		// the user just re-authenticates after a restart.
		s.logger.Warn("unable to persist token: %v", err)
	}

	s.session = Session{
		Token:  token,
		User:   user,
		Status: StatusAuthenticated,
	}

	return s.snapshotLocked(), nil
}

// SetError records a failed auth attempt. The credential is dropped so the
// authenticated-iff-token invariant holds.
func (s *Store) SetError(message string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = Session{
		Status:       StatusError,
		ErrorMessage: message,
	}

	return s.snapshotLocked()
}

// Clear removes the persisted token and resets the session to idle. It is
// idempotent and valid from any state: logout must always succeed.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tokens.Delete(ctx); err != nil {
		s.logger.Warn("unable to delete persisted token: %v", err)
	}

	s.session = Session{Status: StatusIdle}
	return nil
}

// settle resolves a pending session for a call that completed successfully
// without authenticating, such as registration. An authenticated session is
// put back as it was; anything else returns to idle. Persistence is not
// touched: only login outcomes may replace the token.
func (s *Store) settle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Status != StatusPending {
		return
	}

	if s.previous.Authenticated() {
		s.session = s.previous
		s.session.ErrorMessage = ""
		return
	}

	s.session = Session{Status: StatusIdle}
}

// settleError resolves a pending session for a call that failed without
// affecting the credential, such as registration. An authenticated session
// survives with the message attached; anything else ends in the error state.
func (s *Store) settleError(message string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Status != StatusPending {
		return s.snapshotLocked()
	}

	if s.previous.Authenticated() {
		s.session = s.previous
		s.session.ErrorMessage = message
		return s.snapshotLocked()
	}

	s.session = Session{
		Status:       StatusError,
		ErrorMessage: message,
	}
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Session {
	snap := s.session
	if s.session.User != nil {
		user := *s.session.User
		snap.User = &user
	}
	return snap
}

func (s *Store) checkTransition(from, to Status) error {
	if allowed, ok := s.transitions[from]; ok {
		if _, exists := allowed[to]; exists {
			return nil
		}
	}
	return ErrInvalidTransition.WithMetadata(map[string]any{
		"from": from,
		"to":   to,
	})
}
