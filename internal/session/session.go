// Package session owns the authentication token and user identity for the process.
//
// A Manager is the single source of truth for who is logged in. It persists
// {token, identity} to the durable store and announces namespace changes to
// subscribed listeners, which is how the history cache follows logins and
// logouts without the two stores calling each other directly.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rcliao/mealtrack/internal/model"
	"github.com/rcliao/mealtrack/internal/store"
)

const storageKey = "auth"

// Status is the authentication state as seen by callers gating on login.
type Status string

const (
	// StatusUnknown means hydration has not completed; callers must not assume logged out.
	StatusUnknown   Status = "unknown"
	StatusLoggedIn  Status = "logged_in"
	StatusLoggedOut Status = "logged_out"
)

// Manager holds the session state. Construct one per process with New.
type Manager struct {
	store  store.Store
	logger *slog.Logger

	mu        sync.Mutex
	token     string
	identity  *model.Identity
	hydrated  bool
	listeners []Listener
}

// New creates an unhydrated Manager backed by s.
func New(s store.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: s, logger: logger}
}

// Hydrate reads the persisted session once. A corrupt record is treated as no session.
// Storage errors are returned, but the manager is marked hydrated either way.
// Calling Hydrate again is a no-op.
func (m *Manager) Hydrate(ctx context.Context) error {
	m.mu.Lock()
	if m.hydrated {
		m.mu.Unlock()
		return nil
	}

	var readErr error
	data, err := m.store.Get(ctx, store.RegionSession, storageKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		readErr = fmt.Errorf("hydrate session: %w", err)
		m.logger.Error("session hydration failed", "error", err)
	default:
		var st model.SessionState
		if err := json.Unmarshal(data, &st); err != nil {
			m.logger.Warn("discarding corrupt session record", "error", err)
		} else {
			m.token = st.Token
			m.identity = st.Identity
		}
	}
	m.hydrated = true
	ev, notify := m.activationLocked()
	m.mu.Unlock()

	if notify && ev.Kind == EventActivate {
		return errors.Join(readErr, m.notify(ctx, ev))
	}
	return readErr
}

// Hydrated reports whether Hydrate has completed.
func (m *Manager) Hydrated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hydrated
}

// Status reports unknown before hydration, then logged in or out.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case !m.hydrated:
		return StatusUnknown
	case m.token != "":
		return StatusLoggedIn
	default:
		return StatusLoggedOut
	}
}

// CurrentToken returns the in-memory token, or "".
func (m *Manager) CurrentToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Identity returns a copy of the current identity, or nil.
func (m *Manager) Identity() *model.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity.Clone()
}

// Snapshot returns the state as it would be persisted.
func (m *Manager) Snapshot() model.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.SessionState{Token: m.token, Identity: m.identity.Clone()}
}

// SetToken replaces the credential. An empty token is the same as Clear.
// When an identity with an email is known, listeners are told to activate its namespace.
func (m *Manager) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return m.Clear(ctx)
	}

	m.mu.Lock()
	m.token = token
	persistErr := m.persistLocked(ctx)
	ev, notify := m.activationLocked()
	m.mu.Unlock()

	if !notify || ev.Kind != EventActivate {
		return persistErr
	}
	return errors.Join(persistErr, m.notify(ctx, ev))
}

// SetIdentity replaces the identity metadata. With a token present, an identity carrying
// an email activates that namespace and one without an email deactivates the current one.
func (m *Manager) SetIdentity(ctx context.Context, identity *model.Identity) error {
	m.mu.Lock()
	m.identity = identity.Clone()
	persistErr := m.persistLocked(ctx)
	ev, notify := m.activationLocked()
	m.mu.Unlock()

	if !notify {
		return persistErr
	}
	return errors.Join(persistErr, m.notify(ctx, ev))
}

// Clear removes the token but keeps the identity so a later login can be prefilled.
// Listeners are told to deactivate the namespace; its durable data is untouched.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.token = ""
	persistErr := m.persistLocked(ctx)
	m.mu.Unlock()

	return errors.Join(persistErr, m.notify(ctx, Event{Kind: EventDeactivate}))
}

// TokenExpiry decodes the exp claim when the token is a JWT. The signature is not
// verified; the result only helps flag a stale credential before the backend rejects it.
func (m *Manager) TokenExpiry() (time.Time, bool) {
	token := m.CurrentToken()
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (m *Manager) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(model.SessionState{Token: m.token, Identity: m.identity})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Put(ctx, store.RegionSession, storageKey, data); err != nil {
		m.logger.Error("session persist failed", "error", err)
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// activationLocked derives the namespace event implied by the current state.
// It returns false when there is no token, since nothing may be active then.
func (m *Manager) activationLocked() (Event, bool) {
	if m.token == "" {
		return Event{}, false
	}
	if m.identity.HasEmail() {
		return Event{Kind: EventActivate, Identity: m.identity.Clone()}, true
	}
	return Event{Kind: EventDeactivate}, true
}
