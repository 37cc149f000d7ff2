// Package session tracks which Lemmy account lemcache currently acts as.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/lemcache/internal/domain"
	"github.com/MrSnakeDoc/lemcache/internal/lemmy"
	"github.com/MrSnakeDoc/lemcache/internal/logger"
	"github.com/MrSnakeDoc/lemcache/internal/sources/accounts"
)

// ErrUnknownAccount is returned by Switch for a handle not in the accounts file.
var ErrUnknownAccount = errors.New("unknown account")

// ClientFactory builds the API client of an account.
type ClientFactory func(instance, jwt string) (lemmy.API, error)

// State describes the active session.
type State struct {
	ID       string        `json:"id"`
	Handle   domain.Handle `json:"handle"`
	Instance string        `json:"instance"`
	Since    time.Time     `json:"since"`
}

// Manager owns the account list, the active account and its client.
// A nil Client means no session: callers must then do nothing.
type Manager struct {
	logger  logger.Logger
	factory ClientFactory

	mu       sync.RWMutex
	accounts accounts.Accounts
	active   *accounts.Account
	client   lemmy.API
	state    State
	site     *domain.GetSiteResponse
}

func NewManager(log logger.Logger, factory ClientFactory) *Manager {
	return &Manager{
		logger:  log,
		factory: factory,
	}
}

// Replace installs a new account list and activates its Active entry.
// It returns the active handle before and after, so callers can tell whether
// per-user state must be dropped. A changed JWT for the same account keeps the
// handle but rebuilds the client.
func (m *Manager) Replace(a accounts.Accounts) (prev, next domain.Handle, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev = m.state.Handle
	m.accounts = a

	if a.Active == "" {
		m.clearLocked()
		return prev, "", nil
	}

	acc, ok := a.Find(a.Active)
	if !ok {
		m.clearLocked()
		return prev, "", fmt.Errorf("%w: %s", ErrUnknownAccount, a.Active)
	}
	if m.active != nil && *m.active == acc {
		return prev, prev, nil
	}
	if err := m.activateLocked(acc); err != nil {
		m.clearLocked()
		return prev, "", err
	}
	return prev, acc.Handle, nil
}

// Switch makes h the active account.
func (m *Manager) Switch(h domain.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts.Find(h)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, h)
	}
	return m.activateLocked(acc)
}

// Logout ends the session. The account list is kept.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearLocked()
}

// Accounts returns the known handles in file order.
func (m *Manager) Accounts() []domain.Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Handle, 0, len(m.accounts.List))
	for _, acc := range m.accounts.List {
		out = append(out, acc.Handle)
	}
	return out
}

func (m *Manager) Active() (accounts.Account, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.active == nil {
		return accounts.Account{}, false
	}
	return *m.active, true
}

// ActiveHandle returns the active user, or "" without a session.
func (m *Manager) ActiveHandle() domain.Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.Handle
}

// Client returns the active account's client, or nil without a session.
func (m *Manager) Client() lemmy.API {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.client
}

// Instance returns the active account's instance, or "".
func (m *Manager) Instance() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.Instance
}

// State returns the active session, ok=false without one.
func (m *Manager) State() (State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state, m.active != nil
}

// SetSite stores the site state fetched for session sessionID. It is dropped
// when another session started in the meantime.
func (m *Manager) SetSite(sessionID string, site *domain.GetSiteResponse) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil || m.state.ID != sessionID {
		return false
	}
	m.site = site
	return true
}

// Site returns the last site state of the active session, or nil.
func (m *Manager) Site() *domain.GetSiteResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.site
}

func (m *Manager) activateLocked(acc accounts.Account) error {
	client, err := m.factory(acc.Instance, acc.JWT)
	if err != nil {
		return fmt.Errorf("client for %s: %w", acc.Handle, err)
	}

	m.active = &acc
	m.client = client
	m.site = nil
	m.state = State{
		ID:       uuid.NewString(),
		Handle:   acc.Handle,
		Instance: acc.Instance,
		Since:    time.Now(),
	}

	m.logger.Info("session started",
		logger.String("session_id", m.state.ID),
		logger.Account(acc.Handle),
		logger.String("instance", acc.Instance))
	return nil
}

func (m *Manager) clearLocked() {
	if m.active != nil {
		m.logger.Info("session ended",
			logger.String("session_id", m.state.ID),
			logger.Account(m.state.Handle))
	}
	m.active = nil
	m.client = nil
	m.site = nil
	m.state = State{}
}
