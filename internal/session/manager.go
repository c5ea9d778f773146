package session

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"
	"sync"

	"github.com/dpereira/expensely/internal/user"
)

//go:generate mockgen -source=manager.go -destination=authapi_mock.go -package=session
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (LoginResult, error)
	CurrentUser(ctx context.Context) (Identity, error)
	Logout(ctx context.Context) error
}

// Manager owns the authentication state machine. It is safe for use
// from concurrent completion goroutines: a logout or forced expiry
// issued while a login or restore is pending always wins, and the stale
// completion is discarded.
type Manager struct {
	api   AuthAPI
	store Store

	mu     sync.Mutex
	status Status
	usr    *user.User
	token  string
	gen    uint64
	busy   bool
}

func NewManager(api AuthAPI, store Store) *Manager {
	return &Manager{
		api:    api,
		store:  store,
		status: StatusUnauthenticated,
	}
}

// Snapshot returns the current session without the token.
func (m *Manager) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Session{Status: m.status}
	if m.usr != nil {
		u := *m.usr
		s.User = &u
	}

	return s
}

// Token exposes the bearer credential to the HTTP client only.
func (m *Manager) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.token, m.token != ""
}

// Epoch identifies the current session generation. Resource operations
// tag in-flight requests with it and discard completions whose epoch no
// longer matches.
func (m *Manager) Epoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.gen
}

// begin reserves the single login/restore slot and records the
// generation the pending operation belongs to.
func (m *Manager) begin(status Status) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.busy {
		return 0, ErrInFlight
	}

	m.busy = true
	m.status = status

	return m.gen, nil
}

// Restore reads the persisted credential and verifies it against the
// server. It must complete before any guarded view renders; the session
// stays in StatusRestoring until it does.
func (m *Manager) Restore(ctx context.Context) error {
	gen, err := m.begin(StatusRestoring)
	if err != nil {
		return err
	}

	creds, err := m.store.Load()
	if err != nil || creds == nil {
		if err != nil {
			slog.Error("failed to read persisted session", "error", err)
		}

		m.settle(gen, nil, "")

		return nil
	}

	// Hold the candidate token so the HTTP client can attach it to the
	// verification request. The session is not authenticated yet.
	m.mu.Lock()
	if m.gen == gen {
		m.token = creds.Token
	}
	m.mu.Unlock()

	ident, err := m.api.CurrentUser(ctx)
	if err != nil {
		if clearErr := m.store.Clear(); clearErr != nil {
			slog.Error("failed to clear persisted session", "error", clearErr)
		}

		m.settle(gen, nil, "")

		return nil
	}

	role := ident.Role
	if role == "" {
		// The verification response omits the role; the persisted
		// record is the source for it.
		role = creds.Role
	}

	u := &user.User{
		Username: ident.Username,
		Email:    ident.Email,
		Role:     role.OrDefault(),
	}

	if !m.settle(gen, u, creds.Token) {
		return ErrSuperseded
	}

	return nil
}

// Login authenticates against the server and returns the resolved role
// so the caller can dispatch navigation on it. Input is validated
// before any network call.
func (m *Manager) Login(ctx context.Context, email, password string) (user.Role, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", &ValidationError{Reason: "email and password are required"}
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return "", &ValidationError{Reason: "invalid email address"}
	}

	gen, err := m.begin(StatusUnauthenticated)
	if err != nil {
		return "", err
	}

	res, err := m.api.Login(ctx, email, password)
	if err != nil {
		m.settle(gen, nil, "")
		return "", err
	}

	role := res.Role.OrDefault()
	u := &user.User{
		Username: res.Username,
		Email:    res.Email,
		Role:     role,
	}

	if !m.settle(gen, u, res.Token) {
		return "", ErrSuperseded
	}

	if err := m.store.Save(Credentials{
		Token:    res.Token,
		Username: res.Username,
		Email:    res.Email,
		Role:     role,
	}); err != nil {
		slog.Error("failed to persist session", "error", err)
	}

	return role, nil
}

// settle applies the outcome of a pending login or restore. It reports
// false when the generation moved on, meaning a logout or forced
// expiry already won and the result must be discarded.
func (m *Manager) settle(gen uint64, u *user.User, token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen {
		return false
	}

	m.busy = false

	if u == nil || token == "" {
		m.status = StatusUnauthenticated
		m.usr = nil
		m.token = ""

		return true
	}

	m.status = StatusAuthenticated
	m.usr = u
	m.token = token

	return true
}

// Logout notifies the server best-effort, then unconditionally clears
// local state. A network failure never blocks the local logout.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.api.Logout(ctx); err != nil {
		slog.Warn("server logout failed, clearing local session anyway", "error", err)
	}

	m.clear(StatusUnauthenticated)
}

// ForceExpire is invoked by the HTTP client on an authorization
// failure. It clears state like Logout, without the server round-trip,
// and parks the session in StatusExpired so observers can show a
// "session expired" notice before acknowledging.
func (m *Manager) ForceExpire() {
	m.clear(StatusExpired)
}

// AcknowledgeExpiry settles an expired session to unauthenticated.
func (m *Manager) AcknowledgeExpiry() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == StatusExpired {
		m.status = StatusUnauthenticated
	}
}

func (m *Manager) clear(status Status) {
	m.mu.Lock()
	m.gen++
	m.busy = false
	m.status = status
	m.usr = nil
	m.token = ""
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		slog.Error("failed to clear persisted session", "error", err)
	}
}
