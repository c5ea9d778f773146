package session

import (
	"errors"

	"github.com/dpereira/expensely/internal/user"
)

// Status is the lifecycle state of the client session.
type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusRestoring       Status = "restoring"
	StatusAuthenticated   Status = "authenticated"
	StatusExpired         Status = "expired"
)

// Session is the presentational snapshot of the current session. The
// bearer token is deliberately absent: only the HTTP client may see it,
// through Manager.Token.
type Session struct {
	Status Status
	User   *user.User
}

// Authenticated reports whether a verified identity is present.
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.User != nil
}

var (
	// ErrInFlight is returned when a login or restore is requested
	// while another one is still pending.
	ErrInFlight = errors.New("another login or restore is in flight")

	// ErrSuperseded is returned when a pending login or restore
	// completed after a logout or forced expiry already won.
	ErrSuperseded = errors.New("session changed before completion")
)

// ValidationError reports input rejected before any network call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Credentials is the persisted session record. Absence or a parse
// failure of the stored record is treated identically to "no session".
type Credentials struct {
	Token    string    `json:"token"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     user.Role `json:"role"`
}

// LoginResult is the payload of a successful login call.
type LoginResult struct {
	Token    string
	Username string
	Email    string
	Role     user.Role
}

// Identity is the payload of a current-user verification call.
type Identity struct {
	Username string
	Email    string
	Role     user.Role
}
