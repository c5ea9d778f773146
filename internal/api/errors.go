package api

import "errors"

// Kind classifies a failed API operation.
type Kind string

const (
	// KindAuthentication: a login attempt was rejected.
	KindAuthentication Kind = "authentication"
	// KindAuthorization: 401/403 on an authenticated request. The
	// client forces session expiry before surfacing this.
	KindAuthorization Kind = "authorization"
	// KindNotFound: the server reported 404 for the target resource.
	KindNotFound Kind = "not_found"
	// KindNetwork: the request never produced a response.
	KindNetwork Kind = "network"
	// KindServer: 5xx, an unexpected status, or a malformed response.
	KindServer Kind = "server"
)

// Error is a failed API operation with a human-readable message. The
// message prefers what the server sent; otherwise it is a generic
// fallback keyed to the operation.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.err }

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind == kind
	}

	return false
}
