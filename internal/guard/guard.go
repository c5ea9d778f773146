// Package guard decides, per navigation, whether the current session
// satisfies the capability a destination requires. Decisions are never
// cached: the session can change between renders.
package guard

import (
	"github.com/dpereira/expensely/internal/session"
	"github.com/dpereira/expensely/internal/user"
)

type Decision int

const (
	// Allow renders the destination.
	Allow Decision = iota
	// RedirectLogin sends the user to the login view, preserving the
	// originally requested destination for post-login return.
	RedirectLogin
	// RedirectUnauthorized sends the user to the unauthorized view.
	RedirectUnauthorized
)

// Result is the outcome of a guard check.
type Result struct {
	Decision Decision

	// ReturnTo carries the originally requested destination when the
	// decision is RedirectLogin.
	ReturnTo string
}

// Check evaluates the session against the role a destination requires.
// An empty required role means any authenticated session may render it.
func Check(s session.Session, dest string, required user.Role) Result {
	if !s.Authenticated() {
		return Result{Decision: RedirectLogin, ReturnTo: dest}
	}

	if required != "" && s.User.Role != required {
		return Result{Decision: RedirectUnauthorized}
	}

	return Result{Decision: Allow}
}
