package guard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dpereira/expensely/internal/guard"
	"github.com/dpereira/expensely/internal/session"
	"github.com/dpereira/expensely/internal/user"
)

func TestCheck(t *testing.T) {
	authedUser := session.Session{
		Status: session.StatusAuthenticated,
		User:   &user.User{Username: "ana", Role: user.RoleUser},
	}
	authedAdmin := session.Session{
		Status: session.StatusAuthenticated,
		User:   &user.User{Username: "root", Role: user.RoleAdmin},
	}

	type testCase struct {
		name     string
		sess     session.Session
		dest     string
		required user.Role
		want     guard.Decision
		returnTo string
	}

	tests := []testCase{
		{
			name: "UnauthenticatedRedirectsToLogin",
			sess: session.Session{Status: session.StatusUnauthenticated},
			dest: "/user/dashboard", want: guard.RedirectLogin, returnTo: "/user/dashboard",
		},
		{
			name: "ExpiredRedirectsToLogin",
			sess: session.Session{Status: session.StatusExpired},
			dest: "/user/summary", want: guard.RedirectLogin, returnTo: "/user/summary",
		},
		{
			name: "RestoringIsNotAuthenticatedYet",
			sess: session.Session{Status: session.StatusRestoring},
			dest: "/user/dashboard", want: guard.RedirectLogin, returnTo: "/user/dashboard",
		},
		{
			name: "AuthenticatedUserAllowed",
			sess: authedUser,
			dest: "/user/dashboard", want: guard.Allow,
		},
		{
			name: "UserDeniedAdminView",
			sess: authedUser,
			dest: "/admin/dashboard", required: user.RoleAdmin, want: guard.RedirectUnauthorized,
		},
		{
			name: "AdminAllowedAdminView",
			sess: authedAdmin,
			dest: "/admin/dashboard", required: user.RoleAdmin, want: guard.Allow,
		},
		{
			name: "AdminDeniedUserOnlyView",
			sess: authedAdmin,
			dest: "/user/dashboard", required: user.RoleUser, want: guard.RedirectUnauthorized,
		},
		{
			name: "StatusWithoutUserIsNotAuthenticated",
			sess: session.Session{Status: session.StatusAuthenticated},
			dest: "/user/dashboard", want: guard.RedirectLogin, returnTo: "/user/dashboard",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := guard.Check(tt.sess, tt.dest, tt.required)

			assert.Equal(t, tt.want, res.Decision)
			assert.Equal(t, tt.returnTo, res.ReturnTo)
		})
	}
}
