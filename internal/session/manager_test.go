package session_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dpereira/expensely/internal/session"
	"github.com/dpereira/expensely/internal/user"
)

func newManager(t *testing.T) (*session.Manager, *session.MockAuthAPI, *session.FileStore) {
	t.Helper()

	ctrl := gomock.NewController(t)
	api := session.NewMockAuthAPI(ctrl)
	store := session.NewFileStore(filepath.Join(t.TempDir(), "session.json"))

	return session.NewManager(api, store), api, store
}

func TestManager_Login_ValidatesBeforeNetwork(t *testing.T) {
	type testCase struct {
		name     string
		email    string
		password string
	}

	tests := []testCase{
		{name: "EmptyEmail", email: "", password: "secret"},
		{name: "EmptyPassword", email: "ana@example.com", password: ""},
		{name: "MalformedEmail", email: "not-an-email", password: "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// No expectations on the mock: validation failures must not
			// reach the network.
			m, _, _ := newManager(t)

			_, err := m.Login(context.Background(), tt.email, tt.password)

			var valErr *session.ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, session.StatusUnauthenticated, m.Snapshot().Status)
		})
	}
}

func TestManager_Login_Success(t *testing.T) {
	m, api, store := newManager(t)

	api.EXPECT().
		Login(gomock.Any(), "ana@example.com", "secret").
		Return(session.LoginResult{
			Token:    "tok-1",
			Username: "ana",
			Email:    "ana@example.com",
			Role:     user.RoleAdmin,
		}, nil)

	role, err := m.Login(context.Background(), "ana@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, role)

	s := m.Snapshot()
	assert.Equal(t, session.StatusAuthenticated, s.Status)
	require.NotNil(t, s.User)
	assert.Equal(t, "ana", s.User.Username)

	token, ok := m.Token()
	assert.True(t, ok)
	assert.Equal(t, "tok-1", token)

	creds, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "tok-1", creds.Token)
	assert.Equal(t, user.RoleAdmin, creds.Role)
}

func TestManager_Login_DefaultsRole(t *testing.T) {
	m, api, _ := newManager(t)

	api.EXPECT().
		Login(gomock.Any(), "bob@example.com", "secret").
		Return(session.LoginResult{
			Token:    "tok-2",
			Username: "bob",
			Email:    "bob@example.com",
		}, nil)

	role, err := m.Login(context.Background(), "bob@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, user.RoleUser, role)
}

func TestManager_Login_SecondAttemptWhilePending(t *testing.T) {
	m, api, _ := newManager(t)

	started := make(chan struct{})
	release := make(chan struct{})

	api.EXPECT().
		Login(gomock.Any(), "ana@example.com", "secret").
		DoAndReturn(func(context.Context, string, string) (session.LoginResult, error) {
			close(started)
			<-release

			return session.LoginResult{Token: "tok", Username: "ana", Email: "ana@example.com"}, nil
		})

	done := make(chan error, 1)

	go func() {
		_, err := m.Login(context.Background(), "ana@example.com", "secret")
		done <- err
	}()

	<-started

	_, err := m.Login(context.Background(), "other@example.com", "secret")
	assert.ErrorIs(t, err, session.ErrInFlight)

	close(release)
	require.NoError(t, <-done)
}

func TestManager_ForceExpire_WinsOverPendingLogin(t *testing.T) {
	m, api, _ := newManager(t)

	started := make(chan struct{})
	release := make(chan struct{})

	api.EXPECT().
		Login(gomock.Any(), "ana@example.com", "secret").
		DoAndReturn(func(context.Context, string, string) (session.LoginResult, error) {
			close(started)
			<-release

			return session.LoginResult{Token: "tok", Username: "ana", Email: "ana@example.com"}, nil
		})

	done := make(chan error, 1)

	go func() {
		_, err := m.Login(context.Background(), "ana@example.com", "secret")
		done <- err
	}()

	<-started
	m.ForceExpire()
	close(release)

	assert.ErrorIs(t, <-done, session.ErrSuperseded)

	s := m.Snapshot()
	assert.Equal(t, session.StatusExpired, s.Status)
	assert.Nil(t, s.User)

	_, ok := m.Token()
	assert.False(t, ok)

	m.AcknowledgeExpiry()
	assert.Equal(t, session.StatusUnauthenticated, m.Snapshot().Status)
}

func TestManager_Restore_NoStoredSession(t *testing.T) {
	m, _, _ := newManager(t)

	require.NoError(t, m.Restore(context.Background()))
	assert.Equal(t, session.StatusUnauthenticated, m.Snapshot().Status)
}

func TestManager_Restore_VerifiesAndKeepsPersistedRole(t *testing.T) {
	m, api, store := newManager(t)

	require.NoError(t, store.Save(session.Credentials{
		Token:    "tok-3",
		Username: "ana",
		Email:    "ana@example.com",
		Role:     user.RoleAdmin,
	}))

	// The verification response omits the role.
	api.EXPECT().
		CurrentUser(gomock.Any()).
		Return(session.Identity{Username: "ana", Email: "ana@example.com"}, nil)

	require.NoError(t, m.Restore(context.Background()))

	s := m.Snapshot()
	assert.Equal(t, session.StatusAuthenticated, s.Status)
	require.NotNil(t, s.User)
	assert.Equal(t, user.RoleAdmin, s.User.Role)

	token, ok := m.Token()
	assert.True(t, ok)
	assert.Equal(t, "tok-3", token)
}

func TestManager_Restore_RejectedTokenClearsStore(t *testing.T) {
	m, api, store := newManager(t)

	require.NoError(t, store.Save(session.Credentials{
		Token: "stale",
		Email: "ana@example.com",
	}))

	api.EXPECT().
		CurrentUser(gomock.Any()).
		Return(session.Identity{}, assert.AnError)

	require.NoError(t, m.Restore(context.Background()))

	assert.Equal(t, session.StatusUnauthenticated, m.Snapshot().Status)

	creds, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestManager_Logout_ClearsDespiteServerError(t *testing.T) {
	m, api, store := newManager(t)

	api.EXPECT().
		Login(gomock.Any(), "ana@example.com", "secret").
		Return(session.LoginResult{Token: "tok", Username: "ana", Email: "ana@example.com"}, nil)

	_, err := m.Login(context.Background(), "ana@example.com", "secret")
	require.NoError(t, err)

	api.EXPECT().Logout(gomock.Any()).Return(assert.AnError)

	m.Logout(context.Background())

	assert.Equal(t, session.StatusUnauthenticated, m.Snapshot().Status)

	_, ok := m.Token()
	assert.False(t, ok)

	creds, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, creds)
}
