package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dpereira/expensely/internal/auth"
	"github.com/dpereira/expensely/internal/user"
)

func TestAuthenticator(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := user.NewMockRepository(ctrl)
	users := user.NewService(repo)
	tokens := auth.NewTokenService("test-secret", time.Hour)

	account := &user.User{ID: uuid.New(), Username: "ana", Email: "ana@example.com", Role: user.RoleUser}

	repo.EXPECT().
		GetByEmail(gomock.Any(), "ana@example.com").
		Return(account, nil).
		AnyTimes()

	var seen *user.User

	handler := auth.Authenticator(tokens, users)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = auth.UserFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}),
	)

	t.Run("ValidToken", func(t *testing.T) {
		token, err := tokens.Generate("ana@example.com")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, account.ID, seen.ID)
	})

	t.Run("MissingHeader", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("MalformedToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := user.NewMockRepository(ctrl)
	users := user.NewService(repo)
	tokens := auth.NewTokenService("test-secret", time.Hour)

	handler := auth.Authenticator(tokens, users)(
		auth.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})),
	)

	serve := func(t *testing.T, account *user.User) *httptest.ResponseRecorder {
		t.Helper()

		repo.EXPECT().GetByEmail(gomock.Any(), account.Email).Return(account, nil)

		token, err := tokens.Generate(account.Email)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		return rec
	}

	t.Run("AdminAllowed", func(t *testing.T) {
		rec := serve(t, &user.User{Email: "root@example.com", Role: user.RoleAdmin})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("UserForbidden", func(t *testing.T) {
		rec := serve(t, &user.User{Email: "ana@example.com", Role: user.RoleUser})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
