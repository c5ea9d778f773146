package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpereira/expensely/internal/api"
	"github.com/dpereira/expensely/internal/expense"
)

type fakeSession struct {
	token   string
	expired atomic.Int32
}

func (s *fakeSession) Token() (string, bool) { return s.token, s.token != "" }
func (s *fakeSession) ForceExpire()          { s.expired.Add(1) }

func newClient(t *testing.T, handler http.Handler) (*api.Client, *fakeSession) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := api.NewClient(srv.URL, 5*time.Second)
	sess := &fakeSession{token: "tok-1"}
	client.Bind(sess)

	return client, sess
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth string

	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]any{})
	}))

	_, err := client.ListExpenses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestClient_AuthorizationFailureForcesExpiryOnce(t *testing.T) {
	client, sess := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
	}))

	_, err := client.ListExpenses(context.Background())

	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindAuthorization))
	assert.Equal(t, "invalid or expired token", err.Error())
	assert.Equal(t, int32(1), sess.expired.Load())
}

func TestClient_LoginRejectionDoesNotForceExpiry(t *testing.T) {
	client, sess := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
	}))

	_, err := client.Login(context.Background(), "ana@example.com", "wrong")

	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindAuthentication))
	assert.Equal(t, "Invalid credentials", err.Error())
	assert.Equal(t, int32(0), sess.expired.Load())
}

func TestClient_LoginWithoutTokenIsServerError(t *testing.T) {
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"username": "ana"})
	}))

	_, err := client.Login(context.Background(), "ana@example.com", "secret")

	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindServer))
	assert.Equal(t, "Authentication failed: no token received", err.Error())
}

func TestClient_NotFound(t *testing.T) {
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Expense not found", http.StatusNotFound)
	}))

	err := client.DeleteExpense(context.Background(), uuid.New())

	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindNotFound))
	assert.Equal(t, "Expense not found", err.Error())
}

func TestClient_ServerMessageExtraction(t *testing.T) {
	type testCase struct {
		name        string
		body        string
		status      int
		wantMessage string
	}

	tests := []testCase{
		{
			name:   "JSONMessage",
			body:   `{"message":"database unavailable"}`,
			status: http.StatusInternalServerError, wantMessage: "database unavailable",
		},
		{
			name:   "ShortPlainText",
			body:   "something broke",
			status: http.StatusInternalServerError, wantMessage: "something broke",
		},
		{
			name:   "HTMLFallsBack",
			body:   "<html><body>panic</body></html>",
			status: http.StatusInternalServerError, wantMessage: "Failed to fetch expenses",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			_, err := client.ListExpenses(context.Background())

			require.Error(t, err)
			assert.True(t, api.IsKind(err, api.KindServer))
			assert.Equal(t, tt.wantMessage, err.Error())
		})
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())

	client := api.NewClient(srv.URL, time.Second)
	client.Bind(&fakeSession{})
	srv.Close()

	_, err := client.ListExpenses(context.Background())

	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindNetwork))
	assert.Equal(t, "Failed to fetch expenses", err.Error())
}

func TestClient_CreateExpense_Multipart(t *testing.T) {
	id := uuid.New()

	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))

		var draft struct {
			Title    string          `json:"title"`
			Amount   decimal.Decimal `json:"amount"`
			Date     string          `json:"date"`
			Category string          `json:"category"`
		}
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("expense")), &draft))
		assert.Equal(t, "Groceries", draft.Title)
		assert.Equal(t, "2025-03-14", draft.Date)
		assert.Equal(t, "FOOD", draft.Category)
		assert.True(t, draft.Amount.Equal(decimal.RequireFromString("42.50")))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()

		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "receipt.png", header.Filename)
		assert.Equal(t, []byte("png-bytes"), data)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":         id,
			"title":      draft.Title,
			"amount":     draft.Amount,
			"date":       draft.Date,
			"category":   draft.Category,
			"imagePath":  "12345_receipt.png",
			"created_at": time.Now().UTC(),
		})
	}))

	created, err := client.CreateExpense(context.Background(),
		expense.CreateParams{
			Title:    "Groceries",
			Amount:   decimal.RequireFromString("42.50"),
			Date:     time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
			Category: expense.CategoryFood,
		},
		&expense.Attachment{Filename: "receipt.png", Reader: strings.NewReader("png-bytes")},
	)

	require.NoError(t, err)
	assert.Equal(t, id, created.ID)
	assert.Equal(t, "12345_receipt.png", created.ImagePath)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), created.Date)
}
