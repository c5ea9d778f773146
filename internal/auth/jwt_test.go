package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpereira/expensely/internal/auth"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := auth.NewTokenService("test-secret", time.Hour)

	token, err := svc.Generate("ana@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	email, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", email)
}

func TestTokenService_WrongSecret(t *testing.T) {
	token, err := auth.NewTokenService("secret-a", time.Hour).Generate("ana@example.com")
	require.NoError(t, err)

	_, err = auth.NewTokenService("secret-b", time.Hour).Parse(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenService_Expired(t *testing.T) {
	svc := auth.NewTokenService("test-secret", -time.Minute)

	token, err := svc.Generate("ana@example.com")
	require.NoError(t, err)

	_, err = svc.Parse(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenService_Garbage(t *testing.T) {
	svc := auth.NewTokenService("test-secret", time.Hour)

	_, err := svc.Parse("not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
