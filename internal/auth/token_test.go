package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogforge/apiserver/internal/auth"
)

func newTokenService(t *testing.T, secret string, ttl time.Duration) *auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: secret, TTL: ttl})
	require.NoError(t, err)
	return tokens
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := auth.NewTokenService(auth.TokenConfig{Secret: ""})
	assert.Error(t, err)

	_, err = auth.NewTokenService(auth.TokenConfig{Secret: "   "})
	assert.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := newTokenService(t, "super-secret", time.Hour)

	token, err := tokens.Issue(auth.Principal{Subject: 42})
	require.NoError(t, err)

	subject, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, 42, subject)
}

func TestTokenExpired(t *testing.T) {
	tokens := newTokenService(t, "super-secret", -time.Minute)

	token, err := tokens.Issue(auth.Principal{Subject: 7})
	require.NoError(t, err)

	_, err = tokens.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := newTokenService(t, "right-secret", time.Hour)
	verifier := newTokenService(t, "wrong-secret", time.Hour)

	token, err := issuer.Issue(auth.Principal{Subject: 7})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenMalformed(t *testing.T) {
	tokens := newTokenService(t, "super-secret", time.Hour)

	_, err := tokens.Verify("not.a.jwt")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenTampered(t *testing.T) {
	tokens := newTokenService(t, "super-secret", time.Hour)

	token, err := tokens.Issue(auth.Principal{Subject: 7})
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = tokens.Verify(tampered)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
