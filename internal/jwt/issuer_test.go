package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParseAccess(t *testing.T) {
	iss := NewIssuer("lp-auth-test", []byte("test-secret"), 15*time.Minute, time.Hour)

	toks, err := iss.IssueSession("user-1", "PARENT")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", toks.TokenType)
	assert.Equal(t, int64(900), toks.ExpiresIn)

	claims, err := iss.ParseAccess(toks.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "PARENT", claims.Role)
}

func TestParseAccessRejectsRefreshToken(t *testing.T) {
	iss := NewIssuer("lp-auth-test", []byte("test-secret"), 15*time.Minute, time.Hour)

	toks, err := iss.IssueSession("user-1", "PARENT")
	require.NoError(t, err)

	_, err = iss.ParseAccess(toks.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseAccessRejectsWrongIssuerAndSecret(t *testing.T) {
	iss := NewIssuer("lp-auth-test", []byte("test-secret"), 15*time.Minute, time.Hour)
	toks, err := iss.IssueSession("user-1", "PARENT")
	require.NoError(t, err)

	otherIssuer := NewIssuer("someone-else", []byte("test-secret"), 15*time.Minute, time.Hour)
	_, err = otherIssuer.ParseAccess(toks.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	otherSecret := NewIssuer("lp-auth-test", []byte("other-secret"), 15*time.Minute, time.Hour)
	_, err = otherSecret.ParseAccess(toks.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseAccessRejectsExpired(t *testing.T) {
	iss := NewIssuer("lp-auth-test", []byte("test-secret"), -time.Minute, time.Hour)
	toks, err := iss.IssueSession("user-1", "PARENT")
	require.NoError(t, err)

	_, err = iss.ParseAccess(toks.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
