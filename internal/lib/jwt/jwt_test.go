package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "testsecrettestsecrettestsecret12"

func TestNewToken_RoundTrip(t *testing.T) {
	token, err := NewToken("user@example.com", 42, time.Hour, testSecret)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseToken(token, testSecret)
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", claims.Subject)
	assert.Equal(t, int64(42), claims.UserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := NewToken("user@example.com", 42, time.Hour, testSecret)
	require.NoError(t, err)

	_, err = ParseToken(token, "someothersecretsomeothersecret12")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_Expired(t *testing.T) {
	token, err := NewToken("user@example.com", 42, -time.Minute, testSecret)
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_Malformed(t *testing.T) {
	_, err := ParseToken("not.a.token", testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_NoneAlgorithmRejected(t *testing.T) {
	// header {"alg":"none","typ":"JWT"} with an unsigned payload
	unsigned := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJzdWIiOiJ1c2VyQGV4YW1wbGUuY29tIn0."

	_, err := ParseToken(unsigned, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
