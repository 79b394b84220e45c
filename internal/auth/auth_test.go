package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier_IssueAndParse(t *testing.T) {
	v, err := NewVerifier("jwt-secret")
	require.NoError(t, err)

	token, err := v.Issue("user-1", RoleAdmin, time.Hour)
	require.NoError(t, err)

	id, err := v.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.True(t, id.IsAdmin())
}

func TestVerifier_Rejects(t *testing.T) {
	v, err := NewVerifier("jwt-secret")
	require.NoError(t, err)
	other, err := NewVerifier("other-secret")
	require.NoError(t, err)

	foreign, err := other.Issue("user-1", "user", time.Hour)
	require.NoError(t, err)

	expired, err := v.Issue("user-1", "user", -time.Minute)
	require.NoError(t, err)

	noID, err := v.Issue("", "user", time.Hour)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"id": "user-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "wrong secret", token: foreign},
		{name: "expired", token: expired},
		{name: "missing id", token: noID},
		{name: "alg none", token: none},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := v.Parse(tt.token)
			assert.Nil(t, id)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewVerifier_RequiresSecret(t *testing.T) {
	_, err := NewVerifier("")
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	tok, ok = BearerToken("bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = BearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = BearerToken("")
	assert.False(t, ok)
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, FromContext(ctx))
	assert.False(t, FromContext(ctx).IsAdmin())

	ctx = WithIdentity(ctx, &Identity{UserID: "u1", Role: "user"})
	assert.Equal(t, "u1", FromContext(ctx).UserID)
}
