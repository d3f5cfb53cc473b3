package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/taskhub/internal/auth"
)

const testSecret = "shared-secret"

func TestIssueAndVerify_RoundTrip(t *testing.T) {
	svc := auth.NewTokenService(testSecret, time.Hour)

	token, err := svc.Issue("alice", auth.RoleTeamLeader)
	require.NoError(t, err)

	p, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, auth.RoleTeamLeader, p.Role)
	assert.Equal(t, token, p.Token)
	assert.False(t, p.IsAdmin())
}

func TestVerify_ExpiredToken(t *testing.T) {
	issuer := auth.NewTokenService(testSecret, -time.Minute)
	token, err := issuer.Issue("alice", auth.RoleMember)
	require.NoError(t, err)

	_, err = auth.NewTokenService(testSecret, time.Hour).Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := auth.NewTokenService("other-secret", time.Hour).Issue("alice", auth.RoleMember)
	require.NoError(t, err)

	_, err = auth.NewTokenService(testSecret, time.Hour).Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_Garbage(t *testing.T) {
	_, err := auth.NewTokenService(testSecret, time.Hour).Verify("not.a.token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	claims := auth.Claims{
		Role: auth.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "mallory",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = auth.NewTokenService(testSecret, time.Hour).Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_MissingOrUnknownRole(t *testing.T) {
	tests := []struct {
		name string
		role auth.Role
	}{
		{name: "missing role", role: ""},
		{name: "unknown role", role: "SUPERUSER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := auth.Claims{
				Role: tt.role,
				RegisteredClaims: jwt.RegisteredClaims{
					Subject:   "alice",
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				},
			}
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
			require.NoError(t, err)

			_, err = auth.NewTokenService(testSecret, time.Hour).Verify(token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestVerify_MissingSubject(t *testing.T) {
	claims := auth.Claims{
		Role: auth.RoleMember,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = auth.NewTokenService(testSecret, time.Hour).Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := auth.HashPassword("s3cret", 4)
	require.NoError(t, err)

	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, auth.CheckPassword(hash, "s3cret"))
	assert.False(t, auth.CheckPassword(hash, "wrong"))
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, auth.RoleAdmin.Valid())
	assert.True(t, auth.RoleTeamLeader.Valid())
	assert.True(t, auth.RoleMember.Valid())
	assert.False(t, auth.Role("admin").Valid())
	assert.False(t, auth.Role("").Valid())
}
