// internal/utils/jwt_test.go
package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	SetJWTSecret("jwt-test-secret")

	token, err := GenerateJWT("alice", RoleAdmin, 1)
	require.NoError(t, err)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Principal)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, "alice", claims.Subject)
}

func TestValidateJWTWrongSecret(t *testing.T) {
	SetJWTSecret("first")
	token, err := GenerateJWT("alice", RoleMember, 1)
	require.NoError(t, err)

	SetJWTSecret("second")
	_, err = ValidateJWT(token)
	assert.Error(t, err)
	assert.False(t, IsTokenExpired(err))
}

func TestValidateJWTExpired(t *testing.T) {
	SetJWTSecret("jwt-test-secret")

	token, err := GenerateJWT("alice", RoleMember, -1)
	require.NoError(t, err)

	_, err = ValidateJWT(token)
	require.Error(t, err)
	assert.True(t, IsTokenExpired(err))
}

func TestValidateJWTRequiresPrincipal(t *testing.T) {
	SetJWTSecret("jwt-test-secret")

	claims := JWTClaims{
		Role: RoleMember,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("jwt-test-secret"))
	require.NoError(t, err)

	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestValidateJWTRejectsNone(t *testing.T) {
	claims := JWTClaims{Principal: "mallory", Role: RoleAdmin}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateJWT(token)
	assert.Error(t, err)
}
