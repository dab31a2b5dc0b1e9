package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmdirect/farmdirect/config"
	"github.com/farmdirect/farmdirect/pkg/auth"
)

func TestGenerateAndValidate(t *testing.T) {
	token, err := auth.GenerateToken("64b7f0c2a1e4d3b2c1a09f8e", auth.RoleFarmer)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "64b7f0c2a1e4d3b2c1a09f8e", claims.UserID)
	assert.Equal(t, auth.RoleFarmer, claims.Role)
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := auth.ValidateToken("not-a-jwt")
	assert.True(t, errors.Is(err, auth.ErrInvalidToken))
}

func TestValidateRejectsExpired(t *testing.T) {
	claims := auth.Claims{
		UserID: "u1",
		Role:   auth.RoleBuyer,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(config.JWTSecret()))
	require.NoError(t, err)

	_, err = auth.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	claims := auth.Claims{UserID: "u1", Role: auth.RoleBuyer}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("someone-else"))
	require.NoError(t, err)

	_, err = auth.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestValidateRejectsMissingSubject(t *testing.T) {
	token, err := auth.GenerateToken("", auth.RoleBuyer)
	require.NoError(t, err)

	_, err = auth.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("harvest-2024")
	require.NoError(t, err)

	assert.True(t, auth.CheckPassword(hash, "harvest-2024"))
	assert.False(t, auth.CheckPassword(hash, "wrong"))
}
