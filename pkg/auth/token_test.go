package auth

import (
	"testing"
	"time"

	"github.com/angelmondragon/storefront-orders/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCfg = config.JWTConfig{Secret: "secret", Issuer: "storefront"}

func TestMintAndParseToken(t *testing.T) {
	now := time.Now().UTC()
	token, err := MintToken(testCfg, now, "ops@example.com", RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(testCfg, token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
	assert.Equal(t, "storefront", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.IsAdmin())
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := MintToken(testCfg, time.Now().Add(-2*time.Hour), "ops", RoleAdmin, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(testCfg, token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseTokenRejectsWrongIssuerOrSecret(t *testing.T) {
	token, err := MintToken(testCfg, time.Now(), "ops", RoleAdmin, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(config.JWTConfig{Secret: "secret", Issuer: "other"}, token)
	assert.Error(t, err)

	_, err = ParseToken(config.JWTConfig{Secret: "different", Issuer: "storefront"}, token)
	assert.Error(t, err)
}

func TestParseTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{Role: RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    testCfg.Issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testCfg.Secret))
	require.NoError(t, err)

	_, err = ParseToken(testCfg, token)
	assert.Error(t, err)
}

func TestMintTokenValidatesConfig(t *testing.T) {
	_, err := MintToken(config.JWTConfig{Issuer: "x"}, time.Now(), "s", RoleAdmin, time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)
	_, err = MintToken(config.JWTConfig{Secret: "x"}, time.Now(), "s", RoleAdmin, time.Hour)
	assert.ErrorIs(t, err, ErrMissingIssuer)
	_, err = MintToken(testCfg, time.Now(), "s", RoleAdmin, 0)
	assert.Error(t, err)
}

func TestIsAdmin(t *testing.T) {
	var nilClaims *Claims
	assert.False(t, nilClaims.IsAdmin())
	assert.False(t, (&Claims{Role: "support"}).IsAdmin())
}
