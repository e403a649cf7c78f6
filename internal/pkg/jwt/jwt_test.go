package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildbuddy-admin/internal/pkg/config"
	"buildbuddy-admin/pkg/constants"
	pkgErrors "buildbuddy-admin/pkg/errors"
)

func setupConfig(t *testing.T, accessTTL int) {
	t.Helper()
	prev := config.GlobalConfig
	config.GlobalConfig = &config.Config{Auth: config.AuthConfig{JWT: config.JWTConfig{
		Secret:             "test-secret",
		AccessTokenExpire:  accessTTL,
		RefreshTokenExpire: 3600,
	}}}
	t.Cleanup(func() { config.GlobalConfig = prev })
}

func TestAccessTokenRoundTrip(t *testing.T) {
	setupConfig(t, 60)

	token, err := GenerateAccessToken(Identity{UserID: 42, Username: "alice", Email: "alice@acme.test", AuthType: constants.AuthTypeLocal})
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice@acme.test", claims.Email)
	assert.Equal(t, constants.JWTTypeAccess, claims.Type)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "alice", claims.Identity().Username)
}

func TestRefreshTokenType(t *testing.T) {
	setupConfig(t, 60)

	token, err := GenerateRefreshToken(Identity{UserID: 1, Username: "bob"})
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, constants.JWTTypeRefresh, claims.Type)
}

func TestExpiredToken(t *testing.T) {
	setupConfig(t, -60)

	token, err := GenerateAccessToken(Identity{UserID: 1, Username: "carol"})
	require.NoError(t, err)

	_, err = ValidateToken(token)
	assert.ErrorIs(t, err, pkgErrors.ErrTokenExpired)
}

func TestTamperedToken(t *testing.T) {
	setupConfig(t, 60)

	token, err := GenerateAccessToken(Identity{UserID: 1, Username: "dave"})
	require.NoError(t, err)

	_, err = ValidateToken(token + "x")
	assert.Error(t, err)
	assert.Equal(t, pkgErrors.CodeUnauthorized, pkgErrors.CodeOf(err))
}
