package handlers

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() JWTConfig {
	return JWTConfig{
		Secret:         []byte("test-secret-key"),
		AccessTokenTTL: 15 * time.Minute,
	}
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	cfg := testJWTConfig()

	token, expiresIn, err := GenerateAccessToken(cfg, "editor")
	require.NoError(t, err)
	assert.Equal(t, int64(900), expiresIn)

	claims, err := ValidateAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "editor", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, TokenIssuer, claims.Issuer)
}

func TestValidateAccessToken_Rejects(t *testing.T) {
	cfg := testJWTConfig()

	sign := func(claims AdminClaims, secret []byte) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
		require.NoError(t, err)
		return s
	}
	valid := func() jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Subject:   "editor",
			Issuer:    TokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
	}

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	foreign := valid()
	foreign.Issuer = "someone-else"

	tests := []struct {
		wantIs error
		name   string
		token  string
	}{
		{name: "garbage", token: "not-a-jwt"},
		{name: "wrong secret", token: sign(AdminClaims{Role: RoleAdmin, RegisteredClaims: valid()}, []byte("other"))},
		{name: "expired", token: sign(AdminClaims{Role: RoleAdmin, RegisteredClaims: expired}, cfg.Secret), wantIs: jwt.ErrTokenExpired},
		{name: "foreign issuer", token: sign(AdminClaims{Role: RoleAdmin, RegisteredClaims: foreign}, cfg.Secret), wantIs: jwt.ErrTokenInvalidIssuer},
		{name: "viewer role", token: sign(AdminClaims{Role: "viewer", RegisteredClaims: valid()}, cfg.Secret), wantIs: ErrForbiddenRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateAccessToken(cfg, tt.token)
			require.Error(t, err)
			assert.Nil(t, claims)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
		})
	}
}
