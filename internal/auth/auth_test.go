package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestParser_Parse(t *testing.T) {
	const secret = "test-secret"
	parser := NewParser(secret)
	userID := uuid.New()

	t.Run("valid token", func(t *testing.T) {
		signed := signToken(t, secret, jwt.MapClaims{
			"user_id": userID.String(),
			"role":    "admin",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})

		claims, err := parser.Parse(signed)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, "admin", claims.Role)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		signed := signToken(t, "other-secret", jwt.MapClaims{
			"user_id": userID.String(),
			"role":    "admin",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})

		_, err := parser.Parse(signed)
		assert.Error(t, err)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		signed := signToken(t, secret, jwt.MapClaims{
			"user_id": userID.String(),
			"role":    "driver",
			"exp":     time.Now().Add(-time.Hour).Unix(),
		})

		_, err := parser.Parse(signed)
		assert.Error(t, err)
	})

	t.Run("malformed user id rejected", func(t *testing.T) {
		signed := signToken(t, secret, jwt.MapClaims{
			"user_id": "not-a-uuid",
			"role":    "admin",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})

		_, err := parser.Parse(signed)
		assert.Error(t, err)
	})
}
