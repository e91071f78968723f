// Package middleware provides HTTP middleware for the ledger API.
package middleware

import (
	"strings"

	"bankcards/internal/models"
	"bankcards/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// ClaimsKey is the fiber.Ctx locals key holding *models.UserClaims.
const ClaimsKey = "claims"

// AuthMiddleware verifies bearer tokens issued by the identity service and
// adds the user claims to the request context.
type AuthMiddleware struct {
	secret []byte
	logger *logrus.Logger
}

func NewAuthMiddleware(secret string, logger *logrus.Logger) *AuthMiddleware {
	if logger == nil {
		logger = logrus.New()
	}
	return &AuthMiddleware{secret: []byte(secret), logger: logger}
}

// Handler checks for a Bearer token with a valid HS256 signature, an
// unexpired lifetime and a known role.
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return response.Error(c, fiber.StatusUnauthorized, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return response.Error(c, fiber.StatusUnauthorized, "invalid authorization format")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	claims := &models.UserClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		m.logger.WithError(err).Debug("rejected access token")
		return response.Error(c, fiber.StatusUnauthorized, "invalid token")
	}

	if claims.UserID == 0 || (claims.Role != models.RoleUser && claims.Role != models.RoleAdmin) {
		m.logger.WithField("user_id", claims.UserID).Debug("token carries unusable claims")
		return response.Error(c, fiber.StatusUnauthorized, "invalid claims")
	}

	c.Locals(ClaimsKey, claims)
	return c.Next()
}

// AdminOnly rejects requests whose claims do not carry the admin role.
func AdminOnly(c *fiber.Ctx) error {
	claims, ok := Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}
	if !claims.IsAdmin() {
		return response.Forbidden(c)
	}
	return c.Next()
}

// Claims returns the verified claims of the current request.
func Claims(c *fiber.Ctx) (*models.UserClaims, bool) {
	claims, ok := c.Locals(ClaimsKey).(*models.UserClaims)
	return claims, ok && claims != nil
}
