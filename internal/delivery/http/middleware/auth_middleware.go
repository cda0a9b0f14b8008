package middleware

import (
	"errors"
	"strings"

	"github.com/Blaze-0903/NextStepAI/internal/pkg/jwt"

	"github.com/gofiber/fiber/v3"
)

const CtxReviewerKey = "reviewer"

// AdminAuthMiddleware admits requests carrying a valid admin bearer token and
// stores the reviewer name in the request locals.
type AdminAuthMiddleware struct {
	jwt jwt.Service
}

func NewAdminAuthMiddleware(jwtSvc jwt.Service) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{jwt: jwtSvc}
}

func (m *AdminAuthMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, ok := bearerTokenFromHeader(c.Get("Authorization"))
		if !ok {
			return NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
		}

		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return NewAppError(fiber.StatusUnauthorized, "Token expired", nil, err)
			}
			return NewAppError(fiber.StatusUnauthorized, "Invalid token", nil, err)
		}

		c.Locals(CtxReviewerKey, claims.Reviewer)
		return c.Next()
	}
}

// Reviewer returns the authenticated reviewer, or "" outside admin routes.
func Reviewer(c fiber.Ctx) string {
	if r, ok := c.Locals(CtxReviewerKey).(string); ok {
		return r
	}
	return ""
}

func bearerTokenFromHeader(authHeader string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(authHeader), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
