package middleware

import (
	"strings"

	"hostelpass/internal/config"
	"hostelpass/internal/core/domain"
	"hostelpass/internal/pkg/jwt"
	"hostelpass/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware creates authentication middleware
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var accessToken string

		// 1. Try to get token from cookie first
		accessToken = c.Cookies("access_token")

		// 2. If not in cookie, try Authorization header
		if accessToken == "" {
			authHeader := c.Get("Authorization")
			if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
				accessToken = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		// 3. No token found
		if accessToken == "" {
			return response.Unauthorized(c, "Access token required")
		}

		// 4. Validate token
		claims, err := jwt.ValidateAccessToken(accessToken, cfg.JWT.Secret)
		if err != nil {
			if err == jwt.ErrTokenExpired {
				return response.Unauthorized(c, "Access token expired")
			}
			return response.Unauthorized(c, "Invalid access token")
		}

		// 5. Set user info in context
		c.Locals("userID", claims.UserID)
		c.Locals("username", claims.Username)
		c.Locals("role", claims.Role)

		return c.Next()
	}
}

// Identity rebuilds the authenticated caller from the request context.
// Must run behind AuthMiddleware.
func Identity(c *fiber.Ctx) domain.Identity {
	id := domain.Identity{}
	if userID, ok := c.Locals("userID").(uint); ok {
		id.UserID = userID
	}
	if username, ok := c.Locals("username").(string); ok {
		id.Username = username
	}
	if role, ok := c.Locals("role").(string); ok {
		id.Role = domain.Role(role)
	}
	return id
}

// RoleMiddleware creates role-based authorization middleware
func RoleMiddleware(allowedRoles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals("role").(string)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}

		// Check if user's role is in allowed roles
		for _, allowedRole := range allowedRoles {
			if domain.Role(role) == allowedRole {
				return c.Next()
			}
		}

		return response.Forbidden(c, "You don't have permission to access this resource")
	}
}

// AdminOnly middleware allows only ADMIN role
func AdminOnly() fiber.Handler {
	return RoleMiddleware(domain.RoleAdmin)
}

// StudentOnly middleware allows only STUDENT role
func StudentOnly() fiber.Handler {
	return RoleMiddleware(domain.RoleStudent)
}

// ApproverOnly middleware allows the three approval-chain roles
func ApproverOnly() fiber.Handler {
	return RoleMiddleware(domain.RoleAdvisor, domain.RoleHOD, domain.RoleWarden)
}

// GuardOnly middleware allows only GUARD role
func GuardOnly() fiber.Handler {
	return RoleMiddleware(domain.RoleGuard)
}
