package auth

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/domain"
)

// Navigation targets for each role.
const (
	LoginPath         = "/login/"
	CustomerHomePath  = "/list/"
	AdminHomePath     = "/admin/view_ticket/"
	unauthorizedError = "authentication required"
)

// HomePath returns the landing page for role.
func HomePath(role domain.Role) string {
	if role == domain.RoleAdmin {
		return AdminHomePath
	}
	return CustomerHomePath
}

// RequireLogin redirects anonymous callers to the login page.
func RequireLogin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return c.Redirect(LoginPath+"?next="+url.QueryEscape(c.OriginalURL()), fiber.StatusFound)
		}
		return c.Next()
	}
}

// RequireRole sends callers with a different role to their own home page.
func RequireRole(role domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return c.Redirect(LoginPath+"?next="+url.QueryEscape(c.OriginalURL()), fiber.StatusFound)
		}
		if principal.Role != role {
			return c.Redirect(HomePath(principal.Role), fiber.StatusFound)
		}
		return c.Next()
	}
}

// RequireRoleJSON rejects callers without role with a JSON failure payload.
func RequireRoleJSON(role domain.Role, status int, message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": unauthorizedError})
		}
		if principal.Role != role {
			return c.Status(status).JSON(fiber.Map{"success": false, "error": message})
		}
		return c.Next()
	}
}
