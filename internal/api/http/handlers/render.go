package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/auth"
)

// CSRFContextKey is where the CSRF middleware stores the current token.
const CSRFContextKey = "csrf"

// Render renders view inside the layout with the shared page data filled in.
// extra messages are shown immediately without a round trip through the cookie.
func Render(c *fiber.Ctx, view string, data fiber.Map, extra ...Message) error {
	if data == nil {
		data = fiber.Map{}
	}
	data["Messages"] = append(takeFlash(c), extra...)
	data["CSRFToken"] = CSRFToken(c)
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = map[string]string{}
	}
	if principal, ok := auth.PrincipalFromContext(c); ok {
		data["User"] = principal.Account
	}
	return c.Render(view, data)
}

// CSRFToken returns the token issued for this request, if any.
func CSRFToken(c *fiber.Ctx) string {
	token, _ := c.Locals(CSRFContextKey).(string)
	return token
}
