package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// AuthHandler serves registration, login and logout pages.
type AuthHandler struct {
	service  *service.AuthService
	sessions *auth.SessionMiddleware
	logger   *zap.Logger
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, sessions *auth.SessionMiddleware, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{service: authService, sessions: sessions, logger: logger}
}

// Home GET /.
func (h *AuthHandler) Home(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return c.Redirect(auth.LoginPath)
	}
	return c.Redirect(auth.HomePath(principal.Role))
}

// ShowRegister GET /register/.
func (h *AuthHandler) ShowRegister(c *fiber.Ctx) error {
	return Render(c, "register", fiber.Map{"Title": "Register", "Form": dto.RegisterForm{}})
}

// Register POST /register/.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var form dto.RegisterForm
	if err := c.BodyParser(&form); err != nil {
		return errorutil.NewBadRequest("invalid form submission")
	}

	account, err := h.service.Register(c.UserContext(), form.ToInput())
	if err != nil {
		if verr, ok := errorutil.AsValidation(err); ok {
			form.Password1, form.Password2 = "", ""
			return Render(c, "register", fiber.Map{"Title": "Register", "Form": form, "Errors": verr.Fields})
		}
		return err
	}

	h.logger.Info("account registered", zap.Int64("account_id", account.ID))
	Flash(c, LevelSuccess, "Account created successfully! You can now log in.")
	return c.Redirect(auth.LoginPath)
}

// ShowLogin GET /login/.
func (h *AuthHandler) ShowLogin(c *fiber.Ctx) error {
	return Render(c, "login", fiber.Map{"Title": "Login", "Username": "", "Next": c.Query("next")})
}

// Login POST /login/.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var form dto.LoginForm
	if err := c.BodyParser(&form); err != nil {
		return errorutil.NewBadRequest("invalid form submission")
	}

	result, err := h.service.Login(c.UserContext(), form.Username, form.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return Render(c, "login", fiber.Map{"Title": "Login", "Username": form.Username, "Next": c.Query("next")},
				Message{Level: LevelError, Text: "Invalid username or password."})
		}
		return err
	}

	h.sessions.SetCookie(c, result.Token, result.ExpiresAt)
	if next := c.Query("next"); isLocalPath(next) {
		return c.Redirect(next)
	}
	return c.Redirect(auth.HomePath(result.Account.Role))
}

// Logout GET|POST /logout/.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if principal, ok := auth.PrincipalFromContext(c); ok {
		if err := h.service.Logout(c.UserContext(), principal.SessionID); err != nil {
			h.logger.Warn("session destroy failed", zap.Error(err))
		}
	}
	h.sessions.ClearCookie(c)
	Flash(c, LevelInfo, "Logged out successfully.")
	return c.Redirect(auth.LoginPath)
}

func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.Contains(p, "\\")
}
