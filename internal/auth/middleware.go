package auth

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Account   *domain.Account
	Role      domain.Role
	SessionID string
}

// AccountLoader resolves accounts for authenticated sessions.
type AccountLoader interface {
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
}

// SessionMiddleware resolves the session cookie into a Principal.
type SessionMiddleware struct {
	tokens     *TokenManager
	sessions   *SessionStore
	accounts   AccountLoader
	cookieName string
	secure     bool
	logger     *zap.Logger
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(tokens *TokenManager, sessions *SessionStore, accounts AccountLoader, cookieName string, secure bool, logger *zap.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		tokens:     tokens,
		sessions:   sessions,
		accounts:   accounts,
		cookieName: cookieName,
		secure:     secure,
		logger:     logger,
	}
}

// Handle attaches a Principal when the cookie maps to a live session.
// Anonymous requests pass through; guards decide what to do with them.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	raw := c.Cookies(m.cookieName)
	if raw == "" {
		return c.Next()
	}

	principal, err := m.resolve(c.UserContext(), raw)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) && !errorutil.IsNotFound(err) {
			m.logger.Warn("session lookup failed", zap.Error(err))
		}
		m.ClearCookie(c)
		return c.Next()
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

func (m *SessionMiddleware) resolve(ctx context.Context, raw string) (*Principal, error) {
	claims, err := m.tokens.ParseToken(raw)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	accountID, err := m.sessions.Lookup(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if accountID != claims.AccountID {
		return nil, ErrSessionNotFound
	}
	account, err := m.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &Principal{Account: account, Role: account.Role, SessionID: claims.ID}, nil
}

// SetCookie writes the signed session cookie.
func (m *SessionMiddleware) SetCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (m *SessionMiddleware) ClearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
