package http

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/observability"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
}

// CSRFFailureMessage is returned when a state-changing request carries no
// valid token.
const CSRFFailureMessage = "CSRF verification failed. Request aborted."

// jsonEndpoints answer every failure with the {success, error} body.
var jsonEndpoints = []string{"/tickets/mark_in_process/", "/tickets/ai_reply/"}

func isJSONEndpoint(path string) bool {
	for _, prefix := range jsonEndpoints {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// CSRFMiddleware protects every unsafe method. Tokens are read from the
// X-CSRF-Token header first, then from the _csrf form field.
func CSRFMiddleware(cfg config.CSRFConfig, storage fiber.Storage, secure bool) fiber.Handler {
	ttl := time.Duration(cfg.TTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}
	return csrf.New(csrf.Config{
		CookieName:     cfg.CookieName,
		CookieSameSite: "Lax",
		CookieSecure:   secure,
		CookieHTTPOnly: true,
		Expiration:     ttl,
		Storage:        storage,
		ContextKey:     handlers.CSRFContextKey,
		Extractor:      csrfExtractor,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if isJSONEndpoint(c.Path()) {
				return c.Status(fiber.StatusForbidden).JSON(dto.Failure(CSRFFailureMessage))
			}
			return fiber.NewError(fiber.StatusForbidden, CSRFFailureMessage)
		},
	})
}

func csrfExtractor(c *fiber.Ctx) (string, error) {
	if token, err := csrf.CsrfFromHeader("X-CSRF-Token")(c); err == nil {
		return token, nil
	}
	return csrf.CsrfFromForm("_csrf")(c)
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := toDomainError(err)
				metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.Error(err))
				}
				err = writeError(c, domainErr)
			}
		}()
		return c.Next()
	}
}

// ErrorHandler is the app-level fallback for errors raised outside the
// middleware chain, such as oversized bodies.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		domainErr := toDomainError(err)
		if domainErr.HTTPStatus >= 500 {
			logger.Error("request failed", zap.Error(err))
		}
		return writeError(c, domainErr)
	}
}

func toDomainError(err error) *apperrors.DomainError {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := strings.ToUpper(strings.ReplaceAll(http.StatusText(fe.Code), " ", "_"))
		return apperrors.NewDomainError(code, fe.Message, fe.Code, nil)
	}
	return apperrors.ToDomainError(err)
}

func writeError(c *fiber.Ctx, domainErr *apperrors.DomainError) error {
	c.Status(domainErr.HTTPStatus)
	if wantsJSON(c) {
		response := fiber.Map{"error": fiber.Map{
			"code":    domainErr.Code,
			"message": domainErr.Message,
		}}
		if len(domainErr.Details) > 0 {
			response["error"].(fiber.Map)["details"] = domainErr.Details
		}
		return c.JSON(response)
	}
	renderErr := handlers.Render(c, "error", fiber.Map{
		"Title":   http.StatusText(domainErr.HTTPStatus),
		"Status":  domainErr.HTTPStatus,
		"Message": domainErr.Message,
	})
	if renderErr != nil {
		return c.SendString(domainErr.Message)
	}
	return nil
}

func wantsJSON(c *fiber.Ctx) bool {
	if strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMEApplicationJSON) {
		return true
	}
	return strings.HasPrefix(c.Path(), "/health") || c.Get("X-Requested-With") == "XMLHttpRequest"
}
