package http

import (
	"html/template"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/ai"
	"github.com/spec-kit/support-desk/internal/api/http/views"
	"github.com/spec-kit/support-desk/internal/observability"
)

// AppOptions configures the fiber application.
type AppOptions struct {
	Name      string
	BodyLimit int
	Timeout   time.Duration
	Logger    *zap.Logger
	Metrics   *observability.Metrics
}

// NewApp builds the fiber app with the embedded views and global middlewares.
func NewApp(opts AppOptions) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      opts.Name,
		BodyLimit:    opts.BodyLimit,
		Views:        NewViewEngine(),
		ViewsLayout:  "layout",
		ErrorHandler: ErrorHandler(opts.Logger),
	})
	RegisterMiddlewares(app, opts.Logger, opts.Metrics, opts.Timeout)
	return app
}

// NewViewEngine loads templates from the embedded filesystem. Reply bodies go
// through the same allowlist as AI drafts before being marked safe.
func NewViewEngine() *html.Engine {
	engine := html.NewFileSystem(http.FS(views.FS), ".html")
	sanitizer := ai.NewSanitizer()
	engine.AddFunc("replyHTML", func(text string) template.HTML {
		clean, err := sanitizer.Clean(text)
		if err != nil {
			return template.HTML(template.HTMLEscapeString(text))
		}
		return template.HTML(clean) //nolint:gosec
	})
	return engine
}
