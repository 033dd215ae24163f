package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/ai"
	httptransport "github.com/spec-kit/support-desk/internal/api/http"
	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/repository/memstore"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/internal/storage"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := bootstrap()
			defer logger.Sync() //nolint:errcheck
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

// repositories is the set of stores the services run on.
type repositories struct {
	accounts repository.AccountRepository
	tickets  repository.TicketRepository
	replies  repository.TicketReplyRepository
	tx       repository.Transactor
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var (
		repos    repositories
		pgHealth handlers.Pinger
	)
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		tx := repository.NewTransactor(pool)
		repos = repositories{
			accounts: repository.NewAccountRepository(pool, tx),
			tickets:  repository.NewTicketRepository(pool),
			replies:  repository.NewTicketReplyRepository(pool),
			tx:       tx,
		}
		pgHealth = pg
	} else {
		logger.Warn("using in-memory store; data is lost on restart")
		mem := memstore.New()
		repos = repositories{
			accounts: mem.Accounts(),
			tickets:  mem.Tickets(),
			replies:  mem.Replies(),
			tx:       mem.Transactor(),
		}
	}

	redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect redis; sessions and CSRF tokens need it", zap.Error(err))
	}
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			metrics.RecordTicketEvent(string(e.Type))
			logger.Debug("ticket event", zap.String("type", string(e.Type)), zap.Int64("ticket_id", e.TicketID))
			return nil
		})
	}

	attachments, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("failed to init attachment storage", zap.Error(err))
	}

	ttl := cfg.Session.TTL()
	sessions := auth.NewSessionStore(redis.Client, ttl)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, ttl)

	authService := service.NewAuthService(service.AuthDependencies{
		AccountRepo:  repos.accounts,
		Sessions:     sessions,
		TokenManager: tokens,
		BcryptCost:   cfg.Auth.BcryptCost,
	})
	if seed := cfg.Auth.Admin; seed.Username != "" {
		account, created, err := authService.EnsureAdmin(ctx, seed.Username, seed.Email, seed.Password)
		if err != nil {
			logger.Fatal("failed to ensure admin account", zap.String("username", seed.Username), zap.Error(err))
		}
		logger.Info("admin account ready", zap.String("username", account.Username), zap.Bool("created", created))
	} else if pgHealth == nil {
		logger.Warn("no ADMIN_USERNAME set; the in-memory store has no admin account")
	}
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repos.tickets,
		ReplyRepo:  repos.replies,
		Transactor: repos.tx,
		Uploader:   storage.NewUploader(attachments, cfg.Storage.MaxAttachmentBytes),
		Dispatcher: dispatcher,
	})

	var generator ai.Generator
	gemini, err := ai.NewGeminiGenerator(ctx, cfg.AI)
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		logger.Warn("GEMINI_API_KEY not set; AI replies disabled")
		generator = ai.Unavailable{}
	case err != nil:
		logger.Fatal("failed to init gemini client", zap.Error(err))
	default:
		generator = gemini
	}
	drafter := ai.NewDrafter(generator, ai.DrafterOptions{
		Organization: cfg.AI.Organization,
		Sanitize:     cfg.AI.SanitizeOutput,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})

	app := httptransport.NewApp(httptransport.AppOptions{
		Name:      cfg.App.Name,
		BodyLimit: cfg.App.BodyLimitBytes,
		Timeout:   cfg.App.RequestTimeout(),
		Logger:    logger,
		Metrics:   metrics,
	})

	sessionMiddleware := auth.NewSessionMiddleware(tokens, sessions, repos.accounts, cfg.Session.CookieName, cfg.Session.Secure, logger)
	var csrfHandler fiber.Handler
	if cfg.CSRF.Enabled {
		csrfHandler = httptransport.CSRFMiddleware(cfg.CSRF, redis.TokenStorage(), cfg.Session.Secure)
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pgHealth, redis),
		Auth:            handlers.NewAuthHandler(authService, sessionMiddleware, logger),
		Customer:        handlers.NewCustomerTicketsHandler(ticketService),
		Admin:           handlers.NewAdminTicketsHandler(ticketService, drafter, logger),
		AuthMiddleware:  sessionMiddleware,
		CSRF:            csrfHandler,
		MetricsRegistry: metrics.Registry(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	return app.ShutdownWithTimeout(10 * time.Second)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
