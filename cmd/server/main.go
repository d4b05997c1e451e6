package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	authmetrics "taskgate/internal/auth/metrics"
	"taskgate/internal/auth/oauth"
	"taskgate/internal/auth/service"
	"taskgate/internal/auth/store/oauthstate"
	userstore "taskgate/internal/auth/store/user"
	"taskgate/internal/auth/token"
	"taskgate/internal/platform/config"
	"taskgate/internal/platform/httpserver"
	"taskgate/internal/platform/logger"
	platformredis "taskgate/internal/platform/redis"
	todoservice "taskgate/internal/todo/service"
	todostore "taskgate/internal/todo/store/todo"
	httptransport "taskgate/internal/transport/http"
	"taskgate/pkg/audit"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	codec, err := token.NewCodec(cfg.SigningSecret, cfg.SigningAlg)
	if err != nil {
		return fmt.Errorf("build token codec: %w", err)
	}

	users, todos, db, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("redis connected")
	}

	var states oauthstate.Store
	if redisClient != nil {
		states = oauthstate.NewRedisStore(redisClient.Client)
	} else {
		states = oauthstate.NewMemoryStore()
	}

	auditPublisher := audit.NewAsyncPublisher(audit.NewLogPublisher(log), 256,
		audit.WithDropHandler(func(event audit.Event) {
			log.Warn("audit event dropped", slog.String("action", string(event.Action)))
		}),
	)

	sessions := service.New(users, codec, cfg.AccessTTL, cfg.RefreshTTL,
		service.WithLogger(log),
		service.WithAuditPublisher(auditPublisher),
		service.WithMetrics(authmetrics.New()),
	)

	bridge := oauth.NewGitHubBridge(
		cfg.GitHub.ClientID,
		cfg.GitHub.ClientSecret,
		cfg.GitHub.RedirectURL,
		cfg.GitHub.Timeout,
	)

	authHandler := httptransport.NewAuthHandler(sessions, log, cfg.RefreshTTL,
		httptransport.WithCookieSessions(cfg.CookieSessions),
		httptransport.WithOAuthBridge(bridge, states, cfg.GitHub.StateTTL),
	)
	todoHandler := httptransport.NewTodoHandler(todoservice.New(todos, todoservice.WithLogger(log)), log)

	checks := map[string]httptransport.HealthChecker{}
	if db != nil {
		checks["postgres"] = dbHealth{db}
	}
	if redisClient != nil {
		checks["redis"] = redisClient
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:     authHandler,
		Todos:    todoHandler,
		Sessions: sessions,
		Logger:   log,
		Checks:   checks,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := auditPublisher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("starting taskgate", slog.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildStores picks PostgreSQL when a DSN is configured and falls back to the
// in-memory stores otherwise.
func buildStores(ctx context.Context, cfg config.Config, log *slog.Logger) (service.UserStore, todoservice.TodoStore, *sql.DB, error) {
	if cfg.PostgresDSN == "" {
		log.Info("no postgres DSN configured, using in-memory stores")
		return userstore.NewMemoryStore(), todostore.NewMemoryStore(), nil, nil
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	users := userstore.NewPostgresStore(db)
	if err := users.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	todos := todostore.NewPostgresStore(db)
	if err := todos.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}

	log.Info("postgres connected")
	return users, todos, db, nil
}

type dbHealth struct {
	db *sql.DB
}

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}
