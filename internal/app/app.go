package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"recruitportal/portal-api/internal/audit"
	"recruitportal/portal-api/internal/auth"
	"recruitportal/portal-api/internal/config"
	"recruitportal/portal-api/internal/database"
	"recruitportal/portal-api/internal/httpserver"
	"recruitportal/portal-api/internal/metrics"
	"recruitportal/portal-api/internal/recruiting"
)

type App struct {
	cfg    config.Config
	log    *zap.Logger
	db     *sqlx.DB
	server *httpserver.Server
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var db *sqlx.DB
	if cfg.Database.Enabled() {
		var err error
		db, err = database.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		logger.Info("database connected", zap.String("driver", cfg.Database.Driver))
	}

	a, err := build(ctx, cfg, logger, db)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}
	return a, nil
}

func build(ctx context.Context, cfg config.Config, logger *zap.Logger, db *sqlx.DB) (*App, error) {
	userStore, err := newUserStore(ctx, cfg, logger, db)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenService(&auth.TokenConfig{
		Secret: []byte(cfg.Auth.JWTSecret),
		TTL:    cfg.Auth.TokenTTL,
		Issuer: "portal-api",
	})
	if err != nil {
		return nil, fmt.Errorf("create token service: %w", err)
	}
	authService, err := auth.NewService(userStore, tokens)
	if err != nil {
		return nil, fmt.Errorf("create auth service: %w", err)
	}
	if cfg.Auth.SeedDemoUsers {
		if err := seedDemoAccounts(ctx, logger, userStore, authService); err != nil {
			return nil, err
		}
	}

	// The recruiting store joins users, so it is created after the user store.
	var store recruiting.Store
	if db != nil {
		store, err = recruiting.NewSQLStore(ctx, db)
		if err != nil {
			return nil, fmt.Errorf("create recruiting store: %w", err)
		}
	} else {
		logger.Warn("no database configured, recruiting data is kept in memory")
		store = recruiting.NewMemoryStore()
	}

	server := httpserver.New(cfg.HTTP, httpserver.Deps{
		Auth:            authService,
		Store:           store,
		Audit:           audit.NewLogger(cfg.AuditLogFile),
		Logger:          logger,
		Metrics:         metrics.New(),
		RateLimit:       cfg.RateLimit,
		CORSOrigins:     cfg.CORSOrigins,
		CookieSecure:    cfg.Auth.CookieSecure,
		FrontendDistDir: cfg.FrontendDistDir,
	})

	return &App{
		cfg:    cfg,
		log:    logger,
		db:     db,
		server: server,
	}, nil
}

// newUserStore picks the credential backend: SQL when a database is
// configured, then a YAML file, then memory.
func newUserStore(ctx context.Context, cfg config.Config, logger *zap.Logger, db *sqlx.DB) (auth.UserStore, error) {
	switch {
	case db != nil:
		s, err := auth.NewSQLUserStore(ctx, db)
		if err != nil {
			return nil, fmt.Errorf("create sql user store: %w", err)
		}
		return s, nil
	case cfg.Auth.UserFile != "":
		s, err := auth.NewFileUserStore(cfg.Auth.UserFile)
		if err != nil {
			return nil, fmt.Errorf("create file user store: %w", err)
		}
		logger.Info("credential file loaded", zap.String("path", cfg.Auth.UserFile))
		return s, nil
	default:
		if !cfg.Auth.SeedDemoUsers {
			logger.Warn("in-memory credential store is empty; set AUTH_SEED_DEMO_USERS or AUTH_USER_FILE")
		}
		return auth.NewInMemoryUserStore(), nil
	}
}

// seedDemoAccounts provisions the walkthrough logins that do not exist yet.
func seedDemoAccounts(ctx context.Context, logger *zap.Logger, users auth.UserStore, svc *auth.Service) error {
	for _, acct := range auth.DemoAccounts() {
		_, err := users.GetByUsername(ctx, acct.Username)
		if err == nil {
			continue
		}
		if !errors.Is(err, auth.ErrUserNotFound) {
			return fmt.Errorf("check demo user %s: %w", acct.Username, err)
		}
		u, err := svc.Provision(ctx, acct.Username, acct.Password, acct.Role)
		if err != nil {
			return fmt.Errorf("seed demo user %s: %w", acct.Username, err)
		}
		logger.Info("demo user created", zap.String("username", u.Username), zap.String("role", string(u.Role)), zap.Int64("id", u.ID))
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	defer func() {
		if a.db != nil {
			_ = a.db.Close()
		}
	}()

	errCh := make(chan error, 1)

	go func() {
		a.log.Info("http server starting", zap.String("addr", a.cfg.HTTP.Addr))
		errCh <- a.server.Start()
	}()

	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server exited: %w", err)
	}
}
