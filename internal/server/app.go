// Package server wires configuration, storage, services and the HTTP API
// into a runnable application and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/rest"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const startupTimeout = 15 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	redis       redis.UniversalClient
	authService *services.AuthService
	userService *services.UserService
}

// NewApp connects to storage, applies migrations and builds the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	db, err := repomanager.OpenPostgres(startCtx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	var rm repomanager.RepositoryManager
	switch c.TokenStore {
	case config.TokenStoreRedis:
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		if err := app.redis.Ping(startCtx).Err(); err != nil {
			app.Close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		rm = repomanager.NewRedisTokensRepositoryManager(app.redis)
	default:
		rm = repomanager.NewPostgresRepositoryManager()
	}

	if err := rm.RunMigrations(startCtx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	hasher := auth.NewBcryptHasher(c.BcryptCost, c.MaxConcurrentHashes)
	issuer := auth.NewIssuer(auth.IssuerConfig{
		Secret: []byte(c.SecretKey),
		TTL:    c.AccessTokenValidityDuration,
	})
	refresh := auth.NewRefreshTokenManager(rm.RefreshTokens(db), c.RefreshTokenValidityDuration)

	app.authService = services.NewAuthService(rm.Users(db), hasher, issuer, refresh, services.AuthConfig{
		OperationTimeout:    c.OperationTimeout,
		RotateRefreshTokens: c.RotateRefreshTokens,
	}, logger)
	app.userService = services.NewUserService(db, rm, hasher, c.OperationTimeout, logger)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves the HTTP API and the token purger until a signal arrives or
// one of them fails.
func (app *App) Run(ctx context.Context) error {
	defer app.Close()

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	if app.config.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	s, err := rest.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.authService, app.userService)
	if err != nil {
		return err
	}
	purger := services.NewPurger(app.authService, app.config.PurgeInterval, app.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Run(gctx) })
	g.Go(func() error { return purger.Run(gctx) })

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		app.logger.Error(ctx, "app stopped", "error", err)
		return err
	}
	app.logger.Info(ctx, "App stopped")
	return nil
}

// Close releases storage connections.
func (app *App) Close() {
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}
