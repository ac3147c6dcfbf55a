package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpapi "github.com/encoreparty/encore/internal/encore/http"
	"github.com/encoreparty/encore/internal/encore/session"
	"github.com/encoreparty/encore/internal/encore/source"
	"github.com/encoreparty/encore/internal/encore/store"
	"github.com/encoreparty/encore/internal/encore/store/drivers/sqlite"
	"github.com/encoreparty/encore/pkg/cryptox"
	"github.com/encoreparty/encore/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application wires the game service: slot storage, the provider session
// manager, the artist resolver and the HTTP surface.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	sessions *session.Manager
	resolver source.Resolver

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "encore",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.SpotifyClientID == "" {
		return nil, errors.New("SPOTIFY_CLIENT_ID is required")
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	keyMaterial, err := cryptox.LoadMasterKey(cfg.MasterKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load master key: %w", err)
	}
	providerCfg := session.DefaultProviderConfig(
		cfg.SpotifyClientID,
		cfg.SpotifyClientSecret,
		cfg.SpotifyRedirectURL,
	)
	if cfg.SpotifyAuthorizeURL != "" {
		providerCfg.AuthorizeURL = cfg.SpotifyAuthorizeURL
	}
	if cfg.SpotifyTokenURL != "" {
		providerCfg.TokenURL = cfg.SpotifyTokenURL
	}
	app.sessions = session.NewManager(session.Config{
		Provider: providerCfg,
		Slots:    app.db,
		Sealer:   cryptox.NewSealer(keyMaterial),
		Logger:   app.logger,
	})

	app.resolver = source.NewSpotify(source.SpotifyConfig{
		Tokens: app.sessions,
		Logger: app.logger,
	})

	app.initHTTP()
	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("encore service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"anonymous_mode", app.cfg.SpotifyClientSecret != "",
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully stops the server, the game engine and the database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down encore service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.router.Close()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("encore service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (app *Application) initHTTP() {
	app.router = httpapi.NewRouter(BuildVersion, app.db, app.sessions, app.resolver, app.logger)
	app.router.ApplyRoutes()

	app.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Port),
		Handler: app.router,
	}
}
