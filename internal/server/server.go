// Package server holds the application container and the HTTP server's
// lifecycle.
//
// It owns:
//   - configuration
//   - logger + optional New Relic service wrapper
//   - the database connection factory
//   - the token issuer
//   - http.Server
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/employee-api/internal/config"
	"github.com/deppfellow/employee-api/internal/database"
	"github.com/deppfellow/employee-api/internal/lib/token"
	"github.com/rs/zerolog"

	loggerPkg "github.com/deppfellow/employee-api/internal/logger"
)

// Server is the application container that holds shared resources.
type Server struct {
	Config        *config.Config
	Logger        *zerolog.Logger
	LoggerService *loggerPkg.LoggerService

	// DB hands out one connection per operation and provisions the database
	// on first use.
	DB *database.Factory

	Tokens *token.Issuer

	httpServer *http.Server
}

// New constructs a Server. Nothing here touches the database: the first
// request that needs it makes the factory provision it.
func New(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) (*Server, error) {
	dialect := newDialect(cfg, logger, loggerService)

	params := database.Parameters{
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		User:           cfg.Database.User,
		Password:       cfg.Database.Password,
		Name:           cfg.Database.Name,
		SSLMode:        cfg.Database.SSLMode,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	}

	initializer, err := database.NewInitializer(dialect, params, *logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure database initializer: %w", err)
	}

	factory, err := database.NewFactory(initializer, dialect, *logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection factory: %w", err)
	}

	issuer, err := token.NewIssuer(cfg.Auth.SecretKey, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}

	logger.Info().
		Str("driver", dialect.Name()).
		Stringer("database", params).
		Msg("database initialization deferred to first use")

	return &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: loggerService,
		DB:            factory,
		Tokens:        issuer,
	}, nil
}

// newDialect picks the backend. PostgreSQL connections are traced through
// New Relic when the agent runs and logged through zerolog when developing
// locally.
func newDialect(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) database.Dialect {
	if cfg.Database.Driver != config.DriverPostgres {
		return database.MySQL{}
	}

	opts := database.QueryTracerOptions{
		NewRelic: loggerService.GetApplication() != nil,
	}
	if cfg.Primary.Env == "local" {
		level := logger.GetLevel()
		pgxLogger := loggerPkg.NewPgxLogger(level)
		opts.QueryLogger = &pgxLogger
		opts.QueryLogLevel = loggerPkg.GetPgxTraceLogLevel(level)
	}

	return database.Postgres{Tracer: database.NewQueryTracer(opts)}
}

func (s *Server) SetupHTTPServer(handler http.Handler) {
	s.httpServer = &http.Server{
		Addr:    ":" + s.Config.Server.Port,
		Handler: handler,

		// Config stores timeouts in seconds.
		ReadTimeout:  time.Duration(s.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.Config.Server.IdleTimeout) * time.Second,
	}
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	s.Logger.Info().
		Str("port", s.Config.Server.Port).
		Str("env", s.Config.Primary.Env).
		Msg("starting server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx
// ends. Connections are owned per request, so there is no pool to drain.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.Logger.Info().
		Stringer("database_state", s.DB.State()).
		Int64("initializations", s.DB.Initializations()).
		Msg("server stopped")

	return nil
}
