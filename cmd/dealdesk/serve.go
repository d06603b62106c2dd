package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sablepoint/dealdesk/internal/cache"
	"github.com/sablepoint/dealdesk/internal/config"
	"github.com/sablepoint/dealdesk/internal/evaluator"
	httpapi "github.com/sablepoint/dealdesk/internal/interfaces/http"
	"github.com/sablepoint/dealdesk/internal/interfaces/http/handlers"
	"github.com/sablepoint/dealdesk/internal/persistence"
	"github.com/sablepoint/dealdesk/internal/persistence/postgres"
)

const shutdownGrace = 10 * time.Second

// runServe starts the HTTP API with all dependencies wired
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.HTTP.Port = port
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.HTTP.Host = host
	}
	applyLogLevel(cfg.LogLevel)

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	handlerConfig := handlers.Config{
		Repos:  repositoriesFor(db, cfg),
		Hub:    handlers.NewHub(),
		PingDB: db.PingContext,
	}

	if cfg.Redis.Addr != "" {
		client := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.DB)
		handlerConfig.Cache = cache.NewWarmthCache(client, cfg.Redis.TTL())
		log.Info().Str("addr", cfg.Redis.Addr).Msg("warmth cache enabled")
	}

	if cfg.Evaluator.APIKey != "" {
		scorer, err := evaluator.New(evaluator.Config{
			APIKey:  cfg.Evaluator.APIKey,
			BaseURL: cfg.Evaluator.BaseURL,
			Model:   cfg.Evaluator.Model,
		}, nil)
		if err != nil {
			return fmt.Errorf("failed to configure evaluator: %w", err)
		}
		handlerConfig.Scorer = scorer
	} else {
		log.Warn().Msg("no evaluator API key; deal scoring disabled")
	}

	server, err := httpapi.NewServer(httpapi.ServerConfig{
		Host:         cfg.HTTP.Host,
		Port:         cfg.HTTP.Port,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.HTTP.IdleTimeoutSeconds) * time.Second,
	}, handlers.NewHandlers(handlerConfig))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// repositoriesFor builds the Postgres repositories over one pool
func repositoriesFor(db *sqlx.DB, cfg config.Config) persistence.Repository {
	return postgres.NewRepository(db, cfg.Database.QueryTimeout())
}

// openDatabase connects the Postgres pool used by every repository
func openDatabase(cfg config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	return db, nil
}

func applyLogLevel(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Str("level", level).Msg("unknown log level, keeping info")
		return
	}
	zerolog.SetGlobalLevel(parsed)
}
