package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/shellgame/internal/api"
	"github.com/mcoot/shellgame/internal/config"
	"github.com/mcoot/shellgame/internal/factory"
	"github.com/mcoot/shellgame/internal/services/identity"
	redisstorage "github.com/mcoot/shellgame/internal/storage/redis"
	"github.com/mcoot/shellgame/internal/storage/sqlstore"
)

const releaseVersion = "0.1.0"

func main() {
	if err := newCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	cfg := &config.Config{}

	cmd := &cobra.Command{
		Use:           "shellgame-server",
		Short:         "Matchmaking and game server for the three-cup shell game",
		Args:          cobra.NoArgs,
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, os.Stdout)
		},
	}

	config.BindFlags(cmd, cfg)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("shellgame-server v{{.Version}}\n")

	return cmd
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(w, opts)), nil
}

func factoryConfig(cfg *config.Config, logger *slog.Logger) (factory.Config, error) {
	fc := factory.Config{
		Logger:      logger,
		StorageType: cfg.Storage,
		IdentityConfig: identity.Config{
			TokenSecret: []byte(cfg.TokenSecret),
			TokenTTL:    cfg.TokenTTL,
			BcryptCost:  identity.DefaultConfig().BcryptCost,
		},
	}

	switch cfg.Storage {
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		redisCfg.LockTimeout = cfg.LockTimeout
		redisCfg.KeyPrefix = cfg.RedisKeyPrefix
		fc.RedisConfig = &redisCfg
		fc.KeyPrefix = cfg.RedisKeyPrefix
	case config.StorageSQL:
		sqlCfg := sqlstore.DefaultConfig()
		sqlCfg.Driver = cfg.SQLDriver
		sqlCfg.DSN = cfg.SQLDSN
		sqlCfg.LockTimeout = cfg.LockTimeout
		if cfg.SQLDriver == "sqlite" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLDSN), 0o755); err != nil {
				return fc, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		fc.SQLConfig = &sqlCfg
	}

	return fc, nil
}

func run(ctx context.Context, cfg *config.Config, logOut io.Writer) error {
	logger, err := newLogger(cfg, logOut)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	fc, err := factoryConfig(cfg, logger)
	if err != nil {
		return err
	}

	// Create application factory
	app, err := factory.New(fc)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Logger:             logger,
		IdentityService:    app.IdentityService,
		LedgerService:      app.LedgerService,
		MatchmakingManager: app.MatchmakingManager,
		Repository:         app.Repository,
		CORSOrigin:         cfg.CORSOrigin,
	})

	// Create server
	server := api.NewServer(router, api.ServerConfig{
		Host:            cfg.Bind,
		Port:            cfg.Port,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage),
		slog.String("version", releaseVersion),
	)

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			return err
		}
		if err := <-errCh; err != nil {
			return err
		}
	}

	logger.Info("server stopped")
	return nil
}
