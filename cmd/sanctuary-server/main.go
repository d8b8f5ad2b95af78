package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/csheth/sanctuary/internal/api"
	"github.com/csheth/sanctuary/internal/config"
	"github.com/csheth/sanctuary/internal/document"
	"github.com/csheth/sanctuary/internal/llm"
	"github.com/csheth/sanctuary/internal/logging"
	"github.com/csheth/sanctuary/internal/session"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a config file (yaml, toml or json)")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the environment is read")
	flag.Parse()

	cfg, err := config.Load(config.Options{ConfigFile: *configPath, EnvFile: *envFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
		Format: cfg.Log.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
	logger.Info("Server exited")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := llm.New(cfg.LLM.ClientConfig())
	if err != nil {
		return fmt.Errorf("configure model client: %w", err)
	}
	if cfg.LLM.APIKey == "" {
		logger.Warn("No API key configured; extraction and dialogue will fail")
	}

	store, closeStore, err := openStore(ctx, cfg.Session, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := session.NewService(session.Options{
		Store:           store,
		LLM:             client,
		Encoder:         document.NewEncoder(cfg.Document.MaxBytes),
		Logger:          logger,
		CallTimeout:     cfg.LLM.Timeout,
		DefaultLanguage: cfg.Language(),
	})

	router := api.SetupRouter(svc, logger, api.RouterConfig{
		AllowOrigins:   cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.Document.MaxBytes,
	})

	server := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("Starting server",
			zap.String("address", server.Addr),
			zap.String("llm", client.Name()),
			zap.String("store", cfg.Session.Store),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	err = group.Wait()
	// extractions still in flight write their results before the store closes
	svc.Wait()
	return err
}

func openStore(ctx context.Context, cfg config.SessionConfig, logger *zap.Logger) (session.Store, func(), error) {
	switch strings.ToLower(cfg.Store) {
	case "redis":
		client, err := session.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using redis session store", zap.String("addr", cfg.RedisAddr))
		return session.NewRedisStore(client, cfg.TTL), func() { _ = client.Close() }, nil
	default:
		return session.NewMemoryStore(cfg.TTL), func() {}, nil
	}
}
