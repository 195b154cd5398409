package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"twig/internal/api"
	"twig/internal/config"
	"twig/internal/logging"
	"twig/internal/middleware"
	"twig/internal/workspace"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "config file (.json or .toml); defaults to config/config.$TWIG_ENV.json when present")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.LogLevel, cfg.Development())
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync()

	// Open repository
	ws, err := workspace.Open(cfg.Repository.Path, logger.Logger, workspace.Options{CacheSize: cfg.Cache.Size})
	if err != nil {
		logger.Fatal("failed to open repository", zap.String("path", cfg.Repository.Path), zap.Error(err))
	}
	defer ws.Close()

	// Set up router
	mux := http.NewServeMux()
	api.NewRepoHandler(ws.Repo, logger).Register(mux)

	// Apply middleware
	handler := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Recover(logger),
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", zap.String("address", srv.Addr), zap.String("repository", ws.Root))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server failed", zap.Error(err))
		ws.Close()
		logger.Sync()
		os.Exit(1)
	}
}

// loadConfig reads path, or the environment's default file when path is
// empty. With neither, the built-in defaults are used.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(config.Path()); err == nil {
		return config.Load(config.Path())
	}
	return config.Default(), nil
}
