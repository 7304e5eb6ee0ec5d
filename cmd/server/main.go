package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UkralStul/blog-service/internal/auth"
	"github.com/UkralStul/blog-service/internal/config"
	"github.com/UkralStul/blog-service/internal/events"
	"github.com/UkralStul/blog-service/internal/httpapi"
	"github.com/UkralStul/blog-service/internal/postcache"
	"github.com/UkralStul/blog-service/internal/service"
	"github.com/UkralStul/blog-service/internal/storage"
	"github.com/UkralStul/blog-service/internal/storage/inmemory"
	"github.com/UkralStul/blog-service/internal/storage/postgres"
	"github.com/UkralStul/blog-service/internal/storage/sqlite"
	"github.com/UkralStul/blog-service/internal/supabase"
	"github.com/UkralStul/blog-service/internal/uploads"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// backend is the remote data service selected at startup.
type backend struct {
	posts storage.Posts
	auth  auth.Provider
	// blobs is nil until uploads are configured below
	blobs storage.Blobs
	close func() error
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	configPath := flag.String("config", os.Getenv("BLOG_CONFIG"), "Path to an optional YAML config file")
	storageType := flag.String("storage", "", "Storage type (in-memory, postgres, sqlite or supabase); overrides STORAGE")
	flag.Parse()

	if *storageType != "" {
		os.Setenv("STORAGE", *storageType)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("starting server", "storage", cfg.Storage)
	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()

	uploadDir := ""
	if b.blobs == nil {
		disk, err := uploads.NewDisk(cfg.UploadDir, cfg.PublicBaseURL+"/uploads")
		if err != nil {
			return fmt.Errorf("create upload store: %w", err)
		}
		b.blobs = disk
		uploadDir = disk.Root()
	}

	cache := postcache.New(b.posts, logger.With("component", "postcache"), postcache.WithMinLoading(cfg.MinLoading))
	hub := events.NewHub()
	posts := service.NewPostService(b.posts, b.blobs, cache, hub, logger.With("component", "posts"))

	router := httpapi.NewRouter(httpapi.Deps{
		Cache:              cache,
		Posts:              posts,
		Auth:               b.auth,
		Hub:                hub,
		Logger:             logger,
		CORSAllowedOrigins: cfg.CorsAllowedOrigins,
		LoginRateLimit:     cfg.LoginRateLimit,
		UploadDir:          uploadDir,
	})

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("server started", "port", cfg.Port, "public_base_url", cfg.PublicBaseURL)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}
	return nil
}

func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	noop := func() error { return nil }

	switch cfg.Storage {
	case config.StoragePostgres:
		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		logger.Info("connected to database", "driver", "postgres")
		return &backend{posts: store, auth: auth.NewLocal(store, cfg.JWTSecret), close: store.Close}, nil

	case config.StorageSQLite:
		store, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		logger.Info("connected to database", "driver", "sqlite", "path", cfg.SQLitePath)
		return &backend{posts: store, auth: auth.NewLocal(store, cfg.JWTSecret), close: store.Close}, nil

	case config.StorageSupabase:
		client := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseBucket)
		return &backend{posts: client, auth: client, blobs: client, close: noop}, nil

	default:
		store := inmemory.New()
		provider := auth.NewLocal(store, cfg.JWTSecret)
		if err := fillWithMockData(ctx, store, provider, logger); err != nil {
			return nil, err
		}
		return &backend{posts: store, auth: provider, close: noop}, nil
	}
}
