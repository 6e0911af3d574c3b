package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ryanbastic/go-shticell/internal/api"
	"github.com/ryanbastic/go-shticell/internal/archive"
	"github.com/ryanbastic/go-shticell/internal/cell"
	"github.com/ryanbastic/go-shticell/internal/circuitbreaker"
	"github.com/ryanbastic/go-shticell/internal/config"
	"github.com/ryanbastic/go-shticell/internal/engine"
	"github.com/ryanbastic/go-shticell/internal/metrics"
	"github.com/ryanbastic/go-shticell/internal/shard"
	"github.com/ryanbastic/go-shticell/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("port", "", "listen port (default 8080)")
	serveCmd.Flags().String("log-level", "", "debug, info, warn or error")
	serveCmd.Flags().String("shard-config", "", "shard config file; empty keeps the archive in memory")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("log_level", serveCmd.Flags().Lookup("log-level"))
	_ = viper.BindPFlag("shard_config_path", serveCmd.Flags().Lookup("shard-config"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router := shard.NewRouter()
	backends := make(map[string]api.Pinger)

	if cfg.ShardConfigPath != "" {
		pools, err := openBackends(ctx, cfg, router, logger)
		if err != nil {
			return err
		}
		defer func() {
			for _, p := range pools {
				p.Close()
			}
		}()
		for name, p := range pools {
			backends[name] = p
		}
		prometheus.MustRegister(metrics.NewPoolCollector(pools))
	} else {
		for i := 0; i < cfg.NumShards; i++ {
			router.Register(shard.ID(i), storage.NewMemoryStore())
		}
		logger.Info("using in-memory archive", "shards", cfg.NumShards)
	}

	breaker := circuitbreaker.New(cfg.BreakerMaxFailures, cfg.BreakerResetTimeout)
	archiver := archive.New(router, breaker, cfg.ArchiveQueueSize, logger)

	eng := engine.New(engine.Options{
		DefaultBounds: cell.Bounds{Rows: cfg.DefaultRows, Cols: cfg.DefaultCols},
		MaxBounds:     cell.Bounds{Rows: cfg.MaxRows, Cols: cfg.MaxCols},
		Retention:     cfg.VersionRetention,
		Archive:       archiver,
		Logger:        logger,
	})

	saved, err := archive.Load(ctx, router)
	if err != nil {
		archiver.Close()
		return fmt.Errorf("load archive: %w", err)
	}
	if err := eng.Restore(saved); err != nil {
		archiver.Close()
		return fmt.Errorf("restore sheets: %w", err)
	}
	logger.Info("archive restored", "sheets", len(saved))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewServer(logger, eng, backends),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		archiver.Close()
		return fmt.Errorf("HTTP server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	if err := archiver.Flush(shutdownCtx); err != nil {
		logger.Error("archive flush error", "error", err)
	}
	archiver.Close()

	logger.Info("shutdown complete")
	return nil
}

// openBackends connects to every backend in the shard config, migrates the
// shards it holds and registers one store per shard on router.
func openBackends(ctx context.Context, cfg config.Config, router *shard.Router, logger *slog.Logger) (map[string]*pgxpool.Pool, error) {
	sc, err := config.LoadShardConfig(cfg.ShardConfigPath, cfg.NumShards)
	if err != nil {
		return nil, err
	}

	pools := make(map[string]*pgxpool.Pool, len(sc.Backends))
	fail := func(err error) (map[string]*pgxpool.Pool, error) {
		for _, p := range pools {
			p.Close()
		}
		return nil, err
	}

	for _, b := range sc.Backends {
		pool, err := pgxpool.New(ctx, b.DatabaseURL)
		if err != nil {
			return fail(fmt.Errorf("connect to backend %q: %w", b.Name, err))
		}
		pools[b.Name] = pool

		if err := pool.Ping(ctx); err != nil {
			return fail(fmt.Errorf("ping backend %q: %w", b.Name, err))
		}
		if err := storage.RunMigrationsForPool(ctx, pool, b.ShardStart, b.ShardEnd); err != nil {
			return fail(fmt.Errorf("migrate backend %q: %w", b.Name, err))
		}
		for i := b.ShardStart; i <= b.ShardEnd; i++ {
			router.Register(shard.ID(i), storage.NewPostgresStore(pool, i, cfg.QueryTimeout))
		}
		logger.Info("connected to backend", "backend", b.Name, "shards", fmt.Sprintf("%d-%d", b.ShardStart, b.ShardEnd))
	}
	return pools, nil
}
