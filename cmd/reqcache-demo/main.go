// Command reqcache-demo serves the read-through counter routes behind the cache middleware.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goforj/reqcache"
	"github.com/goforj/reqcache/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type serveFlags struct {
	addr          string
	url           string
	multiLevel    bool
	multiLevelTTL string
	namespace     string
	logLevel      string
}

func main() {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "reqcache-demo",
		Short:        "Request-scoped cache demo server",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve /count and /delete with the cache middleware",
		Long: `Starts a gin server whose handlers share one cache.

The cache is configured from REQCACHE_* environment variables (and REDIS_URL),
then from flags. Without a remote URL the cache is an in-process LRU.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(f.logLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			opts, err := cacheOptions(cmd, f)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, logger, f.addr, append(opts, reqcache.WithObserver(reqcache.NewLogObserver(logger)))...)
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&f.url, "url", "", "remote cache URL (redis://, nats://, postgres://, mysql://, sqlite://, dynamodb://)")
	cmd.Flags().BoolVar(&f.multiLevel, "multi-level", false, "front the remote cache with a local LRU")
	cmd.Flags().StringVar(&f.multiLevelTTL, "multi-level-ttl", "1000", "local tier TTL (ms or duration like 2s)")
	cmd.Flags().StringVar(&f.namespace, "namespace", "", "remote key namespace")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "info", "debug, info, warn or error")
	return cmd
}

// cacheOptions layers explicitly set flags over the environment.
func cacheOptions(cmd *cobra.Command, f serveFlags) ([]reqcache.Option, error) {
	env, err := reqcache.LoadOptionsFromEnv()
	if err != nil {
		return nil, err
	}
	opts := []reqcache.Option{reqcache.WithOptions(env)}
	flags := cmd.Flags()
	if flags.Changed("url") {
		opts = append(opts, reqcache.WithRemoteURL(f.url))
	}
	if flags.Changed("multi-level") {
		opts = append(opts, reqcache.WithMultiLevel(f.multiLevel))
	}
	if flags.Changed("multi-level-ttl") {
		ttl, err := reqcache.ParseTTL(f.multiLevelTTL)
		if err != nil {
			return nil, fmt.Errorf("--multi-level-ttl: %w", err)
		}
		opts = append(opts, reqcache.WithMultiLevelTTL(ttl))
	}
	if flags.Changed("namespace") {
		opts = append(opts, reqcache.WithNamespace(f.namespace))
	}
	return opts, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func serve(ctx context.Context, logger *zap.Logger, addr string, opts ...reqcache.Option) error {
	c, err := reqcache.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("build cache: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Warn("close cache", zap.Error(err))
		}
	}()
	if err := c.Ready(ctx); err != nil {
		return fmt.Errorf("cache not ready: %w", err)
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      newRouter(middleware.Gin(c)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", addr), zap.String("driver", string(c.Driver())))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
