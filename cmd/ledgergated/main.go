// Command ledgergated serves the ledger gateway over HTTP.
//
// Run against a local Redis:
//
//	ledgergated -config ledgergate.yaml
//
// Or fully in-process for a quick try:
//
//	ledgergated -dev -bootstrap-root root:change-me
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/ledgergate"
	"github.com/MrEthical07/ledgergate/internal/config"
	"github.com/MrEthical07/ledgergate/internal/logging"
	"github.com/MrEthical07/ledgergate/internal/rate"
	"github.com/MrEthical07/ledgergate/metrics/export/prometheus"
	"github.com/MrEthical07/ledgergate/permission"
	"github.com/MrEthical07/ledgergate/transport/httpapi"
)

const shutdownGrace = 10 * time.Second

func main() {
	var (
		configPath    = flag.String("config", "", "path to a YAML configuration file")
		dev           = flag.Bool("dev", false, "use an in-process Redis (data is lost on exit)")
		bootstrapRoot = flag.String("bootstrap-root", "", "name:password of a ROOT user to create at startup; LEDGERGATE_BOOTSTRAP_ROOT is used when empty")
	)
	flag.Parse()

	if err := run(*configPath, *dev, *bootstrapRoot); err != nil {
		fmt.Fprintln(os.Stderr, "ledgergated:", err)
		os.Exit(1)
	}
}

func run(configPath string, dev bool, bootstrapRoot string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, cleanup, err := openRedis(ctx, cfg.Redis, dev)
	if err != nil {
		return err
	}
	defer cleanup()

	builder := ledgergate.New().
		WithConfig(cfg.Gateway()).
		WithRedis(rdb).
		WithLogger(logger)

	if cfg.Audit.Enabled && cfg.Audit.Path != "" {
		f, err := os.OpenFile(cfg.Audit.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		defer f.Close()
		builder = builder.WithAuditSink(ledgergate.NewJSONWriterSink(f))
	}

	gw, err := builder.Build()
	if err != nil {
		return err
	}
	defer gw.Close()

	if bootstrapRoot == "" {
		bootstrapRoot = os.Getenv("LEDGERGATE_BOOTSTRAP_ROOT")
	}
	if err := bootstrap(ctx, gw, bootstrapRoot, logger); err != nil {
		return err
	}

	limiter := rate.Chain(
		rate.NewBuckets(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 0),
		rate.NewWindow(rdb, "lg:rl", cfg.RateLimit.WindowMax, cfg.RateLimit.Window),
	)

	srv := &http.Server{
		Addr: cfg.Listen,
		Handler: httpapi.NewHandler(gw, httpapi.Options{
			MaxBodyBytes: cfg.MaxBodyBytes,
			Limiter:      limiter,
			Logger:       logger,
			Metrics:      prometheus.Handler(gw),
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Listen, "operations", gw.Operations())
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

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		h = slog.NewJSONHandler(w, opts)
	case "text":
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return slog.New(logging.Wrap(h, logging.Options{FingerprintUsers: cfg.FingerprintUsers})), nil
}

func openRedis(ctx context.Context, cfg config.RedisConfig, dev bool) (redis.UniversalClient, func(), error) {
	if dev {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start in-process redis: %w", err)
		}
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		return rdb, func() {
			_ = rdb.Close()
			mr.Close()
		}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}
	return rdb, func() { _ = rdb.Close() }, nil
}

func bootstrap(ctx context.Context, gw *ledgergate.Gateway, spec string, logger *slog.Logger) error {
	if spec == "" {
		return nil
	}
	name, password, ok := strings.Cut(spec, ":")
	if !ok || name == "" || password == "" {
		return errors.New("bootstrap root must be name:password")
	}
	err := gw.Bootstrap(ctx, name, password, permission.Root)
	switch {
	case err == nil:
		logger.Info("bootstrap user created", "user", name)
	case errors.Is(err, ledgergate.ErrUserExists):
		logger.Info("bootstrap user already present", "user", name)
	default:
		return fmt.Errorf("bootstrap %q: %w", name, err)
	}
	return nil
}
