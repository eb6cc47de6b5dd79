package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"example.com/ranking/internal/api"
	"example.com/ranking/internal/attachments"
	"example.com/ranking/internal/auth"
	"example.com/ranking/internal/config"
	"example.com/ranking/internal/domain"
	"example.com/ranking/internal/logging"
	"example.com/ranking/internal/outbox"
	"example.com/ranking/internal/persistence"
	"example.com/ranking/internal/persistence/postgres"
	"example.com/ranking/internal/persistence/sqlite"
	httptransport "example.com/ranking/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log, "ranking-api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("ranking-api stopped", zap.Error(err))
	}
}

// backend bundles whatever the storage driver opened so it can be checked and closed.
type backend struct {
	store   domain.SnapshotStore
	pool    *pgxpool.Pool
	pinger  api.Pinger
	closers []io.Closer
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i].Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

func openStore(ctx context.Context, cfg config.Config) (*backend, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return &backend{store: postgres.NewRepository(pool), pool: pool, pinger: pool}, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &backend{store: store, pinger: store, closers: []io.Closer{store}}, nil
	default:
		return &backend{store: persistence.NewInMemoryStore(domain.Snapshot{})}, nil
	}
}

func openAttachments(ctx context.Context, cfg config.Config) (domain.AttachmentGateway, *attachments.RedisGateway, error) {
	if cfg.AttachmentDriver != config.DriverRedis {
		return attachments.NewMemoryGateway(), nil, nil
	}
	gw, err := attachments.NewRedisGateway(ctx, attachments.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, nil, err
	}
	return gw, gw, nil
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	be, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.Close()

	initial := domain.Snapshot{Units: persistence.DefaultRoster()}
	if cfg.SeedDemoData {
		initial = persistence.DemoSnapshot()
	}
	seeded, err := persistence.Bootstrap(ctx, be.store, initial)
	if err != nil {
		return err
	}
	if seeded {
		logger.Info("initial snapshot written", zap.Bool("demo", cfg.SeedDemoData), zap.String("driver", cfg.StorageDriver))
	}

	blobs, redisGateway, err := openAttachments(ctx, cfg)
	if err != nil {
		return err
	}
	if redisGateway != nil {
		defer redisGateway.Close()
	}

	var dispatcher *outbox.Dispatcher
	if cfg.OutboxEnabled {
		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()
		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(be.pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
			outbox.WithDispatcherLogger(logger.Named("outbox")))
		go dispatcher.Start(ctx)
	}

	service := domain.NewService(be.store, blobs, domain.WithLogger(logger.Named("domain")))

	opts := []api.Option{
		api.WithLogger(logger.Named("http")),
		api.WithUploadLimiter(api.NewUploadLimiter(cfg.RateLimitPerMinute)),
		api.WithMaxAttachmentBytes(cfg.MaxAttachmentBytes),
	}
	if be.pinger != nil {
		opts = append(opts, api.WithReadinessCheck(cfg.StorageDriver, be.pinger))
	}
	if redisGateway != nil {
		opts = append(opts, api.WithReadinessCheck("redis", redisGateway))
	}
	handler := api.NewHandler(service, opts...)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, api.CORS(cfg.AllowedOrigin, authMiddleware.Wrap(api.RequestLogger(logger.Named("access"), mux))))

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}

	serverErr := make(chan error, 2)
	go func() {
		logger.Info("ranking-api listening", zap.String("address", cfg.HTTPAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		logger.Info("metrics listening", zap.String("address", cfg.MetricsAddress))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-shutdownCh:
		logger.Info("shutdown requested", zap.String("signal", sig.String()))
	case runErr = <-serverErr:
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown failed", zap.Error(err))
	}
	if dispatcher != nil {
		dispatcher.Wait()
	}
	return runErr
}
