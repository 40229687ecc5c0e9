package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/bookcart/internal/cache"
	"github.com/fjod/bookcart/internal/config"
	"github.com/fjod/bookcart/internal/consumer"
	grpcapi "github.com/fjod/bookcart/internal/grpc"
	httpapi "github.com/fjod/bookcart/internal/http"
	"github.com/fjod/bookcart/internal/inventory"
	"github.com/fjod/bookcart/internal/metrics"
	"github.com/fjod/bookcart/internal/publisher"
	"github.com/fjod/bookcart/internal/repository"
	"github.com/fjod/bookcart/internal/service"
	"github.com/fjod/bookcart/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format, "bookcart")

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("bookcart stopped with error")
	}
	log.Info().Msg("bookcart exited")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, health, err := openStore(cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	cartCache, redisClient, err := openCache(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	carts := service.NewCartService(store, cartCache, m)
	checkout := service.NewCheckoutService(store, cartCache, inventory.NewLedger(), m)

	httpSrv := &http.Server{
		Addr: ":" + cfg.Server.HTTPPort,
		Handler: httpapi.NewRouter(httpapi.RouterConfig{
			Carts:    carts,
			Checkout: checkout,
			Health:   health,
			Metrics:  m,
			Gatherer: reg,
			Timeout:  cfg.Server.RequestTimeout,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	grpcSrv := grpcapi.NewServer(grpcapi.NewCartServiceHandler(carts, checkout))
	lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.Server.HTTPPort).Msg("http server starting")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info().Str("port", cfg.Server.GRPCPort).Msg("grpc server starting")
		if err := grpcSrv.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	if cfg.Kafka.Enabled() {
		poller := publisher.NewOutboxPoller(store.Outbox(), cfg.Kafka.Topic, m, cfg.Kafka.Brokers...)
		defer poller.Close()
		g.Go(func() error {
			log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("outbox poller starting")
			poller.Run(gctx)
			return nil
		})

		if redisClient != nil {
			evictor := consumer.NewCartEvictor(cartCache, cfg.Kafka.Topic, cfg.Kafka.Brokers...)
			defer evictor.Close()
			g.Go(func() error {
				evictor.Run(gctx)
				return nil
			})
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		grpcSrv.GracefulStop()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func openStore(cfg config.DatabaseConfig) (repository.Store, httpapi.HealthChecker, error) {
	switch cfg.Driver {
	case config.StoreMemory:
		s := repository.NewMemoryStore()
		s.SeedDemo()
		log.Warn().Msg("using in-memory store, data is lost on restart")
		return s, nil, nil
	case config.StoreSQLite:
		s, err := repository.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := s.RunMigrations(cfg.MigrationsPath); err != nil {
			_ = s.Close()
			return nil, nil, err
		}
		return s, s, nil
	default:
		s, err := repository.NewPostgresStore(&repository.Credentials{
			Host:              cfg.Host,
			Port:              cfg.Port,
			User:              cfg.User,
			Password:          cfg.Password,
			DBName:            cfg.DBName,
			MigrationsDirPath: cfg.MigrationsPath,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := s.RunMigrations(""); err != nil {
			_ = s.Close()
			return nil, nil, err
		}
		return s, s, nil
	}
}

func openCache(ctx context.Context, cfg config.RedisConfig) (cache.CartCache, *redis.Client, error) {
	if cfg.Addr == "" {
		log.Info().Msg("REDIS_ADDR not set, cart cache disabled")
		return cache.Noop{}, nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis connection failed: %w", err)
	}
	log.Info().Str("addr", cfg.Addr).Msg("redis ping succeeded")
	return cache.NewRedisCache(client), client, nil
}
