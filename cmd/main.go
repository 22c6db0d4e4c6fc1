package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"storefront-service/internal/api"
	"storefront-service/internal/auth"
	"storefront-service/internal/cart"
	"storefront-service/internal/checkout"
	"storefront-service/internal/config"
	"storefront-service/internal/logging"
	"storefront-service/internal/metrics"
	"storefront-service/internal/mpesa"
	"storefront-service/internal/notify"
	"storefront-service/internal/payment"
	"storefront-service/internal/session"
	"storefront-service/internal/store"
	"storefront-service/internal/tracing"
)

const grpcServiceName = "storefront.v1.Storefront"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found or failed to load, relying on system environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Error loading configuration: %v", err)
	}

	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("FATAL: Error building logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Service exited with error", zap.Error(err))
	}
	logger.Info("Service shutdown sequence finished")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting service", zap.String("app_env", cfg.AppEnv), zap.String("log_level", cfg.LogLevel))

	shutdownTracing, err := tracing.Init(cfg.Tracing.JaegerEndpoint, cfg.Tracing.ServiceName, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}()

	// --- Database ---
	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.Postgres.ConnMaxIdle)

	dbStore := store.NewPostgresStore(db, logger)
	defer func() {
		if err := dbStore.Close(); err != nil {
			logger.Warn("Error closing database", zap.Error(err))
		}
	}()
	if err := dbStore.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if err := dbStore.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("Database connection established")

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("Redis connection established", zap.String("addr", cfg.Redis.Addr))

	// --- Notifications ---
	var publisher notify.Publisher
	if brokers := cfg.Kafka.BrokerList(); len(brokers) > 0 {
		kafkaPublisher := notify.NewKafkaPublisher(notify.NewKafkaWriter(brokers, cfg.Kafka.NotificationTopic))
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		logger.Info("Publishing notifications to Kafka",
			zap.Strings("brokers", brokers),
			zap.String("topic", cfg.Kafka.NotificationTopic),
		)
	} else {
		publisher = notify.NewLogPublisher(logger)
		logger.Warn("KAFKA_BROKERS not set, notifications are only logged")
	}

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// --- Services ---
	catalog := store.NewCachedCatalog(dbStore, rdb, cfg.Redis.CategoriesTTL, logger)
	sessions := session.NewRedisStore(rdb, cfg.Redis.SessionTTL)
	dispatcher := notify.NewDispatcher(publisher, cfg.Notify.ShopName, cfg.Notify.Timeout, logger, m)
	mpesaClient := mpesa.NewClient(mpesa.Config{
		BaseURL:         cfg.Mpesa.BaseURL,
		ConsumerKey:     cfg.Mpesa.ConsumerKey,
		ConsumerSecret:  cfg.Mpesa.ConsumerSecret,
		ShortCode:       cfg.Mpesa.ShortCode,
		Passkey:         cfg.Mpesa.Passkey,
		CallbackURL:     cfg.Mpesa.CallbackURL,
		TransactionType: cfg.Mpesa.TransactionType,
		Timeout:         cfg.Mpesa.Timeout,
	}, logger)

	handler := api.NewHTTPHandler(api.Dependencies{
		Catalog:    catalog,
		Orders:     dbStore,
		Cart:       cart.NewService(catalog, dbStore, logger),
		Checkout:   checkout.NewService(dbStore, dbStore, dbStore, sessions, dispatcher, m, logger),
		Initiator:  payment.NewInitiator(sessions, dbStore, dbStore, mpesaClient, m, logger),
		Reconciler: payment.NewReconciler(dbStore, m, logger),
		Auth:       auth.NewAuthenticator(cfg.Auth.JWTSecret),
		Health: map[string]api.Pinger{
			"postgres": dbStore,
			"redis":    api.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		},
		Logger: logger,
	})

	// --- HTTP Server ---
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(tracing.Middleware(cfg.Tracing.ServiceName))
	router.Use(logging.RequestLogger(logger))
	router.Use(m.Middleware)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.HttpServer.TimeoutHandler))
	router.Method(http.MethodGet, "/metrics", m.Handler())
	handler.RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      router,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	// --- gRPC Server ---
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	grpcListener, err := net.Listen("tcp", ":"+cfg.GrpcServer.Port)
	if err != nil {
		return fmt.Errorf("listen for gRPC on port %s: %w", cfg.GrpcServer.Port, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("port", cfg.HttpServer.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		logger.Info("HTTP server has stopped")
		return nil
	})
	g.Go(func() error {
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		healthServer.SetServingStatus(grpcServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
		logger.Info("gRPC server listening", zap.String("port", cfg.GrpcServer.Port))
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		logger.Info("gRPC server has stopped")
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Starting graceful shutdown")
		healthServer.Shutdown()
		return shutdown(cfg, logger, httpServer, grpcServer)
	})

	return g.Wait()
}

func shutdown(cfg *config.Config, logger *zap.Logger, httpServer *http.Server, grpcServer *grpc.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HttpServer.ShutdownTimeout)
	defer cancel()

	stoppedGrpc := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedGrpc)
	}()

	var httpErr error
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		httpErr = fmt.Errorf("http shutdown: %w", err)
	}

	select {
	case <-stoppedGrpc:
		logger.Info("gRPC server gracefully shut down")
	case <-shutdownCtx.Done():
		logger.Warn("gRPC graceful shutdown timed out, forcing stop", zap.Error(shutdownCtx.Err()))
		grpcServer.Stop()
	}
	return httpErr
}
