package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	catalogapp "github.com/dmehra2102/market-preorders/internal/catalog/application"
	cataloghttp "github.com/dmehra2102/market-preorders/internal/catalog/infrastructure/http"
	catalogpg "github.com/dmehra2102/market-preorders/internal/catalog/infrastructure/postgres"
	catalogredis "github.com/dmehra2102/market-preorders/internal/catalog/infrastructure/redis"
	"github.com/dmehra2102/market-preorders/internal/reservation/application"
	reservationhttp "github.com/dmehra2102/market-preorders/internal/reservation/infrastructure/http"
	reservationkafka "github.com/dmehra2102/market-preorders/internal/reservation/infrastructure/kafka"
	reservationpg "github.com/dmehra2102/market-preorders/internal/reservation/infrastructure/postgres"
	"github.com/dmehra2102/market-preorders/pkg/config"
	"github.com/dmehra2102/market-preorders/pkg/database"
	"github.com/dmehra2102/market-preorders/pkg/httpx"
	"github.com/dmehra2102/market-preorders/pkg/idempotency"
	"github.com/dmehra2102/market-preorders/pkg/logging"
	"github.com/dmehra2102/market-preorders/pkg/outbox"
	"github.com/dmehra2102/market-preorders/pkg/shutdown"
	"github.com/dmehra2102/market-preorders/pkg/tracing"
)

func main() {
	cfg, err := config.Load("market-service")
	if err != nil {
		logging.New("market-service", "info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.ServiceName, cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	// Postgres
	pool, err := database.Connect(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		log.Error("migration failed", "err", err)
		os.Exit(1)
	}

	// Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, caching and idempotency degrade to pass-through", "err", err)
	}
	idem := idempotency.NewStore(rdb, cfg.IdempotencyTTL)

	// Kafka producer and outbox relay
	writer := reservationkafka.NewWriter(cfg.Kafka.Brokers)
	defer writer.Close()
	dispatch := outbox.NewDispatcher(log, writer, cfg.Kafka.InventoryTopic)
	relay := outbox.NewRelay(log, outbox.NewPGStore(log, pool), dispatch, cfg.ServiceName+"-"+uuid.NewString())

	// Reservation
	reservations := application.NewService(log,
		reservationpg.NewStore(log, pool, cfg.Reservation.LockTimeout),
		reservationpg.NewOrderRepository(log, pool),
		application.WithFallbackUnitPrice(cfg.Reservation.FallbackUnitPrice),
	)
	reservationHandler := reservationhttp.NewHandler(log, reservations, cfg.Reservation.CurrentUserID,
		reservationhttp.WithReserveMiddleware(idempotency.Middleware(log, idem, 30*time.Second)),
	)

	// Catalog
	catalog := catalogapp.NewService(log,
		catalogpg.NewRepository(log, pool),
		catalogredis.NewSearchCache(rdb, cfg.SearchCacheTTL),
	)
	catalogHandler := cataloghttp.NewHandler(log, catalog)

	// HTTP server
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		catalogHandler.Register(api)
		reservationHandler.Register(api)
		api.NotFound(func(w http.ResponseWriter, r *http.Request) {
			httpx.JSON(w, http.StatusNotFound, map[string]string{"error": "API route not found"})
		})
	})
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Run relay
	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped with error", "err", err)
		}
	}()

	// Run HTTP
	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("market-service shutdown complete")
}
