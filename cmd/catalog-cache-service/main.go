package main

import (
	"context"
	"os"

	"github.com/redis/go-redis/v9"

	catalogkafka "github.com/dmehra2102/market-preorders/internal/catalog/infrastructure/kafka"
	catalogredis "github.com/dmehra2102/market-preorders/internal/catalog/infrastructure/redis"
	"github.com/dmehra2102/market-preorders/pkg/config"
	"github.com/dmehra2102/market-preorders/pkg/idempotency"
	"github.com/dmehra2102/market-preorders/pkg/logging"
	"github.com/dmehra2102/market-preorders/pkg/shutdown"
	"github.com/dmehra2102/market-preorders/pkg/tracing"
)

func main() {
	cfg, err := config.Load("catalog-cache-service")
	if err != nil {
		logging.New("catalog-cache-service", "info").Error("config load failed", "err", err)
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

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("redis connect failed", "err", err)
		os.Exit(1)
	}

	reader := catalogkafka.NewReader(cfg.Kafka.Brokers, cfg.Kafka.InventoryTopic, cfg.Kafka.ConsumerGroup)
	consumer := catalogkafka.NewConsumer(log,
		reader,
		catalogredis.NewSearchCache(rdb, cfg.SearchCacheTTL),
		idempotency.NewStore(rdb, cfg.IdempotencyTTL),
	)

	log.Info("consuming", "topic", cfg.Kafka.InventoryTopic, "group", cfg.Kafka.ConsumerGroup)
	if err := consumer.Run(ctx); err != nil {
		log.Error("consumer stopped with error", "err", err)
	}
	log.Info("catalog-cache-service shutdown complete")
}
