package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-table-orders/internal/config"
	"github.com/ariefcatur/go-table-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-table-orders/internal/kafka"
	"github.com/ariefcatur/go-table-orders/internal/logger"
	"github.com/ariefcatur/go-table-orders/internal/orders"
	"github.com/ariefcatur/go-table-orders/internal/rabbitmq"
	"github.com/ariefcatur/go-table-orders/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &inventory.Service{
		Store:    &redisx.StockProjection{R: rdb, Service: cfg.InventoryGroup},
		LowStock: cfg.LowStockThreshold,
		Log:      log.Named("inventory"),
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		switch cfg.EventBus {
		case "rabbitmq":
			bus, err := rabbitmq.Dial(cfg.RabbitMQURL, cfg.RabbitMQExchange)
			if err != nil {
				log.Error("rabbitmq connect", zap.Error(err))
				return
			}
			defer bus.Close()
			log.Info("inventory consumer started", zap.String("bus", "rabbitmq"), zap.String("queue", cfg.InventoryGroup))
			_ = bus.Consume(ctx, cfg.InventoryGroup, orders.TopicStockMovement, cfg.InventoryWorkers, svc.Handle, log.Named("rabbitmq"))
		default:
			cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.InventoryGroup, orders.TopicStockMovement, cfg.InventoryWorkers, log.Named("kafka"))
			log.Info("inventory consumer started",
				zap.String("bus", "kafka"), zap.String("group", cfg.InventoryGroup), zap.Int("workers", cfg.InventoryWorkers))
			if err := cons.Start(ctx, svc.HandleMessage); err != nil {
				log.Error("consumer exit", zap.Error(err))
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Info("shutting down consumer")
	case <-done:
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
}
