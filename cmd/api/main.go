package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-table-orders/internal/config"
	"github.com/ariefcatur/go-table-orders/internal/floor"
	"github.com/ariefcatur/go-table-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-table-orders/internal/kafka"
	"github.com/ariefcatur/go-table-orders/internal/logger"
	"github.com/ariefcatur/go-table-orders/internal/orders"
	"github.com/ariefcatur/go-table-orders/internal/postgres"
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

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMax)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db, log); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Events
	bus, closeBus, err := openBus(cfg, log)
	if err != nil {
		log.Fatal("event bus", zap.String("bus", cfg.EventBus), zap.Error(err))
	}

	svc := &floor.Service{
		DB:      &postgres.Store{DB: db},
		Numbers: orders.Allocator{MaxAttempts: cfg.OrderNumberAttempts, Log: log.Named("numbers")},
		Events:  bus,
		Cache:   &redisx.TableViewCache{R: rdb, TTL: cfg.TableViewTTL},
		Log:     log.Named("floor"),

		ServiceName:  cfg.ServiceName,
		ReserveOnAdd: cfg.ReserveOnAdd,
	}

	router := httpx.NewRouter(log.Named("http"), cfg.CorsAllowedOrigins)
	(&httpx.TablesHandler{Floor: svc, DefaultActor: cfg.DefaultActorID, Log: log.Named("http")}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("bus", cfg.EventBus))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(shutdownCtx)
	closeBus() // flush queued events after the last request
}

// nopBus drops events when EVENT_BUS=none.
type nopBus struct{}

func (nopBus) Publish(context.Context, string, []byte, orders.Envelope) error { return nil }

func openBus(cfg config.Config, log *zap.Logger) (floor.Publisher, func(), error) {
	switch cfg.EventBus {
	case "kafka":
		prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log.Named("kafka"))
		prod.Start()
		return prod, prod.Close, nil
	case "rabbitmq":
		b, err := rabbitmq.Dial(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			return nil, nil, err
		}
		return b, func() { _ = b.Close() }, nil
	case "none":
		return nopBus{}, func() {}, nil
	}
	return nil, nil, errors.New("unknown EVENT_BUS " + cfg.EventBus)
}
