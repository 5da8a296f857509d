package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/minhvu2510/resto-ordering/internal/adapter/handler"
	"github.com/minhvu2510/resto-ordering/internal/adapter/notify"
	"github.com/minhvu2510/resto-ordering/internal/adapter/storage"
	"github.com/minhvu2510/resto-ordering/internal/config"
	"github.com/minhvu2510/resto-ordering/internal/core/domain"
	"github.com/minhvu2510/resto-ordering/internal/core/service"
	"github.com/minhvu2510/resto-ordering/internal/port"
	"github.com/minhvu2510/resto-ordering/pkg/logger"
	"github.com/minhvu2510/resto-ordering/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.App.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	db, err := sql.Open("mysql", cfg.MySQL.DSN())
	if err != nil {
		log.Fatal("failed to open mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		log.Fatal("failed to ping mysql", zap.Error(err))
	}
	log.Info("connected to mysql", zap.String("host", cfg.MySQL.Host))

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	log.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	// Adapters
	orderStore := storage.NewOrderStore(db, cfg.Order.AdvanceRate, cfg.Order.LockWaitTimeout)
	productStore := storage.NewProductStore(db)
	reservationStore := storage.NewReservationStore(db)
	redisAdapter := storage.NewRedisAdapter(rdb)

	// Kitchen feed is optional; without a broker orders still commit, they
	// just are not pushed.
	var notifier port.OrderNotifier
	if cfg.AMQP.URL != "" {
		notifier, err = notify.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			log.Fatal("failed to connect amqp", zap.Error(err))
		}
		log.Info("connected to amqp", zap.String("queue", cfg.AMQP.Queue))
	}

	// Services
	orderService := service.NewOrderService(orderStore, redisAdapter, m, log, cfg.Order.QueueSize)
	reservationService := service.NewReservationService(reservationStore, m, log)
	catalogService := service.NewCatalogService(productStore)

	// Notification worker pool
	var wg sync.WaitGroup
	for i := 0; i < cfg.Order.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			notifyLoop(id, orderService.GetOrderQueue(), notifier, log)
		}(i)
	}
	log.Info("started notification workers", zap.Int("count", cfg.Order.WorkerCount))

	// HTTP server
	httpHandler := handler.NewHTTPHandler(orderService, reservationService, catalogService, log)
	mux := http.NewServeMux()
	httpHandler.Register(mux)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:    cfg.Server.Address(),
		Handler: mux,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", cfg.Server.Address()))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Error("http server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Info("http server stopped")

	orderService.Close()
	wg.Wait()
	log.Info("workers stopped")

	if notifier != nil {
		notifier.Close()
	}
	rdb.Close()
	db.Close()
	log.Info("connections closed")
}

func notifyLoop(id int, queue <-chan domain.Order, notifier port.OrderNotifier, log *zap.Logger) {
	for order := range queue {
		if notifier == nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := notifier.OrderPlaced(ctx, order); err != nil {
			log.Error("failed to publish order",
				zap.Int("worker", id),
				zap.Int64("order_id", order.ID),
				zap.Error(err),
			)
		}
		cancel()
	}
}
