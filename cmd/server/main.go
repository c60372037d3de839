// Command server boots the order matching engine: it connects to
// MySQL, restores the in-memory book from durable state, starts the
// single-consumer processor, and serves the submission facade and
// metrics over HTTP.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lemonmarkets/matching-engine/internal/book"
	"github.com/lemonmarkets/matching-engine/internal/config"
	"github.com/lemonmarkets/matching-engine/internal/events"
	"github.com/lemonmarkets/matching-engine/internal/exchange"
	"github.com/lemonmarkets/matching-engine/internal/facade"
	"github.com/lemonmarkets/matching-engine/internal/httpapi"
	"github.com/lemonmarkets/matching-engine/internal/idgen"
	"github.com/lemonmarkets/matching-engine/internal/logging"
	"github.com/lemonmarkets/matching-engine/internal/metrics"
	"github.com/lemonmarkets/matching-engine/internal/processor"
	"github.com/lemonmarkets/matching-engine/internal/queue"
	"github.com/lemonmarkets/matching-engine/internal/store"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(os.Getenv("ENV") == "dev")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting matching engine")

	db, err := store.Connect(store.DSN(cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName))
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	st, err := store.New(db)
	if err != nil {
		logger.Fatal("failed to prepare store statements", zap.Error(err))
	}
	defer st.Close()

	bk := book.New()
	q := queue.New()

	ctx := context.Background()
	restorable, err := st.LoadRestorableOrders(ctx)
	if err != nil {
		logger.Fatal("failed to load restorable orders", zap.Error(err))
	}
	for _, order := range restorable {
		bk.Add(order)
		q.Put(order.ID)
	}
	logger.Info("restored book state", zap.Int("orders", len(restorable)))

	exch := exchange.NewHTTPClient(cfg.ExchangeURL)

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, logger)
	}
	defer publisher.Close()

	mx := metrics.New()

	proc := processor.New(q, st, bk, exch, publisher, mx, logger, cfg.MaxRetries, cfg.RetryDelay)
	ids := idgen.UUIDGenerator{}
	f := facade.New(st, ids, proc, logger, mx)

	apiServer := httpapi.New(f, st, logger)
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: apiServer}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", mx.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	go proc.Run(workerCtx)

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("metrics server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", zap.Error(err))
	}

	q.Close()
	cancelWorker()

	logger.Info("shutdown complete")
}
