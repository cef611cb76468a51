package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/roms-labs/ingest-svc/internal/dal/interfaces/ideadletterrepo"
	"github.com/roms-labs/ingest-svc/internal/dal/interfaces/iorderrepo"
	"github.com/roms-labs/ingest-svc/internal/dal/interfaces/iwebhooklogrepo"
	"github.com/roms-labs/ingest-svc/internal/dal/postgres"
	"github.com/roms-labs/ingest-svc/internal/dal/rabbitmq"
	dlmemory "github.com/roms-labs/ingest-svc/internal/dal/repositories/deadletter/memory"
	dlpostgres "github.com/roms-labs/ingest-svc/internal/dal/repositories/deadletter/postgres"
	ordermemory "github.com/roms-labs/ingest-svc/internal/dal/repositories/order/memory"
	orderpostgres "github.com/roms-labs/ingest-svc/internal/dal/repositories/order/postgres"
	wlmemory "github.com/roms-labs/ingest-svc/internal/dal/repositories/webhooklog/memory"
	wlpostgres "github.com/roms-labs/ingest-svc/internal/dal/repositories/webhooklog/postgres"
	"github.com/roms-labs/ingest-svc/internal/otel"
	"github.com/roms-labs/ingest-svc/internal/queue"
	"github.com/roms-labs/ingest-svc/internal/service/services/ingestsvc"
	"github.com/roms-labs/ingest-svc/internal/service/services/ordersvc"
	"github.com/roms-labs/ingest-svc/internal/service/services/pipelinesvc"
	"github.com/roms-labs/ingest-svc/internal/service/services/processorsvc"
	"github.com/roms-labs/ingest-svc/internal/stats"
	"github.com/roms-labs/ingest-svc/internal/transport/consumer"
	httptransport "github.com/roms-labs/ingest-svc/internal/transport/http"
	"github.com/roms-labs/ingest-svc/internal/transport/ws"
	"github.com/roms-labs/ingest-svc/internal/worker/monitor"
)

// App represents the application.
type App struct {
	ingestSvc      *ingestsvc.IngestService
	pipelineSvc    *pipelinesvc.PipelineService
	transport      *httptransport.HTTPTransport
	consumerTransp *consumer.Consumer
	monitorWorker  *monitor.Worker
	hub            *ws.Hub
	rabbitMqClient *rabbitmq.Client
	postgresClient *postgres.Client
	otelController *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel()

	metrics := stats.NewMetrics(nil)
	if err := metrics.Register(); err != nil {
		panic(err)
	}

	collector := newCollector(metrics)

	q := queue.New(queueCapacity(), queuePopTimeout(), queue.WithDepthReporter(collector))

	var postgresClient *postgres.Client
	var orderRepo iorderrepo.IOrderRepository
	var dlqRepo ideadletterrepo.IDeadLetterRepository
	var logRepo iwebhooklogrepo.IWebhookLogRepository

	if viper.GetBool("postgres.enabled") {
		postgresClient = postgres.MustNewClient()
		orderRepo = orderpostgres.NewOrderRepository(postgresClient)
		dlqRepo = dlpostgres.NewDeadLetterRepository(postgresClient, dlqCapacity())
		logRepo = wlpostgres.NewWebhookLogRepository(postgresClient)
	} else {
		orderRepo = ordermemory.NewOrderRepository()
		dlqRepo = dlmemory.NewDeadLetterRepository(dlqCapacity())
		logRepo = wlmemory.NewWebhookLogRepository(logCapacity())
	}

	hub := ws.NewHub()

	processorSvc := processorsvc.MustNewProcessorService(
		processorsvc.WithOrderRepository(orderRepo),
		processorsvc.WithNotifier(hub),
	)

	pipelineSvc := pipelinesvc.MustNewPipelineService(
		pipelinesvc.WithQueue(q),
		pipelinesvc.WithProcessor(processorSvc),
		pipelinesvc.WithDeadLetterRepository(dlqRepo),
		pipelinesvc.WithStats(collector),
		pipelinesvc.WithWorkerCount(workerCount()),
		pipelinesvc.WithProcessTimeout(processTimeout()),
		pipelinesvc.WithRetryPolicy(maxRetries(), baseDelay(), maxDelay()),
	)

	ingestSvc := ingestsvc.MustNewIngestService(
		ingestsvc.WithQueue(q),
		ingestsvc.WithWebhookLogRepository(logRepo),
		ingestsvc.WithStats(collector),
		ingestsvc.WithSecret(os.Getenv("WEBHOOK_SECRET")),
		ingestsvc.WithMaxPayloadSize(maxPayloadBytes()),
	)

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithOrderRepository(orderRepo),
	)

	transport := httptransport.NewHTTPTransport(ingestSvc, pipelineSvc, collector, orderSvc, hub)
	transport.RegisterRoutes()

	monitorWorker := monitor.NewWorker(collector, dlqRepo)

	var rabbitMqClient *rabbitmq.Client
	var consumerTransp *consumer.Consumer
	if viper.GetBool("amqp.enabled") {
		rabbitMqClient = rabbitmq.MustNewClient()
		consumerTransp = consumer.NewConsumer(rabbitMqClient, ingestSvc)
	}

	return &App{
		ingestSvc:      ingestSvc,
		pipelineSvc:    pipelineSvc,
		transport:      transport,
		consumerTransp: consumerTransp,
		monitorWorker:  monitorWorker,
		hub:            hub,
		rabbitMqClient: rabbitMqClient,
		postgresClient: postgresClient,
		otelController: otelController,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.hub.Run(ctx)

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	if a.consumerTransp != nil {
		go func() {
			slog.Info("Starting AMQP consumer")
			if err := a.consumerTransp.Run(ctx); err != nil {
				slog.Error("Consumer error", "error", err)
			}
		}()
	}

	go func() {
		slog.Info("Starting monitor worker")
		a.monitorWorker.Start(ctx)
	}()

	a.pipelineSvc.Start(ctx)

	<-stop
	slog.Info("Shutdown signal received")

	a.gracefulShutdown()
}

// gracefulShutdown stops intake first so nothing new is accepted, then
// drains the pipeline within the configured grace period.
func (a *App) gracefulShutdown() {
	a.ingestSvc.Stop()
	slog.Info("Intake stopped, new submissions are rejected")

	httpCtx, cancelHTTP := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelHTTP()

	if err := a.transport.Shutdown(httpCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if a.consumerTransp != nil {
		if err := a.consumerTransp.Shutdown(); err != nil {
			slog.Error("Consumer shutdown error", "error", err)
		} else {
			slog.Info("Consumer stopped gracefully")
		}
	}

	graceCtx, cancelGrace := context.WithTimeout(context.Background(), gracePeriod())
	defer cancelGrace()

	if err := a.pipelineSvc.Shutdown(graceCtx); err != nil {
		slog.Error("Pipeline shutdown error", "error", err)
	} else {
		slog.Info("Pipeline stopped gracefully")
	}

	a.monitorWorker.Stop()

	if a.rabbitMqClient != nil {
		if err := a.rabbitMqClient.Close(); err != nil {
			slog.Error("RabbitMQ connection close error", "error", err)
		} else {
			slog.Info("RabbitMQ connection closed gracefully")
		}
	}

	if a.postgresClient != nil {
		a.postgresClient.Close()
		slog.Info("Database connection closed gracefully")
	}

	if err := a.otelController.Shutdown(); err != nil {
		slog.Error("Otel trace provider connection close error", "error", err)
	} else {
		slog.Info("Otel trace provider connection closed gracefully")
	}

	slog.Info("Application shutdown complete")
}

func newCollector(metrics *stats.Metrics) *stats.Collector {
	windowSize := viper.GetInt("stats.window_size")
	if windowSize > 0 {
		return stats.New(stats.WithWindowSize(windowSize), stats.WithMetrics(metrics))
	}

	return stats.New(stats.WithMetrics(metrics))
}

func queueCapacity() int {
	capacity := viper.GetInt("queue.capacity")
	if capacity == 0 {
		capacity = 10000
	}

	return capacity
}

func queuePopTimeout() time.Duration {
	timeout := viper.GetDuration("queue.pop_timeout")
	if timeout == 0 {
		timeout = time.Second
	}

	return timeout
}

func dlqCapacity() int {
	capacity := viper.GetInt("dlq.capacity")
	if capacity == 0 {
		capacity = 1000
	}

	return capacity
}

func logCapacity() int {
	capacity := viper.GetInt("webhook.log_capacity")
	if capacity == 0 {
		capacity = 1000
	}

	return capacity
}

func maxPayloadBytes() int {
	limit := viper.GetInt("webhook.max_payload_bytes")
	if limit == 0 {
		limit = 1 << 20
	}

	return limit
}

func workerCount() int {
	count := viper.GetInt("workers.count")
	if count == 0 {
		count = 10
	}

	return count
}

func processTimeout() time.Duration {
	timeout := viper.GetDuration("workers.process_timeout")
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return timeout
}

func maxRetries() int {
	retries := viper.GetInt("retry.max_retries")
	if retries == 0 {
		retries = 3
	}

	return retries
}

func baseDelay() time.Duration {
	delay := viper.GetDuration("retry.base_delay")
	if delay == 0 {
		delay = time.Second
	}

	return delay
}

func maxDelay() time.Duration {
	delay := viper.GetDuration("retry.max_delay")
	if delay == 0 {
		delay = 30 * time.Second
	}

	return delay
}

func gracePeriod() time.Duration {
	period := viper.GetDuration("shutdown.grace_period")
	if period == 0 {
		period = 10 * time.Second
	}

	return period
}
