package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"

	"github.com/roms-labs/ingest-svc/internal/service/models/deadletter"
	"github.com/roms-labs/ingest-svc/internal/service/models/order"
	"github.com/roms-labs/ingest-svc/internal/service/models/webhooklog"
	"github.com/roms-labs/ingest-svc/internal/service/services/ingestsvc"
	"github.com/roms-labs/ingest-svc/internal/stats"
	deadletters "github.com/roms-labs/ingest-svc/internal/transport/http/dead_letters"
	getorder "github.com/roms-labs/ingest-svc/internal/transport/http/get_order"
	listorders "github.com/roms-labs/ingest-svc/internal/transport/http/list_orders"
	queuestats "github.com/roms-labs/ingest-svc/internal/transport/http/queue_stats"
	replaydeadletter "github.com/roms-labs/ingest-svc/internal/transport/http/replay_dead_letter"
	retryfailed "github.com/roms-labs/ingest-svc/internal/transport/http/retry_failed"
	submitwebhook "github.com/roms-labs/ingest-svc/internal/transport/http/submit_webhook"
	webhooklogs "github.com/roms-labs/ingest-svc/internal/transport/http/webhook_logs"
	"github.com/roms-labs/ingest-svc/internal/transport/ws"
	"github.com/roms-labs/ingest-svc/pkg/http/middleware/trace"
	"github.com/roms-labs/ingest-svc/pkg/logger"
)

type ingestService interface {
	Accept(ctx context.Context, payload []byte, meta ingestsvc.Metadata) (ingestsvc.AcceptResult, error)
	Logs(ctx context.Context, limit int) ([]webhooklog.WebhookLog, error)
}

type pipelineService interface {
	DeadLetters(ctx context.Context, limit int) ([]deadletter.Entry, error)
	Replay(ctx context.Context, entryID string) error
	ReplayAll(ctx context.Context) (int, error)
}

type statsProvider interface {
	Snapshot() stats.Snapshot
}

type orderService interface {
	GetOrders(ctx context.Context, q order.Query) ([]order.Order, int, error)
	GetOrder(ctx context.Context, id int64) (*order.Order, error)
}

type HTTPTransport struct {
	server   *http.Server
	router   *chi.Mux
	ingest   ingestService
	pipeline pipelineService
	stats    statsProvider
	orders   orderService
	hub      *ws.Hub
}

func NewHTTPTransport(ingest ingestService, pipeline pipelineService, stats statsProvider, orders orderService, hub *ws.Hub) *HTTPTransport {
	router := newRouter()
	server := newServer(router)
	return &HTTPTransport{
		server:   server,
		router:   router,
		ingest:   ingest,
		pipeline: pipeline,
		stats:    stats,
		orders:   orders,
		hub:      hub,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

// Shutdown stops the server without interrupting in-flight requests.
func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api", func(r chi.Router) {
		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/submit", h.submitWebhook)
			r.Get("/queue/stats", h.queueStats)
			r.Get("/dead-letters", h.deadLetters)
			r.Post("/dead-letters/{entryID}/replay", h.replayDeadLetter)
			r.Post("/retry-failed", h.retryFailed)
			r.Get("/logs", h.webhookLogs)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Get("/{orderID}", h.getOrder)
		})
		r.Get("/health", h.health)
		r.Get("/ws", h.hub.Handler())
	})
	h.router.Handle("/metrics", promhttp.Handler())
}

func (h *HTTPTransport) submitWebhook(w http.ResponseWriter, r *http.Request) {
	submitwebhook.SubmitWebhook(w, r, h.ingest)
}

func (h *HTTPTransport) queueStats(w http.ResponseWriter, r *http.Request) {
	queuestats.QueueStats(w, r, h.stats)
}

func (h *HTTPTransport) deadLetters(w http.ResponseWriter, r *http.Request) {
	deadletters.ListDeadLetters(w, r, h.pipeline)
}

func (h *HTTPTransport) replayDeadLetter(w http.ResponseWriter, r *http.Request) {
	replaydeadletter.ReplayDeadLetter(w, r, h.pipeline)
}

func (h *HTTPTransport) retryFailed(w http.ResponseWriter, r *http.Request) {
	retryfailed.RetryFailed(w, r, h.pipeline)
}

func (h *HTTPTransport) webhookLogs(w http.ResponseWriter, r *http.Request) {
	webhooklogs.ListWebhookLogs(w, r, h.ingest)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.orders)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	getorder.GetOrder(w, r, h.orders)
}

func (h *HTTPTransport) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "ingest-svc",
	}); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(trace.NewTraceMiddleware)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}
