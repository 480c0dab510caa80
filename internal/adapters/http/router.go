package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/abhikalparya/documentchatbot/internal/config"
	"github.com/abhikalparya/documentchatbot/internal/core/domain"
	"github.com/abhikalparya/documentchatbot/internal/core/ports"
	"github.com/abhikalparya/documentchatbot/internal/observability/metrics"
)

const serviceName = "api"

// IndexLister lists catalog records for GET /v1/indexes.
type IndexLister interface {
	ListIndexes(ctx context.Context, limit int) ([]domain.IndexRecord, error)
}

type Router struct {
	cfg      config.Config
	sessions ports.SessionRegistry
	catalog  IndexLister
	metrics  *metrics.HTTPServerMetrics
	logger   *slog.Logger
}

// NewRouter builds the REST surface. catalog and httpMetrics may be nil.
func NewRouter(
	cfg config.Config,
	sessions ports.SessionRegistry,
	catalog IndexLister,
	httpMetrics *metrics.HTTPServerMetrics,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cfg:      cfg,
		sessions: sessions,
		catalog:  catalog,
		metrics:  httpMetrics,
		logger:   logger,
	}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware(rt.logger))
	if rt.metrics != nil {
		r.Use(func(next http.Handler) http.Handler {
			return rt.metrics.Middleware(serviceName, next)
		})
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	r.Get("/healthz", rt.healthz)

	r.Route("/v1", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return rateLimitMiddleware(next, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
		})
		r.Use(func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.cfg.APIMaxInFlight, time.Duration(rt.cfg.APIQueueWaitMS)*time.Millisecond)
		})

		r.Post("/sessions", rt.createSession)
		r.Route("/sessions/{session_id}", func(r chi.Router) {
			r.Get("/", rt.getSession)
			r.Post("/documents", rt.uploadDocument)
			r.Put("/selection", rt.selectDocument)
			r.Post("/messages", rt.askQuestion)
			r.Get("/transcript", rt.exportTranscript)
		})
		if rt.catalog != nil {
			r.Get("/indexes", rt.listIndexes)
		}
	})
	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": errorMessage(err)})
}
