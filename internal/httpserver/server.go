package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radiusdt/vector-insights/internal/config"
	"github.com/radiusdt/vector-insights/internal/metrics"
	"github.com/radiusdt/vector-insights/internal/middleware"
	"github.com/radiusdt/vector-insights/internal/models"
	"github.com/radiusdt/vector-insights/internal/period"
	"github.com/radiusdt/vector-insights/internal/reporting"
)

// maxEvaluateBody caps inline snapshots posted to the evaluate endpoint.
const maxEvaluateBody = 10 << 20

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Service     *reporting.Service
	RateLimiter *middleware.RateLimitMiddleware
	Checks      map[string]HealthCheck
}

// Server wraps HTTP handlers around the reporting service.
type Server struct {
	service *reporting.Service
	checks  map[string]HealthCheck
	logger  *zap.Logger
	config  *config.Config
	metrics *metrics.Metrics
}

// NewServer constructs a new http.Handler with all routes registered.
func NewServer(deps *Dependencies) http.Handler {
	s := &Server{
		service: deps.Service,
		checks:  deps.Checks,
		logger:  deps.Logger,
		config:  deps.Config,
		metrics: deps.Metrics,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger).Handler)
	r.Use(middleware.NewLoggingMiddleware(deps.Logger).Handler)
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics).Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.Config.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.AuthHeaderName, middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	rl := deps.RateLimiter
	if rl == nil {
		rl = middleware.NewRateLimitMiddleware(deps.Config.RateLimit, deps.Logger)
		rl.SetMetrics(deps.Metrics)
	}
	r.Use(rl.Handler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.errorResponse(w, r, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.errorResponse(w, r, "method not allowed", http.StatusMethodNotAllowed)
	})

	r.Get("/health", s.handleHealth)
	if deps.Config.Metrics.Enabled && deps.Gatherer != nil {
		r.Handle(deps.Config.Metrics.Path, metrics.Handler(deps.Gatherer))
	}

	// Auth wraps matched endpoints only, so unknown routes still answer 404.
	auth := middleware.NewAuthMiddleware(deps.Config.Auth, deps.Logger)
	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.Handler)

			r.Get("/periods/resolve", s.handleResolvePeriod)
			r.Get("/reports/ranking", s.handleRanking)
			r.Post("/reports/evaluate", s.handleEvaluate)
			r.Get("/reports/frustration", s.handleFrustration)
			r.Delete("/reports/cache", s.handlePurgeCache)
		})
	})

	return r
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			results[name] = err.Error()
			status = "degraded"
			continue
		}
		results[name] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": status, "checks": results})
}

// ---- Periods ----

type resolvedPeriod struct {
	Tag   period.Tag   `json:"tag"`
	Today civil.Date   `json:"today"`
	Range period.Range `json:"range"`
}

func (s *Server) handleResolvePeriod(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selection(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	rng, err := s.service.ResolvePeriod(sel)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, resolvedPeriod{
		Tag:   sel.Tag,
		Today: civil.DateOf(s.service.Now()),
		Range: rng,
	})
}

// ---- Reports ----

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	q, err := s.rankingQuery(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	report, err := s.service.Ranking(r.Context(), q)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, report)
}

type evaluateRequest struct {
	Snapshot *reporting.Snapshot `json:"snapshot"`
	Query    reporting.Query     `json:"query"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEvaluateBody))
	if err := dec.Decode(&req); err != nil {
		s.errorResponse(w, r, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Query.Selection.Tag == "" {
		req.Query.Selection.Tag = period.Tag(s.config.Reports.DefaultPeriod)
	}

	report, err := s.service.Evaluate(req.Snapshot, req.Query)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, report)
}

func (s *Server) handleFrustration(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selection(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	report, err := s.service.Frustration(r.Context(), sel)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, report)
}

func (s *Server) handlePurgeCache(w http.ResponseWriter, r *http.Request) {
	n, err := s.service.PurgeCache(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, map[string]int{"purged": n})
}

// ---- Request Parsing ----

func (s *Server) selection(r *http.Request) (period.Selection, error) {
	q := r.URL.Query()
	return period.ParseSelection(q.Get("period"), q.Get("from"), q.Get("to"), period.Tag(s.config.Reports.DefaultPeriod))
}

// rankingQuery reads level, period, from, to, top and status. status may be
// repeated or comma separated.
func (s *Server) rankingQuery(r *http.Request) (reporting.Query, error) {
	v := r.URL.Query()

	level, err := reporting.ParseLevel(v.Get("level"))
	if err != nil {
		return reporting.Query{}, err
	}
	sel, err := s.selection(r)
	if err != nil {
		return reporting.Query{}, err
	}

	topK := s.config.Reports.DefaultTopK
	if raw := v.Get("top"); raw != "" {
		if topK, err = strconv.Atoi(raw); err != nil {
			return reporting.Query{}, errors.Join(reporting.ErrInvalidQuery, errors.New("top must be an integer"))
		}
	}

	var statuses []models.CampaignStatus
	for _, raw := range v["status"] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			st, err := models.ParseCampaignStatus(strings.ToLower(part))
			if err != nil {
				return reporting.Query{}, errors.Join(reporting.ErrInvalidQuery, err)
			}
			statuses = append(statuses, st)
		}
	}

	return reporting.Query{Level: level, Selection: sel, TopK: topK, Statuses: statuses}, nil
}

// ---- Helper Methods ----

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, reporting.ErrInvalidQuery),
		errors.Is(err, period.ErrUnknownTag),
		errors.Is(err, period.ErrInvalidDate):
		s.errorResponse(w, r, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
	default:
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Error(err),
		)
		s.errorResponse(w, r, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, message string, code int) {
	body := map[string]string{"error": message}
	if id := middleware.GetRequestID(r.Context()); id != "" {
		body["request_id"] = id
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
