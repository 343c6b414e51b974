package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/roledex/internal/domain"
	"github.com/kailas-cloud/roledex/internal/repository/vacancy"
	healthuc "github.com/kailas-cloud/roledex/internal/usecase/health"
	matchuc "github.com/kailas-cloud/roledex/internal/usecase/match"
)

const maxNeedsPerRequest = 200

// errorCode is the machine-readable error discriminator in error responses.
type errorCode string

const (
	codeBadRequest       errorCode = "bad_request"
	codeValidationFailed errorCode = "validation_failed"
	codeStoreNotLoaded   errorCode = "store_not_loaded"
	codeEmbeddingError   errorCode = "embedding_provider_error"
	codeScoringError     errorCode = "scoring_provider_error"
	codeInternalError    errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// StatsProvider exposes the loaded vacancy store diagnostics.
type StatsProvider interface {
	Stats() vacancy.Stats
}

// Server is the HTTP API surface: matching, health, and store diagnostics.
type Server struct {
	match  *matchuc.Service
	health *healthuc.Service
	stats  StatsProvider
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(match *matchuc.Service, health *healthuc.Service, stats StatsProvider, logger *zap.Logger) *Server {
	return &Server{
		match:  match,
		health: health,
		stats:  stats,
		logger: logger,
	}
}

// Routes registers all handlers on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/match", s.Match)
	r.Get("/v1/store/stats", s.StoreStats)
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type matchRequest struct {
	RoleNeeds []domain.RoleNeed `json:"role_needs"`
}

// Match handles POST /v1/match.
func (s *Server) Match(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.RoleNeeds) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "role_needs must not be empty")
		return
	}
	if len(req.RoleNeeds) > maxNeedsPerRequest {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "too many role needs in one request")
		return
	}
	for i, need := range req.RoleNeeds {
		if need.ID == "" {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "role need at index "+strconv.Itoa(i)+" has no id")
			return
		}
	}

	out, err := s.match.Match(r.Context(), req.RoleNeeds)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

// StoreStats handles GET /v1/store/stats.
func (s *Server) StoreStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Stats())
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrStoreNotLoaded):
		writeError(w, http.StatusServiceUnavailable, codeStoreNotLoaded, domain.ErrStoreNotLoaded.Error())
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		writeError(w, http.StatusBadGateway, codeEmbeddingError, domain.ErrEmbeddingProviderError.Error())
	case errors.Is(err, domain.ErrScoringProviderError):
		writeError(w, http.StatusBadGateway, codeScoringError, domain.ErrScoringProviderError.Error())
	default:
		s.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}
