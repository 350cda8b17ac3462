// Package api provides the HTTP surface for triggering and inspecting
// blue-green deployments.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/artpar/switchyard/internal/core/service"
	"github.com/artpar/switchyard/internal/core/slot"
	"github.com/artpar/switchyard/internal/shell/docker"
	"github.com/artpar/switchyard/internal/shell/orchestrator"
)

// =============================================================================
// Handler
// =============================================================================

// Deployer is the orchestrator surface the API needs.
type Deployer interface {
	Deploy(ctx context.Context, req orchestrator.Request) (*orchestrator.Report, error)
	Slots(ctx context.Context, spec service.Spec) (active, inactive slot.Slot, err error)
}

// Handler provides HTTP handlers for the deployment API.
type Handler struct {
	manifest *service.Manifest
	deployer Deployer
	docker   docker.Client
	logger   *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(m *service.Manifest, d Deployer, dc docker.Client, l *slog.Logger) *Handler {
	if l == nil {
		l = slog.Default()
	}
	return &Handler{
		manifest: m,
		deployer: d,
		docker:   dc,
		logger:   l.With("component", "api"),
	}
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.jsonContentType)
	r.Use(h.requestIDHeader)

	// Health endpoints
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/services", h.handleListServices)
		r.Route("/services/{service}", func(r chi.Router) {
			r.Get("/slots", h.handleGetSlots)
			r.Post("/deployments", h.handleDeploy)
		})
	})

	return r
}

// =============================================================================
// Middleware
// =============================================================================

// jsonContentType sets Content-Type header to application/json.
func (h *Handler) jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestIDHeader copies the request ID to the response header.
func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if err := h.docker.Ping(); err != nil {
		checks["docker"] = "failed"
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
			Status: "not_ready",
			Checks: checks,
		})
		return
	}
	checks["docker"] = "ok"

	h.writeJSON(w, http.StatusOK, ReadyResponse{
		Status: "ready",
		Checks: checks,
	})
}

// =============================================================================
// Service Handlers
// =============================================================================

func (h *Handler) handleListServices(w http.ResponseWriter, r *http.Request) {
	resp := ListServicesResponse{
		Services: make([]ServiceResponse, 0, len(h.manifest.Services)),
		Total:    len(h.manifest.Services),
	}
	for _, s := range h.manifest.Services {
		resp.Services = append(resp.Services, ServiceResponse{
			Name:       s.Name,
			Repository: s.Repository,
			BluePort:   s.BluePort,
			GreenPort:  s.GreenPort,
			HealthPath: s.HealthPath,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetSlots(w http.ResponseWriter, r *http.Request) {
	spec, ok := h.lookupService(w, r)
	if !ok {
		return
	}

	active, inactive, err := h.deployer.Slots(r.Context(), spec)
	if err != nil {
		if errors.Is(err, slot.ErrAmbiguousState) {
			h.writeError(w, http.StatusConflict, err.Error(), "ambiguous_state")
			return
		}
		h.logger.Error("failed to resolve slots", "service", spec.Name, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to resolve slots", "internal_error")
		return
	}

	h.writeJSON(w, http.StatusOK, SlotsResponse{
		Service:  spec.Name,
		Active:   slotToResponse(active),
		Inactive: slotToResponse(inactive),
	})
}

// =============================================================================
// Deployment Handler
// =============================================================================

func (h *Handler) handleDeploy(w http.ResponseWriter, r *http.Request) {
	spec, ok := h.lookupService(w, r)
	if !ok {
		return
	}

	var req DeployRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
		return
	}

	report, err := h.deployer.Deploy(r.Context(), orchestrator.Request{
		Service:  spec,
		ImageTag: req.ImageTag,
		Runtime: service.RuntimeConfig{
			SecretKey:   req.SecretKey,
			DatabaseURL: req.DatabaseURL,
			Environment: req.Environment,
		},
	})
	if err != nil {
		h.writeDeployError(w, spec.Name, err)
		return
	}

	h.writeJSON(w, http.StatusOK, report)
}

// writeDeployError maps pipeline failures to HTTP status codes. Error bodies
// carry the stage and cause but never the request's runtime settings.
func (h *Handler) writeDeployError(w http.ResponseWriter, name string, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrDeploymentInFlight):
		h.writeError(w, http.StatusConflict, err.Error(), "deployment_in_flight")
	case errors.Is(err, slot.ErrAmbiguousState):
		h.writeError(w, http.StatusConflict, err.Error(), "ambiguous_state")
	case errors.Is(err, orchestrator.ErrImagePull):
		h.writeError(w, http.StatusBadGateway, err.Error(), "image_pull_failed")
	case errors.Is(err, orchestrator.ErrContainerStart):
		h.writeError(w, http.StatusBadGateway, err.Error(), "container_start_failed")
	case errors.Is(err, orchestrator.ErrUnhealthy):
		h.writeError(w, http.StatusBadGateway, err.Error(), "health_gate_failed")
	default:
		h.logger.Error("deployment failed", "service", name, "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error(), "deployment_failed")
	}
}

// =============================================================================
// Helpers
// =============================================================================

func (h *Handler) lookupService(w http.ResponseWriter, r *http.Request) (service.Spec, bool) {
	name := chi.URLParam(r, "service")
	spec, err := h.manifest.Lookup(name)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "service not found", "service_not_found")
		return service.Spec{}, false
	}
	return spec, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
