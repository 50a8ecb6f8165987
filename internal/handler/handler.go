package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/mtlprog/tasktrack/docs" // Import generated docs
	"github.com/mtlprog/tasktrack/internal/handler/dto"
	"github.com/mtlprog/tasktrack/internal/middleware"
	"github.com/mtlprog/tasktrack/internal/notify"
	"github.com/mtlprog/tasktrack/internal/service"
	"github.com/mtlprog/tasktrack/internal/static"
	"github.com/mtlprog/tasktrack/internal/store"
	"github.com/mtlprog/tasktrack/internal/textgen"
)

// Deps are the collaborators a Handler serves.
type Deps struct {
	Service *service.TaskService
	Store   store.Store
	Hub     *notify.Hub
	Auth    *middleware.AuthMiddleware
	// Generator may be nil; assist endpoints then fail with GENERATION_FAILED.
	Generator textgen.Generator
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	taskService    *service.TaskService
	store          store.Store
	hub            *notify.Hub
	generator      textgen.Generator
	authMiddleware *middleware.AuthMiddleware

	// streams is cancelled by CloseStreams.
	streams      context.Context
	closeStreams context.CancelFunc
}

// New creates a new Handler instance with all dependencies.
func New(deps Deps) *Handler {
	streams, closeStreams := context.WithCancel(context.Background())
	return &Handler{
		taskService:    deps.Service,
		store:          deps.Store,
		hub:            deps.Hub,
		generator:      deps.Generator,
		authMiddleware: deps.Auth,
		streams:        streams,
		closeStreams:   closeStreams,
	}
}

// CloseStreams ends every open stream connection.
func (h *Handler) CloseStreams() {
	h.closeStreams()
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /healthz", h.handleHealthz)

	// API guide
	mux.HandleFunc("GET /guide.md", h.handleGuideMd)

	// Swagger UI
	mux.HandleFunc("GET /swagger/", httpSwagger.Handler())

	auth := func(fn http.HandlerFunc) http.Handler {
		return h.authMiddleware.Authenticate(fn)
	}

	// API v1 routes with authentication
	mux.Handle("GET /api/v1/tasks", auth(h.handleListTasks))
	mux.Handle("POST /api/v1/tasks", auth(h.handleCreateTask))
	mux.Handle("GET /api/v1/tasks/{id}", auth(h.handleGetTask))
	mux.Handle("PATCH /api/v1/tasks/{id}", auth(h.handleUpdateField))
	mux.Handle("PUT /api/v1/tasks/{id}", auth(h.handleUpdateForm))
	mux.Handle("DELETE /api/v1/tasks/{id}", auth(h.handleDeleteTask))
	mux.Handle("GET /api/v1/tasks/{id}/history", auth(h.handleListHistory))
	mux.Handle("POST /api/v1/tasks/{id}/assist/progress", auth(h.handleAssistProgress))
	mux.Handle("POST /api/v1/assist/description", auth(h.handleAssistDescription))
	mux.Handle("GET /api/v1/stats", auth(h.handleGetStats))
	mux.Handle("GET /api/v1/stream", auth(h.handleStream))
}

// handleHealthz returns 200 OK if the task store is reachable.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		slog.Error("store health check failed", "error", err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// handleGuideMd serves the embedded API guide.
func (h *Handler) handleGuideMd(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(static.GuideMd))
}

// Ping checks if the task store is reachable (used for testing).
func (h *Handler) Ping(ctx context.Context) error {
	return h.store.Ping(ctx)
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes a standard error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, dto.NewErrorResponse(code, message))
}

// respondDomainError maps err through dto.MapDomainError.
func respondDomainError(w http.ResponseWriter, err error) {
	status, code, message := dto.MapDomainError(err)
	respondError(w, status, code, message)
}

// extractTaskID extracts and validates task ID from path parameter.
// Returns (taskID, true) if valid, ("", false) if invalid (error already sent to client).
// Ids that are not UUIDs cannot name a task and are reported as not found.
func extractTaskID(w http.ResponseWriter, r *http.Request) (string, bool) {
	taskID := r.PathValue("id")
	if _, err := uuid.Parse(taskID); err != nil {
		respondError(w, http.StatusNotFound, "TASK_NOT_FOUND", "task not found: "+taskID)
		return "", false
	}

	return taskID, true
}

// decodeJSON decodes the request body. Returns false if the body is not
// valid JSON (error already sent to client).
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return false
	}
	return true
}
