package handler

import (
	"net/http"
	"strings"

	"github.com/mtlprog/tasktrack/internal/domain"
	"github.com/mtlprog/tasktrack/internal/handler/dto"
	"github.com/mtlprog/tasktrack/internal/middleware"
)

// handleCreateTask creates a new task.
// @Summary Create a new task
// @Description Creates a task owned by the caller and records "Task created." in its history.
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body dto.TaskFormRequest true "Task fields"
// @Success 201 {object} dto.TaskResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /tasks [post]
func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.TaskFormRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.taskService.CreateTask(ctx, middleware.GetIdentityFromContext(ctx), req.Fields())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.NewTaskResponse(task))
}

// handleListTasks lists the caller's tasks.
// @Summary List tasks
// @Description Lists the caller's tasks, newest first.
// @Tags tasks
// @Produce json
// @Param status query string false "Comma-separated statuses: On-going,Hold,Done"
// @Success 200 {object} dto.TasksListResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /tasks [get]
func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var statuses []domain.TaskStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				statuses = append(statuses, domain.TaskStatus(s))
			}
		}
	}

	tasks, err := h.taskService.ListTasks(ctx, middleware.GetIdentityFromContext(ctx), statuses)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.TasksListResponse{
		Tasks: dto.NewTaskResponses(tasks),
		Total: len(tasks),
	})
}

// handleGetTask returns one task.
// @Summary Get task
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} dto.TaskResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [get]
func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(ctx, middleware.GetIdentityFromContext(ctx), taskID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewTaskResponse(task))
}

// handleUpdateField applies an inline single-field edit.
// @Summary Edit one field
// @Description Changes one field. Setting a field to its current value records nothing.
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body dto.UpdateFieldRequest true "Field and new value"
// @Success 200 {object} dto.TaskResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [patch]
func (h *Handler) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateFieldRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	field, err := domain.ParseField(req.Field)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	task, err := h.taskService.UpdateField(ctx, middleware.GetIdentityFromContext(ctx), taskID, field, req.Value)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewTaskResponse(task))
}

// handleUpdateForm saves the full edit form.
// @Summary Save task form
// @Description Writes every provided field and records one history entry for what changed.
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body dto.TaskFormRequest true "Task fields"
// @Success 200 {object} dto.TaskResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [put]
func (h *Handler) handleUpdateForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	var req dto.TaskFormRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.taskService.UpdateForm(ctx, middleware.GetIdentityFromContext(ctx), taskID, req.Fields())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewTaskResponse(task))
}

// handleDeleteTask deletes a task with its history.
// @Summary Delete task
// @Tags tasks
// @Param id path string true "Task ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [delete]
func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(ctx, middleware.GetIdentityFromContext(ctx), taskID); err != nil {
		respondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleListHistory returns a task's history timeline.
// @Summary Task history
// @Description Lists history entries, newest first.
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} dto.HistoryListResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/history [get]
func (h *Handler) handleListHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	entries, err := h.taskService.ListHistory(ctx, middleware.GetIdentityFromContext(ctx), taskID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.HistoryListResponse{
		TaskID:  taskID,
		Entries: dto.NewHistoryResponses(entries),
	})
}
