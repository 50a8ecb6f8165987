package handler

import (
	"fmt"
	"net/http"

	"github.com/mtlprog/tasktrack/internal/domain"
	"github.com/mtlprog/tasktrack/internal/handler/dto"
	"github.com/mtlprog/tasktrack/internal/middleware"
	"github.com/mtlprog/tasktrack/internal/textgen"
)

var errNoGenerator = fmt.Errorf("%w: text generation is not configured", domain.ErrGeneration)

// handleAssistDescription drafts a description from a task name.
// @Summary Draft description
// @Description Generates a one-paragraph description. Nothing is saved.
// @Tags assist
// @Accept json
// @Produce json
// @Param request body dto.DescriptionRequest true "Task name"
// @Success 200 {object} dto.DescriptionResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /assist/description [post]
func (h *Handler) handleAssistDescription(w http.ResponseWriter, r *http.Request) {
	var req dto.DescriptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if h.generator == nil {
		respondDomainError(w, errNoGenerator)
		return
	}

	description, err := h.generator.GenerateDescription(r.Context(), req.TaskName)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.DescriptionResponse{Description: description})
}

// handleAssistProgress drafts a progress note from a task's recent history.
// @Summary Draft progress note
// @Description Generates a one-sentence progress summary. Nothing is saved.
// @Tags assist
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} dto.ProgressResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/assist/progress [post]
func (h *Handler) handleAssistProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	identity := middleware.GetIdentityFromContext(ctx)
	task, err := h.taskService.GetTask(ctx, identity, taskID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	entries, err := h.taskService.ListHistory(ctx, identity, taskID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if h.generator == nil {
		respondDomainError(w, errNoGenerator)
		return
	}

	progress, err := h.generator.GenerateProgressSummary(ctx, task.TaskName, textgen.HistoryText(entries))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ProgressResponse{Progress: progress})
}
