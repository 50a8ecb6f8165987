package handler

import (
	"net/http"

	"github.com/mtlprog/tasktrack/internal/handler/dto"
	"github.com/mtlprog/tasktrack/internal/middleware"
)

// handleGetStats returns the caller's task counts per status.
// @Summary Get statistics
// @Description Counts the caller's tasks per status
// @Tags stats
// @Produce json
// @Success 200 {object} dto.StatsResponse
// @Security BearerAuth
// @Router /stats [get]
func (h *Handler) handleGetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts, err := h.taskService.StatusCounts(ctx, middleware.GetIdentityFromContext(ctx))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	resp := dto.StatsResponse{ByStatus: make(map[string]int, len(counts))}
	for status, n := range counts {
		resp.ByStatus[string(status)] = n
		resp.Total += n
	}

	respondJSON(w, http.StatusOK, resp)
}
