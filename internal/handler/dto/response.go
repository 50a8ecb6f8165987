package dto

import (
	"time"

	"github.com/mtlprog/tasktrack/internal/domain"
)

// TaskResponse is a task as returned by the API.
type TaskResponse struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"ownerId"`
	TaskName       string    `json:"taskName"`
	PersonInCharge string    `json:"personInCharge"`
	Description    string    `json:"description"`
	ProgressNote   string    `json:"progressNote"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

// HistoryEntryResponse is one history entry as returned by the API.
type HistoryEntryResponse struct {
	ID                string    `json:"id"`
	TaskID            string    `json:"taskId"`
	ChangedAt         time.Time `json:"changedAt"`
	Actor             string    `json:"actor"`
	ChangeDescription string    `json:"changeDescription"`
	ChangeDetail      string    `json:"changeDetail,omitempty"`
}

// TasksListResponse is the response for GET /tasks.
type TasksListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Total int            `json:"total"`
}

// HistoryListResponse is the response for GET /tasks/:id/history.
type HistoryListResponse struct {
	TaskID  string                 `json:"taskId"`
	Entries []HistoryEntryResponse `json:"entries"`
}

// StatsResponse is the response for GET /stats.
type StatsResponse struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
}

// DescriptionResponse is the response for POST /assist/description.
type DescriptionResponse struct {
	Description string `json:"description"`
}

// ProgressResponse is the response for POST /tasks/:id/assist/progress.
type ProgressResponse struct {
	Progress string `json:"progress"`
}

// StreamTasksMessage carries a task list snapshot on the stream. Error is
// set when the list could not be refreshed; Tasks is then the last good list.
type StreamTasksMessage struct {
	Type  string         `json:"type"`
	Tasks []TaskResponse `json:"tasks"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// StreamHistoryMessage carries a history snapshot for the selected task.
type StreamHistoryMessage struct {
	Type    string                 `json:"type"`
	TaskID  string                 `json:"taskId"`
	Entries []HistoryEntryResponse `json:"entries"`
	Error   *ErrorDetail           `json:"error,omitempty"`
}

// StreamErrorMessage reports a rejected client message.
type StreamErrorMessage struct {
	Type   string      `json:"type"`
	TaskID string      `json:"taskId,omitempty"`
	Error  ErrorDetail `json:"error"`
}

const (
	StreamTypeTasks   = "tasks"
	StreamTypeHistory = "history"
	StreamTypeError   = "error"
)

// NewTaskResponse converts a domain task.
func NewTaskResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:             task.ID,
		OwnerID:        task.OwnerID,
		TaskName:       task.TaskName,
		PersonInCharge: task.PersonInCharge,
		Description:    task.Description,
		ProgressNote:   task.ProgressNote,
		Status:         string(task.Status),
		CreatedAt:      task.CreatedAt,
	}
}

// NewTaskResponses converts a task list, never returning nil.
func NewTaskResponses(tasks []*domain.Task) []TaskResponse {
	out := make([]TaskResponse, len(tasks))
	for i, task := range tasks {
		out[i] = NewTaskResponse(task)
	}
	return out
}

// NewHistoryResponses converts history entries, never returning nil.
func NewHistoryResponses(entries []*domain.HistoryEntry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = HistoryEntryResponse{
			ID:                e.ID,
			TaskID:            e.TaskID,
			ChangedAt:         e.ChangedAt,
			Actor:             e.Actor,
			ChangeDescription: e.ChangeDescription,
			ChangeDetail:      e.ChangeDetail,
		}
	}
	return out
}
