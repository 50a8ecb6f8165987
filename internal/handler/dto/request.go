package dto

import "github.com/mtlprog/tasktrack/internal/domain"

// TaskFormRequest is the body of POST /tasks and PUT /tasks/:id.
// Omitted fields are left out of the edit.
type TaskFormRequest struct {
	TaskName       *string `json:"taskName"`
	PersonInCharge *string `json:"personInCharge"`
	Description    *string `json:"description"`
	Status         *string `json:"status"`
	ProgressNote   *string `json:"progressNote"`
}

// Fields converts the request into a partial task edit.
func (r TaskFormRequest) Fields() domain.TaskFields {
	fields := domain.TaskFields{
		TaskName:       r.TaskName,
		PersonInCharge: r.PersonInCharge,
		Description:    r.Description,
		ProgressNote:   r.ProgressNote,
	}
	if r.Status != nil {
		status := domain.TaskStatus(*r.Status)
		fields.Status = &status
	}
	return fields
}

// UpdateFieldRequest is the body of PATCH /tasks/:id.
type UpdateFieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// DescriptionRequest is the body of POST /assist/description.
type DescriptionRequest struct {
	TaskName string `json:"taskName"`
}

// StreamRequest is a client message on the task stream.
type StreamRequest struct {
	// Select starts following a task's history; "" stops.
	Select *string `json:"select"`
}
