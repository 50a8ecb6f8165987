package domain

import (
	"fmt"
	"time"
)

// TaskStatus represents the status of a task.
type TaskStatus string

const (
	TaskStatusOngoing TaskStatus = "On-going"
	TaskStatusHold    TaskStatus = "Hold"
	TaskStatusDone    TaskStatus = "Done"
)

// IsValid checks if the status is one of the allowed values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusOngoing, TaskStatusHold, TaskStatusDone:
		return true
	default:
		return false
	}
}

// Task represents one unit of work owned by a single user.
type Task struct {
	ID             string
	OwnerID        string
	TaskName       string
	PersonInCharge string
	Description    string
	ProgressNote   string
	Status         TaskStatus
	CreatedAt      time.Time
}

// IsOwnedBy checks if the task belongs to the given user.
func (t *Task) IsOwnedBy(userID string) bool {
	return t.OwnerID == userID
}

// Apply returns a copy of the task with the provided fields overwritten.
func (t Task) Apply(fields TaskFields) Task {
	if fields.TaskName != nil {
		t.TaskName = *fields.TaskName
	}
	if fields.PersonInCharge != nil {
		t.PersonInCharge = *fields.PersonInCharge
	}
	if fields.Description != nil {
		t.Description = *fields.Description
	}
	if fields.Status != nil {
		t.Status = *fields.Status
	}
	if fields.ProgressNote != nil {
		t.ProgressNote = *fields.ProgressNote
	}
	return t
}

// TaskFields is a partial set of editable task fields. A nil pointer means
// the field is not part of the edit.
type TaskFields struct {
	TaskName       *string
	PersonInCharge *string
	Description    *string
	Status         *TaskStatus
	ProgressNote   *string
}

// IsEmpty reports whether no field is set.
func (f TaskFields) IsEmpty() bool {
	return f.Count() == 0
}

// Count returns the number of fields set.
func (f TaskFields) Count() int {
	n := 0
	if f.TaskName != nil {
		n++
	}
	if f.PersonInCharge != nil {
		n++
	}
	if f.Description != nil {
		n++
	}
	if f.Status != nil {
		n++
	}
	if f.ProgressNote != nil {
		n++
	}
	return n
}

// Validate checks the set fields against task invariants.
func (f TaskFields) Validate() error {
	if f.TaskName != nil && *f.TaskName == "" {
		return fmt.Errorf("%w: task name is required", ErrValidation)
	}
	if f.PersonInCharge != nil && *f.PersonInCharge == "" {
		return fmt.Errorf("%w: person in charge is required", ErrValidation)
	}
	if f.Status != nil && !f.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, *f.Status)
	}
	return nil
}

// Field names a single editable task field.
type Field string

const (
	FieldTaskName       Field = "taskName"
	FieldPersonInCharge Field = "personInCharge"
	FieldDescription    Field = "description"
	FieldStatus         Field = "status"
	FieldProgressNote   Field = "progressNote"
)

// ParseField resolves a field name, accepting the short aliases used by
// the table view ("PIC", "progress").
func ParseField(name string) (Field, error) {
	switch name {
	case string(FieldTaskName):
		return FieldTaskName, nil
	case string(FieldPersonInCharge), "PIC":
		return FieldPersonInCharge, nil
	case string(FieldDescription):
		return FieldDescription, nil
	case string(FieldStatus):
		return FieldStatus, nil
	case string(FieldProgressNote), "progress":
		return FieldProgressNote, nil
	default:
		return "", fmt.Errorf("%w: unknown field %q", ErrValidation, name)
	}
}

// FieldsOf builds a TaskFields value carrying only the given field.
func FieldsOf(field Field, value string) TaskFields {
	var f TaskFields
	switch field {
	case FieldTaskName:
		f.TaskName = &value
	case FieldPersonInCharge:
		f.PersonInCharge = &value
	case FieldDescription:
		f.Description = &value
	case FieldStatus:
		status := TaskStatus(value)
		f.Status = &status
	case FieldProgressNote:
		f.ProgressNote = &value
	}
	return f
}
