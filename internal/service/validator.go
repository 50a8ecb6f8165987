package service

import (
	"fmt"

	"github.com/mtlprog/tasktrack/internal/domain"
	"github.com/mtlprog/tasktrack/internal/store"
)

// scope is the caller's view of the task store.
type scope struct {
	identity *domain.Identity
	ownerID  string
	// scoped is false in anonymous single-user mode.
	scoped bool
}

// actor returns the name recorded on history entries.
func (s scope) actor() string {
	return s.identity.Actor()
}

// canSee checks whether a task is visible inside the scope.
func (s scope) canSee(task *domain.Task) bool {
	return !s.scoped || task.IsOwnedBy(s.ownerID)
}

// query returns the task query matching the scope.
func (s scope) query() store.TaskQuery {
	if !s.scoped {
		return store.TaskQuery{}
	}
	owner := s.ownerID
	return store.TaskQuery{OwnerID: &owner}
}

// resolveScope validates the caller identity.
func (svc *TaskService) resolveScope(identity *domain.Identity) (scope, error) {
	// Anonymous tasks never carry an owner, even when a token was sent.
	if svc.anonymous {
		return scope{identity: identity}, nil
	}
	if identity != nil && identity.UserID != "" {
		return scope{identity: identity, ownerID: identity.UserID, scoped: true}, nil
	}
	return scope{}, fmt.Errorf("%w: no authenticated identity", domain.ErrUnauthorized)
}

// validateCreate checks the fields required for a new task.
func validateCreate(fields domain.TaskFields) error {
	if fields.TaskName == nil {
		return fmt.Errorf("%w: task name is required", domain.ErrValidation)
	}
	if fields.PersonInCharge == nil {
		return fmt.Errorf("%w: person in charge is required", domain.ErrValidation)
	}
	return fields.Validate()
}

// validateField checks a single-field edit.
func validateField(field domain.Field, value string) (domain.TaskFields, error) {
	fields := domain.FieldsOf(field, value)
	if fields.Count() != 1 {
		return domain.TaskFields{}, fmt.Errorf("%w: unknown field %q", domain.ErrValidation, field)
	}
	if err := fields.Validate(); err != nil {
		return domain.TaskFields{}, err
	}
	return fields, nil
}

// validateForm checks a full-form edit.
func validateForm(fields domain.TaskFields) error {
	if fields.IsEmpty() {
		return fmt.Errorf("%w: no fields provided", domain.ErrValidation)
	}
	return fields.Validate()
}
