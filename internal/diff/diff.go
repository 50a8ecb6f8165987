// Package diff turns a proposed task edit into human-readable history lines.
//
// Fields are always compared in the same order (task name, PIC,
// description, status, progress note) so the output is stable. Values are
// compared with plain string equality; nothing is trimmed or normalized.
package diff

import (
	"fmt"
	"strings"

	"github.com/mtlprog/tasktrack/internal/domain"
)

// AggregateDescription is used when one form save changes several fields.
const AggregateDescription = "Task details updated."

// Change is a single history line, with optional supplementary detail.
type Change struct {
	Field       domain.Field
	Description string
	Detail      string
}

// ComputeChanges returns one Change per field in proposed that differs from
// original. When the progress note is the only change, its new text is
// attached as Detail.
func ComputeChanges(original domain.Task, proposed domain.TaskFields) []Change {
	var changes []Change

	if p := proposed.TaskName; p != nil && *p != original.TaskName {
		changes = append(changes, Change{
			Field:       domain.FieldTaskName,
			Description: fmt.Sprintf(`Task name changed from "%s" to "%s".`, original.TaskName, *p),
		})
	}
	if p := proposed.PersonInCharge; p != nil && *p != original.PersonInCharge {
		changes = append(changes, Change{
			Field:       domain.FieldPersonInCharge,
			Description: fmt.Sprintf(`PIC changed from "%s" to "%s".`, original.PersonInCharge, *p),
		})
	}
	if p := proposed.Description; p != nil && *p != original.Description {
		changes = append(changes, Change{
			Field:       domain.FieldDescription,
			Description: "Description updated.",
		})
	}
	if p := proposed.Status; p != nil && *p != original.Status {
		changes = append(changes, Change{
			Field:       domain.FieldStatus,
			Description: fmt.Sprintf(`Status changed from "%s" to "%s".`, original.Status, *p),
		})
	}
	if p := proposed.ProgressNote; p != nil && *p != original.ProgressNote {
		changes = append(changes, Change{
			Field:       domain.FieldProgressNote,
			Description: "Progress note updated.",
		})
	}

	if len(changes) == 1 && changes[0].Field == domain.FieldProgressNote {
		changes[0].Detail = *proposed.ProgressNote
	}

	return changes
}

// SingleField computes the entry for an inline edit of one field.
// Returns nil when the value did not change.
func SingleField(original domain.Task, field domain.Field, value string) *Change {
	changes := ComputeChanges(original, domain.FieldsOf(field, value))
	if len(changes) == 0 {
		return nil
	}
	return &changes[0]
}

// Form computes the entry for a full-form save. A single change keeps its
// own wording; several changes collapse into one aggregate entry whose
// detail lists every change line. Returns nil when nothing changed.
func Form(original domain.Task, proposed domain.TaskFields) *Change {
	changes := ComputeChanges(original, proposed)
	switch len(changes) {
	case 0:
		return nil
	case 1:
		return &changes[0]
	}

	lines := make([]string, len(changes))
	for i, c := range changes {
		lines[i] = c.Description
	}
	return &Change{
		Description: AggregateDescription,
		Detail:      strings.Join(lines, "\n"),
	}
}
