package diff_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/tasktrack/internal/diff"
	"github.com/mtlprog/tasktrack/internal/domain"
)

func strPtr(s string) *string { return &s }

func statusPtr(s domain.TaskStatus) *domain.TaskStatus { return &s }

func baseTask() domain.Task {
	return domain.Task{
		ID:             "task-1",
		OwnerID:        "user-1",
		TaskName:       "Ship v2",
		PersonInCharge: "Alice",
		Status:         domain.TaskStatusOngoing,
		CreatedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestComputeChanges_NoChange(t *testing.T) {
	task := baseTask()

	changes := diff.ComputeChanges(task, domain.TaskFields{
		TaskName:       strPtr("Ship v2"),
		PersonInCharge: strPtr("Alice"),
		Description:    strPtr(""),
		Status:         statusPtr(domain.TaskStatusOngoing),
		ProgressNote:   strPtr(""),
	})

	assert.Empty(t, changes)
}

func TestComputeChanges_NoNormalization(t *testing.T) {
	task := baseTask()

	changes := diff.ComputeChanges(task, domain.TaskFields{TaskName: strPtr("Ship v2 ")})

	require.Len(t, changes, 1)
	assert.Equal(t, `Task name changed from "Ship v2" to "Ship v2 ".`, changes[0].Description)
}

func TestComputeChanges_FieldOrder(t *testing.T) {
	task := baseTask()
	task.Description = "old"
	task.ProgressNote = "old note"

	changes := diff.ComputeChanges(task, domain.TaskFields{
		ProgressNote:   strPtr("new note"),
		Status:         statusPtr(domain.TaskStatusDone),
		Description:    strPtr("new"),
		PersonInCharge: strPtr("Bob"),
		TaskName:       strPtr("Ship v3"),
	})

	require.Len(t, changes, 5)
	assert.Equal(t, []string{
		`Task name changed from "Ship v2" to "Ship v3".`,
		`PIC changed from "Alice" to "Bob".`,
		"Description updated.",
		`Status changed from "On-going" to "Done".`,
		"Progress note updated.",
	}, descriptions(changes))
	assert.Empty(t, changes[4].Detail, "progress detail only attaches when it is the sole change")
}

func TestSingleField(t *testing.T) {
	tests := []struct {
		name       string
		field      domain.Field
		value      string
		wantDesc   string
		wantDetail string
	}{
		{"task name", domain.FieldTaskName, "Ship v2.1", `Task name changed from "Ship v2" to "Ship v2.1".`, ""},
		{"pic", domain.FieldPersonInCharge, "Bob", `PIC changed from "Alice" to "Bob".`, ""},
		{"description", domain.FieldDescription, "Roll out to all regions", "Description updated.", ""},
		{"status", domain.FieldStatus, "Done", `Status changed from "On-going" to "Done".`, ""},
		{"progress note", domain.FieldProgressNote, "Staging passed", "Progress note updated.", "Staging passed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change := diff.SingleField(baseTask(), tt.field, tt.value)
			require.NotNil(t, change)
			assert.Equal(t, tt.wantDesc, change.Description)
			assert.Equal(t, tt.wantDetail, change.Detail)
		})
	}
}

func TestSingleField_SameValueIsNil(t *testing.T) {
	assert.Nil(t, diff.SingleField(baseTask(), domain.FieldStatus, "On-going"))
	assert.Nil(t, diff.SingleField(baseTask(), domain.FieldProgressNote, ""))
}

func TestForm_SingleChangeMatchesSingleField(t *testing.T) {
	task := baseTask()

	form := diff.Form(task, domain.TaskFields{
		TaskName:       strPtr("Ship v2"),
		PersonInCharge: strPtr("Alice"),
		Status:         statusPtr(domain.TaskStatusOngoing),
		ProgressNote:   strPtr("Staging passed"),
	})
	single := diff.SingleField(task, domain.FieldProgressNote, "Staging passed")

	require.NotNil(t, form)
	require.NotNil(t, single)
	assert.Equal(t, *single, *form)
}

func TestForm_Aggregate(t *testing.T) {
	task := baseTask()

	change := diff.Form(task, domain.TaskFields{
		TaskName: strPtr("Ship v2.1"),
		Status:   statusPtr(domain.TaskStatusHold),
	})

	require.NotNil(t, change)
	assert.Equal(t, diff.AggregateDescription, change.Description)
	assert.Equal(t,
		"Task name changed from \"Ship v2\" to \"Ship v2.1\".\nStatus changed from \"On-going\" to \"Hold\".",
		change.Detail,
	)
}

func TestForm_AggregateProgressNoteHasNoOwnDetail(t *testing.T) {
	task := baseTask()

	change := diff.Form(task, domain.TaskFields{
		PersonInCharge: strPtr("Bob"),
		ProgressNote:   strPtr("Blocked on review"),
	})

	require.NotNil(t, change)
	assert.Equal(t, "PIC changed from \"Alice\" to \"Bob\".\nProgress note updated.", change.Detail)
}

func TestForm_NoChange(t *testing.T) {
	assert.Nil(t, diff.Form(baseTask(), domain.TaskFields{TaskName: strPtr("Ship v2")}))
	assert.Nil(t, diff.Form(baseTask(), domain.TaskFields{}))
}

func descriptions(changes []diff.Change) []string {
	out := make([]string, len(changes))
	for i, c := range changes {
		out[i] = c.Description
	}
	return out
}
