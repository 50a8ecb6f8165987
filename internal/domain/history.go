package domain

import "time"

// HistoryEntry is one append-only audit record for a task.
type HistoryEntry struct {
	ID                string
	TaskID            string
	ChangedAt         time.Time
	Actor             string
	ChangeDescription string
	ChangeDetail      string // empty when there is no supplementary detail
}

// ChangeDescriptionCreated is recorded once when a task is created.
const ChangeDescriptionCreated = "Task created."
