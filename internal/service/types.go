// Package service defines the backend-agnostic contract for task operations.
package service

// Status is the completion state of an entity.
type Status string

const (
	// StatusOpen marks an entity that still needs action.
	StatusOpen Status = "open"

	// StatusCompleted marks a finished entity.
	StatusCompleted Status = "completed"
)

// Entity is a single task as seen by either service. Optional fields are
// empty strings when absent; dates are RFC 3339 timestamps except Deadline,
// which is a bare YYYY-MM-DD date.
type Entity struct {
	ID           string
	CollectionID string
	Title        string
	Notes        string
	Due          string
	Deadline     string
	Status       Status
	CompletedAt  string

	// Source-service metadata used by eligibility rules. Mirror-side
	// backends leave these zero.
	Priority       int
	Labels         []string
	Recurring      bool
	RecurrenceText string
}

// Collection is a task list (Google Tasks) or project (Todoist).
// Virtual marks synthetic collections such as the Todoist inbox, which
// groups tasks without being addressable as a project.
type Collection struct {
	ID      string
	Name    string
	Virtual bool
}
