package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeCreated    TicketChangeType = "CREATED"
	ChangeTypeUpdated    TicketChangeType = "UPDATED"
	ChangeTypeStatus     TicketChangeType = "STATUS_CHANGE"
	ChangeTypePriority   TicketChangeType = "PRIORITY_CHANGE"
	ChangeTypeAssignment TicketChangeType = "ASSIGNMENT_CHANGE"
	ChangeTypeDeleted    TicketChangeType = "DELETED"
)

// TicketHistory is an immutable audit trail entry. Previous is nil for
// CREATED and Current is nil for DELETED.
type TicketHistory struct {
	ID         string
	TicketID   string
	ChangedBy  string
	ChangeType TicketChangeType
	Previous   map[string]any
	Current    map[string]any
	IPAddress  string
	UserAgent  string
	Notes      string
	CreatedAt  time.Time
}
