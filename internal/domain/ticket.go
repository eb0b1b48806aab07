package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusCancelled  TicketStatus = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusPending, TicketStatusInProgress, TicketStatusResolved, TicketStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is expected from s.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusResolved || s == TicketStatusCancelled
}

// Label is the human-readable status used in notifications.
func (s TicketStatus) Label() string {
	switch s {
	case TicketStatusPending:
		return "Pending"
	case TicketStatusInProgress:
		return "In progress"
	case TicketStatusResolved:
		return "Resolved"
	case TicketStatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// Subcategory is the classification embedded on a ticket.
type Subcategory struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Detail      *SubcategoryDetail `json:"detail,omitempty"`
}

// DetailName returns the detail name or "" when none was selected.
func (s Subcategory) DetailName() string {
	if s.Detail == nil {
		return ""
	}
	return s.Detail.Name
}

// Attachment is stored file metadata.
type Attachment struct {
	FileName    string `json:"filename"`
	StoragePath string `json:"path"`
	MimeType    string `json:"mimetype"`
	SizeBytes   int64  `json:"size_bytes"`
}

// Ticket is the aggregate for support requests. Foreign keys are ids only;
// see TicketView for the populated form.
type Ticket struct {
	ID           string
	TicketNumber string
	Description  string
	CategoryID   string
	Subcategory  Subcategory
	Priority     TicketPriority
	Status       TicketStatus
	AreaID       *string
	ClientID     string
	AssignedTo   *string
	Attachment   *Attachment
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAssignedTo reports whether userID is the assigned agent.
func (t *Ticket) IsAssignedTo(userID string) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// InArea reports whether the ticket has been routed to areaID.
func (t *Ticket) InArea(areaID *string) bool {
	return areaID != nil && t.AreaID != nil && *t.AreaID == *areaID
}

// Snapshot is the audit representation of the ticket state.
func (t *Ticket) Snapshot() map[string]any {
	snap := map[string]any{
		"ticket_number": t.TicketNumber,
		"description":   t.Description,
		"category_id":   t.CategoryID,
		"subcategory":   t.Subcategory,
		"priority":      t.Priority,
		"status":        t.Status,
		"client_id":     t.ClientID,
		"area_id":       derefOrNil(t.AreaID),
		"assigned_to":   derefOrNil(t.AssignedTo),
	}
	if t.Attachment != nil {
		snap["attachment"] = *t.Attachment
	}
	return snap
}

// Clone returns a deep copy safe to mutate.
func (t *Ticket) Clone() *Ticket {
	c := *t
	c.AreaID = cloneString(t.AreaID)
	c.AssignedTo = cloneString(t.AssignedTo)
	if t.Subcategory.Detail != nil {
		d := *t.Subcategory.Detail
		c.Subcategory.Detail = &d
	}
	if t.Attachment != nil {
		a := *t.Attachment
		c.Attachment = &a
	}
	return &c
}

// TicketView is a ticket with its references populated.
type TicketView struct {
	Ticket
	Client   UserSummary
	Assignee *UserSummary
	Category CategorySummary
	Area     *AreaSummary
}

// TicketRef is the short populated form used on notifications.
type TicketRef struct {
	ID           string `json:"id"`
	TicketNumber string `json:"ticket_number"`
	Description  string `json:"description"`
}

func derefOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
