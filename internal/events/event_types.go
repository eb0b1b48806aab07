package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketUpdated         EventType = "ticket_updated"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketReassigned      EventType = "ticket_reassigned"
	EventTicketDeleted         EventType = "ticket_deleted"
	EventCommentAdded          EventType = "ticket_comment_added"
)

// AllTypes lists every event type.
var AllTypes = []EventType{
	EventTicketCreated,
	EventTicketUpdated,
	EventTicketStatusChanged,
	EventTicketPriorityChanged,
	EventTicketAssigned,
	EventTicketReassigned,
	EventTicketDeleted,
	EventCommentAdded,
}

// Event represents a ticket transition emitted by the lifecycle service.
// Ticket is the post-mutation view, or the last known view for deletions.
type Event struct {
	ID        string
	Type      EventType
	Ticket    domain.TicketView
	Actor     domain.Actor
	Timestamp time.Time

	// PreviousAssignee is set on reassignment and deletion.
	PreviousAssignee *domain.UserSummary

	OldStatus   domain.TicketStatus
	NewStatus   domain.TicketStatus
	OldPriority domain.TicketPriority
	NewPriority domain.TicketPriority

	// Comment is the free text attached to a status change or comment.
	Comment   string
	CommentID string
}
