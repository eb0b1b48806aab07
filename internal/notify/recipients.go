// Package notify turns ticket events into per-user notifications delivered
// over the inbox, realtime push and email.
package notify

import (
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

// Notice is one notification addressed to one user.
type Notice struct {
	UserID string
	Email  string
	Type   domain.NotificationType
	Title  string
	// Reason selects the message template.
	Reason reason
	// SendEmail is true for creation, assignment, reassignment and status
	// change notices.
	SendEmail bool
}

type reason int

const (
	reasonCreatedOwner reason = iota
	reasonAssigned
	reasonReassignedAway
	reasonUpdated
	reasonStatusChanged
	reasonPriorityChanged
	reasonDeleted
	reasonComment
)

// Titles shown to recipients.
const (
	TitleCreated         = "Ticket created"
	TitleAssigned        = "New ticket assigned"
	TitleReassigned      = "Ticket reassigned"
	TitleUpdated         = "Ticket updated"
	TitleStatusChanged   = "Ticket status changed"
	TitlePriorityChanged = "Ticket priority changed"
	TitleDeleted         = "Ticket deleted"
	TitleComment         = "New comment"
)

// Recipients lists the notices an event produces, at most one per user.
func Recipients(e events.Event) []Notice {
	var b builder
	creator := e.Ticket.Client
	assignee := e.Ticket.Assignee

	switch e.Type {
	case events.EventTicketCreated:
		b.add(creator, domain.NotificationSuccess, TitleCreated, reasonCreatedOwner, true)
		if assignee != nil {
			b.add(*assignee, domain.NotificationInfo, TitleAssigned, reasonAssigned, true)
		}

	case events.EventTicketUpdated:
		b.add(creator, domain.NotificationInfo, TitleUpdated, reasonUpdated, false)
		if assignee != nil {
			b.add(*assignee, domain.NotificationInfo, TitleUpdated, reasonUpdated, false)
		}

	case events.EventTicketPriorityChanged:
		b.add(creator, domain.NotificationInfo, TitlePriorityChanged, reasonPriorityChanged, false)
		if assignee != nil {
			b.add(*assignee, domain.NotificationInfo, TitlePriorityChanged, reasonPriorityChanged, false)
		}

	case events.EventTicketStatusChanged:
		// A status change made through a comment never notifies its author.
		if e.CommentID != "" {
			b.skip(e.Actor.ID)
		}
		b.add(creator, domain.NotificationInfo, TitleStatusChanged, reasonStatusChanged, true)
		if assignee != nil && assignee.ID != e.Actor.ID {
			b.add(*assignee, domain.NotificationInfo, TitleStatusChanged, reasonStatusChanged, true)
		}

	case events.EventTicketAssigned, events.EventTicketReassigned:
		if assignee != nil {
			b.add(*assignee, domain.NotificationInfo, TitleAssigned, reasonAssigned, true)
		}
		if prev := e.PreviousAssignee; prev != nil && (assignee == nil || prev.ID != assignee.ID) {
			b.add(*prev, domain.NotificationWarning, TitleReassigned, reasonReassignedAway, true)
		}

	case events.EventTicketDeleted:
		b.add(creator, domain.NotificationWarning, TitleDeleted, reasonDeleted, false)
		prev := e.PreviousAssignee
		if prev == nil {
			prev = assignee
		}
		if prev != nil {
			b.add(*prev, domain.NotificationWarning, TitleDeleted, reasonDeleted, false)
		}

	case events.EventCommentAdded:
		b.skip(e.Actor.ID)
		b.add(creator, domain.NotificationInfo, TitleComment, reasonComment, false)
		if assignee != nil {
			b.add(*assignee, domain.NotificationInfo, TitleComment, reasonComment, false)
		}
	}
	return b.notices
}

type builder struct {
	notices []Notice
	seen    map[string]struct{}
}

func (b *builder) skip(userID string) {
	if b.seen == nil {
		b.seen = map[string]struct{}{}
	}
	b.seen[userID] = struct{}{}
}

func (b *builder) add(user domain.UserSummary, typ domain.NotificationType, title string, r reason, email bool) {
	if user.ID == "" {
		return
	}
	if _, dup := b.seen[user.ID]; dup {
		return
	}
	b.skip(user.ID)
	b.notices = append(b.notices, Notice{
		UserID:    user.ID,
		Email:     user.Email,
		Type:      typ,
		Title:     title,
		Reason:    r,
		SendEmail: email,
	})
}
