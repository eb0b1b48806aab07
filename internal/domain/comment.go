package domain

import "time"

// StatusChange records a transition carried by a comment.
type StatusChange struct {
	OldStatus TicketStatus `json:"old_status"`
	NewStatus TicketStatus `json:"new_status"`
}

// Comment is a ticket-scoped discussion entry.
type Comment struct {
	ID           string
	TicketID     string
	AuthorID     string
	Text         string
	Attachment   *Attachment
	StatusChange *StatusChange
	CreatedAt    time.Time
}

// CommentView is a comment with its author populated.
type CommentView struct {
	Comment
	Author UserSummary
}
