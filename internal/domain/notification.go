package domain

import "time"

// NotificationType is the severity shown to the recipient.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// Notification is a per-user delivery record.
type Notification struct {
	ID        string
	UserID    string
	Type      NotificationType
	Title     string
	Message   string
	Read      bool
	TicketID  *string
	CreatedAt time.Time
}

// NotificationView is a notification with its ticket populated.
type NotificationView struct {
	Notification
	Ticket *TicketRef
}
