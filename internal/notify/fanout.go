package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/mail"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/realtime"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Realtime event names.
const (
	EventNewNotification = "new-notification"
	EventTicketCreated   = "ticket-created"
)

// Delivery channel labels.
const (
	channelStore    = "store"
	channelRealtime = "realtime"
	channelMail     = "mail"
)

// Payload is the realtime form of a notification.
type Payload struct {
	ID        string            `json:"id,omitempty"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Read      bool              `json:"read"`
	Ticket    *domain.TicketRef `json:"ticket,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// FanoutDependencies wires the fan-out.
type FanoutDependencies struct {
	Notifications repository.NotificationRepository
	Pusher        realtime.Pusher
	Mailer        mail.Mailer
	MailFrom      string
	Logger        *zap.Logger
	Metrics       *observability.Metrics
}

// Fanout delivers the notices of each event. Every channel of every notice
// runs independently; failures are logged and counted, never returned.
type Fanout struct {
	notifications repository.NotificationRepository
	pusher        realtime.Pusher
	mailer        mail.Mailer
	mailFrom      string
	logger        *zap.Logger
	metrics       *observability.Metrics
	now           func() time.Time
}

func NewFanout(deps FanoutDependencies) *Fanout {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{
		notifications: deps.Notifications,
		pusher:        deps.Pusher,
		mailer:        deps.Mailer,
		mailFrom:      deps.MailFrom,
		logger:        logger,
		metrics:       deps.Metrics,
		now:           time.Now,
	}
}

// RegisterHandlers subscribes the fan-out to every ticket event.
func (f *Fanout) RegisterHandlers(d events.Dispatcher) {
	if d == nil {
		return
	}
	events.SubscribeAll(d, f.Handle)
}

// Handle delivers e and waits for every channel to finish.
func (f *Fanout) Handle(ctx context.Context, e events.Event) error {
	ctx = context.WithoutCancel(ctx)
	notices := Recipients(e)

	var g errgroup.Group
	for _, n := range notices {
		n := n
		note := f.build(n, e)

		g.Go(func() error {
			f.store(ctx, note)
			f.push(ctx, note, e)
			return nil
		})
		if n.SendEmail {
			g.Go(func() error {
				f.email(ctx, n, e)
				return nil
			})
		}
	}
	if e.Type == events.EventTicketCreated {
		g.Go(func() error {
			f.broadcastCreated(ctx, e)
			return nil
		})
	}
	_ = g.Wait()

	f.logger.Debug("ticket event delivered",
		zap.String("event", string(e.Type)),
		zap.String("ticket_id", e.Ticket.ID),
		zap.Int("recipients", len(notices)))
	return nil
}

func (f *Fanout) build(n Notice, e events.Event) *domain.Notification {
	ticketID := e.Ticket.ID
	note := &domain.Notification{
		UserID:    n.UserID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   message(n, e),
		CreatedAt: f.now(),
	}
	if ticketID != "" {
		note.TicketID = &ticketID
	}
	return note
}

// store persists note. The realtime push follows regardless of the outcome.
func (f *Fanout) store(ctx context.Context, note *domain.Notification) {
	err := f.notifications.Create(ctx, note)
	f.metrics.RecordDelivery(channelStore, err)
	if err != nil {
		f.logger.Error("store notification failed", zap.String("user_id", note.UserID), zap.Error(err))
	}
}

func (f *Fanout) push(ctx context.Context, note *domain.Notification, e events.Event) {
	if f.pusher == nil {
		return
	}
	payload := Payload{
		ID:        note.ID,
		Type:      string(note.Type),
		Title:     note.Title,
		Message:   note.Message,
		CreatedAt: note.CreatedAt,
	}
	if e.Ticket.ID != "" {
		payload.Ticket = &domain.TicketRef{ID: e.Ticket.ID, TicketNumber: e.Ticket.TicketNumber, Description: e.Ticket.Description}
	}
	err := f.pusher.EmitToUser(ctx, note.UserID, EventNewNotification, payload)
	f.metrics.RecordDelivery(channelRealtime, err)
	if err != nil {
		f.logger.Warn("realtime push failed", zap.String("user_id", note.UserID), zap.Error(err))
	}
}

func (f *Fanout) email(ctx context.Context, n Notice, e events.Event) {
	if f.mailer == nil || n.Email == "" {
		return
	}
	subject, body, err := renderEmail(n, e)
	if err == nil {
		err = f.mailer.Send(ctx, mail.Message{
			From:    f.mailFrom,
			To:      []string{n.Email},
			Subject: subject,
			Body:    body,
		})
	}
	f.metrics.RecordDelivery(channelMail, err)
	if err != nil {
		f.logger.Warn("notification email failed",
			zap.String("user_id", n.UserID),
			zap.String("ticket_number", e.Ticket.TicketNumber),
			zap.Error(err))
	}
}

func (f *Fanout) broadcastCreated(ctx context.Context, e events.Event) {
	if f.pusher == nil {
		return
	}
	payload := struct {
		Ticket   domain.TicketRef `json:"ticket"`
		Priority string           `json:"priority"`
		Area     string           `json:"area,omitempty"`
		Client   string           `json:"client"`
	}{
		Ticket:   domain.TicketRef{ID: e.Ticket.ID, TicketNumber: e.Ticket.TicketNumber, Description: e.Ticket.Description},
		Priority: string(e.Ticket.Priority),
		Client:   e.Ticket.Client.Name,
	}
	if e.Ticket.Area != nil {
		payload.Area = e.Ticket.Area.Name
	}
	err := f.pusher.EmitToChannel(ctx, realtime.ChannelAdmins, EventTicketCreated, payload)
	f.metrics.RecordDelivery(channelRealtime, err)
	if err != nil {
		f.logger.Warn("admin broadcast failed", zap.String("ticket_id", e.Ticket.ID), zap.Error(err))
	}
}
