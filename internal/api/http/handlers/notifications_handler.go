package handlers

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/realtime"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const streamHeartbeat = 25 * time.Second

// Subscriber opens a realtime subscription for one user.
type Subscriber interface {
	Subscribe(ctx context.Context, userID string, broadcasts ...string) (*realtime.Subscription, error)
}

// NotificationsHandler serves the caller's inbox and realtime stream.
type NotificationsHandler struct {
	service    *service.NotificationService
	subscriber Subscriber
	logger     *zap.Logger
}

// NewNotificationsHandler constructs handler. Without a subscriber the
// stream endpoint answers 503.
func NewNotificationsHandler(notificationService *service.NotificationService, subscriber Subscriber, logger *zap.Logger) *NotificationsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationsHandler{service: notificationService, subscriber: subscriber, logger: logger}
}

// List GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	return h.list(c, false)
}

// Unread GET /notifications/unread.
func (h *NotificationsHandler) Unread(c *fiber.Ctx) error {
	return h.list(c, true)
}

func (h *NotificationsHandler) list(c *fiber.Ctx, unreadOnly bool) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	items, err := h.service.List(c.UserContext(), a.ID, unreadOnly)
	if err != nil {
		return err
	}
	resp := make([]dto.NotificationResponse, 0, len(items))
	for i := range items {
		resp = append(resp, notificationResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// MarkRead PUT /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	n, err := h.service.MarkRead(c.UserContext(), a.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": notificationResponse(&domain.NotificationView{Notification: *n})})
}

// Clear DELETE /notifications.
func (h *NotificationsHandler) Clear(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	removed, err := h.service.Clear(c.UserContext(), a.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"removed": removed}})
}

// Stream GET /notifications/stream relays the caller's realtime channel as
// server-sent events. Admins also receive the admin broadcast channel.
func (h *NotificationsHandler) Stream(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	if h.subscriber == nil {
		return apperrors.NewDomainError("STREAM_UNAVAILABLE", "realtime stream unavailable", fiber.StatusServiceUnavailable, nil)
	}

	var broadcasts []string
	if a.Role == domain.RoleAdmin {
		broadcasts = append(broadcasts, realtime.ChannelAdmins)
	}

	// The body is written after the handler returns, so the stream owns its
	// own context.
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := h.subscriber.Subscribe(ctx, a.ID, broadcasts...)
	if err != nil {
		cancel()
		return apperrors.NewInternalError(err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	userID := a.ID
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer sub.Close()

		ticker := time.NewTicker(streamHeartbeat)
		defer ticker.Stop()

		if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil || w.Flush() != nil {
			return
		}
		for {
			select {
			case env, ok := <-sub.Events():
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", env.Event, env.Payload); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
			}
			if err := w.Flush(); err != nil {
				h.logger.Debug("notification stream closed", zap.String("user_id", userID))
				return
			}
		}
	})
	return nil
}
