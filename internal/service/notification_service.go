package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const inboxLimit = 50

// NotificationService serves a user's inbox. Notifications are written by
// the event fan-out, never here.
type NotificationService struct {
	notifications repository.NotificationRepository
	logger        *zap.Logger
}

// NotificationDependencies bundles collaborators for the inbox service.
type NotificationDependencies struct {
	NotificationRepo repository.NotificationRepository
	Logger           *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{notifications: deps.NotificationRepo, logger: logger}
}

// List returns the newest notifications of userID.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool) ([]domain.NotificationView, error) {
	items, err := s.notifications.ListByUser(ctx, userID, repository.NotificationFilter{
		UnreadOnly: unreadOnly,
		Limit:      inboxLimit,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if items == nil {
		items = []domain.NotificationView{}
	}
	return items, nil
}

// MarkRead flags one notification owned by userID as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (*domain.Notification, error) {
	if err := requireID("id", notificationID); err != nil {
		return nil, err
	}
	n, err := s.notifications.MarkRead(ctx, notificationID, userID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "notification", map[string]any{"id": notificationID})
	}
	return n, nil
}

// Clear deletes every notification of userID and reports how many went.
func (s *NotificationService) Clear(ctx context.Context, userID string) (int64, error) {
	removed, err := s.notifications.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	s.logger.Debug("inbox cleared", zap.String("user_id", userID), zap.Int64("removed", removed))
	return removed, nil
}
