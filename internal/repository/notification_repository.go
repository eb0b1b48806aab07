package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// NotificationFilter narrows an inbox listing.
type NotificationFilter struct {
	UnreadOnly bool
	Limit      int
}

// NotificationRepository persists per-user notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID string, filter NotificationFilter) ([]domain.NotificationView, error)
	MarkRead(ctx context.Context, id, userID string) (*domain.Notification, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (user_id, type, title, message, read, ticket_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		n.UserID,
		n.Type,
		n.Title,
		n.Message,
		n.Read,
		n.TicketID,
	).Scan(&n.ID, &n.CreatedAt)
}

// ListByUser returns newest first with the ticket populated when it still exists.
func (r *notificationRepository) ListByUser(ctx context.Context, userID string, filter NotificationFilter) ([]domain.NotificationView, error) {
	query := `
        SELECT n.id, n.user_id, n.type, n.title, n.message, n.read, n.ticket_id, n.created_at,
               t.ticket_number, t.description
        FROM notifications n
        LEFT JOIN tickets t ON t.id = n.ticket_id
        WHERE n.user_id=$1`
	if filter.UnreadOnly {
		query += ` AND n.read = FALSE`
	}
	query += ` ORDER BY n.created_at DESC, n.id`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.NotificationView
	for rows.Next() {
		var (
			view        domain.NotificationView
			number      *string
			description *string
		)
		if err := rows.Scan(
			&view.ID,
			&view.UserID,
			&view.Type,
			&view.Title,
			&view.Message,
			&view.Read,
			&view.TicketID,
			&view.CreatedAt,
			&number,
			&description,
		); err != nil {
			return nil, err
		}
		if view.TicketID != nil && number != nil {
			view.Ticket = &domain.TicketRef{ID: *view.TicketID, TicketNumber: *number}
			if description != nil {
				view.Ticket.Description = *description
			}
		}
		result = append(result, view)
	}
	return result, rows.Err()
}

// MarkRead only matches notifications owned by userID.
func (r *notificationRepository) MarkRead(ctx context.Context, id, userID string) (*domain.Notification, error) {
	const query = `
        UPDATE notifications SET read = TRUE
        WHERE id=$1 AND user_id=$2
        RETURNING id, user_id, type, title, message, read, ticket_id, created_at`
	var n domain.Notification
	if err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.Title,
		&n.Message,
		&n.Read,
		&n.TicketID,
		&n.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE user_id=$1`, userID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
