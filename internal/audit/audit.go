// Package audit writes the append-only ticket history.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Entry describes one mutation to record.
type Entry struct {
	TicketID   string
	ActorID    string
	ChangeType domain.TicketChangeType
	Previous   map[string]any
	Current    map[string]any
	Meta       domain.RequestMeta
	Notes      string
}

// RecorderDependencies wires the recorder.
type RecorderDependencies struct {
	Repo    repository.TicketHistoryRepository
	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// Recorder stores history entries on a best-effort basis.
type Recorder struct {
	repo    repository.TicketHistoryRepository
	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewRecorder(deps RecorderDependencies) *Recorder {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{repo: deps.Repo, logger: logger, metrics: deps.Metrics}
}

// Record stores entry. Failures are logged and counted, never returned: the
// mutation being recorded has already committed.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	history := &domain.TicketHistory{
		TicketID:   entry.TicketID,
		ChangedBy:  entry.ActorID,
		ChangeType: entry.ChangeType,
		Previous:   entry.Previous,
		Current:    entry.Current,
		IPAddress:  entry.Meta.IP,
		UserAgent:  entry.Meta.UserAgent,
		Notes:      entry.Notes,
	}
	if err := r.repo.Create(context.WithoutCancel(ctx), history); err != nil {
		r.metrics.RecordHistoryFailure()
		r.logger.Error("ticket history write failed",
			zap.String("ticket_id", entry.TicketID),
			zap.String("change_type", string(entry.ChangeType)),
			zap.Error(err))
	}
}

// Classify names the change from before to after. Status wins over priority,
// priority over assignment; anything else is a generic update.
func Classify(before, after *domain.Ticket) domain.TicketChangeType {
	switch {
	case before.Status != after.Status:
		return domain.ChangeTypeStatus
	case before.Priority != after.Priority:
		return domain.ChangeTypePriority
	case !sameRef(before.AssignedTo, after.AssignedTo):
		return domain.ChangeTypeAssignment
	default:
		return domain.ChangeTypeUpdated
	}
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
