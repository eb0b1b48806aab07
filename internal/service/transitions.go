package service

import (
	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// allowedTransitions applies only when strict transitions are enabled.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusPending:    {domain.TicketStatusInProgress, domain.TicketStatusCancelled},
	domain.TicketStatusInProgress: {domain.TicketStatusResolved, domain.TicketStatusCancelled},
	domain.TicketStatusResolved:   {},
	domain.TicketStatusCancelled:  {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

func (s *TicketService) checkTransition(current, next domain.TicketStatus) error {
	if !next.Valid() {
		return invalidEnum("status", string(next))
	}
	if s.strict && !isValidTransition(current, next) {
		return apperrors.NewValidationError("invalid status transition", map[string]any{
			"from": current,
			"to":   next,
		})
	}
	return nil
}
