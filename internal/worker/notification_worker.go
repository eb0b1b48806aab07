package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/notify"
)

// StartNotificationWorker subscribes the notification fan-out to every
// ticket event published on dispatcher.
func StartNotificationWorker(dispatcher events.Dispatcher, fanout *notify.Fanout, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dispatcher == nil || fanout == nil {
		logger.Warn("notification worker not started; dispatcher or fan-out missing")
		return
	}
	fanout.RegisterHandlers(dispatcher)
	logger.Info("notification worker registered", zap.Int("event_types", len(events.AllTypes)))
}
