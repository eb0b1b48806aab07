package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/notify"
	"github.com/spec-kit/helpdesk-service/internal/testutil"
)

func TestStartNotificationWorkerDeliversEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	notifications := testutil.NewNotificationRepo()
	fanout := notify.NewFanout(notify.FanoutDependencies{Notifications: notifications})

	StartNotificationWorker(dispatcher, fanout, nil)

	err := dispatcher.Publish(context.Background(), events.Event{
		Type: events.EventTicketUpdated,
		Ticket: domain.TicketView{
			Ticket: domain.Ticket{ID: "t1", TicketNumber: "TKT-1"},
			Client: domain.UserSummary{ID: "client-1", Name: "Client"},
		},
		Actor: domain.Actor{ID: "client-1", Role: domain.RoleUser},
	})
	require.NoError(t, err)

	stored := notifications.For("client-1")
	require.Len(t, stored, 1)
	assert.Equal(t, notify.TitleUpdated, stored[0].Title)
}

func TestStartNotificationWorkerWithoutFanout(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	assert.NotPanics(t, func() { StartNotificationWorker(dispatcher, nil, zap.NewNop()) })
}
