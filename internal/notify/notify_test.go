package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/realtime"
	"github.com/spec-kit/helpdesk-service/internal/testutil"
)

var (
	client = domain.UserSummary{ID: "client", Name: "Ana Client", Email: "ana@example.com"}
	agentA = domain.UserSummary{ID: "agent-a", Name: "Agent A", Email: "a@example.com"}
	agentB = domain.UserSummary{ID: "agent-b", Name: "Agent B", Email: "b@example.com"}
)

func view(assignee *domain.UserSummary) domain.TicketView {
	v := domain.TicketView{
		Ticket: domain.Ticket{
			ID:           "t1",
			TicketNumber: "TKT-1700000000000",
			Description:  "Suspicious email",
			Priority:     domain.TicketPriorityMedium,
			Status:       domain.TicketStatusPending,
			Subcategory:  domain.Subcategory{Name: "Security", Detail: &domain.SubcategoryDetail{Name: "Phishing"}},
		},
		Client:   client,
		Assignee: assignee,
		Category: domain.CategorySummary{ID: "c1", Name: "Incidents (Technology)"},
		Area:     &domain.AreaSummary{ID: "ar1", Name: "Risk & Security"},
	}
	return v
}

func userIDs(notices []Notice) []string {
	ids := make([]string, len(notices))
	for i, n := range notices {
		ids[i] = n.UserID
	}
	return ids
}

func TestRecipientsCreated(t *testing.T) {
	notices := Recipients(events.Event{Type: events.EventTicketCreated, Ticket: view(&agentA), Actor: domain.Actor{ID: client.ID}})
	require.Len(t, notices, 2)
	assert.Equal(t, domain.NotificationSuccess, notices[0].Type)
	assert.Equal(t, client.ID, notices[0].UserID)
	assert.Equal(t, domain.NotificationInfo, notices[1].Type)
	assert.Equal(t, agentA.ID, notices[1].UserID)
	assert.True(t, notices[0].SendEmail)
	assert.True(t, notices[1].SendEmail)
}

func TestRecipientsReassignmentNotifiesBothAgents(t *testing.T) {
	notices := Recipients(events.Event{
		Type:             events.EventTicketReassigned,
		Ticket:           view(&agentB),
		PreviousAssignee: &agentA,
	})
	require.Len(t, notices, 2)
	assert.Equal(t, agentB.ID, notices[0].UserID)
	assert.Equal(t, domain.NotificationInfo, notices[0].Type)
	assert.Equal(t, TitleAssigned, notices[0].Title)
	assert.Equal(t, agentA.ID, notices[1].UserID)
	assert.Equal(t, domain.NotificationWarning, notices[1].Type)
	assert.Equal(t, TitleReassigned, notices[1].Title)
}

func TestRecipientsUnassignNotifiesPreviousOnly(t *testing.T) {
	notices := Recipients(events.Event{Type: events.EventTicketReassigned, Ticket: view(nil), PreviousAssignee: &agentA})
	assert.Equal(t, []string{agentA.ID}, userIDs(notices))
}

func TestRecipientsDeleted(t *testing.T) {
	notices := Recipients(events.Event{Type: events.EventTicketDeleted, Ticket: view(&agentA), PreviousAssignee: &agentA})
	assert.Equal(t, []string{client.ID, agentA.ID}, userIDs(notices))
	for _, n := range notices {
		assert.Equal(t, domain.NotificationWarning, n.Type)
		assert.False(t, n.SendEmail)
	}
}

func TestRecipientsCommentExcludesAuthor(t *testing.T) {
	notices := Recipients(events.Event{Type: events.EventCommentAdded, Ticket: view(&agentA), Actor: domain.Actor{ID: agentA.ID}})
	assert.Equal(t, []string{client.ID}, userIDs(notices))

	notices = Recipients(events.Event{Type: events.EventCommentAdded, Ticket: view(&agentA), Actor: domain.Actor{ID: client.ID}})
	assert.Equal(t, []string{agentA.ID}, userIDs(notices))
}

func TestRecipientsStatusChange(t *testing.T) {
	byAgent := Recipients(events.Event{Type: events.EventTicketStatusChanged, Ticket: view(&agentA), Actor: domain.Actor{ID: agentA.ID}})
	assert.Equal(t, []string{client.ID}, userIDs(byAgent))

	bySupervisor := Recipients(events.Event{Type: events.EventTicketStatusChanged, Ticket: view(&agentA), Actor: domain.Actor{ID: "sup"}})
	assert.Equal(t, []string{client.ID, agentA.ID}, userIDs(bySupervisor))

	viaClientComment := Recipients(events.Event{
		Type:      events.EventTicketStatusChanged,
		Ticket:    view(&agentA),
		Actor:     domain.Actor{ID: client.ID},
		CommentID: "c1",
	})
	assert.Equal(t, []string{agentA.ID}, userIDs(viaClientComment))
}

func TestRecipientsDeduplicateSelfAssigned(t *testing.T) {
	self := client
	notices := Recipients(events.Event{Type: events.EventTicketUpdated, Ticket: view(&self)})
	assert.Equal(t, []string{client.ID}, userIDs(notices))
}

func TestRenderStatusEmail(t *testing.T) {
	e := events.Event{
		Type:      events.EventTicketStatusChanged,
		Ticket:    view(&agentA),
		OldStatus: domain.TicketStatusPending,
		NewStatus: domain.TicketStatusResolved,
		Comment:   "Blocked the sender",
	}
	n := Recipients(e)[0]
	subject, body, err := renderEmail(n, e)
	require.NoError(t, err)
	assert.Equal(t, "[TKT-1700000000000] Ticket status changed", subject)
	assert.Contains(t, body, "Status change: Pending -> Resolved")
	assert.Contains(t, body, "Comment: Blocked the sender")
	assert.Contains(t, body, "Detail: Phishing")
	assert.Contains(t, body, "Area: Risk & Security")
}

func newFanout(store *testutil.NotificationRepo, pusher *testutil.Pusher, mailer *testutil.Mailer) *Fanout {
	return NewFanout(FanoutDependencies{
		Notifications: store,
		Pusher:        pusher,
		Mailer:        mailer,
		MailFrom:      "noreply@example.com",
	})
}

func TestFanoutDeliversAllChannels(t *testing.T) {
	store := testutil.NewNotificationRepo()
	pusher := &testutil.Pusher{}
	mailer := &testutil.Mailer{}
	f := newFanout(store, pusher, mailer)

	require.NoError(t, f.Handle(context.Background(), events.Event{Type: events.EventTicketCreated, Ticket: view(&agentA)}))

	assert.Len(t, store.For(client.ID), 1)
	assert.Len(t, store.For(agentA.ID), 1)
	assert.Len(t, pusher.ToUser(client.ID), 1)
	assert.Len(t, pusher.ToUser(agentA.ID), 1)
	assert.Len(t, mailer.SentTo(client.Email), 1)
	assert.Len(t, mailer.SentTo(agentA.Email), 1)

	var broadcast []testutil.Push
	for _, p := range pusher.Pushes() {
		if p.Channel == realtime.ChannelAdmins {
			broadcast = append(broadcast, p)
		}
	}
	require.Len(t, broadcast, 1)
	assert.Equal(t, EventTicketCreated, broadcast[0].Event)

	payload, ok := pusher.ToUser(client.ID)[0].Payload.(Payload)
	require.True(t, ok)
	assert.NotEmpty(t, payload.ID)
	assert.Equal(t, TitleCreated, payload.Title)
}

func TestFanoutChannelsFailIndependently(t *testing.T) {
	t.Run("mail down", func(t *testing.T) {
		store := testutil.NewNotificationRepo()
		pusher := &testutil.Pusher{}
		f := newFanout(store, pusher, &testutil.Mailer{Err: testutil.ErrInjected})

		require.NoError(t, f.Handle(context.Background(), events.Event{Type: events.EventTicketReassigned, Ticket: view(&agentB), PreviousAssignee: &agentA}))
		assert.Len(t, store.All(), 2)
		assert.Len(t, pusher.Pushes(), 2)
	})

	t.Run("store down", func(t *testing.T) {
		store := testutil.NewNotificationRepo()
		store.FailCreate = testutil.ErrInjected
		pusher := &testutil.Pusher{}
		mailer := &testutil.Mailer{}
		f := newFanout(store, pusher, mailer)

		require.NoError(t, f.Handle(context.Background(), events.Event{Type: events.EventTicketReassigned, Ticket: view(&agentB), PreviousAssignee: &agentA}))
		assert.Empty(t, store.All())
		assert.Len(t, pusher.Pushes(), 2)
		assert.Len(t, mailer.Sent(), 2)
	})

	t.Run("push down", func(t *testing.T) {
		store := testutil.NewNotificationRepo()
		mailer := &testutil.Mailer{}
		f := newFanout(store, &testutil.Pusher{Err: testutil.ErrInjected}, mailer)

		require.NoError(t, f.Handle(context.Background(), events.Event{Type: events.EventTicketCreated, Ticket: view(nil)}))
		assert.Len(t, store.All(), 1)
		assert.Len(t, mailer.Sent(), 1)
	})
}

func TestFanoutSkipsEmailForComments(t *testing.T) {
	store := testutil.NewNotificationRepo()
	mailer := &testutil.Mailer{}
	f := newFanout(store, &testutil.Pusher{}, mailer)

	require.NoError(t, f.Handle(context.Background(), events.Event{
		Type:   events.EventCommentAdded,
		Ticket: view(&agentA),
		Actor:  domain.Actor{ID: client.ID},
	}))
	assert.Empty(t, mailer.Sent())
	notes := store.For(agentA.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, TitleComment, notes[0].Title)
	require.NotNil(t, notes[0].TicketID)
	assert.Equal(t, "t1", *notes[0].TicketID)
}

func TestRegisterHandlers(t *testing.T) {
	store := testutil.NewNotificationRepo()
	f := newFanout(store, &testutil.Pusher{}, &testutil.Mailer{})
	d := events.NewInMemoryDispatcher(nil)
	f.RegisterHandlers(d)

	require.NoError(t, d.Publish(context.Background(), events.Event{Type: events.EventTicketDeleted, Ticket: view(&agentA)}))
	assert.Len(t, store.All(), 2)
}
