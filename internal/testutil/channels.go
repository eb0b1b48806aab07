package testutil

import (
	"context"
	"sync"

	"github.com/spec-kit/helpdesk-service/internal/mail"
	"github.com/spec-kit/helpdesk-service/internal/realtime"
)

// Mailer records sent messages. When Err is set every Send fails.
type Mailer struct {
	mu   sync.Mutex
	sent []mail.Message
	Err  error
}

func (m *Mailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of the delivered messages.
func (m *Mailer) Sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

// SentTo returns the messages addressed to addr.
func (m *Mailer) SentTo(addr string) []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mail.Message
	for _, msg := range m.sent {
		for _, to := range msg.To {
			if to == addr {
				out = append(out, msg)
				break
			}
		}
	}
	return out
}

// Push is one recorded realtime emission.
type Push struct {
	UserID  string
	Channel string
	Event   string
	Payload any
}

// Pusher records realtime emissions. When Err is set every emit fails.
type Pusher struct {
	mu     sync.Mutex
	pushes []Push
	Err    error
}

func (p *Pusher) EmitToUser(_ context.Context, userID, event string, payload any) error {
	return p.record(Push{UserID: userID, Event: event, Payload: payload})
}

func (p *Pusher) EmitToChannel(_ context.Context, channel, event string, payload any) error {
	return p.record(Push{Channel: channel, Event: event, Payload: payload})
}

func (p *Pusher) record(push Push) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.pushes = append(p.pushes, push)
	return nil
}

// Pushes returns a copy of the recorded emissions.
func (p *Pusher) Pushes() []Push {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Push(nil), p.pushes...)
}

// ToUser returns the emissions addressed to userID.
func (p *Pusher) ToUser(userID string) []Push {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Push
	for _, push := range p.pushes {
		if push.UserID == userID {
			out = append(out, push)
		}
	}
	return out
}

var (
	_ mail.Mailer     = (*Mailer)(nil)
	_ realtime.Pusher = (*Pusher)(nil)
)
