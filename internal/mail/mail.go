// Package mail composes and delivers outbound notification email.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gomail "github.com/emersion/go-message/mail"
	"go.uber.org/zap"
)

// Message is a plain-text email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Mailer delivers messages. Implementations do not retry.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ErrNoRecipients is returned for a message without To addresses.
var ErrNoRecipients = errors.New("no recipients specified")

// Compose renders msg as an RFC 5322 message with a single text/plain part.
func Compose(msg Message, now time.Time) ([]byte, error) {
	if len(msg.To) == 0 {
		return nil, ErrNoRecipients
	}

	from, err := gomail.ParseAddress(msg.From)
	if err != nil {
		return nil, fmt.Errorf("parse from address: %w", err)
	}
	to := make([]*gomail.Address, 0, len(msg.To))
	for _, addr := range msg.To {
		parsed, err := gomail.ParseAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("parse recipient %q: %w", addr, err)
		}
		to = append(to, parsed)
	}

	var h gomail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*gomail.Address{from})
	h.SetAddressList("To", to)
	h.SetSubject(msg.Subject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := gomail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create message writer: %w", err)
	}
	if _, err := io.WriteString(w, msg.Body); err != nil {
		return nil, fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close message writer: %w", err)
	}
	return buf.Bytes(), nil
}

// LogMailer stands in when SMTP delivery is disabled.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	m.logger.Debug("mail delivery disabled; dropping message",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}
