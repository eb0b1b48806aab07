package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// SMTPMailer sends through an SMTP relay. TLSMode is one of "smtps",
// "starttls" or "none".
type SMTPMailer struct {
	cfg config.MailConfig
	now func() time.Time
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, now: time.Now}
}

func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = s.cfg.From
	}
	raw, err := Compose(msg, s.now())
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := s.dial()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := s.authenticate(client); err != nil {
		return err
	}

	sender := msg.From
	if addr, err := parseBare(sender); err == nil {
		sender = addr
	}
	if err := client.Mail(sender); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	for _, to := range msg.To {
		rcpt := to
		if addr, err := parseBare(to); err == nil {
			rcpt = addr
		}
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("set recipient %s: %w", to, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("start data: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}
	return client.Quit()
}

func (s *SMTPMailer) dial() (*smtp.Client, error) {
	tlsConfig := &tls.Config{
		ServerName:         s.cfg.Host,
		InsecureSkipVerify: s.cfg.SkipVerify, //nolint:gosec
	}

	switch s.cfg.TLSMode {
	case "smtps", "ssl", "tls":
		conn, err := tls.Dial("tcp", s.cfg.Addr(), tlsConfig)
		if err != nil {
			return nil, fmt.Errorf("connect via SMTPS: %w", err)
		}
		client, err := smtp.NewClient(conn, s.cfg.Host)
		if err != nil {
			return nil, fmt.Errorf("create SMTP client: %w", err)
		}
		return client, nil
	default:
		client, err := smtp.Dial(s.cfg.Addr())
		if err != nil {
			return nil, fmt.Errorf("connect to SMTP server: %w", err)
		}
		if s.cfg.TLSMode == "starttls" {
			if err := client.StartTLS(tlsConfig); err != nil {
				client.Close()
				return nil, fmt.Errorf("start TLS: %w", err)
			}
		}
		return client, nil
	}
}

func (s *SMTPMailer) authenticate(client *smtp.Client) error {
	if s.cfg.User == "" || s.cfg.Password == "" {
		return nil
	}

	var auth smtp.Auth
	switch strings.ToLower(strings.TrimSpace(s.cfg.AuthType)) {
	case "login":
		auth = &loginAuth{username: s.cfg.User, password: s.cfg.Password}
	default:
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	return nil
}

// loginAuth implements SMTP LOGIN authentication.
type loginAuth struct {
	username, password string
}

func (a *loginAuth) Start(_ *smtp.ServerInfo) (string, []byte, error) {
	return "LOGIN", []byte{}, nil
}

func (a *loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	switch string(fromServer) {
	case "Username:":
		return []byte(a.username), nil
	case "Password:":
		return []byte(a.password), nil
	}
	return nil, fmt.Errorf("unexpected server challenge: %s", fromServer)
}
