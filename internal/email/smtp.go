package email

import (
	"context"
	"crypto/tls"
	"fmt"

	"gopkg.in/mail.v2"

	"github.com/ceodesk/errnotify/internal/config"
)

// dialer opens an authenticated SMTP session. *mail.Dialer satisfies it.
type dialer interface {
	Dial() (mail.SendCloser, error)
}

// SMTPSender implements Sender over SMTP with STARTTLS and login.
// Every Send opens its own session and closes it before returning.
type SMTPSender struct {
	dialer dialer
	addr   string
}

// NewSMTPSender creates a new SMTPSender. Sessions fail unless the server
// upgrades the connection with STARTTLS (or port 465 is used). It fails with
// config.ErrMissingCredentials before touching the network when the
// username or password is empty.
func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	// Credentials never go over an unencrypted connection.
	d.StartTLSPolicy = mail.MandatoryStartTLS
	if cfg.InsecureSkipVerify {
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true, ServerName: cfg.Host}
	}

	return &SMTPSender{dialer: d, addr: cfg.Addr()}, nil
}

// Send dials the server, upgrades the connection, authenticates and sends
// msg as a single multipart/alternative email.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("smtp: %w", err)
	}

	m := newMIMEMessage(msg)

	session, err := s.dialer.Dial()
	if err != nil {
		return fmt.Errorf("smtp: failed to open session with %s: %w", s.addr, err)
	}
	// The server has already accepted the message by the time QUIT is sent,
	// so a close failure does not fail the send.
	defer func() { _ = session.Close() }()

	if err := mail.Send(session, m); err != nil {
		return fmt.Errorf("smtp: failed to send email: %w", err)
	}

	return nil
}
