package email

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/mail.v2"

	"github.com/ceodesk/errnotify/internal/config"
)

type fakeSession struct {
	from    string
	to      []string
	raw     bytes.Buffer
	sendErr error
	closed  int
}

func (s *fakeSession) Send(from string, to []string, msg io.WriterTo) error {
	s.from = from
	s.to = to
	if s.sendErr != nil {
		return s.sendErr
	}
	_, err := msg.WriteTo(&s.raw)
	return err
}

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

type fakeDialer struct {
	session *fakeSession
	err     error
	dials   int
}

func (d *fakeDialer) Dial() (mail.SendCloser, error) {
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	return d.session, nil
}

func alertMessage() Message {
	return Message{
		From:     "alerts@example.com",
		To:       "admin@example.com",
		Subject:  "🚨 Backend Error Alert: ConnectionError",
		HTMLBody: "<p>Unable to connect</p>",
		TextBody: "Unable to connect",
	}
}

func TestNewSMTPSenderRequiresCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SMTPConfig
	}{
		{name: "no user", cfg: config.SMTPConfig{Host: "smtp.example.com", Port: 587, Pass: "p"}},
		{name: "no pass", cfg: config.SMTPConfig{Host: "smtp.example.com", Port: 587, User: "u"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSMTPSender(tt.cfg)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, config.ErrMissingCredentials)
		})
	}
}

func TestNewSMTPSender(t *testing.T) {
	s, err := NewSMTPSender(config.SMTPConfig{
		Host:               "smtp.example.com",
		Port:               587,
		User:               "ops@example.com",
		Pass:               "app-password",
		InsecureSkipVerify: true,
	})
	require.NoError(t, err)

	d, ok := s.dialer.(*mail.Dialer)
	require.True(t, ok)
	assert.Equal(t, "smtp.example.com", d.Host)
	assert.Equal(t, 587, d.Port)
	assert.Equal(t, "ops@example.com", d.Username)
	assert.False(t, d.SSL, "port 587 must use STARTTLS, not implicit TLS")
	assert.Equal(t, mail.MandatoryStartTLS, d.StartTLSPolicy)
	require.NotNil(t, d.TLSConfig)
	assert.True(t, d.TLSConfig.InsecureSkipVerify)
	assert.Equal(t, "smtp.example.com:587", s.addr)
}

func TestSMTPSenderSend(t *testing.T) {
	session := &fakeSession{}
	d := &fakeDialer{session: session}
	s := &SMTPSender{dialer: d, addr: "smtp.example.com:587"}

	err := s.Send(context.Background(), alertMessage())
	require.NoError(t, err)

	assert.Equal(t, 1, d.dials)
	assert.Equal(t, 1, session.closed)
	assert.Equal(t, "alerts@example.com", session.from)
	assert.Equal(t, []string{"admin@example.com"}, session.to)

	raw := session.raw.String()
	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "text/html")
	assert.Contains(t, raw, "text/plain")
}

func TestSMTPSenderHTMLOnly(t *testing.T) {
	session := &fakeSession{}
	s := &SMTPSender{dialer: &fakeDialer{session: session}}

	msg := alertMessage()
	msg.TextBody = ""
	require.NoError(t, s.Send(context.Background(), msg))

	assert.Contains(t, session.raw.String(), "text/html")
	assert.NotContains(t, session.raw.String(), "text/plain")
}

func TestSMTPSenderDialFailure(t *testing.T) {
	dialErr := errors.New("535 5.7.8 authentication failed")
	d := &fakeDialer{err: dialErr}
	s := &SMTPSender{dialer: d, addr: "smtp.example.com:587"}

	err := s.Send(context.Background(), alertMessage())

	require.Error(t, err)
	assert.ErrorIs(t, err, dialErr)
	assert.Contains(t, err.Error(), "smtp.example.com:587")
}

func TestSMTPSenderClosesSessionOnSendFailure(t *testing.T) {
	session := &fakeSession{sendErr: errors.New("552 message size exceeds limit")}
	s := &SMTPSender{dialer: &fakeDialer{session: session}}

	err := s.Send(context.Background(), alertMessage())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "552 message size exceeds limit")
	assert.Equal(t, 1, session.closed)
}

func TestSMTPSenderCancelledContext(t *testing.T) {
	d := &fakeDialer{session: &fakeSession{}}
	s := &SMTPSender{dialer: d}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Send(ctx, alertMessage())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, d.dials)
}

// plaintextSMTPServer accepts one connection, advertises AUTH without
// STARTTLS and records every command line it receives.
func plaintextSMTPServer(t *testing.T) (host string, port int, commands <-chan []string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	out := make(chan []string, 1)
	go func() {
		var lines []string
		defer func() { out <- lines }()

		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.SetDeadline(time.Now().Add(2 * time.Second))

		r := bufio.NewReader(conn)
		_, _ = conn.Write([]byte("220 mail.test ESMTP\r\n"))
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")
			lines = append(lines, line)

			switch cmd := strings.ToUpper(strings.Fields(line + " x")[0]); cmd {
			case "EHLO", "HELO":
				_, _ = conn.Write([]byte("250-mail.test\r\n250 AUTH LOGIN PLAIN\r\n"))
			case "AUTH":
				_, _ = conn.Write([]byte("235 2.7.0 Authentication successful\r\n"))
			case "QUIT":
				_, _ = conn.Write([]byte("221 bye\r\n"))
				return
			default:
				_, _ = conn.Write([]byte("250 OK\r\n"))
			}
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port, out
}

func TestSMTPSenderRefusesServerWithoutSTARTTLS(t *testing.T) {
	host, port, commands := plaintextSMTPServer(t)

	s, err := NewSMTPSender(config.SMTPConfig{
		Host: host,
		Port: port,
		User: "ops@example.com",
		Pass: "s3cret",
	})
	require.NoError(t, err)

	err = s.Send(context.Background(), alertMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open session")

	var received []string
	select {
	case received = <-commands:
	case <-time.After(5 * time.Second):
		t.Fatal("SMTP server did not finish")
	}

	require.NotEmpty(t, received, "client never spoke to the server")
	for _, line := range received {
		upper := strings.ToUpper(line)
		assert.False(t, strings.HasPrefix(upper, "AUTH"), "credentials sent in cleartext: %q", line)
		assert.False(t, strings.HasPrefix(upper, "MAIL FROM"), "message sent in cleartext: %q", line)
	}
}
