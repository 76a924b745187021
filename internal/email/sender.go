package email

import "context"

// Sender is the interface that all email transports must implement.
type Sender interface {
	// Send delivers msg. A nil error means the transport accepted it.
	Send(ctx context.Context, msg Message) error
}

// Message represents an email message to be sent.
type Message struct {
	From     string // sender email address
	To       string // recipient email address
	Subject  string // email subject
	HTMLBody string // HTML email body
	TextBody string // plain-text fallback body
}
