// Package notifier emails an alert describing an error to an operator.
//
// Delivery is attempted once, synchronously. Notify never panics and never
// returns an error.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ceodesk/errnotify/internal/config"
	"github.com/ceodesk/errnotify/internal/email"
	"github.com/ceodesk/errnotify/internal/logger"
	"github.com/ceodesk/errnotify/internal/report"
)

// Notifier errors
var (
	ErrMissingAddress = errors.New("sender and recipient addresses must be configured")
	ErrNoSender       = errors.New("no email sender configured")
)

// Notifier formats error reports and hands them to an email.Sender.
type Notifier struct {
	sender email.Sender
	cfg    *config.Config
	log    *logger.Logger
	now    func() time.Time
}

// New creates a new Notifier. A nil log discards all output.
func New(sender email.Sender, cfg *config.Config, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &Notifier{
		sender: sender,
		cfg:    cfg,
		log:    log.WithComponent("notifier"),
		now:    time.Now,
	}
}

// Notify sends an alert for err and reports whether the transport accepted
// it. Every failure, including a panicking transport, is logged and turned
// into false.
func (n *Notifier) Notify(ctx context.Context, err error, errContext string) (sent bool) {
	defer func() {
		if p := recover(); p != nil {
			n.log.Error().
				Interface("panic", p).
				Str("kind", report.KindOf(err)).
				Msg("failed to send error notification: sender panicked")
			sent = false
		}
	}()

	r, sendErr := n.deliver(ctx, err, errContext)
	if sendErr != nil {
		log := n.log
		if r != nil {
			log = log.WithReport(r.ID.String())
		}
		log.Error().Err(sendErr).Str("kind", report.KindOf(err)).Msg("failed to send error notification")
		return false
	}

	n.log.WithReport(r.ID.String()).Info().
		Str("kind", r.Kind).
		Str("to", n.cfg.Email.To).
		Msg("error notification sent")
	return true
}

// Send is Notify for callers that want the cause of a failed delivery.
// Unlike Notify it does not recover panics from the sender.
func (n *Notifier) Send(ctx context.Context, err error, errContext string) error {
	_, sendErr := n.deliver(ctx, err, errContext)
	return sendErr
}

// Recover notifies about a panic in the calling goroutine and stops it from
// propagating. It must be deferred directly:
//
//	defer n.Recover(ctx, "processing payroll batch")
func (n *Notifier) Recover(ctx context.Context, errContext string) {
	if p := recover(); p != nil {
		n.Notify(ctx, report.NewPanicError(p), errContext)
	}
}

func (n *Notifier) deliver(ctx context.Context, err error, errContext string) (*report.Report, error) {
	if n.sender == nil {
		return nil, ErrNoSender
	}
	if n.cfg.Email.Provider == "" || n.cfg.Email.Provider == email.ProviderSMTP {
		if cerr := n.cfg.SMTP.Validate(); cerr != nil {
			return nil, cerr
		}
	}
	if n.cfg.Email.From == "" || n.cfg.Email.To == "" {
		return nil, ErrMissingAddress
	}

	r := report.New(err, errContext, n.now())

	html, rerr := email.ErrorAlertHTML(r, n.cfg.Email.AppName)
	if rerr != nil {
		return r, rerr
	}

	msg := email.Message{
		From:     n.cfg.Email.From,
		To:       n.cfg.Email.To,
		Subject:  email.ErrorAlertSubject(r),
		HTMLBody: html,
		TextBody: email.ErrorAlertText(r, n.cfg.Email.AppName),
	}

	if serr := n.sender.Send(ctx, msg); serr != nil {
		return r, fmt.Errorf("failed to deliver report %s: %w", r.ID, serr)
	}

	return r, nil
}
