package notifier

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/ceodesk/errnotify/internal/config"
	"github.com/ceodesk/errnotify/internal/email"
	"github.com/ceodesk/errnotify/internal/logger"
)

// NotifyFromEnv loads configuration from the environment (and .env), builds
// the configured sender and notifies about err, logging to stderr. Missing
// SMTP credentials make it return false without any network I/O.
func NotifyFromEnv(ctx context.Context, err error, errContext string) bool {
	return NotifyFromEnvTo(ctx, os.Stderr, err, errContext)
}

// NotifyFromEnvTo is NotifyFromEnv with the diagnostics written to w.
func NotifyFromEnvTo(ctx context.Context, w io.Writer, err error, errContext string) bool {
	cfg, cerr := config.Load()
	if cerr != nil {
		logger.New(w, "info", "text").Error().Err(cerr).Msg("failed to load notifier config")
		return false
	}

	log := logger.New(w, cfg.Log.Level, cfg.Log.Format)

	sender, serr := email.NewSender(ctx, cfg)
	if serr != nil {
		if errors.Is(serr, config.ErrMissingCredentials) {
			log.Error().Msg("SMTP credentials not configured in environment variables")
		} else {
			log.Error().Err(serr).Str("provider", cfg.Email.Provider).Msg("failed to create email sender")
		}
		return false
	}

	return New(sender, cfg, log).Notify(ctx, err, errContext)
}
