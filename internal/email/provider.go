package email

import (
	"context"
	"fmt"

	"github.com/ceodesk/errnotify/internal/config"
)

// Supported values for email.provider.
const (
	ProviderSMTP  = "smtp"
	ProviderGmail = "gmail"
)

// NewSender creates the Sender selected by cfg.Email.Provider.
func NewSender(ctx context.Context, cfg *config.Config) (Sender, error) {
	switch cfg.Email.Provider {
	case "", ProviderSMTP:
		return NewSMTPSender(cfg.SMTP)
	case ProviderGmail:
		g := cfg.Email.Gmail
		if g.CredentialsJSON != "" {
			return NewGmailSender(ctx, GmailConfig{
				CredentialsJSON: g.CredentialsJSON,
				SenderAddress:   cfg.Email.From,
				SenderName:      g.SenderName,
			})
		}
		return NewGmailSenderWithToken(ctx, g.ClientID, g.ClientSecret, g.RefreshToken, cfg.Email.From, g.SenderName)
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Email.Provider)
	}
}
