package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingCredentials is returned when SMTP_USER or SMTP_PASS is not set.
var ErrMissingCredentials = errors.New("SMTP credentials not configured in environment variables")

// Config holds all configuration for the notifier
type Config struct {
	SMTP  SMTPConfig  `mapstructure:"smtp"`
	Email EmailConfig `mapstructure:"email"`
	Log   LogConfig   `mapstructure:"log"`
}

// SMTPConfig holds mail server configuration
type SMTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"`
	// InsecureSkipVerify disables certificate verification on the STARTTLS upgrade
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
}

// Addr returns the mail server address
func (c SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate reports whether the credentials needed to log in are present.
func (c SMTPConfig) Validate() error {
	if c.User == "" || c.Pass == "" {
		return ErrMissingCredentials
	}
	return nil
}

// EmailConfig holds notification email configuration
type EmailConfig struct {
	// Provider is the transport used for delivery: "smtp" or "gmail"
	Provider string `mapstructure:"provider"`
	// AppName is the branding shown in the alert title and footer
	AppName string `mapstructure:"app_name"`
	// From is the sender address (defaults to the SMTP user)
	From string `mapstructure:"from"`
	// To is the recipient address (defaults to the SMTP user)
	To string `mapstructure:"to"`
	// Gmail holds Gmail-specific configuration
	Gmail GmailEmailConfig `mapstructure:"gmail"`
}

// GmailEmailConfig holds Gmail API configuration
type GmailEmailConfig struct {
	// CredentialsJSON is the service account credentials JSON content
	CredentialsJSON string `mapstructure:"credentials_json"`
	// ClientID for OAuth2 token-based auth (alternative to service account)
	ClientID string `mapstructure:"client_id"`
	// ClientSecret for OAuth2 token-based auth
	ClientSecret string `mapstructure:"client_secret"`
	// RefreshToken for OAuth2 token-based auth
	RefreshToken string `mapstructure:"refresh_token"`
	// SenderName is the display name for the sender
	SenderName string `mapstructure:"sender_name"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envBindings maps config keys to the plain environment variables the
// notifier has always been configured with.
var envBindings = map[string]string{
	"smtp.host":  "SMTP_HOST",
	"smtp.port":  "SMTP_PORT",
	"smtp.user":  "SMTP_USER",
	"smtp.pass":  "SMTP_PASS",
	"email.from": "FROM_EMAIL",
	"email.to":   "ERROR_NOTIFICATION_EMAIL",
}

// Load reads configuration from .env files, an optional config file and
// environment variables. Without arguments it loads ".env" from the working
// directory. Variables already present in the environment are never overridden.
func Load(envFiles ...string) (*Config, error) {
	if err := loadDotenv(envFiles...); err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/errnotify")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("ERRNOTIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyFallbacks(&cfg)

	return &cfg, nil
}

func loadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// applyFallbacks fills the sender and recipient from the SMTP user when unset.
func applyFallbacks(cfg *Config) {
	if cfg.Email.From == "" {
		cfg.Email.From = cfg.SMTP.User
	}
	if cfg.Email.To == "" {
		cfg.Email.To = cfg.SMTP.User
	}
}

func setDefaults(v *viper.Viper) {
	// SMTP defaults
	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.insecure_skip_verify", false)

	// Email defaults
	v.SetDefault("email.provider", "smtp")
	v.SetDefault("email.app_name", "CEODesk Backend")
	v.SetDefault("email.gmail.credentials_json", "")
	v.SetDefault("email.gmail.client_id", "")
	v.SetDefault("email.gmail.client_secret", "")
	v.SetDefault("email.gmail.refresh_token", "")
	v.SetDefault("email.gmail.sender_name", "CEODesk Error Monitoring")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
