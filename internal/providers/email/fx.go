package email

import (
	"strings"

	"github.com/smallbiznis/bonos/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

// NewFromConfig picks the provider named by EMAIL_PROVIDER.
func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	switch strings.ToLower(strings.TrimSpace(cfg.Email.Provider)) {
	case "resend":
		if cfg.Email.ResendAPIKey == "" {
			log.Warn("RESEND_API_KEY not set, email delivery disabled")
			return &NoOpProvider{}
		}
		return NewResend(cfg.Email.ResendAPIKey, cfg.Email.SMTPFrom)
	case "none", "noop":
		return &NoOpProvider{}
	default:
		return NewSMTP(Config{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
			From:     cfg.Email.SMTPFrom,
		})
	}
}
