package notify

import (
	"net/mail"

	"github.com/rs/zerolog/log"

	"attendr/internal/platform/config"
)

// NewSender picks the sender named by cfg.Provider. Providers without
// credentials fall back to LogSender.
func NewSender(cfg config.EmailConfig) Sender {
	from := mail.Address{Name: cfg.FromName, Address: cfg.FromAddress}

	switch cfg.Provider {
	case "sendgrid":
		if cfg.SendGrid.APIKey != "" {
			return NewSendGridSender(cfg.SendGrid.APIKey, from)
		}
		log.Warn().Msg("sendgrid selected without api key, logging notifications instead")
	case "smtp":
		if cfg.SMTP.Username != "" && cfg.SMTP.Password != "" {
			return NewSMTPSender(cfg.SMTP, from)
		}
		log.Warn().Msg("smtp selected without credentials, logging notifications instead")
	case "", "log":
	default:
		log.Warn().Str("provider", cfg.Provider).Msg("unknown email provider, logging notifications instead")
	}
	return LogSender{}
}
