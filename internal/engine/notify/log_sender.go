package notify

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogSender only records messages. It is used when no mail provider is
// configured.
type LogSender struct{}

func (LogSender) Name() string { return "log" }

func (LogSender) Send(_ context.Context, msg Message) error {
	log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Text).
		Msg("simulated notification")
	return nil
}
