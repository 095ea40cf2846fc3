package service

import (
	"context"

	"github.com/rs/zerolog"
)

// LogMailer writes reset notifications to the log instead of sending mail.
// Development stand-in for a real delivery transport.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.log.Info().
		Str("email", email).
		Str("token", token).
		Msg("Password reset mail (log transport)")
	return nil
}
