package auth

import "context"

// LogMailer is a Mailer for development environments: it writes the message
// to the logger instead of a relay. The temporary credential is masked.
type LogMailer struct {
	Logger Logger
}

// NewLogMailer creates a mailer backed by the given logger.
func NewLogMailer(logger Logger) *LogMailer {
	return &LogMailer{Logger: normalizeLogger(logger)}
}

func (m *LogMailer) SendInvitation(_ context.Context, to, name, token string) error {
	m.Logger.Info("invitation mail to=%s name=%s token=%s", to, name, token)
	return nil
}

func (m *LogMailer) SendTemporaryPassword(_ context.Context, to, name, tempPassword string) error {
	m.Logger.Info("temporary password mail to=%s name=%s password=%s", to, name, mask(tempPassword))
	return nil
}

func mask(s string) string {
	if len(s) <= 2 {
		return "**"
	}
	return s[:2] + "************"
}
