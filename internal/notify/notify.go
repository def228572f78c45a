// Package notify defines the outbound notification port. Delivery belongs to
// an external provider; this service only hands off.
package notify

import (
	"context"
	"log/slog"
)

// InviteMessage carries everything a delivery channel needs to notify an
// invited person.
type InviteMessage struct {
	Email            string
	Token            string
	OrganizationName string
	ProgramName      string
}

// Notifier delivers invite notifications. Implementations must be safe for
// concurrent use.
type Notifier interface {
	SendInvite(ctx context.Context, msg InviteMessage) error
}

// LogNotifier writes notifications to the log instead of delivering them.
// Default when no provider is configured, and the test double.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendInvite(ctx context.Context, msg InviteMessage) error {
	n.logger.InfoContext(ctx, "invite notification",
		"email", msg.Email,
		"organization", msg.OrganizationName,
		"program", msg.ProgramName,
	)
	return nil
}
