package notify

import (
	"context"
	"log/slog"

	"cardpayout/internal/port"
)

// LogNotifier delivers user notifications to the service log. It stands in
// for a chat or push channel.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) port.Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, userID, message string) error {
	n.logger.InfoContext(ctx, "user notification",
		"event", "user_notified",
		"user_id", userID,
		"message", message,
	)
	return nil
}
