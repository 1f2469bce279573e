package notify

import (
	"context"
	"log/slog"

	"intake/internal/intake/models"
)

// LogNotifier writes notifications to the structured log instead of sending
// mail. Used in development and as the fallback when SMTP is not configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, req models.NotificationRequest) error {
	n.logger.InfoContext(ctx, "notification",
		"message_id", req.MessageID,
		"recipients", req.Recipients,
		"cc", req.CC,
		"subject", req.Subject,
		"body", req.Body,
	)
	return nil
}
