package notify

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/tempest-monitor/internal/domain"
)

// LogSink writes notifications to the structured log.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Notify logs n at a level matching its severity.
func (s *LogSink) Notify(ctx context.Context, n domain.Notification) error {
	level := slog.LevelInfo
	switch n.Severity {
	case domain.SeverityWarning:
		level = slog.LevelWarn
	case domain.SeverityError:
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, n.Title,
		"body", n.Body,
		"severity", n.Severity,
		"serial", n.DeviceSerial,
		"event", n.Event,
		"notification_id", n.ID,
	)
	return nil
}
