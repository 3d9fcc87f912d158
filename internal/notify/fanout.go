// Package notify delivers rendered notifications to every configured sink.
//
// Delivery is best effort: each sink gets one attempt per notification and a
// failure is logged and counted, never retried. When no sink is configured,
// or every sink fails, the notification is written to the log so an alert is
// never silently lost.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/tempest-monitor/internal/domain"
	"github.com/couchcryptid/tempest-monitor/internal/observability"
)

// Sink is a single delivery transport.
type Sink interface {
	Notify(ctx context.Context, n domain.Notification) error
}

type namedSink struct {
	name string
	sink Sink
}

// Fanout forwards notifications to all registered sinks.
type Fanout struct {
	sinks    []namedSink
	fallback Sink
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewFanout creates a Fanout with no sinks; notifications go to the log
// until Add is called.
func NewFanout(logger *slog.Logger, metrics *observability.Metrics) *Fanout {
	return &Fanout{
		fallback: NewLogSink(logger),
		logger:   logger,
		metrics:  metrics,
	}
}

// Add registers a sink under name. Names label metrics and log lines.
func (f *Fanout) Add(name string, s Sink) {
	f.sinks = append(f.sinks, namedSink{name: name, sink: s})
}

// Sinks returns the registered sink names in delivery order.
func (f *Fanout) Sinks() []string {
	names := make([]string, len(f.sinks))
	for i, s := range f.sinks {
		names[i] = s.name
	}
	return names
}

// Notify delivers n to every sink. The returned error joins every sink
// failure; a partial failure still reaches the healthy sinks.
func (f *Fanout) Notify(ctx context.Context, n domain.Notification) error {
	if len(f.sinks) == 0 {
		return f.fallback.Notify(ctx, n)
	}

	var errs []error
	for _, s := range f.sinks {
		if err := s.sink.Notify(ctx, n); err != nil {
			f.metrics.Notifications.WithLabelValues(s.name, "failed").Inc()
			f.logger.Warn("notification delivery failed",
				"sink", s.name,
				"notification_id", n.ID,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		f.metrics.Notifications.WithLabelValues(s.name, "sent").Inc()
	}

	if len(errs) == len(f.sinks) {
		_ = f.fallback.Notify(ctx, n) // the log sink cannot fail
	}
	return errors.Join(errs...)
}
