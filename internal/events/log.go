package events

import (
	"log/slog"
)

// LogObserver writes events to a structured logger. Lifecycle events are
// logged at Info, failures at Error and the rest at Debug.
type LogObserver struct {
	Logger *slog.Logger
}

// Notify implements Observer.
func (o LogObserver) Notify(e Event) {
	l := o.Logger
	if l == nil {
		l = slog.Default()
	}
	attrs := []any{"batch", e.BatchID}
	if e.Key != "" {
		attrs = append(attrs, "key", e.Key)
	}

	switch e.Type {
	case TaskPending:
		l.Debug("Task pending.", attrs...)
	case TaskProcessing:
		l.Debug("Task processing.", append(attrs, "version", e.Version)...)
	case TaskComplete:
		l.Info("✅ "+e.Description+" done.", append(attrs, "duration", e.Duration)...)
	case TaskError:
		l.Error("❌ "+e.Description+" failed.", append(attrs, "error", e.Error)...)
	case TaskSkipped:
		l.Warn("⏭️ "+e.Description+" skipped.", append(attrs, "reason", e.Error)...)
	case TaskGraphComplete:
		l.Debug("Task graph complete.", attrs...)
	}
}
