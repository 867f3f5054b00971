package audit

// Package audit records security-relevant events. The log sink writes them
// as structured log lines; emission is best-effort by contract, so callers
// never fail a request on a sink error.

import (
	"context"
	"log/slog"

	"github.com/calluna-labs/authgate/internal/ports"
)

// LogSink emits audit events through a structured logger.
type LogSink struct {
	logger *slog.Logger
}

var _ ports.AuditSink = (*LogSink)(nil)

// NewLogSink creates a LogSink. A nil logger falls back to slog.Default.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Record writes the event as a structured "audit" log line.
func (s *LogSink) Record(ctx context.Context, ev ports.AuditEvent) error {
	s.logger.InfoContext(ctx, "audit",
		slog.String("event_id", ev.ID),
		slog.String("subject", ev.Subject),
		slog.String("action", ev.Action),
		slog.String("remote_addr", ev.RemoteAddr),
		slog.String("user_agent", ev.UserAgent),
		slog.Time("at", ev.At),
	)
	return nil
}
