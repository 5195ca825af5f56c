package persist

import (
	"context"
	"log/slog"
)

// LogSink is the sink used when no persistence endpoint is configured. It
// records that a write would have happened and discards the snapshot.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{log: logger}
}

func (s *LogSink) Save(_ context.Context, snap Snapshot) error {
	s.log.Debug("discarding snapshot, no save url configured",
		"entity_id", snap.EntityID,
		"entity_type", snap.EntityType,
		"elements_bytes", len(snap.Elements),
	)
	return nil
}
