package notify

import (
	"context"

	"github.com/dmitrijs2005/webxfer/internal/logging"
)

// LogSink only records notifications in the log. It is the default when no
// mail transport is configured.
type LogSink struct {
	log logging.Logger
}

func NewLogSink(log logging.Logger) *LogSink {
	return &LogSink{log: log.With("module", "notify")}
}

func (s *LogSink) Notify(ctx context.Context, email, fileRef string, downloadCount int64) error {
	s.log.Info(ctx, "download notification", "to", email, "file_id", fileRef, "download_count", downloadCount)
	return nil
}
