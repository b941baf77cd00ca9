package sanitize

import (
	"media-catalogue/internal/logging"
	"media-catalogue/internal/metrics"
)

// maxLoggedInput bounds how much of a rejected input makes it into the log.
const maxLoggedInput = 64

// LogSink reports sanitizer rejections to the application log and the
// Prometheus rejection counter. Source labels where the input came from
// (e.g. "query", "search").
type LogSink struct {
	Source string
}

// RecordRejection implements EventSink. It never fails the caller.
func (l *LogSink) RecordRejection(kind, offendingInput, source string) {
	if l.Source != "" {
		source = l.Source
	}
	if len(offendingInput) > maxLoggedInput {
		offendingInput = offendingInput[:maxLoggedInput] + "..."
	}
	logging.Warn("sanitizer rejected %s from %s: %q", kind, source, offendingInput)
	metrics.SanitizerRejections.WithLabelValues(kind, source).Inc()
}
