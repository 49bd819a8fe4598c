package types

// Logger is the structured logger used throughout kgroup.
//
// Messages carry alternating key-value pairs, as in zap.SugaredLogger and
// log/slog. Keys are snake_case, e.g. "group_path" or "member_id".
type Logger interface {
	// Debug logs tick-level detail such as allocation waits.
	Debug(msg string, keysAndValues ...any)

	// Info logs group membership and ownership changes.
	Info(msg string, keysAndValues ...any)

	// Warn logs recoverable failures, e.g. a deferred discovery error.
	Warn(msg string, keysAndValues ...any)

	// Error logs failures that end a set partitioner.
	Error(msg string, keysAndValues ...any)

	// Fatal logs and then exits the process. kgroup itself never calls it.
	Fatal(msg string, keysAndValues ...any)
}
