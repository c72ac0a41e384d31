package ports

import "context"

// Logger defines the logging contract used by the data sources, caches and the analyzer.
// The indicator engine itself never logs.
type Logger interface {
	// Debug logs a message at Debug level.
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	// Info logs a message at Info level.
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	// Warn logs a message at Warning level.
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error logs an error message at Error level.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}

type logFieldsKey struct{}

// WithFields returns a context carrying fields that loggers add to every entry
// made with it, e.g. the symbol being analyzed. Nested calls override keys.
func WithFields(ctx context.Context, fields map[string]interface{}) context.Context {
	merged := make(map[string]interface{}, len(fields))
	for k, v := range ContextFields(ctx) {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return context.WithValue(ctx, logFieldsKey{}, merged)
}

// ContextFields returns the fields attached with WithFields, or nil.
func ContextFields(ctx context.Context) map[string]interface{} {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(logFieldsKey{}).(map[string]interface{})
	return fields
}
