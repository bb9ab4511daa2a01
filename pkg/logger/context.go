package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are attached to every record logged with a context carrying them.
type LogFields struct {
	Part   string // output part name, e.g. "NoCap"
	Source string // parameter file the build was loaded from
}

// WithLogFields merges fields into the context, newer non-empty values winning.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	merged := GetLogFields(ctx)
	if fields.Part != "" {
		merged.Part = fields.Part
	}
	if fields.Source != "" {
		merged.Source = fields.Source
	}
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields returns the context's fields, or the zero value.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}
