// Package logger configures the process-wide structured logger.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Setup builds a text or JSON logger writing to w, installs it as the slog
// default and returns it.
func Setup(level string, json bool, w io.Writer) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	log := slog.New(NewFieldHandler(handler))
	slog.SetDefault(log)
	return log, nil
}

// FieldHandler adds the context's LogFields to every record.
type FieldHandler struct {
	slog.Handler
}

func NewFieldHandler(h slog.Handler) *FieldHandler {
	return &FieldHandler{Handler: h}
}

func (h *FieldHandler) Handle(ctx context.Context, r slog.Record) error {
	fields := GetLogFields(ctx)
	if fields.Part != "" {
		r.AddAttrs(slog.String("part", fields.Part))
	}
	if fields.Source != "" {
		r.AddAttrs(slog.String("params", fields.Source))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *FieldHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &FieldHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *FieldHandler) WithGroup(name string) slog.Handler {
	return &FieldHandler{Handler: h.Handler.WithGroup(name)}
}
