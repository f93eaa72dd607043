package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

// Core implements zapcore.Core to forward error logs to OpenTelemetry as spans.
type Core struct {
	zapcore.LevelEnabler
	tracer trace.Tracer
	fields []zapcore.Field
}

// NewCore creates a new core that forwards logs to OpenTelemetry.
func NewCore(enab zapcore.LevelEnabler) zapcore.Core {
	return &Core{
		LevelEnabler: enab,
		tracer:       otel.Tracer("accessbot/logs"),
	}
}

func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)

	return &Core{
		LevelEnabler: c.LevelEnabler,
		tracer:       c.tracer,
		fields:       merged,
	}
}

func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}

	return ce
}

func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	_, span := c.tracer.Start(context.Background(), "log."+errorCategory(ent))
	defer span.End()

	enc := zapcore.NewMapObjectEncoder()
	for _, field := range c.fields {
		field.AddTo(enc)
	}

	for _, field := range fields {
		field.AddTo(enc)
	}

	attrs := make([]attribute.KeyValue, 0, len(enc.Fields)+3)
	attrs = append(attrs,
		attribute.String("log.message", ent.Message),
		attribute.String("log.level", ent.Level.String()),
		attribute.String("log.caller", ent.Caller.String()),
	)

	for key, value := range enc.Fields {
		attrs = append(attrs, attribute.String(key, toString(value)))
	}

	span.SetAttributes(attrs...)
	span.SetStatus(codes.Error, ent.Message)

	return nil
}

func (c *Core) Sync() error {
	return nil
}

// errorCategory derives a span name suffix from the calling package.
func errorCategory(ent zapcore.Entry) string {
	switch fn := ent.Caller.Function; {
	case strings.Contains(fn, "/database"):
		return "database"
	case strings.Contains(fn, "/worker"):
		return "worker"
	case strings.Contains(fn, "/grant"):
		return "grant"
	case strings.Contains(fn, "/notify"):
		return "notify"
	case strings.Contains(fn, "/discord"):
		return "discord"
	case strings.Contains(fn, "/rest"):
		return "rest"
	default:
		return "general"
	}
}

func toString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprint(value)
}
