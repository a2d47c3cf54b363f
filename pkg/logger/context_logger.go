package logger

import (
	"context"
	"time"

	ctxutil "github.com/Payphone-Digital/accounts/pkg/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ContextLogBuilder collects fields for one log line and pulls request
// metadata out of ctx when the level is enabled.
type ContextLogBuilder struct {
	logger  *zap.Logger
	ctx     context.Context
	level   zapcore.Level
	message string
	fields  []zap.Field
	enabled bool
}

func newBuilder(ctx context.Context, level zapcore.Level, message string) *ContextLogBuilder {
	l := GetLogger()
	b := &ContextLogBuilder{
		logger:  l,
		ctx:     ctx,
		level:   level,
		message: message,
		enabled: l.Core().Enabled(level),
	}
	if b.enabled {
		b.fields = make([]zap.Field, 0, 10)
		b.extractContextFields()
	}
	return b
}

func (b *ContextLogBuilder) extractContextFields() {
	if b.ctx == nil {
		return
	}
	if v := ctxutil.GetRequestID(b.ctx); v != "" {
		b.fields = append(b.fields, zap.String("request_id", v))
	}
	if v := ctxutil.GetCorrelationID(b.ctx); v != "" {
		b.fields = append(b.fields, zap.String("correlation_id", v))
	}
	if v := ctxutil.GetClientIP(b.ctx); v != "" {
		b.fields = append(b.fields, zap.String("client_ip", v))
	}
	if v := ctxutil.GetUserID(b.ctx); v != "" {
		b.fields = append(b.fields, zap.String("user_id", v))
	}
	if v := ctxutil.GetModule(b.ctx); v != "" {
		b.fields = append(b.fields, zap.String("module", v))
	}
	if v := ctxutil.GetFunction(b.ctx); v != "" {
		b.fields = append(b.fields, zap.String("function", v))
	}
}

func (b *ContextLogBuilder) String(key, value string) *ContextLogBuilder {
	if b.enabled {
		b.fields = append(b.fields, zap.String(key, value))
	}
	return b
}

func (b *ContextLogBuilder) Int(key string, value int) *ContextLogBuilder {
	if b.enabled {
		b.fields = append(b.fields, zap.Int(key, value))
	}
	return b
}

func (b *ContextLogBuilder) Int64(key string, value int64) *ContextLogBuilder {
	if b.enabled {
		b.fields = append(b.fields, zap.Int64(key, value))
	}
	return b
}

func (b *ContextLogBuilder) Bool(key string, value bool) *ContextLogBuilder {
	if b.enabled {
		b.fields = append(b.fields, zap.Bool(key, value))
	}
	return b
}

func (b *ContextLogBuilder) Duration(value time.Duration) *ContextLogBuilder {
	if b.enabled {
		b.fields = append(b.fields, zap.Duration("duration", value))
	}
	return b
}

func (b *ContextLogBuilder) Time(key string, value time.Time) *ContextLogBuilder {
	if b.enabled {
		b.fields = append(b.fields, zap.Time(key, value))
	}
	return b
}

func (b *ContextLogBuilder) Err(err error) *ContextLogBuilder {
	if b.enabled && err != nil {
		b.fields = append(b.fields, zap.Error(err))
	}
	return b
}

func (b *ContextLogBuilder) Any(key string, value interface{}) *ContextLogBuilder {
	if b.enabled {
		b.fields = append(b.fields, zap.Any(key, value))
	}
	return b
}

func (b *ContextLogBuilder) Method(method string) *ContextLogBuilder {
	return b.String("method", method)
}

func (b *ContextLogBuilder) Path(path string) *ContextLogBuilder {
	return b.String("path", path)
}

func (b *ContextLogBuilder) StatusCode(code int) *ContextLogBuilder {
	return b.Int("status_code", code)
}

// Log writes the entry.
func (b *ContextLogBuilder) Log() {
	if !b.enabled {
		return
	}
	if ce := b.logger.Check(b.level, b.message); ce != nil {
		ce.Write(b.fields...)
	}
}

func InfoWithContext(ctx context.Context, message string) *ContextLogBuilder {
	return newBuilder(ctx, zapcore.InfoLevel, message)
}

func WarnWithContext(ctx context.Context, message string) *ContextLogBuilder {
	return newBuilder(ctx, zapcore.WarnLevel, message)
}

func ErrorWithContext(ctx context.Context, message string) *ContextLogBuilder {
	return newBuilder(ctx, zapcore.ErrorLevel, message)
}

func DebugWithContext(ctx context.Context, message string) *ContextLogBuilder {
	return newBuilder(ctx, zapcore.DebugLevel, message)
}
