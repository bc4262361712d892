package log

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// FieldNameTraceID 是 StartSpan 附加的链路 ID 字段名。
const FieldNameTraceID = "trace_id"

type ctxKey struct{}

func Debug(msg string, fields ...zap.Field) { current.Load().outer.Debug(msg, fields...) }

func Info(msg string, fields ...zap.Field) { current.Load().outer.Info(msg, fields...) }

func Warn(msg string, fields ...zap.Field) { current.Load().outer.Warn(msg, fields...) }

func Error(msg string, fields ...zap.Field) { current.Load().outer.Error(msg, fields...) }

// With 返回携带 fields 的全局 Logger 副本。
func With(fields ...zap.Field) *MLogger {
	return NewMLogger(L().With(fields...))
}

// Ctx 返回 ctx 上附加的 Logger，没有时返回全局 Logger。
func Ctx(ctx context.Context) *MLogger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*MLogger); ok {
			return l
		}
	}
	return NewMLogger(L())
}

// WithFields 在 ctx 的 Logger 上追加 fields，返回新的上下文。
// 已绑定的限流分组随之继承。
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, Ctx(ctx).With(fields...))
}

// WithModule 在 ctx 的 Logger 上追加模块名。
func WithModule(ctx context.Context, module string) context.Context {
	return WithFields(ctx, FieldModule(module))
}

// StartSpan 以 ctx 为父节点开启名为 name 的 span，
// 并把 fields 与有效的 trace_id 附加到返回上下文的 Logger 上。
func StartSpan(ctx context.Context, tracer, name string, fields ...zap.Field) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := otel.Tracer(tracer).Start(ctx, name)
	if sc := span.SpanContext(); sc.HasTraceID() {
		fields = append(fields, zap.String(FieldNameTraceID, sc.TraceID().String()))
	}
	return WithFields(ctx, fields...), span
}
