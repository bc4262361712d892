package convert

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lk2023060901/logos-convert/pkg/binfmt"
	"github.com/lk2023060901/logos-convert/pkg/log"
	"github.com/lk2023060901/logos-convert/pkg/metrics"
	"github.com/lk2023060901/logos-convert/pkg/settings"
	"github.com/lk2023060901/logos-convert/pkg/util/merr"
)

const tracerName = "logos-convert"

// call 记录一次转换调用的链路、指标与日志。
type call struct {
	ctx   context.Context
	span  trace.Span
	op    string
	typ   string
	start time.Time
}

func begin(ctx context.Context, op, typ string) *call {
	ctx, span := log.StartSpan(ctx, tracerName, "convert."+op, log.FieldOp(op), log.FieldType(typ))
	span.SetAttributes(attribute.String("type", typ))
	return &call{ctx: ctx, span: span, op: op, typ: typ, start: time.Now()}
}

func (c *call) end(size int, err error) {
	defer c.span.End()

	metrics.ConvertOperations.WithLabelValues(c.op, c.typ, metrics.Result(err)).Inc()
	metrics.ConvertLatency.WithLabelValues(c.op, c.typ).Observe(float64(time.Since(c.start).Microseconds()) / 1000)

	logger := log.Ctx(c.ctx)
	if err != nil {
		c.span.RecordError(err)
		c.span.SetStatus(codes.Error, merr.KindOf(err).String())
		logger.RatedWarn(1, "conversion failed", zap.String("kind", merr.KindOf(err).String()), zap.Error(err))
		return
	}
	metrics.ConvertPayloadBytes.WithLabelValues(c.op, c.typ).Observe(float64(size))
	c.span.SetAttributes(attribute.Int("size", size))
	logger.Debug("conversion done", zap.Int("size", size))
}

// normalize 把实现返回的未分类错误归入 fallback 对应的分类。
func normalize(err error, wrap func(error, ...string) error, typ string) error {
	if err == nil || merr.IsTyped(err) {
		return err
	}
	return wrap(err, typ)
}

// Encode 创建空容器并调用 v.Serialize。
func Encode(ctx context.Context, v Serializable, s settings.Settings) (*binfmt.Container, error) {
	c := begin(ctx, metrics.OpSerialize, TypeName(v))
	out, err := v.Serialize(binfmt.NewContainer(), s)
	if err == nil && out == nil {
		err = merr.WrapErrEncoding(c.typ, "serializer returned no container")
	}
	err = normalize(err, merr.WrapErrEncodingCause, c.typ)
	if err != nil {
		c.end(0, err)
		return nil, err
	}
	c.end(out.Size(), nil)
	return out, nil
}

// Decode 调用 f.Deserialize 从 src 重建实例。
func Decode[T any](ctx context.Context, f Factory[T], src *binfmt.Container, s settings.Settings) (T, error) {
	var zero T
	c := begin(ctx, metrics.OpDeserialize, TypeName(f))
	v, err := f.Deserialize(src, s)
	if err = normalize(err, merr.WrapErrCorruptDataCause, c.typ); err != nil {
		c.end(0, err)
		return zero, err
	}
	c.end(src.Size(), nil)
	return v, nil
}

// EncodeJSON 调用 v.ToJSON。
func EncodeJSON(ctx context.Context, v Serializable, s settings.Settings) (string, error) {
	c := begin(ctx, metrics.OpToJSON, TypeName(v))
	text, err := v.ToJSON(s)
	if err = normalize(err, merr.WrapErrEncodingCause, c.typ); err != nil {
		c.end(0, err)
		return "", err
	}
	c.end(len(text), nil)
	return text, nil
}

// DecodeJSON 调用 f.FromJSON。
func DecodeJSON[T any](ctx context.Context, f Factory[T], text string, s settings.Settings) (T, error) {
	var zero T
	c := begin(ctx, metrics.OpFromJSON, TypeName(f))
	v, err := f.FromJSON(text, s)
	if err = normalize(err, merr.WrapErrParse, c.typ); err != nil {
		c.end(0, err)
		return zero, err
	}
	c.end(len(text), nil)
	return v, nil
}
