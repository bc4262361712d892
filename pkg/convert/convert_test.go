package convert_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	ants "github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lk2023060901/logos-convert/pkg/binfmt"
	"github.com/lk2023060901/logos-convert/pkg/convert"
	"github.com/lk2023060901/logos-convert/pkg/log"
	"github.com/lk2023060901/logos-convert/pkg/metrics"
	"github.com/lk2023060901/logos-convert/pkg/model"
	"github.com/lk2023060901/logos-convert/pkg/settings"
	"github.com/lk2023060901/logos-convert/pkg/util/conc"
	"github.com/lk2023060901/logos-convert/pkg/util/merr"
)

// broken 的所有转换都返回未分类的错误。
type broken struct{}

var errBroken = errors.New("broken")

func (broken) Serialize(*binfmt.Container, settings.Settings) (*binfmt.Container, error) {
	return nil, errBroken
}

func (broken) ToJSON(settings.Settings) (string, error) { return "", errBroken }

// explosive 在序列化时 panic。
type explosive struct{}

func (explosive) Serialize(*binfmt.Container, settings.Settings) (*binfmt.Container, error) {
	panic("explosive serializer")
}

func (explosive) ToJSON(settings.Settings) (string, error) { return "{}", nil }

// silent 声称成功却不返回容器。
type silent struct{}

func (silent) Serialize(*binfmt.Container, settings.Settings) (*binfmt.Container, error) {
	return nil, nil
}

func (silent) ToJSON(settings.Settings) (string, error) { return "{}", nil }

var brokenFactory = convert.FactoryFuncs[broken]{
	DeserializeFunc: func(*binfmt.Container, settings.Settings) (broken, error) { return broken{}, errBroken },
	FromJSONFunc:    func(string, settings.Settings) (broken, error) { return broken{}, errBroken },
}

type ConvertSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *ConvertSuite) SetupSuite() {
	s.useTestLogger()
	s.ctx = context.Background()
}

func (s *ConvertSuite) useTestLogger() {
	lg, props, err := log.InitTestLogger(s.T(), &log.Config{Level: "debug", Format: "text"})
	s.Require().NoError(err)
	log.ReplaceGlobals(lg, props)
}

func (s *ConvertSuite) TestTypeName() {
	s.Equal(model.PointTypeName, convert.TypeName(model.Point{}))
	s.Equal("convert_test.broken", convert.TypeName(broken{}))
	s.Equal(model.PointTypeName, convert.TypeName(model.PointFactory))
	s.Equal("convert_test.broken", brokenFactory.TypeName())
}

func (s *ConvertSuite) TestFactoryFuncsZeroOnError() {
	f := convert.FactoryFuncs[model.Point]{
		DeserializeFunc: func(*binfmt.Container, settings.Settings) (model.Point, error) {
			return model.Point{X: 9}, merr.WrapErrCorruptData("half read")
		},
		FromJSONFunc: func(string, settings.Settings) (model.Point, error) {
			return model.Point{X: 9}, merr.WrapErrParse(errors.New("bad"))
		},
	}
	p, err := f.Deserialize(nil, nil)
	s.ErrorIs(err, merr.ErrCorruptData)
	s.Equal(model.Point{}, p)

	p, err = f.FromJSON("", nil)
	s.ErrorIs(err, merr.ErrParse)
	s.Equal(model.Point{}, p)
}

func (s *ConvertSuite) TestHelpersRoundTrip() {
	p := model.Point{X: 1, Y: 2}
	st := settings.Settings{binfmt.KeyCompression: "zstd"}

	before := testutil.ToFloat64(metrics.ConvertOperations.WithLabelValues(metrics.OpSerialize, model.PointTypeName, metrics.SuccessLabel))
	c, err := convert.Encode(s.ctx, p, st)
	s.Require().NoError(err)
	s.Equal(model.PointTypeName, c.TypeName())
	s.Equal(before+1, testutil.ToFloat64(metrics.ConvertOperations.WithLabelValues(metrics.OpSerialize, model.PointTypeName, metrics.SuccessLabel)))

	got, err := convert.Decode(s.ctx, model.PointFactory, c, st)
	s.NoError(err)
	s.Equal(p, got)

	text, err := convert.EncodeJSON(s.ctx, p, nil)
	s.Require().NoError(err)
	s.Equal(`{"x":1,"y":2}`, text)

	got, err = convert.DecodeJSON(s.ctx, model.PointFactory, text, nil)
	s.NoError(err)
	s.Equal(p, got)

	_, err = convert.Encode(nil, p, nil)
	s.NoError(err)
}

func (s *ConvertSuite) TestHelpersTypedErrors() {
	_, err := convert.Encode(s.ctx, model.Point{}, settings.Settings{model.KeyIncludeY: "x"})
	s.ErrorIs(err, merr.ErrInvalidSettings)

	_, err = convert.DecodeJSON(s.ctx, model.PointFactory, `{"x":1}`, nil)
	s.ErrorIs(err, merr.ErrSchemaMismatch)

	_, err = convert.Decode(s.ctx, model.PointFactory, nil, nil)
	s.ErrorIs(err, merr.ErrCorruptData)
}

func (s *ConvertSuite) TestHelpersNormalize() {
	before := testutil.ToFloat64(metrics.ConvertOperations.WithLabelValues(metrics.OpSerialize, "convert_test.broken", metrics.FailLabel))
	c, err := convert.Encode(s.ctx, broken{}, nil)
	s.Nil(c)
	s.ErrorIs(err, merr.ErrEncoding)
	s.ErrorContains(err, errBroken.Error())
	s.Equal(before+1, testutil.ToFloat64(metrics.ConvertOperations.WithLabelValues(metrics.OpSerialize, "convert_test.broken", metrics.FailLabel)))

	_, err = convert.EncodeJSON(s.ctx, broken{}, nil)
	s.ErrorIs(err, merr.ErrEncoding)

	_, err = convert.Decode(s.ctx, brokenFactory, binfmt.NewContainer(), nil)
	s.ErrorIs(err, merr.ErrCorruptData)

	_, err = convert.DecodeJSON(s.ctx, brokenFactory, "{}", nil)
	s.ErrorIs(err, merr.ErrParse)

	_, err = convert.Encode(s.ctx, silent{}, nil)
	s.ErrorIs(err, merr.ErrEncoding)
}

func (s *ConvertSuite) TestHelpersLogContext() {
	core, logs := observer.New(zapcore.DebugLevel)
	log.ReplaceGlobals(zap.New(core), &log.ZapProperties{Core: core, Level: zap.NewAtomicLevelAt(zapcore.DebugLevel)})
	defer s.useTestLogger()

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	s.Require().NoError(err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	s.Require().NoError(err)
	ctx := trace.ContextWithSpanContext(s.ctx,
		trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID}))

	_, err = convert.Encode(ctx, broken{}, nil)
	s.Require().Error(err)
	failed := logs.FilterMessage("conversion failed").All()
	s.Require().Len(failed, 1)
	fields := failed[0].ContextMap()
	s.Equal(metrics.OpSerialize, fields[log.FieldNameOp])
	s.Equal("convert_test.broken", fields[log.FieldNameType])
	s.Equal(traceID.String(), fields[log.FieldNameTraceID])
	s.Equal(merr.KindEncoding.String(), fields["kind"])

	b := convert.NewBatch(2)
	defer b.Close()
	_, err = convert.EncodeJSONAll(s.ctx, b, []model.Point{{X: 1}, {X: 2}}, nil)
	s.Require().NoError(err)
	done := logs.FilterMessage("conversion done").FilterField(log.FieldOp(metrics.OpToJSON)).All()
	s.Require().Len(done, 2)
	for _, e := range done {
		s.Equal("convert.batch", e.ContextMap()[log.FieldNameModule])
		s.NotContains(e.ContextMap(), log.FieldNameTraceID)
	}
}

func (s *ConvertSuite) TestBatch() {
	b := convert.NewBatch(4)
	defer b.Close()

	points := make([]model.Point, 64)
	for i := range points {
		points[i] = model.Point{X: int64(i), Y: int64(-i)}
	}

	cs, err := convert.EncodeAll(s.ctx, b, points, nil)
	s.Require().NoError(err)
	s.Len(cs, len(points))

	got, err := convert.DecodeAll(s.ctx, b, model.PointFactory, cs, nil)
	s.Require().NoError(err)
	s.Equal(points, got)

	texts, err := convert.EncodeJSONAll(s.ctx, b, points, nil)
	s.Require().NoError(err)
	s.Equal(`{"x":5,"y":-5}`, texts[5])

	got, err = convert.DecodeJSONAll(s.ctx, b, model.PointFactory, texts, nil)
	s.Require().NoError(err)
	s.Equal(points, got)

	empty, err := convert.EncodeAll(s.ctx, b, []model.Point{}, nil)
	s.NoError(err)
	s.Empty(empty)
}

func (s *ConvertSuite) TestBatchFirstError() {
	b := convert.NewBatch(0)
	defer b.Close()

	texts := []string{`{"x":1,"y":1}`, `{"x":2}`, `{"x":`, `{"x":3,"y":3}`}
	got, err := convert.DecodeJSONAll(s.ctx, b, model.PointFactory, texts, nil)
	s.Nil(got)
	s.ErrorIs(err, merr.ErrSchemaMismatch)

	texts = make([]string, 32)
	for i := range texts {
		texts[i] = fmt.Sprintf(`{"x":%d,"y":0}`, i)
	}
	texts[30] = "not json"
	got, err = convert.DecodeJSONAll(s.ctx, b, model.PointFactory, texts, nil)
	s.Nil(got)
	s.ErrorIs(err, merr.ErrParse)
}

func (s *ConvertSuite) TestBatchCanceled() {
	b := convert.NewBatch(2)
	defer b.Close()

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	got, err := convert.EncodeAll(ctx, b, []model.Point{{X: 1}, {X: 2}}, nil)
	s.Nil(got)
	s.ErrorIs(err, context.Canceled)
}

func (s *ConvertSuite) TestBatchInflightBalanced() {
	before := testutil.ToFloat64(metrics.BatchInflight)

	b := convert.NewBatch(2)
	_, err := convert.EncodeAll(s.ctx, b, []model.Point{{X: 1}, {X: 2}, {X: 3}}, nil)
	s.Require().NoError(err)
	s.Equal(before, testutil.ToFloat64(metrics.BatchInflight))

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err = convert.EncodeAll(ctx, b, []model.Point{{X: 1}, {X: 2}}, nil)
	s.ErrorIs(err, context.Canceled)
	s.Equal(before, testutil.ToFloat64(metrics.BatchInflight))

	// 已释放的协程池拒绝提交，任务不会运行。
	b.Close()
	_, err = convert.EncodeAll(s.ctx, b, []model.Point{{X: 1}, {X: 2}}, nil)
	s.ErrorIs(err, ants.ErrPoolClosed)
	s.Equal(before, testutil.ToFloat64(metrics.BatchInflight))

	// 非阻塞的池在占满时拒绝提交。
	nb := convert.NewBatch(1, conc.WithNonBlocking(true))
	defer nb.Close()
	items := make([]model.Point, 64)
	_, err = convert.EncodeAll(s.ctx, nb, items, nil)
	if err != nil {
		s.ErrorIs(err, ants.ErrPoolOverload)
	}
	s.Equal(before, testutil.ToFloat64(metrics.BatchInflight))
}

func (s *ConvertSuite) TestBatchPanic() {
	b := convert.NewBatch(2)
	defer b.Close()

	got, err := convert.EncodeAll(s.ctx, b, []convert.Serializable{model.Point{X: 1}, explosive{}}, nil)
	s.Nil(got)
	s.ErrorContains(err, "explosive serializer")

	// 协程池在 panic 后仍可用。
	cs, err := convert.EncodeAll(s.ctx, b, []model.Point{{X: 1}}, nil)
	s.NoError(err)
	s.Len(cs, 1)
}

func (s *ConvertSuite) TestBinarySerializer() {
	ser := convert.BinarySerializer[model.ServerUser]{
		Factory:  model.ServerUserFactory,
		Settings: settings.Settings{binfmt.KeyCompression: "s2"},
	}
	u := model.ServerUser{ID: "u", PassHash: "h", SigKey: "k", DisplayName: "d"}
	data, err := ser.Marshal(u)
	s.Require().NoError(err)

	var got model.ServerUser
	s.Require().NoError(ser.Unmarshal(data, &got))
	s.Equal(u, got)

	_, err = ser.Marshal(42)
	s.ErrorIs(err, merr.ErrParameterInvalid)
	s.ErrorIs(ser.Unmarshal(data, got), merr.ErrParameterInvalid)
	s.ErrorIs(ser.Unmarshal([]byte{0xff}, &got), merr.ErrCorruptData)
	s.Equal(u, got)

	var p model.Point
	s.ErrorIs(convert.BinarySerializer[model.Point]{}.Unmarshal(data, &p), merr.ErrParameterMissing)
}

func (s *ConvertSuite) TestJSONSerializer() {
	var ser convert.Serializer = convert.JSONSerializer[model.Point]{Factory: model.PointFactory}
	data, err := ser.Marshal(model.Point{X: 3, Y: 4})
	s.Require().NoError(err)
	s.Equal(`{"x":3,"y":4}`, string(data))

	var p model.Point
	s.Require().NoError(ser.Unmarshal(data, &p))
	s.Equal(model.Point{X: 3, Y: 4}, p)

	s.ErrorIs(ser.Unmarshal([]byte(`{"x":3}`), &p), merr.ErrSchemaMismatch)
	s.Equal(model.Point{X: 3, Y: 4}, p)
	s.ErrorIs(ser.Unmarshal(data, &model.Versioned{}), merr.ErrParameterInvalid)
}

func TestConvert(t *testing.T) {
	suite.Run(t, new(ConvertSuite))
}
