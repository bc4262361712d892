package log

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// observe 把全局 Logger 替换为内存观察器，测试结束后恢复。
func observe(t *testing.T) *observer.ObservedLogs {
	prev := current.Load()
	core, logs := observer.New(zapcore.DebugLevel)
	ReplaceGlobals(zap.New(core), &ZapProperties{Core: core, Level: zap.NewAtomicLevelAt(zapcore.DebugLevel)})
	t.Cleanup(func() { current.Store(prev) })
	return logs
}

func TestNewZapEncoder(t *testing.T) {
	for _, format := range []string{"", "json", "text", "console", "JSON"} {
		enc, err := newZapEncoder(&Config{Format: format})
		require.NoError(t, err, format)
		assert.NotNil(t, enc)
	}

	_, err := newZapEncoder(&Config{Format: "xml"})
	assert.Error(t, err)
}

func TestInitTestLogger(t *testing.T) {
	lg, props, err := InitTestLogger(t, &Config{Level: "info", Format: "json"})
	require.NoError(t, err)
	require.NotNil(t, lg)
	assert.Equal(t, zapcore.InfoLevel, props.Level.Level())
	lg.Info("converted", FieldOp("serialize"), FieldType("model.Point"))

	_, props, err = InitTestLogger(t, &Config{Level: "TRACE"})
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, props.Level.Level())

	_, _, err = InitTestLogger(t, &Config{Level: "loud"})
	assert.Error(t, err)
}

func TestFileLogAndCleanup(t *testing.T) {
	dir := t.TempDir()
	lg, _, err := InitLogger(&Config{Level: "info", Format: "json", File: FileLogConfig{RootPath: dir, Filename: "convert.log"}})
	require.NoError(t, err)
	lg.Info("written to file", FieldModule("convert"))
	require.NoError(t, Cleanup())

	data, err := os.ReadFile(filepath.Join(dir, "convert.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"module":"convert"`)
	assert.NoError(t, Cleanup())

	_, _, err = InitLogger(&Config{Level: "info", File: FileLogConfig{RootPath: filepath.Dir(dir), Filename: filepath.Base(dir)}})
	assert.Error(t, err)
}

func TestGlobalFunctions(t *testing.T) {
	logs := observe(t)
	Info("started", FieldModule("app"))
	Warn("degraded")
	Error("failed")
	Debug("detail")
	With(FieldComponent("batch")).Info("scoped")

	require.Equal(t, 5, logs.Len())
	assert.Equal(t, "app", logs.FilterMessage("started").All()[0].ContextMap()[FieldNameModule])
	assert.Equal(t, "batch", logs.FilterMessage("scoped").All()[0].ContextMap()[FieldNameComponent])
	assert.Equal(t, zapcore.DebugLevel, Level().Level())
}

func TestCtxLogger(t *testing.T) {
	logs := observe(t)

	ctx := WithModule(context.Background(), "convert")
	ctx = WithFields(ctx, zap.String("k", "v"))
	Ctx(ctx).Info("with context")
	Ctx(context.TODO()).Info("bare")
	Ctx(nil).Info("nil context") //nolint:staticcheck

	fields := logs.FilterMessage("with context").All()[0].ContextMap()
	assert.Equal(t, "convert", fields[FieldNameModule])
	assert.Equal(t, "v", fields["k"])
	assert.Empty(t, logs.FilterMessage("bare").All()[0].ContextMap())
	assert.Equal(t, 1, logs.FilterMessage("nil context").Len())
}

func TestStartSpan(t *testing.T) {
	logs := observe(t)

	// 没有父链路时不附加 trace_id。
	ctx, span := StartSpan(context.Background(), "test", "convert.serialize", FieldOp("serialize"))
	Ctx(ctx).Info("no parent")
	span.End()
	fields := logs.FilterMessage("no parent").All()[0].ContextMap()
	assert.Equal(t, "serialize", fields[FieldNameOp])
	assert.NotContains(t, fields, FieldNameTraceID)

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	parent := trace.ContextWithSpanContext(WithModule(context.Background(), "batch"),
		trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled}))

	ctx, span = StartSpan(parent, "test", "convert.to_json", FieldType("model.Point"))
	defer span.End()
	Ctx(ctx).Info("traced")
	fields = logs.FilterMessage("traced").All()[0].ContextMap()
	assert.Equal(t, traceID.String(), fields[FieldNameTraceID])
	assert.Equal(t, "batch", fields[FieldNameModule])
	assert.Equal(t, "model.Point", fields[FieldNameType])
}

func TestBinder(t *testing.T) {
	var b Binder
	assert.NotNil(t, b.Logger())

	l := With(FieldComponent("batch"))
	b.SetLogger(l)
	assert.Same(t, l, b.Logger())

	b.SetLogger(nil)
	assert.NotSame(t, l, b.Logger())
}

func TestRatedLogging(t *testing.T) {
	logs := observe(t)

	l := With().WithRateGroup("rated-test", 0, 1)
	assert.True(t, l.RatedWarn(1, "first"))
	// 额度为 1 且不恢复，第二次被丢弃；With 保留分组。
	assert.False(t, l.With(FieldOp("x")).RatedWarn(1, "second"))
	assert.False(t, With().WithRateGroup("rated-test", 0, 1).RatedInfo(1, "same group"))

	assert.True(t, With().RatedInfo(1, "global limiter"))
	assert.Equal(t, 2, logs.Len())
}

func TestRateLimiterFromEnv(t *testing.T) {
	_, ok := rateLimiterFromEnv().(nopRateLimiter)
	assert.True(t, ok)

	t.Setenv(envRateEnable, "true")
	t.Setenv(envRateCredit, "0")
	t.Setenv(envRateBalance, "1")
	rl := rateLimiterFromEnv()
	assert.True(t, rl.CheckCredit(1))
	assert.False(t, rl.CheckCredit(1))

	t.Setenv(envRateEnable, "maybe")
	_, ok = rateLimiterFromEnv().(nopRateLimiter)
	assert.True(t, ok)

	assert.Equal(t, 2.5, envOr("LOGOS_LOG_TEST_UNSET", 2.5, func(v any) (float64, error) { return 0, nil }))
}
