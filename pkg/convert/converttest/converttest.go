// Package converttest 提供 convert 约定的一致性检查，供各实现的单元测试复用。
package converttest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/logos-convert/pkg/binfmt"
	"github.com/lk2023060901/logos-convert/pkg/convert"
	"github.com/lk2023060901/logos-convert/pkg/settings"
)

// snapshot 以 %#v 记录值的完整内容（map 按键排序），用于检查实例未被修改。
func snapshot(v any) string {
	return fmt.Sprintf("%#v", v)
}

// RoundTrip 检查二进制往返：Deserialize(Serialize(v, s), s) == want。
// want 为 v 在 s 选中字段上的投影。
func RoundTrip[T convert.Serializable](t *testing.T, f convert.Factory[T], v T, s settings.Settings, want T) {
	t.Helper()
	c, err := v.Serialize(binfmt.NewContainer(), s)
	require.NoError(t, err)
	require.NotNil(t, c)

	got, err := f.Deserialize(c, s)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// JSONRoundTrip 检查 JSON 往返：FromJSON(ToJSON(v, s), s) == want。
func JSONRoundTrip[T convert.Serializable](t *testing.T, f convert.Factory[T], v T, s settings.Settings, want T) {
	t.Helper()
	text, err := v.ToJSON(s)
	require.NoError(t, err)

	got, err := f.FromJSON(text, s)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// Idempotent 检查重复调用得到相同输出，且实例保持不变。
func Idempotent[T convert.Serializable](t *testing.T, v T, s settings.Settings) {
	t.Helper()
	before := snapshot(v)

	c1, err := v.Serialize(binfmt.NewContainer(), s)
	require.NoError(t, err)
	c2, err := v.Serialize(binfmt.NewContainer(), s)
	require.NoError(t, err)
	assert.True(t, c1.Equal(c2), "serialize output differs between calls: %s vs %s", c1, c2)

	j1, err := v.ToJSON(s)
	require.NoError(t, err)
	j2, err := v.ToJSON(s)
	require.NoError(t, err)
	assert.Equal(t, j1, j2)

	assert.Equal(t, before, snapshot(v), "conversion must not modify the instance")
}

// DefaultStable 检查省略可选键与显式给出默认值的结果一致。
func DefaultStable[T convert.Serializable](t *testing.T, v T, opts ...settings.Option) {
	t.Helper()
	explicit := settings.Settings{}
	for _, o := range opts {
		if o.Default != "" {
			explicit[o.Key] = o.Default
		}
	}

	c1, err := v.Serialize(binfmt.NewContainer(), nil)
	require.NoError(t, err)
	c2, err := v.Serialize(binfmt.NewContainer(), explicit)
	require.NoError(t, err)
	assert.True(t, c1.Equal(c2), "defaults %v change the binary form", explicit)

	j1, err := v.ToJSON(nil)
	require.NoError(t, err)
	j2, err := v.ToJSON(explicit)
	require.NoError(t, err)
	assert.Equal(t, j1, j2, "defaults %v change the JSON form", explicit)
}

// DeserializeFails 检查失败的 Deserialize 返回 target 分类的错误和零值。
func DeserializeFails[T any](t *testing.T, f convert.Factory[T], src *binfmt.Container, s settings.Settings, target error) {
	t.Helper()
	var zero T
	got, err := f.Deserialize(src, s)
	assert.ErrorIs(t, err, target)
	assert.Equal(t, zero, got, "failed deserialize must not yield an instance")
}

// FromJSONFails 检查失败的 FromJSON 返回 target 分类的错误和零值。
func FromJSONFails[T any](t *testing.T, f convert.Factory[T], text string, s settings.Settings, target error) {
	t.Helper()
	var zero T
	got, err := f.FromJSON(text, s)
	assert.ErrorIs(t, err, target)
	assert.Equal(t, zero, got, "failed fromJSON must not yield an instance")
}

// SerializeFails 检查失败的 Serialize 返回 target 分类的错误，且不改写目标容器。
func SerializeFails[T convert.Serializable](t *testing.T, v T, s settings.Settings, target error) {
	t.Helper()
	dst := binfmt.NewContainer()
	c, err := v.Serialize(dst, s)
	assert.ErrorIs(t, err, target)
	assert.Nil(t, c)
	assert.True(t, dst.IsEmpty(), "failed serialize must not touch the container")
}

// ToJSONFails 检查失败的 ToJSON 返回 target 分类的错误和空文本。
func ToJSONFails[T convert.Serializable](t *testing.T, v T, s settings.Settings, target error) {
	t.Helper()
	text, err := v.ToJSON(s)
	assert.ErrorIs(t, err, target)
	assert.Empty(t, text)
}

// Conformance 依次执行往返、幂等与默认值稳定性检查。
func Conformance[T convert.Serializable](t *testing.T, f convert.Factory[T], v T, s settings.Settings, want T, opts ...settings.Option) {
	t.Helper()
	t.Run("RoundTrip", func(t *testing.T) { RoundTrip(t, f, v, s, want) })
	t.Run("JSONRoundTrip", func(t *testing.T) { JSONRoundTrip(t, f, v, s, want) })
	t.Run("Idempotent", func(t *testing.T) { Idempotent(t, v, s) })
	t.Run("DefaultStable", func(t *testing.T) { DefaultStable(t, v, opts...) })
}
