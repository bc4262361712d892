package jsondoc

import (
	stdjson "encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/lk2023060901/logos-convert/pkg/settings"
	"github.com/lk2023060901/logos-convert/pkg/util/merr"
	"github.com/lk2023060901/logos-convert/pkg/util/typeutil"
)

// Doc 是解析后的 JSON 对象，提供带形状检查的字段访问。
//
// 所有访问失败都返回 ErrSchemaMismatch。
type Doc struct {
	path   string
	fields map[string]any
	strict bool
}

// Decode 解析 text。文本不是合法 JSON（含非法 UTF-8）时返回 ErrParse，顶层不是对象时返回 ErrSchemaMismatch。
func Decode(text string, s settings.Settings) (*Doc, error) {
	cfg, err := ParseConfig(s)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, merr.WrapErrParse(fmt.Errorf("empty input"))
	}
	// 两种引擎对非法字节的处理不同，统一在此拒绝。
	if !utf8.ValidString(text) {
		return nil, merr.WrapErrParse(fmt.Errorf("invalid UTF-8 in input"))
	}
	var v any
	if err := cfg.Engine.Unmarshal([]byte(text), &v); err != nil {
		return nil, merr.WrapErrParse(err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, merr.WrapErrSchemaMismatch("$", "top level is "+kindOf(v)+", expect object")
	}
	return &Doc{fields: obj, strict: cfg.Strict}, nil
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		if _, ok := numberText(v); ok {
			return "number"
		}
		return fmt.Sprintf("%T", v)
	}
}

// numberText 返回数字的原始文本，兼容各引擎的数字表示。
func numberText(v any) (string, bool) {
	switch n := v.(type) {
	case stdjson.Number:
		return n.String(), true
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64), true
	case fmt.Stringer:
		if reflect.TypeOf(v).Kind() == reflect.String {
			return n.String(), true
		}
	}
	return "", false
}

func (d *Doc) name(key string) string {
	return join(d.path, key)
}

// Mismatch 返回带完整路径的 ErrSchemaMismatch，供调用方报告字段级的语义错误。
func (d *Doc) Mismatch(key, reason string) error {
	return merr.WrapErrSchemaMismatch(d.name(key), reason)
}

// Keys 返回对象全部键，按字典序排列。
func (d *Doc) Keys() []string {
	return typeutil.Sorted(typeutil.NewSet(lo.Keys(d.fields)...))
}

// Has 判断键是否存在且不为 null。
func (d *Doc) Has(key string) bool {
	v, ok := d.fields[key]
	return ok && v != nil
}

// Require 检查 keys 全部存在，缺失的键一并报告。
func (d *Doc) Require(keys ...string) error {
	missing := lo.Filter(keys, func(k string, _ int) bool { return !d.Has(k) })
	if len(missing) > 0 {
		return merr.WrapErrSchemaFieldsMissing(lo.Map(missing, func(k string, _ int) string { return d.name(k) }))
	}
	return nil
}

// Strict 在 json.strict 开启时拒绝 known 以外的键。
func (d *Doc) Strict(known ...string) error {
	if !d.strict {
		return nil
	}
	allowed := typeutil.NewSet(known...)
	unknown := lo.Filter(d.Keys(), func(k string, _ int) bool { return !allowed.Contain(k) })
	if len(unknown) > 0 {
		return d.Mismatch(unknown[0], "unknown field")
	}
	return nil
}

func (d *Doc) get(key string) (any, error) {
	v, ok := d.fields[key]
	if !ok || v == nil {
		return nil, merr.WrapErrSchemaFieldsMissing([]string{d.name(key)})
	}
	return v, nil
}

func parseInt64(text string) (int64, bool) {
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, true
	}
	// 1e3、2.0 这类写法只要是整数值也接受
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func toInt64(v any) (int64, bool) {
	text, ok := numberText(v)
	if !ok {
		return 0, false
	}
	return parseInt64(text)
}

// Int64 读取整数字段。
func (d *Doc) Int64(key string) (int64, error) {
	v, err := d.get(key)
	if err != nil {
		return 0, err
	}
	n, ok := toInt64(v)
	if !ok {
		return 0, d.Mismatch(key, "expect integer, got "+kindOf(v))
	}
	return n, nil
}

// Float64 读取数字字段。
func (d *Doc) Float64(key string) (float64, error) {
	v, err := d.get(key)
	if err != nil {
		return 0, err
	}
	text, ok := numberText(v)
	if !ok {
		return 0, d.Mismatch(key, "expect number, got "+kindOf(v))
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, d.Mismatch(key, "number out of range")
	}
	return f, nil
}

// String 读取字符串字段。
func (d *Doc) String(key string) (string, error) {
	v, err := d.get(key)
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok {
		return "", d.Mismatch(key, "expect string, got "+kindOf(v))
	}
	return str, nil
}

// Bool 读取布尔字段。
func (d *Doc) Bool(key string) (bool, error) {
	v, err := d.get(key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, d.Mismatch(key, "expect boolean, got "+kindOf(v))
	}
	return b, nil
}

// Int64s 读取整数数组字段。
func (d *Doc) Int64s(key string) ([]int64, error) {
	v, err := d.get(key)
	if err != nil {
		return nil, err
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, d.Mismatch(key, "expect array, got "+kindOf(v))
	}
	out := make([]int64, 0, len(arr))
	for i, e := range arr {
		n, ok := toInt64(e)
		if !ok {
			return nil, d.Mismatch(fmt.Sprintf("%s[%d]", key, i), "expect integer, got "+kindOf(e))
		}
		out = append(out, n)
	}
	return out, nil
}

// Int64Map 读取键为十进制整数、值为整数的对象字段。
// 键必须是规范写法（无前导零、无正号），否则 "1" 与 "01" 会指向同一个键。
func (d *Doc) Int64Map(key string) (map[int64]int64, error) {
	v, err := d.get(key)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, d.Mismatch(key, "expect object, got "+kindOf(v))
	}
	out := make(map[int64]int64, len(obj))
	for k, e := range obj {
		ik, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, d.Mismatch(join(key, k), "key is not an integer")
		}
		if strconv.FormatInt(ik, 10) != k {
			return nil, d.Mismatch(join(key, k), "non-canonical integer key")
		}
		n, ok := toInt64(e)
		if !ok {
			return nil, d.Mismatch(join(key, k), "expect integer, got "+kindOf(e))
		}
		out[ik] = n
	}
	return out, nil
}

// Object 读取嵌套对象字段。
func (d *Doc) Object(key string) (*Doc, error) {
	v, err := d.get(key)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, d.Mismatch(key, "expect object, got "+kindOf(v))
	}
	return &Doc{path: d.name(key), fields: obj, strict: d.strict}, nil
}

// Int64MapObject 把整数映射转为可编码的对象，键为十进制文本。
func Int64MapObject(m map[int64]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[strconv.FormatInt(k, 10)] = v
	}
	return out
}
