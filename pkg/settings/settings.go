package settings

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/lk2023060901/logos-convert/pkg/util/merr"
	"github.com/lk2023060901/logos-convert/pkg/util/typeutil"
)

// Settings 是一次转换调用携带的选项集合。
//
// nil 是合法的空集合；各组件对缺失的键使用自己文档中声明的默认值。
// 约定只读：需要派生新集合时使用 With/Merge/Clone，它们总是拷贝。
type Settings map[string]string

// Empty 返回一个空集合。
func Empty() Settings {
	return Settings{}
}

// Has 判断键是否存在（值为空字符串也视为存在）。
func (s Settings) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Lookup 返回原始值。
func (s Settings) Lookup(key string) (string, bool) {
	v, ok := s[key]
	return v, ok
}

// String 返回去除首尾空白后的值；键缺失或值为空时返回 def。
func (s Settings) String(key, def string) string {
	v, ok := s[key]
	if !ok {
		return def
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

// Bool 解析布尔值，接受 1/0、true/false、yes/no、on/off（大小写不敏感）。
func (s Settings) Bool(key string, def bool) (bool, error) {
	v, ok := s[key]
	if !ok {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return def, merr.WrapErrInvalidSettings(key, v, "expect a boolean")
	}
}

// Int 解析十进制整数。
func (s Settings) Int(key string, def int) (int, error) {
	v, ok := s[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def, merr.WrapErrInvalidSettings(key, v, "expect an integer")
	}
	return n, nil
}

// IntRange 解析整数并检查闭区间 [lower, upper]。
func (s Settings) IntRange(key string, def, lower, upper int) (int, error) {
	n, err := s.Int(key, def)
	if err != nil {
		return def, err
	}
	if n < lower || n > upper {
		return def, merr.WrapErrSettingOutOfRange(key, lower, upper, n)
	}
	return n, nil
}

// Enum 返回小写化后的枚举值，值不在 allowed 中时报错。
func (s Settings) Enum(key, def string, allowed ...string) (string, error) {
	v := strings.ToLower(s.String(key, def))
	if !lo.Contains(allowed, v) {
		return def, merr.WrapErrInvalidSettings(key, s[key], "expect one of "+strings.Join(allowed, "|"))
	}
	return v, nil
}

// Require 返回必填键的值。
func (s Settings) Require(key string) (string, error) {
	v := s.String(key, "")
	if v == "" {
		return "", merr.WrapErrSettingMissing(key)
	}
	return v, nil
}

// Hex 读取必填的十六进制编码值。
func (s Settings) Hex(key string) ([]byte, error) {
	v, err := s.Require(key)
	if err != nil {
		return nil, err
	}
	b, err := hex.DecodeString(v)
	if err != nil {
		// 不回显密钥内容
		return nil, merr.WrapErrInvalidSettings(key, "<redacted>", "expect hex encoded bytes")
	}
	return b, nil
}

// With 返回追加了 key=value 的新集合。
func (s Settings) With(key, value string) Settings {
	out := s.Clone()
	out[key] = value
	return out
}

// Merge 返回 s 与 others 合并后的新集合，后出现的值覆盖先出现的值。
func (s Settings) Merge(others ...Settings) Settings {
	out := s.Clone()
	for _, o := range others {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}

// Clone 返回一份拷贝，nil 拷贝为空集合。
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Keys 返回按字典序排列的全部键。
func (s Settings) Keys() []string {
	return typeutil.Sorted(typeutil.NewSet(lo.Keys(s)...))
}
