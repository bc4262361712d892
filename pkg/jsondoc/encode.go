package jsondoc

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/lk2023060901/logos-convert/pkg/settings"
	"github.com/lk2023060901/logos-convert/pkg/util/merr"
)

// Object 是待编码的 JSON 对象，由领域类型按设置挑选字段后构建。
type Object map[string]any

// Encode 校验 obj 能否无损表示为 JSON，然后编码为文本。
//
// NaN/±Inf、非法 UTF-8 字符串以及函数、通道等无法表示的值返回 ErrEncoding。
// 对象键按字典序输出，相同输入得到相同文本。
func Encode(obj Object, s settings.Settings) (string, error) {
	cfg, err := ParseConfig(s)
	if err != nil {
		return "", err
	}
	if obj == nil {
		obj = Object{}
	}
	if err := validate("", reflect.ValueOf(map[string]any(obj))); err != nil {
		return "", err
	}

	var out []byte
	if cfg.Indent > 0 {
		out, err = cfg.Engine.MarshalIndent(map[string]any(obj), "", strings.Repeat(" ", cfg.Indent))
	} else {
		out, err = cfg.Engine.Marshal(map[string]any(obj))
	}
	if err != nil {
		return "", merr.WrapErrEncodingCause(err, "marshal json")
	}
	return string(out), nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func validate(path string, v reflect.Value) error {
	if !v.IsValid() {
		return nil
	}
	switch v.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return nil
	case reflect.Float32, reflect.Float64:
		if f := v.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			return merr.WrapErrEncoding(path, fmt.Sprintf("%v is not representable in JSON", f))
		}
		return nil
	case reflect.String:
		if !utf8.ValidString(v.String()) {
			return merr.WrapErrEncoding(path, "string is not valid UTF-8")
		}
		return nil
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return validate(path, v.Elem())
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil
		}
		for i := 0; i < v.Len(); i++ {
			if err := validate(fmt.Sprintf("%s[%d]", path, i), v.Index(i)); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return merr.WrapErrEncoding(path, "map key type "+v.Type().Key().String()+" is not supported")
		}
		iter := v.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			if !utf8.ValidString(key) {
				return merr.WrapErrEncoding(path, "object key is not valid UTF-8")
			}
			if err := validate(join(path, key), iter.Value()); err != nil {
				return err
			}
		}
		return nil
	default:
		return merr.WrapErrEncoding(path, "type "+v.Type().String()+" is not supported")
	}
}
