package viper

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cast"
	spfviper "github.com/spf13/viper"
)

type Config struct {
	v *spfviper.Viper
}

func New() *Config {
	return &Config{
		v: spfviper.New(),
	}
}

func (c *Config) LoadFile(path string) error {
	if c.v == nil {
		c.v = spfviper.New()
	}

	c.v.SetConfigFile(path)

	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		c.v.SetConfigType("yaml")
	case ".json":
		c.v.SetConfigType("json")
	default:
		// 让 viper 自行推断类型，或在读取时返回清晰的错误信息。
	}

	return c.v.ReadInConfig()
}

func (c *Config) Unmarshal(dst interface{}) error {
	if c.v == nil {
		return nil
	}
	return c.v.Unmarshal(dst)
}

func (c *Config) UnmarshalKey(key string, dst interface{}) error {
	if c.v == nil {
		return nil
	}
	return c.v.UnmarshalKey(key, dst)
}

// IsSet 判断配置中是否存在 key。
func (c *Config) IsSet(key string) bool {
	if c.v == nil {
		return false
	}
	return c.v.IsSet(key)
}

// GetInt 返回 key 对应的整数，缺失或无法转换时返回 0。
func (c *Config) GetInt(key string) int {
	if c.v == nil {
		return 0
	}
	return c.v.GetInt(key)
}

// Keys 返回 key 下一层的子键名（升序）。
func (c *Config) Keys(key string) []string {
	if c.v == nil {
		return nil
	}
	sub := c.v.GetStringMap(key)
	keys := make([]string, 0, len(sub))
	for k := range sub {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FlatStringMap 将 key 下的嵌套配置展开为 "a.b.c" -> "value" 的扁平映射。
//
// 叶子值统一转成字符串；列表值以逗号拼接。key 不存在时返回空映射。
func (c *Config) FlatStringMap(key string) (map[string]string, error) {
	out := make(map[string]string)
	if c.v == nil || !c.v.IsSet(key) {
		return out, nil
	}
	raw := c.v.Get(key)
	tree, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("viper: key %q is not a map, got %T", key, raw)
	}
	if err := flatten("", tree, out); err != nil {
		return nil, fmt.Errorf("viper: flatten %q: %w", key, err)
	}
	return out, nil
}

func flatten(prefix string, tree map[string]interface{}, out map[string]string) error {
	for k, v := range tree {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			if err := flatten(name, val, out); err != nil {
				return err
			}
		case map[interface{}]interface{}:
			if err := flatten(name, cast.ToStringMap(val), out); err != nil {
				return err
			}
		case []interface{}:
			items, err := cast.ToStringSliceE(val)
			if err != nil {
				return fmt.Errorf("key %q: %w", name, err)
			}
			out[name] = strings.Join(items, ",")
		default:
			s, err := cast.ToStringE(val)
			if err != nil {
				return fmt.Errorf("key %q: %w", name, err)
			}
			out[name] = s
		}
	}
	return nil
}
