// Package json 封装进程内使用的 JSON 引擎，默认基于 bytedance/sonic。
//
// 所有引擎都按键排序输出对象并以 json.Number 保留数字精度，保证相同输入的编码结果一致。
package json

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	jsoniter "github.com/json-iterator/go"
)

// API 是引擎需要提供的最小能力集合，sonic.API 与 jsoniter.API 均满足。
type API interface {
	Marshal(v any) ([]byte, error)
	MarshalIndent(v any, prefix, indent string) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Valid(data []byte) bool
}

const (
	EngineSonic    = "sonic"
	EngineJsoniter = "jsoniter"
)

var (
	sonicAPI API = sonic.Config{
		SortMapKeys:    true,
		UseNumber:      true,
		ValidateString: true,
		CopyString:     true,
	}.Froze()

	jsoniterAPI API = jsoniter.Config{
		SortMapKeys:            true,
		UseNumber:              true,
		ValidateJsonRawMessage: true,
	}.Froze()

	engines = map[string]API{
		EngineSonic:    sonicAPI,
		EngineJsoniter: jsoniterAPI,
	}
)

// Engines 返回可选引擎名。
func Engines() []string {
	return []string{EngineSonic, EngineJsoniter}
}

// Engine 按名称返回引擎，名称为空时返回默认的 sonic。
func Engine(name string) (API, error) {
	if name == "" {
		return sonicAPI, nil
	}
	api, ok := engines[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("json: unknown engine %q", name)
	}
	return api, nil
}

// Marshal 使用默认引擎编码。
func Marshal(v any) ([]byte, error) {
	return sonicAPI.Marshal(v)
}

// MarshalIndent 使用默认引擎编码并缩进。
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return sonicAPI.MarshalIndent(v, prefix, indent)
}

// Unmarshal 使用默认引擎解码。
func Unmarshal(data []byte, v any) error {
	return sonicAPI.Unmarshal(data, v)
}

// Valid 判断 data 是否为合法 JSON。
func Valid(data []byte) bool {
	return sonicAPI.Valid(data)
}
