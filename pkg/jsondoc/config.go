package jsondoc

import (
	"strings"

	"github.com/lk2023060901/logos-convert/internal/json"
	"github.com/lk2023060901/logos-convert/pkg/settings"
)

// JSON 形式识别的设置键。
const (
	KeyEngine = "json.engine"
	KeyIndent = "json.indent"
	KeyStrict = "json.strict"
)

// Options 列出 JSON 形式识别的设置键。
func Options() []settings.Option {
	return []settings.Option{
		{Key: KeyEngine, Accepted: strings.Join(json.Engines(), "|"), Default: json.EngineSonic, Doc: "JSON engine"},
		{Key: KeyIndent, Accepted: "int 0..8", Default: "0", Doc: "spaces per indent level, 0 writes compact text"},
		{Key: KeyStrict, Accepted: "bool", Default: "false", Doc: "reject unknown object keys when reading"},
	}
}

// Config 是从设置中解析出的 JSON 参数。
type Config struct {
	Engine json.API
	Indent int
	Strict bool
}

// ParseConfig 解析并校验设置，非法值返回 ErrInvalidSettings。
func ParseConfig(s settings.Settings) (Config, error) {
	name, err := s.Enum(KeyEngine, json.EngineSonic, json.Engines()...)
	if err != nil {
		return Config{}, err
	}
	engine, err := json.Engine(name)
	if err != nil {
		return Config{}, err
	}
	indent, err := s.IntRange(KeyIndent, 0, 0, 8)
	if err != nil {
		return Config{}, err
	}
	strict, err := s.Bool(KeyStrict, false)
	if err != nil {
		return Config{}, err
	}
	return Config{Engine: engine, Indent: indent, Strict: strict}, nil
}
