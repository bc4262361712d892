package settings

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/lk2023060901/logos-convert/pkg/util/typeutil"
)

// Option 描述一个组件识别的设置键。
type Option struct {
	Key      string
	Accepted string
	Default  string
	Doc      string
}

// Describe 以对齐的文本表格列出 opts，便于在帮助信息或日志中展示。
func Describe(opts ...Option) string {
	if len(opts) == 0 {
		return ""
	}
	width := lo.Max(lo.Map(opts, func(o Option, _ int) int { return len(o.Key) }))
	var sb strings.Builder
	for _, o := range opts {
		def := o.Default
		if def == "" {
			def = "-"
		}
		fmt.Fprintf(&sb, "%-*s  %s (default: %s)", width, o.Key, o.Accepted, def)
		if o.Doc != "" {
			sb.WriteString("  ")
			sb.WriteString(o.Doc)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Unknown 返回 s 中不被任何 opts 识别的键，按字典序排列。
func Unknown(s Settings, opts ...Option) []string {
	known := typeutil.NewSet(lo.Map(opts, func(o Option, _ int) string { return o.Key })...)
	unknown := typeutil.NewSet[string]()
	for k := range s {
		if !known.Contain(k) {
			unknown.Insert(k)
		}
	}
	return typeutil.Sorted(unknown)
}

// Combine 拼接多个组件的选项列表，重复的键只保留第一次出现。
func Combine(groups ...[]Option) []Option {
	return lo.UniqBy(lo.Flatten(groups), func(o Option) string { return o.Key })
}
