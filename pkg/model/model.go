// Package model 提供实现 convert 约定的领域对象。
//
// 每个类型都导出 XxxFactory（类型级构造能力）与 XxxOptions（识别的设置键），
// 二进制形式由 binfmt 承载，JSON 形式由 jsondoc 承载，两者共享同一组设置。
package model

import (
	"strings"

	"github.com/lk2023060901/logos-convert/pkg/binfmt"
	"github.com/lk2023060901/logos-convert/pkg/jsondoc"
	"github.com/lk2023060901/logos-convert/pkg/settings"
	"github.com/lk2023060901/logos-convert/pkg/util/merr"
	"github.com/lk2023060901/logos-convert/pkg/util/typeutil"
)

// options 在类型自身的键之后附上二进制与 JSON 形式的公共键。
func options(own ...settings.Option) []settings.Option {
	return settings.Combine(own, binfmt.Options(), jsondoc.Options())
}

// fieldTracker 记录载荷中出现过的字段，用于检查必需字段。
type fieldTracker struct {
	seen  typeutil.Set[binfmt.Field]
	names map[binfmt.Field]string
}

func newFieldTracker(names map[binfmt.Field]string) *fieldTracker {
	return &fieldTracker{seen: typeutil.NewSet[binfmt.Field](), names: names}
}

func (t *fieldTracker) mark(f binfmt.Field) {
	t.seen.Insert(f)
}

// require 报告 fields 中缺失的字段（ErrCorruptData）。
func (t *fieldTracker) require(fields ...binfmt.Field) error {
	var missing []string
	for _, f := range fields {
		if !t.seen.Contain(f) {
			missing = append(missing, t.names[f])
		}
	}
	if len(missing) > 0 {
		return merr.WrapErrCorruptData("missing field " + strings.Join(missing, ","))
	}
	return nil
}
