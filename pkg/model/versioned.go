package model

import (
	"github.com/lk2023060901/logos-convert/pkg/binfmt"
	"github.com/lk2023060901/logos-convert/pkg/convert"
	"github.com/lk2023060901/logos-convert/pkg/jsondoc"
	"github.com/lk2023060901/logos-convert/pkg/settings"
)

const (
	VersionedTypeName = "model.Versioned"

	versionedFieldVersion binfmt.Field = 1
)

// Versioned 是带递增版本号的对象。
type Versioned struct {
	Version int64
}

var _ convert.Serializable = Versioned{}

// VersionedFactory 是 Versioned 的类型级构造能力。
var VersionedFactory = convert.FactoryFuncs[Versioned]{
	Name:            VersionedTypeName,
	DeserializeFunc: DeserializeVersioned,
	FromJSONFunc:    VersionedFromJSON,
}

// VersionedOptions 列出 Versioned 识别的设置键。
func VersionedOptions() []settings.Option {
	return options()
}

func (Versioned) TypeName() string { return VersionedTypeName }

// Upgrade 将版本号加一。
func (v *Versioned) Upgrade() {
	v.Version++
}

// Serialize 实现 convert.Serializable。
func (v Versioned) Serialize(dst *binfmt.Container, s settings.Settings) (*binfmt.Container, error) {
	w := binfmt.NewWriter()
	w.Int64(versionedFieldVersion, v.Version)
	return binfmt.Seal(dst, VersionedTypeName, w, s)
}

// ToJSON 实现 convert.Serializable。
func (v Versioned) ToJSON(s settings.Settings) (string, error) {
	return jsondoc.Encode(jsondoc.Object{"version": v.Version}, s)
}

// DeserializeVersioned 从容器重建 Versioned。
func DeserializeVersioned(src *binfmt.Container, s settings.Settings) (Versioned, error) {
	r, err := binfmt.Open(src, VersionedTypeName, s)
	if err != nil {
		return Versioned{}, err
	}
	var v Versioned
	fields := newFieldTracker(map[binfmt.Field]string{versionedFieldVersion: "version"})
	for r.Next() {
		if r.Field() == versionedFieldVersion {
			v.Version = r.Int64()
			fields.mark(versionedFieldVersion)
		}
	}
	if err := r.Err(); err != nil {
		return Versioned{}, err
	}
	if err := fields.require(versionedFieldVersion); err != nil {
		return Versioned{}, err
	}
	return v, nil
}

// VersionedFromJSON 解析 JSON 文本构造 Versioned。
func VersionedFromJSON(text string, s settings.Settings) (Versioned, error) {
	doc, err := jsondoc.Decode(text, s)
	if err != nil {
		return Versioned{}, err
	}
	if err := doc.Strict("version"); err != nil {
		return Versioned{}, err
	}
	version, err := doc.Int64("version")
	if err != nil {
		return Versioned{}, err
	}
	return Versioned{Version: version}, nil
}
