package model

import (
	"github.com/lk2023060901/logos-convert/pkg/binfmt"
	"github.com/lk2023060901/logos-convert/pkg/convert"
	"github.com/lk2023060901/logos-convert/pkg/jsondoc"
	"github.com/lk2023060901/logos-convert/pkg/settings"
)

const (
	PointTypeName = "model.Point"

	// KeyIncludeY 控制是否写出 y，关闭时读取侧也忽略 y，得到零值。
	KeyIncludeY = "include_y"

	pointFieldX binfmt.Field = 1
	pointFieldY binfmt.Field = 2
)

var pointFieldNames = map[binfmt.Field]string{pointFieldX: "x", pointFieldY: "y"}

// Point 是二维整数坐标。
type Point struct {
	X int64
	Y int64
}

var _ convert.Serializable = Point{}

// PointFactory 是 Point 的类型级构造能力。
var PointFactory = convert.FactoryFuncs[Point]{
	Name:            PointTypeName,
	DeserializeFunc: DeserializePoint,
	FromJSONFunc:    PointFromJSON,
}

// PointOptions 列出 Point 识别的设置键。
func PointOptions() []settings.Option {
	return options(settings.Option{Key: KeyIncludeY, Accepted: "bool", Default: "true", Doc: "write and read the y coordinate"})
}

func (Point) TypeName() string { return PointTypeName }

func includeY(s settings.Settings) (bool, error) {
	return s.Bool(KeyIncludeY, true)
}

// Serialize 实现 convert.Serializable。
func (p Point) Serialize(dst *binfmt.Container, s settings.Settings) (*binfmt.Container, error) {
	withY, err := includeY(s)
	if err != nil {
		return nil, err
	}
	w := binfmt.NewWriter()
	w.Int64(pointFieldX, p.X)
	if withY {
		w.Int64(pointFieldY, p.Y)
	}
	return binfmt.Seal(dst, PointTypeName, w, s)
}

// ToJSON 实现 convert.Serializable。
func (p Point) ToJSON(s settings.Settings) (string, error) {
	withY, err := includeY(s)
	if err != nil {
		return "", err
	}
	obj := jsondoc.Object{"x": p.X}
	if withY {
		obj["y"] = p.Y
	}
	return jsondoc.Encode(obj, s)
}

// DeserializePoint 从容器重建 Point。
func DeserializePoint(src *binfmt.Container, s settings.Settings) (Point, error) {
	withY, err := includeY(s)
	if err != nil {
		return Point{}, err
	}
	r, err := binfmt.Open(src, PointTypeName, s)
	if err != nil {
		return Point{}, err
	}

	var p Point
	fields := newFieldTracker(pointFieldNames)
	for r.Next() {
		switch f := r.Field(); f {
		case pointFieldX:
			p.X = r.Int64()
			fields.mark(f)
		case pointFieldY:
			if withY {
				p.Y = r.Int64()
				fields.mark(f)
			}
		}
	}
	if err := r.Err(); err != nil {
		return Point{}, err
	}
	required := []binfmt.Field{pointFieldX}
	if withY {
		required = append(required, pointFieldY)
	}
	if err := fields.require(required...); err != nil {
		return Point{}, err
	}
	return p, nil
}

// PointFromJSON 解析 JSON 文本构造 Point。
func PointFromJSON(text string, s settings.Settings) (Point, error) {
	withY, err := includeY(s)
	if err != nil {
		return Point{}, err
	}
	doc, err := jsondoc.Decode(text, s)
	if err != nil {
		return Point{}, err
	}

	keys := []string{"x"}
	if withY {
		keys = append(keys, "y")
	}
	if err := doc.Require(keys...); err != nil {
		return Point{}, err
	}
	if err := doc.Strict("x", "y"); err != nil {
		return Point{}, err
	}

	var p Point
	if p.X, err = doc.Int64("x"); err != nil {
		return Point{}, err
	}
	if withY {
		if p.Y, err = doc.Int64("y"); err != nil {
			return Point{}, err
		}
	}
	return p, nil
}
