// Package convert 定义领域对象在内存形式、二进制容器与 JSON 文本之间转换的能力约定。
//
// 约定分为两部分：
//   - Serializable：实例级能力（Serialize/ToJSON），只读，不修改实例。
//   - Factory[T]：类型级能力（Deserialize/FromJSON），不需要预先存在的实例。
//
// 每次调用都显式携带 settings.Settings，缺失的键使用各实现文档中声明的默认值。
// 失败时返回 merr 分类体系中的错误，且不会产出部分有效的结果。
package convert

import (
	"fmt"

	"github.com/lk2023060901/logos-convert/pkg/binfmt"
	"github.com/lk2023060901/logos-convert/pkg/settings"
)

// Serializable 是实例级的转换能力。
type Serializable interface {
	// Serialize 将实例状态编码到 dst 中并返回 dst。
	//
	// 字段无法表示时返回 ErrEncoding，设置缺失或非法时返回 ErrInvalidSettings。
	// 失败时返回 nil，dst 保持原状。
	Serialize(dst *binfmt.Container, s settings.Settings) (*binfmt.Container, error)

	// ToJSON 返回实例的 JSON 文本，字段无法表示时返回 ErrEncoding。
	ToJSON(s settings.Settings) (string, error)
}

// Factory 是类型级的构造能力。
type Factory[T any] interface {
	// Deserialize 从容器重建实例。
	//
	// 内容结构不符返回 ErrCorruptData，格式版本不受支持返回 ErrVersionMismatch，
	// 设置非法返回 ErrInvalidSettings。失败时返回零值。
	Deserialize(src *binfmt.Container, s settings.Settings) (T, error)

	// FromJSON 解析 JSON 文本构造实例。
	//
	// 文本不合法返回 ErrParse，必需字段缺失或形状不符返回 ErrSchemaMismatch，
	// 设置非法返回 ErrInvalidSettings。失败时返回零值。
	FromJSON(text string, s settings.Settings) (T, error)
}

// TypeNamer 由希望以固定名称出现在容器、日志与指标中的类型实现。
type TypeNamer interface {
	TypeName() string
}

// TypeName 返回 v 的类型名，未实现 TypeNamer 时使用 Go 类型名。
func TypeName(v any) string {
	if n, ok := v.(TypeNamer); ok {
		return n.TypeName()
	}
	return fmt.Sprintf("%T", v)
}

// FactoryFuncs 把一对包级函数适配为 Factory。
//
// 无论底层函数返回什么，失败时都只返回零值。
type FactoryFuncs[T any] struct {
	Name            string
	DeserializeFunc func(src *binfmt.Container, s settings.Settings) (T, error)
	FromJSONFunc    func(text string, s settings.Settings) (T, error)
}

var _ Factory[int] = FactoryFuncs[int]{}

// TypeName 实现 TypeNamer。
func (f FactoryFuncs[T]) TypeName() string {
	if f.Name != "" {
		return f.Name
	}
	var zero T
	return TypeName(zero)
}

// Deserialize 实现 Factory。
func (f FactoryFuncs[T]) Deserialize(src *binfmt.Container, s settings.Settings) (T, error) {
	var zero T
	v, err := f.DeserializeFunc(src, s)
	if err != nil {
		return zero, err
	}
	return v, nil
}

// FromJSON 实现 Factory。
func (f FactoryFuncs[T]) FromJSON(text string, s settings.Settings) (T, error) {
	var zero T
	v, err := f.FromJSONFunc(text, s)
	if err != nil {
		return zero, err
	}
	return v, nil
}
