package convert

import (
	"github.com/lk2023060901/logos-convert/pkg/binfmt"
	"github.com/lk2023060901/logos-convert/pkg/settings"
	"github.com/lk2023060901/logos-convert/pkg/util/merr"
)

// Serializer 抽象了“对象 <-> 字节流”的序列化能力，供只认识 []byte 的传输或存储层使用。
type Serializer interface {
	// Marshal 将对象编码为字节序列。
	Marshal(v any) ([]byte, error)

	// Unmarshal 将字节序列解码到目标对象，v 必须为指针。
	Unmarshal(data []byte, v any) error
}

// BinarySerializer 以容器的二进制编码作为字节形式。
type BinarySerializer[T Serializable] struct {
	Factory  Factory[T]
	Settings settings.Settings
}

var _ Serializer = BinarySerializer[Serializable]{}

// Marshal 实现 Serializer。
func (b BinarySerializer[T]) Marshal(v any) ([]byte, error) {
	obj, ok := v.(Serializable)
	if !ok {
		return nil, merr.WrapErrParameterInvalidMsg("BinarySerializer requires convert.Serializable, got %T", v)
	}
	c, err := obj.Serialize(binfmt.NewContainer(), b.Settings)
	if err != nil {
		return nil, err
	}
	return c.MarshalBinary()
}

// Unmarshal 实现 Serializer。
func (b BinarySerializer[T]) Unmarshal(data []byte, v any) error {
	dst, ok := v.(*T)
	if !ok || dst == nil {
		return merr.WrapErrParameterInvalidMsg("BinarySerializer requires *%s, got %T", TypeName(b.Factory), v)
	}
	if b.Factory == nil {
		return merr.WrapErrParameterMissing("factory")
	}
	c := binfmt.NewContainer()
	if err := c.UnmarshalBinary(data); err != nil {
		return err
	}
	obj, err := b.Factory.Deserialize(c, b.Settings)
	if err != nil {
		return err
	}
	*dst = obj
	return nil
}

// JSONSerializer 以 JSON 文本作为字节形式。
type JSONSerializer[T Serializable] struct {
	Factory  Factory[T]
	Settings settings.Settings
}

var _ Serializer = JSONSerializer[Serializable]{}

// Marshal 实现 Serializer。
func (j JSONSerializer[T]) Marshal(v any) ([]byte, error) {
	obj, ok := v.(Serializable)
	if !ok {
		return nil, merr.WrapErrParameterInvalidMsg("JSONSerializer requires convert.Serializable, got %T", v)
	}
	text, err := obj.ToJSON(j.Settings)
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}

// Unmarshal 实现 Serializer。
func (j JSONSerializer[T]) Unmarshal(data []byte, v any) error {
	dst, ok := v.(*T)
	if !ok || dst == nil {
		return merr.WrapErrParameterInvalidMsg("JSONSerializer requires *%s, got %T", TypeName(j.Factory), v)
	}
	if j.Factory == nil {
		return merr.WrapErrParameterMissing("factory")
	}
	obj, err := j.Factory.FromJSON(string(data), j.Settings)
	if err != nil {
		return err
	}
	*dst = obj
	return nil
}
