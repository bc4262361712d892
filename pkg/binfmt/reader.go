package binfmt

import (
	"fmt"
	"math"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/lk2023060901/logos-convert/pkg/util/merr"
)

// Reader 逐个遍历载荷中的字段。
//
// 典型用法：
//
//	for r.Next() {
//		switch r.Field() {
//		case 1:
//			x = r.Int64()
//		}
//	}
//	if err := r.Err(); err != nil { ... }
//
// 未识别的字段直接跳过即可。类型不符或数据截断记为 ErrCorruptData，之后 Next 返回 false。
type Reader struct {
	data  []byte
	field Field
	typ   protowire.Type
	value []byte
	err   error
}

// NewReader 创建一个读取 data 的 Reader。
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = merr.WrapErrCorruptData(fmt.Sprintf(format, args...))
	}
}

// Next 前进到下一个字段，没有更多字段或出错时返回 false。
func (r *Reader) Next() bool {
	if r.err != nil || len(r.data) == 0 {
		return false
	}
	num, typ, n := protowire.ConsumeTag(r.data)
	if n < 0 {
		r.fail("bad field tag: %v", protowire.ParseError(n))
		return false
	}
	m := protowire.ConsumeFieldValue(num, typ, r.data[n:])
	if m < 0 {
		r.fail("bad value of field %d: %v", int32(num), protowire.ParseError(m))
		return false
	}
	r.field, r.typ = num, typ
	r.value = r.data[n : n+m]
	r.data = r.data[n+m:]
	return true
}

// Field 返回当前字段编号。
func (r *Reader) Field() Field {
	return r.field
}

func (r *Reader) expect(typ protowire.Type) bool {
	if r.err != nil {
		return false
	}
	if r.typ != typ {
		r.fail("field %d: unexpected wire type %d, want %d", int32(r.field), r.typ, typ)
		return false
	}
	return true
}

func (r *Reader) varint() uint64 {
	if !r.expect(protowire.VarintType) {
		return 0
	}
	v, _ := protowire.ConsumeVarint(r.value)
	return v
}

// Uint64 读取无符号整数。
func (r *Reader) Uint64() uint64 {
	return r.varint()
}

// Int64 读取 zigzag 编码的有符号整数。
func (r *Reader) Int64() int64 {
	return protowire.DecodeZigZag(r.varint())
}

// Bool 读取布尔值，只接受 0 和 1。
func (r *Reader) Bool() bool {
	v := r.varint()
	if v > 1 {
		r.fail("field %d: bool out of range: %d", int32(r.field), v)
		return false
	}
	return v == 1
}

// Fixed64 读取定长 64 位整数。
func (r *Reader) Fixed64() uint64 {
	if !r.expect(protowire.Fixed64Type) {
		return 0
	}
	v, _ := protowire.ConsumeFixed64(r.value)
	return v
}

// Float64 读取浮点数。
func (r *Reader) Float64() float64 {
	return math.Float64frombits(r.Fixed64())
}

// Bytes 读取原始字节，返回值引用底层数据，需要保留时应自行拷贝。
func (r *Reader) Bytes() []byte {
	if !r.expect(protowire.BytesType) {
		return nil
	}
	v, _ := protowire.ConsumeBytes(r.value)
	return v
}

// String 读取 UTF-8 字符串。
func (r *Reader) String() string {
	b := r.Bytes()
	if r.err != nil {
		return ""
	}
	if !utf8.Valid(b) {
		r.fail("field %d: string is not valid UTF-8", int32(r.field))
		return ""
	}
	return string(b)
}

// Int64s 读取整数列表，兼容 packed 与单值两种写法。
func (r *Reader) Int64s() []int64 {
	if r.err != nil {
		return nil
	}
	if r.typ == protowire.VarintType {
		return []int64{r.Int64()}
	}
	packed := r.Bytes()
	var out []int64
	for len(packed) > 0 {
		v, n := protowire.ConsumeVarint(packed)
		if n < 0 {
			r.fail("field %d: bad packed element: %v", int32(r.field), protowire.ParseError(n))
			return nil
		}
		out = append(out, protowire.DecodeZigZag(v))
		packed = packed[n:]
	}
	return out
}

// Message 返回读取嵌套字段的子 Reader。
// 子 Reader 的错误需要调用方通过 Propagate 合并回来。
func (r *Reader) Message() *Reader {
	return NewReader(r.Bytes())
}

// Propagate 将子 Reader 的错误记录到当前 Reader。
func (r *Reader) Propagate(sub *Reader) {
	if r.err == nil && sub.err != nil {
		r.err = sub.err
	}
}

// Err 返回读取过程中遇到的第一个错误。
func (r *Reader) Err() error {
	return r.err
}
