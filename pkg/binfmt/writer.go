package binfmt

import (
	"fmt"
	"math"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/lk2023060901/logos-convert/pkg/util/merr"
)

// Field 是载荷中字段的编号，取值范围与 protobuf 字段号一致。
type Field = protowire.Number

// Writer 以带标签的字段编码载荷。
//
// 第一次失败后后续写入全部忽略，失败原因由 Err 返回（ErrEncoding）。
// 同一组调用顺序得到相同字节，map 等无序结构需由调用方先排序。
type Writer struct {
	buf []byte
	err error
}

// NewWriter 创建一个空 Writer。
func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) tag(f Field, typ protowire.Type) bool {
	if w.err != nil {
		return false
	}
	if !f.IsValid() {
		w.err = merr.WrapErrEncoding("field", fmt.Sprintf("invalid field number %d", int32(f)))
		return false
	}
	w.buf = protowire.AppendTag(w.buf, f, typ)
	return true
}

// Uint64 写入无符号整数。
func (w *Writer) Uint64(f Field, v uint64) {
	if w.tag(f, protowire.VarintType) {
		w.buf = protowire.AppendVarint(w.buf, v)
	}
}

// Int64 以 zigzag 编码写入有符号整数。
func (w *Writer) Int64(f Field, v int64) {
	if w.tag(f, protowire.VarintType) {
		w.buf = protowire.AppendVarint(w.buf, protowire.EncodeZigZag(v))
	}
}

// Bool 写入布尔值。
func (w *Writer) Bool(f Field, v bool) {
	if w.tag(f, protowire.VarintType) {
		w.buf = protowire.AppendVarint(w.buf, protowire.EncodeBool(v))
	}
}

// Fixed64 写入定长 64 位整数。
func (w *Writer) Fixed64(f Field, v uint64) {
	if w.tag(f, protowire.Fixed64Type) {
		w.buf = protowire.AppendFixed64(w.buf, v)
	}
}

// Float64 以 IEEE 754 位模式写入浮点数。
func (w *Writer) Float64(f Field, v float64) {
	w.Fixed64(f, math.Float64bits(v))
}

// String 写入 UTF-8 字符串，非法编码记为 ErrEncoding。
func (w *Writer) String(f Field, v string) {
	if w.err != nil {
		return
	}
	if !utf8.ValidString(v) {
		w.err = merr.WrapErrEncoding(fmt.Sprintf("#%d", int32(f)), "string is not valid UTF-8")
		return
	}
	if w.tag(f, protowire.BytesType) {
		w.buf = protowire.AppendString(w.buf, v)
	}
}

// Bytes 写入原始字节。
func (w *Writer) Bytes(f Field, v []byte) {
	if w.tag(f, protowire.BytesType) {
		w.buf = protowire.AppendBytes(w.buf, v)
	}
}

// Int64s 以 packed zigzag 形式写入整数列表，空列表不写出。
func (w *Writer) Int64s(f Field, vs []int64) {
	if len(vs) == 0 {
		return
	}
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, protowire.EncodeZigZag(v))
	}
	w.Bytes(f, packed)
}

// Message 将子 Writer 的内容作为嵌套字段写入，子 Writer 的失败会传递过来。
func (w *Writer) Message(f Field, sub *Writer) {
	if w.err != nil {
		return
	}
	if sub.err != nil {
		w.err = sub.err
		return
	}
	w.Bytes(f, sub.buf)
}

// Err 返回第一次写入失败的原因。
func (w *Writer) Err() error {
	return w.err
}

// Data 返回已编码的字节。
func (w *Writer) Data() []byte {
	return w.buf
}

// Len 返回已编码的字节数。
func (w *Writer) Len() int {
	return len(w.buf)
}

// Reset 清空内容与错误状态，便于复用。
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.err = nil
}
