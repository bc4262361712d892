package binfmt

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/valyala/bytebufferpool"

	"github.com/lk2023060901/logos-convert/pkg/util/merr"
)

const defaultMaxFrameSize uint32 = 16 * 1024 * 1024 // 16MB

// Framer 以长度前缀（4 字节大端）为边界，在流上连续读写容器。
// 适用于文件、管道、TCP 等基于流的存储与传输。
type Framer struct {
	// MaxFrameSize 为允许的最大帧大小（容器编码后长度），单位字节。
	// 为 0 时使用默认值 16MB。
	MaxFrameSize uint32
}

// NewFramer 创建一个 Framer，maxFrameSize 为 0 时使用默认值。
func NewFramer(maxFrameSize uint32) *Framer {
	if maxFrameSize == 0 {
		maxFrameSize = defaultMaxFrameSize
	}
	return &Framer{MaxFrameSize: maxFrameSize}
}

func (f *Framer) effectiveMaxSize() uint32 {
	if f == nil || f.MaxFrameSize == 0 {
		return defaultMaxFrameSize
	}
	return f.MaxFrameSize
}

// WriteContainer 将容器编码为一帧写入 w。
func (f *Framer) WriteContainer(w io.Writer, c *Container) error {
	if c == nil {
		return merr.WrapErrParameterMissing("container")
	}
	body, err := c.MarshalBinary()
	if err != nil {
		return err
	}
	length := uint32(len(body))
	if len(body) > int(f.effectiveMaxSize()) {
		return merr.WrapErrEncoding("frame", fmt.Sprintf("frame size %d exceeds max %d", len(body), f.effectiveMaxSize()))
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], length)
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("framer: write header failed: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("framer: write body failed: %w", err)
	}
	return nil
}

// ReadContainer 从 r 读取一帧并解码为容器。
// 流在帧边界处结束时返回 io.EOF。
func (f *Framer) ReadContainer(r io.Reader) (*Container, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, merr.WrapErrCorruptDataCause(err, "read frame header")
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > f.effectiveMaxSize() {
		return nil, merr.WrapErrCorruptData(fmt.Sprintf("frame size %d exceeds max %d", length, f.effectiveMaxSize()))
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if cap(buf.B) < int(length) {
		buf.B = make([]byte, int(length))
	} else {
		buf.B = buf.B[:int(length)]
	}
	if _, err := io.ReadFull(r, buf.B); err != nil {
		return nil, merr.WrapErrCorruptDataCause(err, "read frame body")
	}

	c := NewContainer()
	if err := c.UnmarshalBinary(buf.B); err != nil {
		return nil, err
	}
	return c, nil
}
