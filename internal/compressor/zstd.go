package compressor

import (
	"github.com/klauspost/compress/zstd"

	"github.com/lk2023060901/logos-convert/pkg/util/hardware"
)

// maxDecodedSize 限制单次解压的输出大小，防止构造的压缩数据耗尽内存。
const maxDecodedSize = 256 << 20

// ZstdCompressor 基于 github.com/klauspost/compress/zstd 的压缩实现。
//
// 只使用 EncodeAll/DecodeAll，实例可被并发复用。
type ZstdCompressor struct {
	level zstd.EncoderLevel
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

// 编译期断言：确保 ZstdCompressor 实现了 Compressor 接口。
var _ Compressor = (*ZstdCompressor)(nil)

// NewZstdCompressor 创建一个 ZstdCompressor，并发度为主机 CPU 核心数。
func NewZstdCompressor(level Level) (*ZstdCompressor, error) {
	return NewZstdCompressorWithConcurrency(level, 0)
}

// NewZstdCompressorWithConcurrency 创建一个 ZstdCompressor，并允许显式指定 zstd 的并发数。
//
// 参数说明：
//   - concurrency <= 0：使用主机 CPU 核心数（hardware.GetCPUNum()）。
//   - concurrency > 0 ：使用指定并发度。
func NewZstdCompressorWithConcurrency(level Level, concurrency int) (*ZstdCompressor, error) {
	if concurrency <= 0 {
		concurrency = hardware.GetCPUNum()
	}
	zl := zstdLevel(level)

	enc, err := zstd.NewWriter(nil,
		zstd.WithZeroFrames(true),
		zstd.WithEncoderLevel(zl),
		zstd.WithEncoderConcurrency(concurrency),
	)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(concurrency),
		zstd.WithDecoderMaxMemory(maxDecodedSize),
	)
	if err != nil {
		_ = enc.Close()
		return nil, err
	}
	return &ZstdCompressor{
		level: zl,
		enc:   enc,
		dec:   dec,
	}, nil
}

func zstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case LevelFastest:
		return zstd.SpeedFastest
	case LevelBetter:
		return zstd.SpeedBetterCompression
	case LevelBest:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

func (c *ZstdCompressor) Algorithm() Algorithm { return AlgorithmZstd }

// Compress 实现 Compressor 接口。
func (c *ZstdCompressor) Compress(dst, src []byte) ([]byte, error) {
	if c == nil || c.enc == nil {
		return nil, zstd.ErrEncoderClosed
	}
	return c.enc.EncodeAll(src, dst[:0]), nil
}

// Decompress 实现 Compressor 接口。
func (c *ZstdCompressor) Decompress(dst, src []byte) ([]byte, error) {
	if c == nil || c.dec == nil {
		return nil, zstd.ErrDecoderClosed
	}
	return c.dec.DecodeAll(src, dst[:0])
}

// Close 释放内部 encoder/decoder 持有的资源。
//
// 共享实例由 Get 管理，调用方不应关闭 Get 返回的实例。
func (c *ZstdCompressor) Close() {
	if c == nil {
		return
	}
	if c.enc != nil {
		_ = c.enc.Close()
		c.enc = nil
	}
	if c.dec != nil {
		c.dec.Close()
		c.dec = nil
	}
}
