package compressor

import (
	"github.com/klauspost/compress/s2"
)

// S2Compressor 基于 github.com/klauspost/compress/s2 的块压缩实现，无内部状态。
type S2Compressor struct {
	level Level
}

var _ Compressor = (*S2Compressor)(nil)

// NewS2Compressor 创建一个 S2Compressor。
// LevelFastest/LevelDefault 使用 s2.Encode，LevelBetter 使用 EncodeBetter，LevelBest 使用 EncodeBest。
func NewS2Compressor(level Level) *S2Compressor {
	return &S2Compressor{level: level}
}

func (c *S2Compressor) Algorithm() Algorithm { return AlgorithmS2 }

// Compress 实现 Compressor 接口。
func (c *S2Compressor) Compress(dst, src []byte) ([]byte, error) {
	switch c.level {
	case LevelBetter:
		return s2.EncodeBetter(dst[:0], src), nil
	case LevelBest:
		return s2.EncodeBest(dst[:0], src), nil
	default:
		return s2.Encode(dst[:0], src), nil
	}
}

// Decompress 实现 Compressor 接口。
func (c *S2Compressor) Decompress(dst, src []byte) ([]byte, error) {
	n, err := s2.DecodedLen(src)
	if err != nil {
		return nil, err
	}
	if n > maxDecodedSize {
		return nil, s2.ErrTooLarge
	}
	return s2.Decode(dst[:0], src)
}
