package compressor

import (
	"fmt"
	"sync"
)

// Compressor 抽象了“单次压缩/解压”能力。
//
// 实现必须可被多个 goroutine 并发调用，同一算法与等级的实例在进程内共享。
type Compressor interface {
	// Algorithm 返回实现对应的算法。
	Algorithm() Algorithm

	// Compress 将 src 压缩后追加到 dst[:0]。
	Compress(dst, src []byte) (packet []byte, err error)

	// Decompress 将压缩数据 src 解压后追加到 dst[:0]。
	//
	// 行为约定与 Compress 对称：src 必须是同一算法 Compress 的输出。
	Decompress(dst, src []byte) (plain []byte, err error)
}

// Algorithm 标识压缩算法。
type Algorithm uint8

const (
	AlgorithmNone Algorithm = iota
	AlgorithmZstd
	AlgorithmS2
)

var algorithmNames = map[Algorithm]string{
	AlgorithmNone: "none",
	AlgorithmZstd: "zstd",
	AlgorithmS2:   "s2",
}

func (a Algorithm) String() string {
	if name, ok := algorithmNames[a]; ok {
		return name
	}
	return fmt.Sprintf("algorithm(%d)", uint8(a))
}

// ParseAlgorithm 解析算法名。
func ParseAlgorithm(name string) (Algorithm, error) {
	for a, n := range algorithmNames {
		if n == name {
			return a, nil
		}
	}
	return AlgorithmNone, fmt.Errorf("compressor: unknown algorithm %q", name)
}

// Level 为压缩等级，语义对齐 zstd 的四档预设。
type Level uint8

const (
	LevelDefault Level = iota
	LevelFastest
	LevelBetter
	LevelBest
)

var levelNames = map[Level]string{
	LevelDefault: "default",
	LevelFastest: "fastest",
	LevelBetter:  "better",
	LevelBest:    "best",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", uint8(l))
}

// ParseLevel 解析等级名。
func ParseLevel(name string) (Level, error) {
	for l, n := range levelNames {
		if n == name {
			return l, nil
		}
	}
	return LevelDefault, fmt.Errorf("compressor: unknown level %q", name)
}

// NopCompressor 是一个空实现：不做任何压缩/解压，直接返回输入内容。
type NopCompressor struct{}

func (NopCompressor) Algorithm() Algorithm { return AlgorithmNone }

func (NopCompressor) Compress(_ []byte, src []byte) ([]byte, error) {
	return src, nil
}

func (NopCompressor) Decompress(_ []byte, src []byte) ([]byte, error) {
	return src, nil
}

// 编译期断言：确保 NopCompressor 实现了 Compressor 接口。
var _ Compressor = NopCompressor{}

type cacheKey struct {
	algo  Algorithm
	level Level
}

var shared sync.Map // cacheKey -> Compressor

// Get 返回进程内共享的压缩器实例，首次请求时按需创建。
func Get(algo Algorithm, level Level) (Compressor, error) {
	if algo == AlgorithmNone {
		return NopCompressor{}, nil
	}
	key := cacheKey{algo: algo, level: level}
	if c, ok := shared.Load(key); ok {
		return c.(Compressor), nil
	}

	var (
		c   Compressor
		err error
	)
	switch algo {
	case AlgorithmZstd:
		c, err = NewZstdCompressor(level)
	case AlgorithmS2:
		c = NewS2Compressor(level)
	default:
		return nil, fmt.Errorf("compressor: unsupported algorithm %s", algo)
	}
	if err != nil {
		return nil, err
	}
	actual, loaded := shared.LoadOrStore(key, c)
	if loaded {
		if z, ok := c.(*ZstdCompressor); ok {
			z.Close()
		}
	}
	return actual.(Compressor), nil
}
