package binfmt

import (
	"bytes"
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/lk2023060901/logos-convert/internal/compressor"
	"github.com/lk2023060901/logos-convert/internal/crypto"
	"github.com/lk2023060901/logos-convert/pkg/util/merr"
)

// Flags 标记容器载荷经过的处理步骤。
type Flags uint32

const (
	FlagChecksum Flags = 1 << iota
	FlagCompressedZstd
	FlagCompressedS2
	FlagEncryptedAESGCMHMAC
	FlagEncryptedChaCha20Poly1305

	flagCompressionMask = FlagCompressedZstd | FlagCompressedS2
	flagEncryptionMask  = FlagEncryptedAESGCMHMAC | FlagEncryptedChaCha20Poly1305
	flagKnownMask       = FlagChecksum | flagCompressionMask | flagEncryptionMask
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagChecksum, "checksum"},
	{FlagCompressedZstd, "zstd"},
	{FlagCompressedS2, "s2"},
	{FlagEncryptedAESGCMHMAC, "aes-gcm-hmac"},
	{FlagEncryptedChaCha20Poly1305, "chacha20poly1305"},
}

// Has 判断是否包含全部 x 标记。
func (f Flags) Has(x Flags) bool {
	return f&x == x
}

// Compression 返回载荷使用的压缩算法。
func (f Flags) Compression() compressor.Algorithm {
	switch f & flagCompressionMask {
	case FlagCompressedZstd:
		return compressor.AlgorithmZstd
	case FlagCompressedS2:
		return compressor.AlgorithmS2
	default:
		return compressor.AlgorithmNone
	}
}

// Encryption 返回载荷使用的加密方案。
func (f Flags) Encryption() crypto.Scheme {
	switch f & flagEncryptionMask {
	case FlagEncryptedAESGCMHMAC:
		return crypto.SchemeAESGCMHMAC
	case FlagEncryptedChaCha20Poly1305:
		return crypto.SchemeChaCha20Poly1305
	default:
		return crypto.SchemeNone
	}
}

func (f Flags) validate() error {
	if unknown := f &^ flagKnownMask; unknown != 0 {
		return merr.WrapErrVersionMismatch(fmt.Sprintf("flags<=%#x", uint32(flagKnownMask)), fmt.Sprintf("%#x", uint32(f)), "unknown container flags")
	}
	if c := f & flagCompressionMask; c != 0 && c&(c-1) != 0 {
		return merr.WrapErrCorruptData("multiple compression flags")
	}
	if e := f & flagEncryptionMask; e != 0 && e&(e-1) != 0 {
		return merr.WrapErrCorruptData("multiple encryption flags")
	}
	return nil
}

func (f Flags) String() string {
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

func compressionFlag(algo compressor.Algorithm) Flags {
	switch algo {
	case compressor.AlgorithmZstd:
		return FlagCompressedZstd
	case compressor.AlgorithmS2:
		return FlagCompressedS2
	default:
		return 0
	}
}

func encryptionFlag(scheme crypto.Scheme) Flags {
	switch scheme {
	case crypto.SchemeAESGCMHMAC:
		return FlagEncryptedAESGCMHMAC
	case crypto.SchemeChaCha20Poly1305:
		return FlagEncryptedChaCha20Poly1305
	default:
		return 0
	}
}

// Container 是二进制形式的载体：格式版本、类型名、处理标记、校验和与载荷。
//
// 由 Seal 填充、由 Open 读取；除此之外不应修改其内容。
type Container struct {
	version  string
	typeName string
	flags    Flags
	checksum uint64
	payload  []byte
}

// NewContainer 创建一个空容器。
func NewContainer() *Container {
	return &Container{}
}

// IsEmpty 判断容器是否从未被填充。
func (c *Container) IsEmpty() bool {
	return c == nil || (c.version == "" && c.typeName == "" && c.flags == 0 && len(c.payload) == 0)
}

func (c *Container) Version() string  { return c.version }
func (c *Container) TypeName() string { return c.typeName }
func (c *Container) Flags() Flags     { return c.flags }
func (c *Container) Checksum() uint64 { return c.checksum }

// Payload 返回存储的载荷（可能已压缩或加密），调用方不得修改。
func (c *Container) Payload() []byte { return c.payload }

// Size 返回存储载荷的字节数。
func (c *Container) Size() int {
	if c == nil {
		return 0
	}
	return len(c.payload)
}

// Reset 清空容器。
func (c *Container) Reset() {
	*c = Container{}
}

// Clone 返回深拷贝。
func (c *Container) Clone() *Container {
	if c == nil {
		return nil
	}
	out := *c
	out.payload = bytes.Clone(c.payload)
	return &out
}

// Equal 判断两个容器内容是否完全一致。
func (c *Container) Equal(other *Container) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.version == other.version &&
		c.typeName == other.typeName &&
		c.flags == other.flags &&
		c.checksum == other.checksum &&
		bytes.Equal(c.payload, other.payload)
}

func (c *Container) String() string {
	return fmt.Sprintf("Container{type=%s, version=%s, flags=%s, size=%d}", c.typeName, c.version, c.flags, len(c.payload))
}

const (
	envelopeVersion  protowire.Number = 1
	envelopeType     protowire.Number = 2
	envelopeFlags    protowire.Number = 3
	envelopeChecksum protowire.Number = 4
	envelopePayload  protowire.Number = 5
)

// MarshalBinary 将容器自身编码为字节，用于落盘或传输。
func (c *Container) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, len(c.payload)+len(c.version)+len(c.typeName)+24)
	buf = protowire.AppendTag(buf, envelopeVersion, protowire.BytesType)
	buf = protowire.AppendString(buf, c.version)
	buf = protowire.AppendTag(buf, envelopeType, protowire.BytesType)
	buf = protowire.AppendString(buf, c.typeName)
	if c.flags != 0 {
		buf = protowire.AppendTag(buf, envelopeFlags, protowire.VarintType)
		buf = protowire.AppendVarint(buf, uint64(c.flags))
	}
	if c.flags.Has(FlagChecksum) {
		buf = protowire.AppendTag(buf, envelopeChecksum, protowire.Fixed64Type)
		buf = protowire.AppendFixed64(buf, c.checksum)
	}
	buf = protowire.AppendTag(buf, envelopePayload, protowire.BytesType)
	buf = protowire.AppendBytes(buf, c.payload)
	return buf, nil
}

// UnmarshalBinary 从 MarshalBinary 的输出还原容器。
// 失败时返回 ErrCorruptData，容器保持原状。
func (c *Container) UnmarshalBinary(data []byte) error {
	var out Container
	r := NewReader(data)
	for r.Next() {
		switch r.Field() {
		case envelopeVersion:
			out.version = r.String()
		case envelopeType:
			out.typeName = r.String()
		case envelopeFlags:
			v := r.Uint64()
			if v > uint64(^uint32(0)) {
				return merr.WrapErrCorruptData("container flags overflow")
			}
			out.flags = Flags(v)
		case envelopeChecksum:
			out.checksum = r.Fixed64()
		case envelopePayload:
			out.payload = bytes.Clone(r.Bytes())
		}
	}
	if err := r.Err(); err != nil {
		return merr.WrapErrCorruptDataCause(err, "decode container envelope")
	}
	*c = out
	return nil
}
