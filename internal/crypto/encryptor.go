package crypto

import (
	"errors"
	"fmt"
)

var (
	// ErrPacketTooShort 表示加密报文长度不足，
	// 无法包含完整的 nonce、密文和 MAC。
	ErrPacketTooShort = errors.New("crypto: packet too short")

	// ErrInvalidMAC 表示 HMAC 签名校验失败。
	ErrInvalidMAC = errors.New("crypto: invalid mac")

	// ErrInvalidKey 表示密钥长度或内容不合法。
	ErrInvalidKey = errors.New("crypto: invalid key")
)

// KeySize 是所有方案使用的对称密钥长度（256 位）。
const KeySize = 32

// Encryptor 抽象了单一“加密方案”的能力：
//   - Encrypt：加密 +（可选）签名/防篡改，生成完整报文
//   - Decrypt：验签 + 解密，还原明文
//
// aad（Associated Data）为关联数据，不加密但需要完整性保护（例如类型名、格式版本）。
//
// 实现必须是确定性的：相同密钥、明文与 aad 得到相同报文。
type Encryptor interface {
	Scheme() Scheme
	Encrypt(plaintext, aad []byte) (packet []byte, err error)
	Decrypt(packet, aad []byte) (plaintext []byte, err error)
}

// Scheme 标识加密方案。
type Scheme uint8

const (
	SchemeNone Scheme = iota
	SchemeAESGCMHMAC
	SchemeChaCha20Poly1305
)

var schemeNames = map[Scheme]string{
	SchemeNone:             "none",
	SchemeAESGCMHMAC:       "aes-gcm-hmac",
	SchemeChaCha20Poly1305: "chacha20poly1305",
}

func (s Scheme) String() string {
	if name, ok := schemeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("scheme(%d)", uint8(s))
}

// ParseScheme 解析方案名。
func ParseScheme(name string) (Scheme, error) {
	for s, n := range schemeNames {
		if n == name {
			return s, nil
		}
	}
	return SchemeNone, fmt.Errorf("crypto: unknown scheme %q", name)
}

// New 按方案创建 Encryptor。macKey 仅 SchemeAESGCMHMAC 使用。
func New(scheme Scheme, key, macKey []byte) (Encryptor, error) {
	switch scheme {
	case SchemeNone:
		return NopEncryptor{}, nil
	case SchemeAESGCMHMAC:
		return NewAESGCMHMACCodec(key, macKey)
	case SchemeChaCha20Poly1305:
		return NewChaCha20Poly1305Codec(key)
	default:
		return nil, fmt.Errorf("crypto: unsupported scheme %s", scheme)
	}
}

// NopEncryptor 是一个空实现：不做加密也不做验签，直接透传数据。
type NopEncryptor struct{}

func (NopEncryptor) Scheme() Scheme { return SchemeNone }

func (NopEncryptor) Encrypt(plaintext, _ []byte) ([]byte, error) {
	return plaintext, nil
}

func (NopEncryptor) Decrypt(packet, _ []byte) ([]byte, error) {
	return packet, nil
}

// 编译期断言：确保 NopEncryptor 实现了 Encryptor 接口。
var _ Encryptor = NopEncryptor{}
