package crypto

import (
	"crypto/cipher"
	"errors"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
)

// ChaCha20Poly1305Codec 使用 ChaCha20‑Poly1305 加密，报文格式：nonce || ciphertext。
//
// nonce 为以密钥为 key 的 BLAKE2b‑256(aad || plaintext) 的前 12 字节。
type ChaCha20Poly1305Codec struct {
	aead     cipher.AEAD
	nonceKey []byte
}

var _ Encryptor = (*ChaCha20Poly1305Codec)(nil)

// NewChaCha20Poly1305Codec 创建编码器，key 必须为 32 字节。
func NewChaCha20Poly1305Codec(key []byte) (*ChaCha20Poly1305Codec, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, errors.Join(ErrInvalidKey, errors.New("key must be 32 bytes for chacha20poly1305"))
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonceKey := blake2b.Sum256(append(append([]byte(nil), nonceLabel...), key...))
	return &ChaCha20Poly1305Codec{
		aead:     aead,
		nonceKey: nonceKey[:],
	}, nil
}

func (c *ChaCha20Poly1305Codec) Scheme() Scheme { return SchemeChaCha20Poly1305 }

func (c *ChaCha20Poly1305Codec) nonce(plaintext, aad []byte) ([]byte, error) {
	h, err := blake2b.New256(c.nonceKey)
	if err != nil {
		return nil, err
	}
	_, _ = h.Write(aad)
	_, _ = h.Write(plaintext)
	return h.Sum(nil)[:c.aead.NonceSize()], nil
}

// Encrypt 实现 Encryptor 接口。
func (c *ChaCha20Poly1305Codec) Encrypt(plaintext, aad []byte) ([]byte, error) {
	nonce, err := c.nonce(plaintext, aad)
	if err != nil {
		return nil, err
	}
	packet := make([]byte, 0, len(nonce)+len(plaintext)+c.aead.Overhead())
	packet = append(packet, nonce...)
	return c.aead.Seal(packet, nonce, plaintext, aad), nil
}

// Decrypt 实现 Encryptor 接口。
func (c *ChaCha20Poly1305Codec) Decrypt(packet, aad []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(packet) < nonceSize+c.aead.Overhead() {
		return nil, ErrPacketTooShort
	}
	return c.aead.Open(nil, packet[:nonceSize], packet[nonceSize:], aad)
}
