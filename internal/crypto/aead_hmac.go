package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
)

// nonceLabel 用于从 MAC 密钥派生 nonce，与报文签名的输入区分开。
var nonceLabel = []byte("logos-convert/nonce")

// AEADHMACCodec 组合两层保护：
//   - 对称加密：AES‑256‑GCM（AEAD，提供机密性 + 完整性）
//   - 消息签名：HMAC‑SHA256（对密文和关联数据再做一层签名）
//
// 报文格式：nonce || ciphertext || mac
//   - nonce     ：HMAC‑SHA256(macKey, label || aad || plaintext) 的前 NonceSize 字节
//   - ciphertext：AES‑GCM 加密后的密文（包含 GCM tag）
//   - mac       ：HMAC‑SHA256(nonce || ciphertext || aad)
//
// nonce 由明文派生，相同输入得到相同报文；代价是相同明文在密文中可被识别。
type AEADHMACCodec struct {
	aead    cipher.AEAD
	hmacKey []byte
}

// 确保 AEADHMACCodec 满足 Encryptor 接口。
var _ Encryptor = (*AEADHMACCodec)(nil)

// NewAESGCMHMACCodec 使用 AES‑256‑GCM + HMAC‑SHA256 创建编码器。
//
// encKey 长度必须为 32 字节（AES‑256），macKey 为任意长度的非空 HMAC 密钥。
func NewAESGCMHMACCodec(encKey, macKey []byte) (*AEADHMACCodec, error) {
	if len(encKey) != KeySize {
		return nil, errors.Join(ErrInvalidKey, errors.New("encKey must be 32 bytes for AES-256-GCM"))
	}
	if len(macKey) == 0 {
		return nil, errors.Join(ErrInvalidKey, errors.New("macKey must not be empty"))
	}
	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AEADHMACCodec{
		aead:    aead,
		hmacKey: append([]byte(nil), macKey...),
	}, nil
}

func (c *AEADHMACCodec) Scheme() Scheme { return SchemeAESGCMHMAC }

func (c *AEADHMACCodec) nonce(plaintext, aad []byte) []byte {
	m := hmac.New(sha256.New, c.hmacKey)
	_, _ = m.Write(nonceLabel)
	_, _ = m.Write(aad)
	_, _ = m.Write(plaintext)
	return m.Sum(nil)[:c.aead.NonceSize()]
}

func (c *AEADHMACCodec) sign(nonce, ciphertext, aad []byte) []byte {
	m := hmac.New(sha256.New, c.hmacKey)
	_, _ = m.Write(nonce)
	_, _ = m.Write(ciphertext)
	_, _ = m.Write(aad)
	return m.Sum(nil)
}

// EncryptAndSign 对明文进行加密并计算签名。
func (c *AEADHMACCodec) EncryptAndSign(plaintext, aad []byte) ([]byte, error) {
	nonce := c.nonce(plaintext, aad)
	ciphertext := c.aead.Seal(nil, nonce, plaintext, aad)
	mac := c.sign(nonce, ciphertext, aad)

	packet := make([]byte, 0, len(nonce)+len(ciphertext)+len(mac))
	packet = append(packet, nonce...)
	packet = append(packet, ciphertext...)
	packet = append(packet, mac...)
	return packet, nil
}

// VerifyAndDecrypt 验证签名并解密报文，aad 必须与加密时一致。
func (c *AEADHMACCodec) VerifyAndDecrypt(packet, aad []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(packet) < nonceSize+c.aead.Overhead()+sha256.Size {
		return nil, ErrPacketTooShort
	}

	nonce := packet[:nonceSize]
	macOffset := len(packet) - sha256.Size
	ciphertext := packet[nonceSize:macOffset]

	if !hmac.Equal(c.sign(nonce, ciphertext, aad), packet[macOffset:]) {
		return nil, ErrInvalidMAC
	}
	return c.aead.Open(nil, nonce, ciphertext, aad)
}

// Encrypt 实现 Encryptor 接口，语义等价于 EncryptAndSign。
func (c *AEADHMACCodec) Encrypt(plaintext, aad []byte) ([]byte, error) {
	return c.EncryptAndSign(plaintext, aad)
}

// Decrypt 实现 Encryptor 接口，语义等价于 VerifyAndDecrypt。
func (c *AEADHMACCodec) Decrypt(packet, aad []byte) ([]byte, error) {
	return c.VerifyAndDecrypt(packet, aad)
}
