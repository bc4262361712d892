package binfmt

import (
	"github.com/blang/semver/v4"

	"github.com/lk2023060901/logos-convert/internal/compressor"
	"github.com/lk2023060901/logos-convert/internal/crypto"
	"github.com/lk2023060901/logos-convert/pkg/settings"
	"github.com/lk2023060901/logos-convert/pkg/util/merr"
)

// 二进制格式识别的设置键。
const (
	KeyFormatVersion      = "format_version"
	KeyCompression        = "compression.algorithm"
	KeyCompressionLevel   = "compression.level"
	KeyCompressionMinSize = "compression.min_size"
	KeyChecksum           = "checksum"
	KeyEncryption         = "encryption.scheme"
	KeyEncryptionKey      = "encryption.key"
	KeyEncryptionMacKey   = "encryption.mac_key"
)

// CurrentVersion 是本实现写出的最高格式版本。
var CurrentVersion = semver.MustParse("1.0.0")

// Options 列出二进制格式识别的设置键。
func Options() []settings.Option {
	return []settings.Option{
		{Key: KeyFormatVersion, Accepted: "semver, same major as " + CurrentVersion.String(), Default: CurrentVersion.String(), Doc: "version written; readers accept the same major and a minor not above their own"},
		{Key: KeyCompression, Accepted: "none|zstd|s2", Default: "none", Doc: "payload compression"},
		{Key: KeyCompressionLevel, Accepted: "fastest|default|better|best", Default: "default", Doc: "encoder level"},
		{Key: KeyCompressionMinSize, Accepted: "int >= 0", Default: "0", Doc: "payloads smaller than this are stored raw"},
		{Key: KeyChecksum, Accepted: "bool", Default: "true", Doc: "xxhash64 of the stored payload"},
		{Key: KeyEncryption, Accepted: "none|aes-gcm-hmac|chacha20poly1305", Default: "none", Doc: "payload encryption"},
		{Key: KeyEncryptionKey, Accepted: "64 hex chars", Doc: "required when encryption is not none"},
		{Key: KeyEncryptionMacKey, Accepted: "hex", Doc: "required for aes-gcm-hmac"},
	}
}

// Config 是从设置中解析出的二进制格式参数。
type Config struct {
	Version     semver.Version
	Compression compressor.Algorithm
	Level       compressor.Level
	MinSize     int
	Checksum    bool
	Encryptor   crypto.Encryptor
}

// ParseConfig 解析并校验设置，任何非法值都返回 ErrInvalidSettings。
func ParseConfig(s settings.Settings) (Config, error) {
	cfg := Config{Encryptor: crypto.NopEncryptor{}}

	raw := s.String(KeyFormatVersion, CurrentVersion.String())
	v, err := semver.ParseTolerant(raw)
	if err != nil {
		return Config{}, merr.WrapErrInvalidSettings(KeyFormatVersion, raw, err.Error())
	}
	if v.Major != CurrentVersion.Major || v.Minor > CurrentVersion.Minor {
		return Config{}, merr.WrapErrInvalidSettings(KeyFormatVersion, raw, "unsupported format version, current is "+CurrentVersion.String())
	}
	cfg.Version = v

	name, err := s.Enum(KeyCompression, "none", "none", "zstd", "s2")
	if err != nil {
		return Config{}, err
	}
	cfg.Compression, _ = compressor.ParseAlgorithm(name)

	name, err = s.Enum(KeyCompressionLevel, "default", "fastest", "default", "better", "best")
	if err != nil {
		return Config{}, err
	}
	cfg.Level, _ = compressor.ParseLevel(name)

	if cfg.MinSize, err = s.IntRange(KeyCompressionMinSize, 0, 0, int(defaultMaxFrameSize)); err != nil {
		return Config{}, err
	}
	if cfg.Checksum, err = s.Bool(KeyChecksum, true); err != nil {
		return Config{}, err
	}

	name, err = s.Enum(KeyEncryption, "none", "none", "aes-gcm-hmac", "chacha20poly1305")
	if err != nil {
		return Config{}, err
	}
	scheme, _ := crypto.ParseScheme(name)
	if scheme != crypto.SchemeNone {
		key, err := s.Hex(KeyEncryptionKey)
		if err != nil {
			return Config{}, err
		}
		if len(key) != crypto.KeySize {
			return Config{}, merr.WrapErrInvalidSettings(KeyEncryptionKey, "<redacted>", "expect 32 bytes")
		}
		var macKey []byte
		if scheme == crypto.SchemeAESGCMHMAC {
			if macKey, err = s.Hex(KeyEncryptionMacKey); err != nil {
				return Config{}, err
			}
		}
		if cfg.Encryptor, err = crypto.New(scheme, key, macKey); err != nil {
			return Config{}, merr.WrapErrInvalidSettings(KeyEncryption, name, err.Error())
		}
	}
	return cfg, nil
}

// accepts 判断容器版本 v 能否在当前设置下读取。
func (cfg Config) accepts(v semver.Version) bool {
	return v.Major == cfg.Version.Major && v.Minor <= cfg.Version.Minor
}
