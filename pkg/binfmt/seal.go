package binfmt

import (
	"github.com/blang/semver/v4"
	"github.com/cespare/xxhash/v2"

	"github.com/lk2023060901/logos-convert/internal/compressor"
	"github.com/lk2023060901/logos-convert/internal/crypto"
	"github.com/lk2023060901/logos-convert/pkg/settings"
	"github.com/lk2023060901/logos-convert/pkg/util/merr"
)

// aad 将类型名与格式版本绑定到密文上，防止容器被换用到其它类型。
func aad(typeName, version string) []byte {
	b := make([]byte, 0, len(typeName)+len(version)+1)
	b = append(b, typeName...)
	b = append(b, 0)
	return append(b, version...)
}

// Seal 把 w 中的载荷按设置压缩、加密并计算校验和，写入 dst。
//
// Pipeline：payload --> [compress?] --> [encrypt?] --> checksum --> Container
//
// 只有全部步骤成功后才会改写 dst，失败时 dst 保持原状并返回 nil。
func Seal(dst *Container, typeName string, w *Writer, s settings.Settings) (*Container, error) {
	if dst == nil {
		return nil, merr.WrapErrParameterMissing("container")
	}
	cfg, err := ParseConfig(s)
	if err != nil {
		return nil, err
	}
	if err := w.Err(); err != nil {
		return nil, err
	}

	version := cfg.Version.String()
	payload := w.Data()
	var flags Flags

	if cfg.Compression != compressor.AlgorithmNone && len(payload) >= cfg.MinSize {
		c, err := compressor.Get(cfg.Compression, cfg.Level)
		if err != nil {
			return nil, merr.WrapErrEncodingCause(err, "get compressor")
		}
		if payload, err = c.Compress(nil, payload); err != nil {
			return nil, merr.WrapErrEncodingCause(err, "compress payload")
		}
		flags |= compressionFlag(cfg.Compression)
	}

	if scheme := cfg.Encryptor.Scheme(); scheme != crypto.SchemeNone {
		if payload, err = cfg.Encryptor.Encrypt(payload, aad(typeName, version)); err != nil {
			return nil, merr.WrapErrEncodingCause(err, "encrypt payload")
		}
		flags |= encryptionFlag(scheme)
	}

	var sum uint64
	if cfg.Checksum {
		sum = xxhash.Sum64(payload)
		flags |= FlagChecksum
	}

	*dst = Container{
		version:  version,
		typeName: typeName,
		flags:    flags,
		checksum: sum,
		payload:  append([]byte(nil), payload...),
	}
	return dst, nil
}

// Open 校验 src 并还原出载荷，返回读取载荷的 Reader。
//
// Pipeline：Container --> checksum --> [decrypt?] --> [decompress?] --> payload
//
// 版本、压缩算法或加密方案与设置不兼容时返回 ErrVersionMismatch，
// 结构损坏（类型名不符、校验和错误、解密或解压失败）时返回 ErrCorruptData。
func Open(src *Container, typeName string, s settings.Settings) (*Reader, error) {
	cfg, err := ParseConfig(s)
	if err != nil {
		return nil, err
	}
	if src.IsEmpty() {
		return nil, merr.WrapErrCorruptData("empty container")
	}

	v, err := semver.ParseTolerant(src.version)
	if err != nil {
		return nil, merr.WrapErrCorruptData("bad format version "+src.version, err.Error())
	}
	if !cfg.accepts(v) {
		return nil, merr.WrapErrVersionMismatch(cfg.Version.String(), src.version)
	}
	if err := src.flags.validate(); err != nil {
		return nil, err
	}
	if src.typeName != typeName {
		return nil, merr.WrapErrCorruptData("container holds " + src.typeName + ", expect " + typeName)
	}

	payload := src.payload
	if src.flags.Has(FlagChecksum) && xxhash.Sum64(payload) != src.checksum {
		return nil, merr.WrapErrCorruptData("checksum mismatch")
	}

	if scheme := src.flags.Encryption(); scheme != cfg.Encryptor.Scheme() {
		return nil, merr.WrapErrVersionMismatch(cfg.Encryptor.Scheme().String(), scheme.String(), "encryption scheme")
	} else if scheme != crypto.SchemeNone {
		if payload, err = cfg.Encryptor.Decrypt(payload, aad(src.typeName, src.version)); err != nil {
			return nil, merr.WrapErrCorruptDataCause(err, "decrypt payload")
		}
	}

	if algo := src.flags.Compression(); algo != compressor.AlgorithmNone {
		if algo != cfg.Compression {
			return nil, merr.WrapErrVersionMismatch(cfg.Compression.String(), algo.String(), "compression algorithm")
		}
		c, err := compressor.Get(algo, cfg.Level)
		if err != nil {
			return nil, merr.WrapErrCorruptDataCause(err, "get compressor")
		}
		if payload, err = c.Decompress(nil, payload); err != nil {
			return nil, merr.WrapErrCorruptDataCause(err, "decompress payload")
		}
	}
	return NewReader(payload), nil
}
