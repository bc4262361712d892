package settings

import (
	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/logos-convert/pkg/util/merr"
	"github.com/lk2023060901/logos-convert/pkg/util/viper"
)

// ProfileKey 是配置文件中存放设置档案的根键。
const ProfileKey = "settings"

// LoadFile 从 YAML/JSON 配置文件读取名为 profile 的设置档案，嵌套结构展开为点分键。
func LoadFile(path, profile string) (Settings, error) {
	cfg := viper.New()
	if err := cfg.LoadFile(path); err != nil {
		return nil, errors.Wrapf(err, "load settings file %s", path)
	}
	return FromConfig(cfg, profile)
}

// FromConfig 从已加载的配置中读取名为 profile 的设置档案。
func FromConfig(cfg *viper.Config, profile string) (Settings, error) {
	key := ProfileKey + "." + profile
	if !cfg.IsSet(key) {
		return nil, merr.WrapErrInvalidSettings("profile", profile, "profile not found")
	}
	flat, err := cfg.FlatStringMap(key)
	if err != nil {
		return nil, merr.WrapErrInvalidSettings("profile", profile, err.Error())
	}
	return Settings(flat), nil
}

// Profiles 返回配置中定义的全部档案名。
func Profiles(cfg *viper.Config) []string {
	return cfg.Keys(ProfileKey)
}
