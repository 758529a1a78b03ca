package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	if err := rejectArchiveLevelOptions(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	for i := range cfg.Archives {
		applyArchiveDefaults(&cfg.Archives[i])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absStorage, err := filepath.Abs(cfg.Global.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("无法解析缓存目录: %w", err)
	}
	cfg.Global.StoragePath = absStorage

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 0)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("StoragePath", "./storage")
	v.SetDefault("MaxMemoryCacheSize", 64*1024*1024)
	v.SetDefault("FetchUpstream", "")
	v.SetDefault("FetchTimeout", "30s")
	v.SetDefault("FetchMaxBytes", 512*1024*1024)
	v.SetDefault("LockWarnThreshold", 16)
	v.SetDefault("Predefined", true)
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.FetchTimeout.DurationValue() == 0 {
		g.FetchTimeout = Duration(30 * time.Second)
	}
	if g.LockWarnThreshold == 0 {
		g.LockWarnThreshold = 16
	}
	g.FetchUpstream = strings.TrimRight(strings.TrimSpace(g.FetchUpstream), "/")
}

func applyArchiveDefaults(a *ArchiveConfig) {
	a.Path = strings.TrimSpace(a.Path)
	source := strings.ToLower(strings.TrimSpace(a.Source))
	if source == "" {
		source = inferSource(a.Path)
	}
	a.Source = source
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}

// rejectArchiveLevelOptions 拒绝写在 [[Archive]] 内的全局参数，避免误以为可以按归档设置。
func rejectArchiveLevelOptions(v *viper.Viper) error {
	raw := v.Get("Archive")
	archives, ok := raw.([]interface{})
	if !ok {
		return nil
	}

	for idx, entry := range archives {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		for _, key := range []string{"Namespace", "MaxMemoryCacheSize", "FetchUpstream", "FetchMaxBytes"} {
			if _, exists := lookupKey(m, key); !exists {
				continue
			}
			name := fmt.Sprintf("#%d", idx)
			if rawPath, ok := lookupKey(m, "Path"); ok {
				if s, ok := rawPath.(string); ok && s != "" {
					name = s
				}
			}
			return newFieldError(archiveField(name, key), "不支持按归档设置，请移除")
		}
	}

	return nil
}

// lookupKey 不区分大小写地查找 key：viper 会把嵌套表的键统一转为小写。
func lookupKey(m map[string]interface{}, key string) (interface{}, bool) {
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}
