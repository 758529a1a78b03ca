package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// GlobalConfig 描述进程级参数：日志、内存预算、网络回退与诊断端口。
type GlobalConfig struct {
	ListenPort        int      `mapstructure:"ListenPort"`
	LogLevel          string   `mapstructure:"LogLevel"`
	LogFilePath       string   `mapstructure:"LogFilePath"`
	LogMaxSize        int      `mapstructure:"LogMaxSize"`
	LogMaxBackups     int      `mapstructure:"LogMaxBackups"`
	LogCompress       bool     `mapstructure:"LogCompress"`
	StoragePath       string   `mapstructure:"StoragePath"`
	MaxMemoryCache    int64    `mapstructure:"MaxMemoryCacheSize"`
	FetchUpstream     string   `mapstructure:"FetchUpstream"`
	FetchTimeout      Duration `mapstructure:"FetchTimeout"`
	FetchMaxBytes     int64    `mapstructure:"FetchMaxBytes"`
	LockWarnThreshold uint     `mapstructure:"LockWarnThreshold"`
	Predefined        bool     `mapstructure:"Predefined"`
}

// 归档来源取值。
const (
	SourceIWAD = "iwad"
	SourcePWAD = "pwad"
	SourceLump = "lump"
)

// ArchiveConfig 描述一个待加载的归档，按出现顺序加载，后者覆盖前者。
type ArchiveConfig struct {
	Path   string `mapstructure:"Path"`
	Source string `mapstructure:"Source"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global   GlobalConfig    `mapstructure:",squash"`
	Archives []ArchiveConfig `mapstructure:"Archive"`
}

// FetchEnabled 表示是否配置了网络回退。
func (g GlobalConfig) FetchEnabled() bool {
	return strings.TrimSpace(g.FetchUpstream) != ""
}

// SourceModes 返回所有归档的来源摘要，例如 doom2.wad:iwad，供启动日志使用。
func SourceModes(archives []ArchiveConfig) []string {
	if len(archives) == 0 {
		return nil
	}
	result := make([]string, len(archives))
	for i, a := range archives {
		result[i] = fmt.Sprintf("%s:%s", a.Path, a.Source)
	}
	return result
}

// inferSource 在未填写 Source 时按扩展名推断：.wad 视为 pwad，其余视为单个 lump。
func inferSource(path string) string {
	if strings.HasSuffix(strings.ToLower(path), ".wad") {
		return SourcePWAD
	}
	return SourceLump
}
