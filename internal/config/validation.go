package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var supportedSources = map[string]string{
	SourceIWAD: SourceIWAD,
	SourcePWAD: SourcePWAD,
	SourceLump: SourceLump,
	"lmp":      SourceLump,
}

const supportedSourceList = "iwad|pwad|lump"

// Validate 针对语义级别做进一步校验，防止非法配置进入加载流程。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort < 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 0-65535，0 表示关闭诊断服务")
	}
	if g.StoragePath == "" {
		return newFieldError("Global.StoragePath", "不能为空")
	}
	if g.MaxMemoryCache < 0 {
		return newFieldError("Global.MaxMemoryCacheSize", "不能为负数")
	}
	if g.FetchMaxBytes < 0 {
		return newFieldError("Global.FetchMaxBytes", "不能为负数")
	}
	if g.FetchTimeout.DurationValue() <= 0 {
		return newFieldError("Global.FetchTimeout", "必须大于 0")
	}
	if g.FetchUpstream != "" {
		if err := validateUpstream(g.FetchUpstream); err != nil {
			return fmt.Errorf("Global.FetchUpstream: %w", err)
		}
	}

	if len(c.Archives) == 0 {
		return errors.New("至少需要配置一个 Archive")
	}

	seenPaths := map[string]struct{}{}
	for i := range c.Archives {
		archive := &c.Archives[i]
		if archive.Path == "" {
			return newFieldError("Archive[].Path", "不能为空")
		}
		if _, exists := seenPaths[archive.Path]; exists {
			return newFieldError(archiveField(archive.Path, "Path"), "重复")
		}
		seenPaths[archive.Path] = struct{}{}

		source, ok := supportedSources[strings.ToLower(strings.TrimSpace(archive.Source))]
		if !ok {
			return newFieldError(archiveField(archive.Path, "Source"), "仅支持 "+supportedSourceList)
		}
		archive.Source = source
	}

	return nil
}

func validateUpstream(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，上游: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("上游缺少 Host: %s", raw)
	}
	if parsed.RawQuery != "" {
		return fmt.Errorf("上游不应包含查询参数: %s", raw)
	}
	return nil
}
