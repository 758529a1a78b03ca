package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// ArchiveFields 提供归档加载相关字段，供 ingest/fetch 日志复用。
func ArchiveFields(action, path, source string) logrus.Fields {
	return logrus.Fields{
		"action": action,
		"path":   path,
		"source": source,
	}
}

// LumpFields 提供单个 lump 的定位字段，供缓存与锁诊断日志复用。
func LumpFields(action string, handle int, name string, locks uint) logrus.Fields {
	return logrus.Fields{
		"action": action,
		"lump":   handle,
		"name":   name,
		"locks":  locks,
	}
}
