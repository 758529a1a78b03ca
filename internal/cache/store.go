package cache

import (
	"context"
	"errors"
	"io"
	"time"
)

// Store 负责管理网络回退下载的归档。磁盘布局遵循：
//
//	<StoragePath>/<Group>/<Name>    # 归档正文
//
// 每个条目仅由正文文件组成，文件的 ModTime/Size 由文件系统提供。
type Store interface {
	// Get 返回一个可流式读取的条目。若不存在则返回 ErrNotFound。
	Get(ctx context.Context, locator Locator) (*ReadResult, error)

	// Stat 只返回条目描述而不打开文件，供调用方拿到可交给 os.Open 的本地路径。
	Stat(ctx context.Context, locator Locator) (*Entry, error)

	// Put 将下载的正文写入存储。实现需通过临时文件 + rename 保证写入原子性，
	// 并在失败时清理临时文件。可选地根据 opts.ModTime 设置文件时间戳。
	Put(ctx context.Context, locator Locator, body io.Reader, opts PutOptions) (*Entry, error)

	// Remove 删除正文文件，通常用于清理校验失败的下载。
	Remove(ctx context.Context, locator Locator) error
}

// PutOptions 控制写入过程中的可选属性。
type PutOptions struct {
	ModTime time.Time
	// MaxBytes 大于 0 时限制正文长度，超出返回 ErrTooLarge。
	MaxBytes int64
}

// Locator 唯一定位一个条目：Group 通常是上游主机名，Name 是归档文件名。
type Locator struct {
	Group string
	Name  string
}

// Entry 描述一个已落盘的条目，包含绝对文件路径及文件信息。
type Entry struct {
	Locator   Locator   `json:"locator"`
	FilePath  string    `json:"file_path"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

// ReadResult 组合 Entry 与正文 Reader。
type ReadResult struct {
	Entry  Entry
	Reader io.ReadSeekCloser
}

var (
	// ErrNotFound 表示条目不存在。
	ErrNotFound = errors.New("cache entry not found")
	// ErrTooLarge 表示正文超过 PutOptions.MaxBytes。
	ErrTooLarge = errors.New("cache entry exceeds size limit")
)
