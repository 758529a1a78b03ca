package lumps

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/lumphub/internal/wad"
)

var markerPasses = []struct {
	start, end wad.Name
	namespace  Namespace
}{
	{wad.ParseName("S_START"), wad.ParseName("S_END"), NamespaceSprites},
	{wad.ParseName("F_START"), wad.ParseName("F_END"), NamespaceFlats},
	{wad.ParseName("C_START"), wad.ParseName("C_END"), NamespaceColormaps},
}

// Catalog 是启动后冻结的 lump 目录、名称索引与锁计数缓存。
//
// Catalog 不是并发安全的：启动阶段由 Open 一次完成，之后的缓存操作
// （CacheLump/UnlockLump/ReadLump）若跨 goroutine 使用，需要调用方用同一把锁串行化。
type Catalog struct {
	opts    Options
	logger  *logrus.Logger
	records []record
	heads   []int
	cache   []Buffer
	files   []*os.File
	locked  int
}

// Open 依序加载 archives，合并命名空间区段并建立散列索引。
// 返回的 error 都是启动期致命错误，调用方应终止进程。
func Open(ctx context.Context, archives []Archive, opts Options) (*Catalog, error) {
	c := &Catalog{opts: opts.withDefaults()}
	c.logger = c.opts.Logger

	for _, p := range c.opts.Predefined {
		c.records = append(c.records, record{
			name:   p.Name,
			size:   len(p.Data),
			data:   p.Data,
			source: SourcePredefined,
			next:   -1,
		})
	}

	for _, a := range archives {
		if err := c.addFile(ctx, a); err != nil {
			c.Close()
			return nil, err
		}
	}

	if len(c.records) == 0 {
		c.Close()
		return nil, ErrNoLumps
	}

	for _, pass := range markerPasses {
		c.records = coalesce(c.records, pass.start, pass.end, pass.namespace)
	}

	c.cache = make([]Buffer, len(c.records))
	c.initHash()

	c.logger.WithFields(logrus.Fields{
		"action":   "catalog_init",
		"lumps":    len(c.records),
		"archives": len(c.files),
	}).Info("lump directory ready")
	return c, nil
}

// Close 归还所有缓存缓冲并关闭归档句柄。只有测试与退出路径需要调用。
func (c *Catalog) Close() error {
	for i, buf := range c.cache {
		if buf != nil {
			buf.Release()
			c.cache[i] = nil
		}
	}
	var firstErr error
	for _, f := range c.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", f.Name(), err)
		}
	}
	c.files = nil
	return firstErr
}

// Len 返回目录中的 lump 数量。
func (c *Catalog) Len() int {
	return len(c.records)
}

// Info 返回 handle 对应的快照。
func (c *Catalog) Info(handle int) RecordInfo {
	if !c.checkHandle("Info", handle) {
		return RecordInfo{}
	}
	return c.info(handle)
}

// Records 按目录顺序返回全部快照。
func (c *Catalog) Records() []RecordInfo {
	result := make([]RecordInfo, len(c.records))
	for i := range c.records {
		result[i] = c.info(i)
	}
	return result
}

// Range 返回命名空间区段 [start, end)。区段由合并阶段保证连续；global 不构成区段。
func (c *Catalog) Range(ns Namespace) (start, end int, ok bool) {
	if ns == NamespaceGlobal {
		return 0, 0, false
	}
	start = -1
	for i := range c.records {
		if c.records[i].namespace != ns {
			continue
		}
		if start < 0 {
			start = i
		}
		end = i + 1
	}
	if start < 0 {
		return 0, 0, false
	}
	return start, end, true
}

// LockReport 返回当前被锁定的 lump，按持锁时长倒序。
func (c *Catalog) LockReport() []LockInfo {
	now := c.opts.Now()
	var result []LockInfo
	for i := range c.records {
		r := &c.records[i]
		if r.locks == 0 {
			continue
		}
		result = append(result, LockInfo{
			Handle:    i,
			Name:      r.name.String(),
			Size:      r.size,
			Locks:     r.locks,
			LockedFor: now.Sub(r.lockedAt),
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].LockedFor > result[j].LockedFor
	})
	return result
}

func (c *Catalog) info(i int) RecordInfo {
	r := &c.records[i]
	return RecordInfo{
		Handle:    i,
		Name:      r.name.String(),
		Size:      r.size,
		Namespace: r.namespace,
		Source:    r.source,
		Locks:     r.locks,
		Cached:    c.cache != nil && c.cache[i] != nil,
	}
}

func (c *Catalog) checkHandle(op string, handle int) bool {
	if handle < 0 || handle >= len(c.records) {
		c.opts.Fatal(&FatalError{
			Op:  op,
			Err: fmt.Errorf("%w: %d >= %d", ErrBadHandle, handle, len(c.records)),
		})
		return false
	}
	return true
}
