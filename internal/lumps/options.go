package lumps

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/lumphub/internal/zone"
)

// DefaultLockWarnThreshold 是开始报告高锁计数的阈值。
const DefaultLockWarnThreshold = 16

// Buffer 是分配器交给缓存的一块可回收内存。
type Buffer interface {
	Bytes() []byte
	MarkReclaimable()
	MarkNonReclaimable()
	// Release 立即归还缓冲，不触发 purged 回调。
	Release()
}

// Allocator 负责缓存正文的存储。Reserve 返回的缓冲初始即为可回收状态；
// 分配器回收它时必须调用 purged，缓存随之遗忘该条目。
type Allocator interface {
	Reserve(size int, purged func()) Buffer
}

// ZoneAllocator 把 zone.Zone 适配为 Allocator。
func ZoneAllocator(z *zone.Zone) Allocator {
	return zoneAllocator{z: z}
}

type zoneAllocator struct {
	z *zone.Zone
}

func (a zoneAllocator) Reserve(size int, purged func()) Buffer {
	return a.z.Malloc(size, zone.TagCache, purged)
}

// Fetcher 是网络回退：本地打开失败时尝试获取归档，成功时返回可打开的本地路径。
type Fetcher interface {
	FetchArchive(ctx context.Context, path string) (string, bool)
}

// Observer 接收缓存事件，用于指标统计。
type Observer interface {
	CacheHit()
	CacheMiss(size int)
	BytesRead(n int)
	LockedLumps(n int)
	LockWarning()
}

type nopObserver struct{}

func (nopObserver) CacheHit()       {}
func (nopObserver) CacheMiss(int)   {}
func (nopObserver) BytesRead(int)   {}
func (nopObserver) LockedLumps(int) {}
func (nopObserver) LockWarning()    {}

// Options 汇总 Catalog 的外部协作者。零值可用：日志丢弃，分配器不限预算，
// 无网络回退，fatal 以 *FatalError panic。
type Options struct {
	Logger     *logrus.Logger
	Allocator  Allocator
	Fetcher    Fetcher
	Observer   Observer
	Predefined []Predefined
	// Fatal 处理启动后的致命错误（越界编号、截断读取、必需名称缺失），不得返回。
	Fatal func(error)
	// LockWarnThreshold 为 0 时使用 DefaultLockWarnThreshold。
	LockWarnThreshold uint
	Now               func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = logrus.New()
		o.Logger.SetOutput(io.Discard)
	}
	if o.Allocator == nil {
		o.Allocator = ZoneAllocator(zone.New(0))
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	if o.Fatal == nil {
		o.Fatal = panicFatal
	}
	if o.LockWarnThreshold == 0 {
		o.LockWarnThreshold = DefaultLockWarnThreshold
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
