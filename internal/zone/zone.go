// Package zone 提供带标签的可回收内存区：static 块常驻，cache 块在预算不足时
// 按 LRU 顺序回收，并通过 owner 回调通知持有方其缓冲已失效。
package zone

import (
	"container/list"
	"sync"
)

// Tag 决定块是否可以被回收。
type Tag int

const (
	// TagStatic 块不会被回收。
	TagStatic Tag = iota
	// TagCache 块在预算不足时可被回收。
	TagCache
)

func (t Tag) String() string {
	switch t {
	case TagStatic:
		return "static"
	case TagCache:
		return "cache"
	default:
		return "unknown"
	}
}

// Stats 是 Zone 的快照。
type Stats struct {
	LimitBytes   int64  `json:"limit_bytes"`
	UsedBytes    int64  `json:"used_bytes"`
	StaticBlocks int    `json:"static_blocks"`
	CacheBlocks  int    `json:"cache_blocks"`
	Allocations  uint64 `json:"allocations"`
	Purges       uint64 `json:"purges"`
	PurgedBytes  uint64 `json:"purged_bytes"`
	Overcommits  uint64 `json:"overcommits"`
}

// Option 调整 Zone 行为。
type Option func(*Zone)

// WithPurgeHook 在每次回收一个块后调用 fn(size)，用于指标统计。
func WithPurgeHook(fn func(size int)) Option {
	return func(z *Zone) {
		z.onPurge = fn
	}
}

// Zone 管理一组块的标签与字节预算。所有方法可并发调用。
type Zone struct {
	mu      sync.Mutex
	limit   int64
	used    int64
	lru     *list.List // 仅包含 TagCache 块，Front 为最久未使用
	static  int
	stats   Stats
	onPurge func(size int)
}

// Block 是 Zone 分配出的缓冲区。
type Block struct {
	zone  *Zone
	data  []byte
	size  int
	tag   Tag
	elem  *list.Element
	owner func()
	freed bool
}

// New 创建字节预算为 limit 的 Zone，limit <= 0 表示不限制。
func New(limit int64, opts ...Option) *Zone {
	z := &Zone{
		limit: limit,
		lru:   list.New(),
	}
	for _, opt := range opts {
		opt(z)
	}
	return z
}

// Malloc 分配 size 字节的块。为腾出预算会先回收最久未使用的 cache 块；
// 若只剩 static 块仍然超出预算，则照常分配并计入 Overcommits。
// owner 在该块被回收时调用（在 Zone 锁之外），可以为 nil。
func (z *Zone) Malloc(size int, tag Tag, owner func()) *Block {
	b := &Block{
		zone:  z,
		data:  make([]byte, size),
		size:  size,
		tag:   tag,
		owner: owner,
	}

	z.mu.Lock()
	victims := z.reclaimLocked(int64(size))
	if z.limit > 0 && z.used+int64(size) > z.limit {
		z.stats.Overcommits++
	}
	z.used += int64(size)
	z.stats.Allocations++
	z.attachLocked(b)
	z.mu.Unlock()

	z.notify(victims)
	return b
}

// Bytes 返回块的数据；块被回收或释放后返回 nil。
func (b *Block) Bytes() []byte {
	b.zone.mu.Lock()
	defer b.zone.mu.Unlock()
	return b.data
}

// ChangeTag 切换块的标签。已回收的块不做任何处理。
func (b *Block) ChangeTag(tag Tag) {
	z := b.zone
	z.mu.Lock()
	defer z.mu.Unlock()
	if b.freed || b.tag == tag {
		return
	}
	z.detachLocked(b)
	b.tag = tag
	z.attachLocked(b)
}

// MarkReclaimable 把块标记为 cache。
func (b *Block) MarkReclaimable() { b.ChangeTag(TagCache) }

// MarkNonReclaimable 把块标记为 static。
func (b *Block) MarkNonReclaimable() { b.ChangeTag(TagStatic) }

// Release 把块还给所属的 zone，不调用 owner。
func (b *Block) Release() { b.zone.Free(b) }

// Free 立即释放块，不调用 owner。
func (z *Zone) Free(b *Block) {
	z.mu.Lock()
	defer z.mu.Unlock()
	if b.freed {
		return
	}
	z.detachLocked(b)
	z.used -= int64(b.size)
	b.data = nil
	b.freed = true
}

// PurgeCache 回收全部 cache 块，返回回收的块数。
func (z *Zone) PurgeCache() int {
	z.mu.Lock()
	var victims []*Block
	for e := z.lru.Front(); e != nil; e = z.lru.Front() {
		victims = append(victims, z.purgeLocked(e.Value.(*Block)))
	}
	z.mu.Unlock()

	z.notify(victims)
	return len(victims)
}

// Stats 返回当前统计。
func (z *Zone) Stats() Stats {
	z.mu.Lock()
	defer z.mu.Unlock()
	s := z.stats
	s.LimitBytes = z.limit
	s.UsedBytes = z.used
	s.StaticBlocks = z.static
	s.CacheBlocks = z.lru.Len()
	return s
}

func (z *Zone) reclaimLocked(need int64) []*Block {
	if z.limit <= 0 {
		return nil
	}
	var victims []*Block
	for z.used+need > z.limit {
		e := z.lru.Front()
		if e == nil {
			break
		}
		victims = append(victims, z.purgeLocked(e.Value.(*Block)))
	}
	return victims
}

func (z *Zone) purgeLocked(b *Block) *Block {
	z.detachLocked(b)
	z.used -= int64(b.size)
	z.stats.Purges++
	z.stats.PurgedBytes += uint64(b.size)
	b.data = nil
	b.freed = true
	return b
}

func (z *Zone) attachLocked(b *Block) {
	if b.tag == TagCache {
		b.elem = z.lru.PushBack(b)
		return
	}
	z.static++
}

func (z *Zone) detachLocked(b *Block) {
	if b.tag == TagCache {
		if b.elem != nil {
			z.lru.Remove(b.elem)
			b.elem = nil
		}
		return
	}
	z.static--
}

func (z *Zone) notify(victims []*Block) {
	for _, b := range victims {
		if z.onPurge != nil {
			z.onPurge(b.size)
		}
		if b.owner != nil {
			b.owner()
		}
	}
}
