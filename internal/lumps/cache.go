package lumps

import (
	"fmt"
	"io"
	"math/bits"

	"github.com/any-hub/lumphub/internal/logging"
)

// Length 返回 lump 声明的字节长度，在进程生命周期内不变。
func (c *Catalog) Length(handle int) int {
	if !c.checkHandle("LumpLength", handle) {
		return 0
	}
	return c.records[handle].size
}

// ReadLump 绕过缓存，把 lump 正文读入 dst（长度至少为 Length(handle)）。
// 后备文件比声明短时交给 fatal sink。
func (c *Catalog) ReadLump(handle int, dst []byte) {
	if !c.checkHandle("ReadLump", handle) {
		return
	}
	r := &c.records[handle]
	if len(dst) < r.size {
		c.opts.Fatal(&FatalError{
			Op:  "ReadLump",
			Err: fmt.Errorf("%w: %d < %d on lump %d", ErrShortBuffer, len(dst), r.size, handle),
		})
		return
	}

	switch {
	case r.data != nil:
		copy(dst, r.data[:r.size])
	case r.backing != nil:
		n, err := r.backing.ReadAt(dst[:r.size], r.position)
		c.opts.Observer.BytesRead(n)
		if n < r.size {
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			c.opts.Fatal(&FatalError{
				Op:  "ReadLump",
				Err: fmt.Errorf("%w: only read %d of %d on lump %d (%s): %v", ErrShortRead, n, r.size, handle, r.name, err),
			})
		}
	}
}

// CacheLump 返回 lump 的缓存正文，并把锁计数增加 locks。
//
// 首次访问时通过分配器申请可回收缓冲并读入正文。锁计数从 0 变为非 0 时通知分配器
// 保留该缓冲。locks 为 0 时不返回数据：未加锁的缓冲随时可能被回收。
// 返回的切片在对应的 UnlockLump 之前有效，调用方不得修改。
func (c *Catalog) CacheLump(handle int, locks uint) []byte {
	if !c.checkHandle("CacheLump", handle) {
		return nil
	}
	r := &c.records[handle]

	if c.cache[handle] == nil {
		var buf Buffer
		buf = c.opts.Allocator.Reserve(r.size, func() {
			if c.cache[handle] == buf {
				c.cache[handle] = nil
			}
		})
		c.ReadLump(handle, buf.Bytes())
		c.cache[handle] = buf
		c.opts.Observer.CacheMiss(r.size)
	} else {
		c.opts.Observer.CacheHit()
	}

	prev := r.locks
	r.locks += locks
	if prev == 0 && r.locks > 0 {
		c.cache[handle].MarkNonReclaimable()
		r.lockedAt = c.opts.Now()
		c.locked++
		c.opts.Observer.LockedLumps(c.locked)
	}

	if c.highLock(prev, r.locks) {
		c.opts.Observer.LockWarning()
		c.logger.WithFields(logging.LumpFields("lock_high", handle, r.name.String(), r.locks)).
			Debug("high lock count, likely missing unlock")
	}

	if locks == 0 {
		return nil
	}
	return c.cache[handle].Bytes()
}

// UnlockLump 把锁计数减少 unlocks。只有从加锁变为未加锁时才通知分配器可以回收；
// 已是 0 的条目可能已被回收，不能再触碰。释放次数超过持有次数时记录告警并归零。
func (c *Catalog) UnlockLump(handle int, unlocks uint) {
	if !c.checkHandle("UnlockLump", handle) {
		return
	}
	r := &c.records[handle]

	prev := r.locks
	if unlocks > r.locks {
		c.opts.Observer.LockWarning()
		c.logger.WithFields(logging.LumpFields("unlock_excess", handle, r.name.String(), r.locks)).
			WithField("unlocks", unlocks).
			Warn("excess unlocks")
		r.locks = 0
	} else {
		r.locks -= unlocks
	}

	if unlocks > 0 && prev > 0 && r.locks == 0 {
		if buf := c.cache[handle]; buf != nil {
			buf.MarkReclaimable()
		}
		c.locked--
		c.opts.Observer.LockedLumps(c.locked)
	}
}

// CacheLumpName 在 global 命名空间查找 name 后调用 CacheLump，名称缺失交给 fatal sink。
func (c *Catalog) CacheLumpName(name string, locks uint) []byte {
	handle := c.MustLookup(name)
	if handle < 0 {
		return nil
	}
	return c.CacheLump(handle, locks)
}

// UnlockLumpName 是 CacheLumpName 的配对操作。
func (c *Catalog) UnlockLumpName(name string, unlocks uint) {
	handle := c.MustLookup(name)
	if handle < 0 {
		return
	}
	c.UnlockLump(handle, unlocks)
}

// highLock 在锁计数越过阈值以上的 2 的幂时返回 true。
func (c *Catalog) highLock(prev, now uint) bool {
	if now < c.opts.LockWarnThreshold || now <= prev {
		return false
	}
	return bits.Len(prev) != bits.Len(now)
}
