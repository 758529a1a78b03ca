package lumps

import (
	"fmt"

	"github.com/any-hub/lumphub/internal/wad"
)

// initHash 按目录顺序把每个 lump 插到所在链表的头部，
// 因此链表从头遍历时总是先遇到后加载的同名 lump。
func (c *Catalog) initHash() {
	n := len(c.records)
	c.heads = make([]int, n)
	for i := range c.heads {
		c.heads[i] = -1
	}
	for i := range c.records {
		j := wad.Hash(c.records[i].name) % uint32(n)
		c.records[i].next = c.heads[j]
		c.heads[j] = i
	}
}

// Lookup 返回名称与命名空间都匹配、且最后加载的 lump 编号。
func (c *Catalog) Lookup(name wad.Name, ns Namespace) (int, bool) {
	if len(c.heads) == 0 {
		return -1, false
	}
	i := c.heads[wad.Hash(name)%uint32(len(c.heads))]
	for i >= 0 {
		r := &c.records[i]
		if r.namespace == ns && r.name.Equal(name) {
			return i, true
		}
		i = r.next
	}
	return -1, false
}

// LookupName 是 Lookup 的字符串版本，超过 8 个字符的部分被忽略。
func (c *Catalog) LookupName(name string, ns Namespace) (int, bool) {
	return c.Lookup(wad.ParseName(name), ns)
}

// MustLookup 在 global 命名空间查找 name，不存在时交给 fatal sink。
func (c *Catalog) MustLookup(name string) int {
	if i, ok := c.LookupName(name, NamespaceGlobal); ok {
		return i
	}
	c.opts.Fatal(&FatalError{
		Op:  "GetNumForName",
		Err: fmt.Errorf("%w: %s", ErrNotFound, wad.ParseName(name)),
	})
	return -1
}
