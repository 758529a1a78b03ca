package server

import (
	"sync"

	"github.com/any-hub/lumphub/internal/lumps"
)

// CatalogGuard 串行化对 lumps.Catalog 的访问。Catalog 本身不是并发安全的，
// 而 Fiber 会在多个 goroutine 上执行 handler。
type CatalogGuard struct {
	mu      sync.Mutex
	catalog *lumps.Catalog
}

// NewCatalogGuard wraps catalog.
func NewCatalogGuard(catalog *lumps.Catalog) *CatalogGuard {
	return &CatalogGuard{catalog: catalog}
}

// Do 在持锁状态下执行 fn。fn 不得保留 catalog 返回的缓存切片到锁外。
func (g *CatalogGuard) Do(fn func(c *lumps.Catalog)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g.catalog)
}
