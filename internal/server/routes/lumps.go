package routes

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/any-hub/lumphub/internal/lumps"
	"github.com/any-hub/lumphub/internal/server"
	"github.com/any-hub/lumphub/internal/zone"
)

// LumpDeps 汇总诊断接口需要的依赖，Zone 与 Gatherer 可以为空。
type LumpDeps struct {
	Catalog  *server.CatalogGuard
	Zone     *zone.Zone
	Gatherer prometheus.Gatherer
}

// RegisterLumpRoutes 暴露 /-/lumps、/-/locks、/-/zone 与 /-/metrics 诊断接口，
// 以及唯一的写操作 POST /-/zone/purge。
func RegisterLumpRoutes(app *fiber.App, deps LumpDeps) {
	if app == nil || deps.Catalog == nil {
		return
	}

	app.Get("/-/lumps", func(c fiber.Ctx) error {
		filter, filtered, err := namespaceQuery(c)
		if err != nil {
			return invalidNamespace(c)
		}
		var records []lumps.RecordInfo
		deps.Catalog.Do(func(catalog *lumps.Catalog) {
			records = catalog.Records()
		})
		if filtered {
			records = filterNamespace(records, filter)
		}
		return c.JSON(fiber.Map{
			"count": len(records),
			"lumps": records,
		})
	})

	app.Get("/-/lumps/:name", func(c fiber.Ctx) error {
		info, ok, err := lookup(c, deps.Catalog)
		if err != nil {
			return invalidNamespace(c)
		}
		if !ok {
			return lumpNotFound(c)
		}
		return c.JSON(info)
	})

	app.Get("/-/lumps/:name/raw", func(c fiber.Ctx) error {
		ns, _, err := namespaceQuery(c)
		if err != nil {
			return invalidNamespace(c)
		}
		name := strings.TrimSpace(c.Params("name"))

		var (
			body  []byte
			found bool
		)
		deps.Catalog.Do(func(catalog *lumps.Catalog) {
			handle, ok := catalog.LookupName(name, ns)
			if !ok {
				return
			}
			found = true
			// 缓存切片只在持锁期间有效，复制后立即释放。
			data := catalog.CacheLump(handle, 1)
			body = append([]byte(nil), data...)
			catalog.UnlockLump(handle, 1)
		})
		if !found {
			return lumpNotFound(c)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
		return c.Send(body)
	})

	app.Get("/-/locks", func(c fiber.Ctx) error {
		var report []lumps.LockInfo
		deps.Catalog.Do(func(catalog *lumps.Catalog) {
			report = catalog.LockReport()
		})
		return c.JSON(fiber.Map{
			"count": len(report),
			"locks": encodeLocks(report),
		})
	})

	if deps.Zone != nil {
		app.Get("/-/zone", func(c fiber.Ctx) error {
			return c.JSON(deps.Zone.Stats())
		})

		// 回收全部未加锁的缓存；owner 回调会修改目录状态，因此同样在 guard 内执行。
		app.Post("/-/zone/purge", func(c fiber.Ctx) error {
			var purged int
			deps.Catalog.Do(func(*lumps.Catalog) {
				purged = deps.Zone.PurgeCache()
			})
			return c.JSON(fiber.Map{
				"purged": purged,
				"zone":   deps.Zone.Stats(),
			})
		})
	}

	if deps.Gatherer != nil {
		app.Get("/-/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
}

type lockPayload struct {
	Handle      int    `json:"handle"`
	Name        string `json:"name"`
	Size        int    `json:"size"`
	Locks       uint   `json:"locks"`
	LockedForMS int64  `json:"locked_for_ms"`
}

func encodeLocks(report []lumps.LockInfo) []lockPayload {
	result := make([]lockPayload, 0, len(report))
	for _, item := range report {
		result = append(result, lockPayload{
			Handle:      item.Handle,
			Name:        item.Name,
			Size:        item.Size,
			Locks:       item.Locks,
			LockedForMS: item.LockedFor.Milliseconds(),
		})
	}
	return result
}

func lookup(c fiber.Ctx, guard *server.CatalogGuard) (lumps.RecordInfo, bool, error) {
	ns, _, err := namespaceQuery(c)
	if err != nil {
		return lumps.RecordInfo{}, false, err
	}
	name := strings.TrimSpace(c.Params("name"))

	var (
		info  lumps.RecordInfo
		found bool
	)
	guard.Do(func(catalog *lumps.Catalog) {
		if handle, ok := catalog.LookupName(name, ns); ok {
			info = catalog.Info(handle)
			found = true
		}
	})
	return info, found, nil
}

// namespaceQuery 解析 ?ns=，缺省为 global；第二个返回值表示调用方是否显式指定。
func namespaceQuery(c fiber.Ctx) (lumps.Namespace, bool, error) {
	raw := c.Query("ns")
	ns, err := lumps.ParseNamespace(raw)
	return ns, strings.TrimSpace(raw) != "", err
}

func filterNamespace(records []lumps.RecordInfo, ns lumps.Namespace) []lumps.RecordInfo {
	result := make([]lumps.RecordInfo, 0, len(records))
	for _, r := range records {
		if r.Namespace == ns {
			result = append(result, r)
		}
	}
	return result
}

func invalidNamespace(c fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_namespace"})
}

func lumpNotFound(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "lump_not_found"})
}
