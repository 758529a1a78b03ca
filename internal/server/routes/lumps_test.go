package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/any-hub/lumphub/internal/lumps"
	"github.com/any-hub/lumphub/internal/metrics"
	"github.com/any-hub/lumphub/internal/server"
	"github.com/any-hub/lumphub/internal/wad"
	"github.com/any-hub/lumphub/internal/zone"
)

type fixture struct {
	app     *fiber.App
	catalog *lumps.Catalog
	zone    *zone.Zone
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	var buf bytes.Buffer
	err := wad.WriteArchive(&buf, wad.MagicIWAD, []wad.Lump{
		{Name: wad.ParseName("PLAYPAL"), Data: []byte("palette")},
		{Name: wad.ParseName("S_START")},
		{Name: wad.ParseName("TROOA1"), Data: []byte("imp")},
		{Name: wad.ParseName("S_END")},
	})
	if err != nil {
		t.Fatalf("write wad: %v", err)
	}
	path := filepath.Join(t.TempDir(), "base.wad")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	collector := metrics.New()
	z := zone.New(0, zone.WithPurgeHook(collector.ZonePurged))
	catalog, err := lumps.Open(context.Background(), []lumps.Archive{{Path: path, Source: lumps.SourceIWAD}}, lumps.Options{
		Allocator: lumps.ZoneAllocator(z),
		Observer:  collector,
	})
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { catalog.Close() })

	logger, _ := test.NewNullLogger()
	app, err := server.NewApp(server.AppOptions{Logger: logger, ListenPort: 5000})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	RegisterLumpRoutes(app, LumpDeps{
		Catalog:  server.NewCatalogGuard(catalog),
		Zone:     z,
		Gatherer: collector.Registry,
	})
	return fixture{app: app, catalog: catalog, zone: z}
}

func (f fixture) get(t *testing.T, target string) (*http.Response, []byte) {
	t.Helper()
	resp, err := f.app.Test(httptest.NewRequest("GET", target, nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func TestListLumps(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/-/lumps")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload struct {
		Count int `json:"count"`
		Lumps []struct {
			Name      string `json:"name"`
			Namespace string `json:"namespace"`
			Source    string `json:"source"`
		} `json:"lumps"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Count != 4 {
		t.Fatalf("expected 4 lumps, got %d", payload.Count)
	}
	if payload.Lumps[2].Name != "TROOA1" || payload.Lumps[2].Namespace != "sprites" {
		t.Fatalf("unexpected sprite entry %+v", payload.Lumps[2])
	}
	if payload.Lumps[0].Source != "iwad" {
		t.Fatalf("source should be rendered by name, got %s", payload.Lumps[0].Source)
	}

	_, body = f.get(t, "/-/lumps?ns=sprites")
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Count != 1 {
		t.Fatalf("namespace filter should keep one lump, got %d", payload.Count)
	}
}

func TestLookupLump(t *testing.T) {
	f := newFixture(t)

	testCases := []struct {
		name   string
		target string
		status int
		want   string
	}{
		{"global hit", "/-/lumps/playpal", fiber.StatusOK, `"name":"PLAYPAL"`},
		{"namespace hit", "/-/lumps/TROOA1?ns=sprites", fiber.StatusOK, `"handle":2`},
		{"wrong namespace", "/-/lumps/TROOA1", fiber.StatusNotFound, `"lump_not_found"`},
		{"bad namespace", "/-/lumps/TROOA1?ns=textures", fiber.StatusBadRequest, `"invalid_namespace"`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := f.get(t, tc.target)
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d (%s)", tc.status, resp.StatusCode, body)
			}
			if !strings.Contains(string(body), tc.want) {
				t.Fatalf("expected %s in %s", tc.want, body)
			}
		})
	}
}

func TestRawLumpReleasesLock(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/-/lumps/TROOA1/raw?ns=sprites")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if string(body) != "imp" {
		t.Fatalf("unexpected body %q", body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != fiber.MIMEOctetStream {
		t.Fatalf("unexpected content type %s", ct)
	}

	h, _ := f.catalog.LookupName("TROOA1", lumps.NamespaceSprites)
	if locks := f.catalog.Info(h).Locks; locks != 0 {
		t.Fatalf("raw handler must release its lock, got %d", locks)
	}
	if stats := f.zone.Stats(); stats.CacheBlocks != 1 {
		t.Fatalf("released lump should stay cached as reclaimable, got %+v", stats)
	}

	resp, _ = f.get(t, "/-/lumps/NOPE/raw")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestLockReport(t *testing.T) {
	f := newFixture(t)
	h, _ := f.catalog.LookupName("PLAYPAL", lumps.NamespaceGlobal)
	f.catalog.CacheLump(h, 3)

	_, body := f.get(t, "/-/locks")
	var payload struct {
		Count int `json:"count"`
		Locks []struct {
			Name  string `json:"name"`
			Locks uint   `json:"locks"`
		} `json:"locks"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Count != 1 || payload.Locks[0].Name != "PLAYPAL" || payload.Locks[0].Locks != 3 {
		t.Fatalf("unexpected lock report %s", body)
	}
}

func TestZonePurge(t *testing.T) {
	f := newFixture(t)
	f.get(t, "/-/lumps/PLAYPAL/raw")
	locked, _ := f.catalog.LookupName("TROOA1", lumps.NamespaceSprites)
	f.catalog.CacheLump(locked, 1)

	resp, err := f.app.Test(httptest.NewRequest("POST", "/-/zone/purge", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload struct {
		Purged int `json:"purged"`
		Zone   struct {
			UsedBytes int64 `json:"used_bytes"`
		} `json:"zone"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Purged != 1 || payload.Zone.UsedBytes != 3 {
		t.Fatalf("only the unlocked PLAYPAL should go, got %+v", payload)
	}

	h, _ := f.catalog.LookupName("PLAYPAL", lumps.NamespaceGlobal)
	if f.catalog.Info(h).Cached {
		t.Fatalf("purged lump should be forgotten by the catalog")
	}
	if !f.catalog.Info(locked).Cached {
		t.Fatalf("locked lump must survive the purge")
	}
}

func TestZoneAndMetrics(t *testing.T) {
	f := newFixture(t)
	f.get(t, "/-/lumps/PLAYPAL/raw")
	f.get(t, "/-/lumps/PLAYPAL/raw")

	resp, body := f.get(t, "/-/zone")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"used_bytes":7`) {
		t.Fatalf("unexpected zone stats %s", body)
	}

	resp, body = f.get(t, "/-/metrics")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	for _, want := range []string{
		"lumphub_cache_hits_total 1",
		"lumphub_cache_misses_total 1",
		"lumphub_cache_read_bytes_total 7",
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, body)
		}
	}
}
