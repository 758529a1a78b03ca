package lumps

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/any-hub/lumphub/internal/wad"
)

func lump(name, data string) wad.Lump {
	return wad.Lump{Name: wad.ParseName(name), Data: []byte(data)}
}

func marker(name string) wad.Lump {
	return wad.Lump{Name: wad.ParseName(name)}
}

// writeWAD writes a PWAD into dir and returns its path.
func writeWAD(t *testing.T, dir, file string, lumps ...wad.Lump) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, wad.WriteArchive(&buf, wad.MagicPWAD, lumps))
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func openCatalog(t *testing.T, opts Options, archives ...Archive) *Catalog {
	t.Helper()
	c, err := Open(context.Background(), archives, opts)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func pwad(path string) Archive {
	return Archive{Path: path, Source: SourcePWAD}
}

// expectFatal runs fn and returns the error handed to the default fatal sink.
func expectFatal(t *testing.T, fn func()) (fatal *FatalError) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected fatal error")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		require.True(t, errors.As(err, &fatal), "panic %v is not a FatalError", err)
	}()
	fn()
	return nil
}

func names(c *Catalog) []string {
	result := make([]string, c.Len())
	for i, info := range c.Records() {
		result[i] = info.Name
	}
	return result
}

type fakeAllocator struct {
	reserves       int
	reclaimable    int
	nonReclaimable int
	releases       int
	buffers        []*fakeBuffer
}

type fakeBuffer struct {
	alloc  *fakeAllocator
	data   []byte
	purged func()
}

func (a *fakeAllocator) Reserve(size int, purged func()) Buffer {
	a.reserves++
	b := &fakeBuffer{alloc: a, data: make([]byte, size), purged: purged}
	a.buffers = append(a.buffers, b)
	return b
}

func (b *fakeBuffer) Bytes() []byte       { return b.data }
func (b *fakeBuffer) MarkReclaimable()    { b.alloc.reclaimable++ }
func (b *fakeBuffer) MarkNonReclaimable() { b.alloc.nonReclaimable++ }
func (b *fakeBuffer) Release()            { b.alloc.releases++ }

type fakeFetcher struct {
	calls []string
	local string
	ok    bool
}

func (f *fakeFetcher) FetchArchive(_ context.Context, path string) (string, bool) {
	f.calls = append(f.calls, path)
	return f.local, f.ok
}
