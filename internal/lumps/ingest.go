package lumps

import (
	"context"
	"fmt"
	"os"

	"github.com/any-hub/lumphub/internal/logging"
	"github.com/any-hub/lumphub/internal/wad"
)

const (
	wadExtension  = ".wad"
	lumpExtension = ".lmp"
)

// addFile 打开一个归档并把它的目录追加到 records。
// .wad 为多 lump 容器，其余文件视为以文件名主干命名的单个 lump。
// 打开失败时先尝试一次网络回退；.lmp 文件仍失败则静默跳过，其余归档为致命错误。
func (c *Catalog) addFile(ctx context.Context, a Archive) error {
	source := a.Source
	f, err := os.Open(a.Path)
	if err != nil && c.opts.Fetcher != nil {
		if local, ok := c.opts.Fetcher.FetchArchive(ctx, a.Path); ok {
			if f, err = os.Open(local); err == nil {
				source = SourceNet
			}
		}
	}
	if err != nil {
		if !wad.HasExtension(a.Path, lumpExtension) {
			return fmt.Errorf("%w %s: %v", ErrArchiveMissing, a.Path, err)
		}
		c.logger.WithFields(logging.ArchiveFields("archive_skip", a.Path, source.String())).
			Debug("optional lump file missing")
		return nil
	}

	c.logger.WithFields(logging.ArchiveFields("archive_add", a.Path, source.String())).Info("adding archive")

	entries, err := readEntries(f, a.Path)
	if err != nil {
		f.Close()
		return err
	}
	c.files = append(c.files, f)

	for _, e := range entries {
		c.records = append(c.records, record{
			name:      e.Name,
			size:      int(e.Size),
			position:  int64(e.Offset),
			backing:   f,
			namespace: NamespaceGlobal,
			source:    source,
			next:      -1,
		})
	}
	return nil
}

func readEntries(f *os.File, path string) ([]wad.DirEntry, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !wad.HasExtension(path, wadExtension) {
		name, err := wad.ExtractFileBase(path)
		if err != nil {
			return nil, err
		}
		return []wad.DirEntry{{Offset: 0, Size: int32(info.Size()), Name: name}}, nil
	}

	header, err := wad.ReadHeader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	entries, err := wad.ReadDirectory(f, header, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, e := range entries {
		if e.Offset < 0 || e.Size < 0 {
			return nil, fmt.Errorf("%s: lump %s: %w", path, e.Name, wad.ErrBadHeader)
		}
	}
	return entries, nil
}
