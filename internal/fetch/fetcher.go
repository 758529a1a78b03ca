// Package fetch implements the network fallback used when an archive named in
// the configuration cannot be opened locally. It downloads the archive by base
// name from FetchUpstream into the disk store and hands the catalog a local
// path to open instead.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/lumphub/internal/cache"
	"github.com/any-hub/lumphub/internal/logging"
	"github.com/any-hub/lumphub/internal/wad"
)

// Options 汇总 Fetcher 的依赖。
type Options struct {
	Upstream string
	Client   *http.Client
	Store    cache.Store
	Logger   *logrus.Logger
	// MaxBytes 大于 0 时限制单个归档的下载大小。
	MaxBytes int64
}

// Fetcher 满足 lumps.Fetcher：先查磁盘存储，未命中再向上游请求一次，不重试。
type Fetcher struct {
	upstream *url.URL
	client   *http.Client
	store    cache.Store
	logger   *logrus.Logger
	maxBytes int64
}

// ErrUpstreamStatus 表示上游返回了非 200 状态。
var ErrUpstreamStatus = errors.New("unexpected upstream status")

// New 校验上游地址并构建 Fetcher。
func New(opts Options) (*Fetcher, error) {
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.Upstream, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse fetch upstream: %w", err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("invalid fetch upstream: %s", opts.Upstream)
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		upstream: base,
		client:   client,
		store:    opts.Store,
		logger:   opts.Logger,
		maxBytes: opts.MaxBytes,
	}, nil
}

// FetchArchive 返回 archivePath 对应的本地副本路径。任何失败都只记录日志并返回 false，
// 由调用方决定是否致命。
func (f *Fetcher) FetchArchive(ctx context.Context, archivePath string) (string, bool) {
	locator, ok := f.locator(archivePath)
	if !ok {
		f.logger.WithFields(logging.ArchiveFields("fetch_skip", archivePath, "net")).
			Warn("archive path has no usable file name")
		return "", false
	}

	if entry, err := f.store.Stat(ctx, locator); err == nil {
		if f.usable(ctx, archivePath, locator) {
			f.logger.WithFields(logging.ArchiveFields("fetch_hit", archivePath, "net")).
				WithField("local", entry.FilePath).
				Info("using previously fetched archive")
			return entry.FilePath, true
		}
	} else if !errors.Is(err, cache.ErrNotFound) {
		f.logger.WithFields(logging.ArchiveFields("fetch_store", archivePath, "net")).
			WithError(err).Warn("store lookup failed")
	}

	started := time.Now()
	requestID := uuid.NewString()
	target := f.resolve(locator.Name)
	entry, status, err := f.download(ctx, target, requestID, locator)

	fields := logging.ArchiveFields("fetch", archivePath, "net")
	fields["upstream"] = target.String()
	fields["upstream_status"] = status
	fields["request_id"] = requestID
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if err != nil {
		fields["error"] = err.Error()
		f.logger.WithFields(fields).Error("fetch_failed")
		return "", false
	}
	fields["size_bytes"] = entry.SizeBytes
	if !f.usable(ctx, archivePath, locator) {
		f.logger.WithFields(fields).Error("fetch_failed")
		return "", false
	}
	f.logger.WithFields(fields).Info("fetch_complete")
	return entry.FilePath, true
}

// usable 检查存储中的 .wad 副本能否被目录解析：头部合法且目录表不越过文件末尾。
// 不合格的副本会被删除，避免之后每次启动都命中同一个坏文件。
func (f *Fetcher) usable(ctx context.Context, archivePath string, locator cache.Locator) bool {
	if !wad.HasExtension(archivePath, ".wad") {
		return true
	}
	err := f.checkArchive(ctx, locator)
	if err == nil {
		return true
	}
	fields := logging.ArchiveFields("fetch_invalid", archivePath, "net")
	fields["error"] = err.Error()
	if rmErr := f.store.Remove(ctx, locator); rmErr != nil {
		fields["remove_error"] = rmErr.Error()
	}
	f.logger.WithFields(fields).Warn("discarding fetched archive")
	return false
}

func (f *Fetcher) checkArchive(ctx context.Context, locator cache.Locator) error {
	result, err := f.store.Get(ctx, locator)
	if err != nil {
		return err
	}
	defer result.Reader.Close()

	header, err := wad.ReadHeader(result.Reader)
	if err != nil {
		return err
	}
	end := int64(header.DirOffset) + int64(header.NumLumps)*wad.DirEntrySize
	if end > result.Entry.SizeBytes {
		return fmt.Errorf("directory ends at %d past %d bytes: %w", end, result.Entry.SizeBytes, wad.ErrBadHeader)
	}
	return nil
}

func (f *Fetcher) download(ctx context.Context, target *url.URL, requestID string, locator cache.Locator) (*cache.Entry, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), http.NoBody)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}
	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return nil, resp.StatusCode, fmt.Errorf("%w: %d bytes", cache.ErrTooLarge, resp.ContentLength)
	}

	entry, err := f.store.Put(ctx, locator, resp.Body, cache.PutOptions{
		ModTime:  extractModTime(resp.Header),
		MaxBytes: f.maxBytes,
	})
	return entry, resp.StatusCode, err
}

// locator 把配置里的路径映射为存储条目：按上游主机分组，文件名取路径的最后一段。
func (f *Fetcher) locator(archivePath string) (cache.Locator, bool) {
	name := filepath.Base(filepath.Clean(archivePath))
	if name == "." || name == ".." || name == string(filepath.Separator) || name == "" {
		return cache.Locator{}, false
	}
	return cache.Locator{Group: f.upstream.Host, Name: name}, true
}

func (f *Fetcher) resolve(name string) *url.URL {
	u := *f.upstream
	u.Path = path.Join("/", f.upstream.Path, name)
	u.RawPath = ""
	return &u
}

func extractModTime(header http.Header) time.Time {
	if last := header.Get("Last-Modified"); last != "" {
		if parsed, err := http.ParseTime(last); err == nil {
			return parsed.UTC()
		}
	}
	return time.Now().UTC()
}
