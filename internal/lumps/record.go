package lumps

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/any-hub/lumphub/internal/wad"
)

// Namespace 将同名 lump 划分到互不干扰的资源池。
type Namespace int

const (
	NamespaceGlobal Namespace = iota
	NamespaceSprites
	NamespaceFlats
	NamespaceColormaps
)

var namespaceNames = map[Namespace]string{
	NamespaceGlobal:    "global",
	NamespaceSprites:   "sprites",
	NamespaceFlats:     "flats",
	NamespaceColormaps: "colormaps",
}

func (ns Namespace) String() string {
	if name, ok := namespaceNames[ns]; ok {
		return name
	}
	return fmt.Sprintf("namespace(%d)", int(ns))
}

// MarshalText 让 JSON 输出使用名称而不是数字。
func (ns Namespace) MarshalText() ([]byte, error) {
	return []byte(ns.String()), nil
}

// ParseNamespace 解析 global/sprites/flats/colormaps，空串视为 global。
func ParseNamespace(raw string) (Namespace, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return NamespaceGlobal, nil
	}
	for ns, name := range namespaceNames {
		if name == normalized {
			return ns, nil
		}
	}
	return NamespaceGlobal, fmt.Errorf("unknown namespace: %s", raw)
}

// Source 记录 lump 的来源，仅用于诊断，不参与查找。
type Source int

const (
	SourcePredefined Source = iota
	SourceIWAD
	SourcePWAD
	SourceLump
	SourceNet
)

var sourceNames = map[Source]string{
	SourcePredefined: "predefined",
	SourceIWAD:       "iwad",
	SourcePWAD:       "pwad",
	SourceLump:       "lump",
	SourceNet:        "net",
}

func (s Source) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("source(%d)", int(s))
}

// MarshalText 让 JSON 输出使用名称而不是数字。
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseSource 解析配置中的来源字段。predefined 与 net 由目录自身打标，不接受配置。
func ParseSource(raw string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "iwad":
		return SourceIWAD, nil
	case "pwad":
		return SourcePWAD, nil
	case "lump", "lmp":
		return SourceLump, nil
	default:
		return SourcePWAD, fmt.Errorf("unsupported archive source: %s", raw)
	}
}

// Archive 描述一个待加载的归档或单 lump 文件。
type Archive struct {
	Path   string
	Source Source
}

// record 是目录中的一项。next 由散列索引独占维护，locks/lockedAt 由缓存管理独占维护。
type record struct {
	name      wad.Name
	size      int
	position  int64
	backing   io.ReaderAt // 文件 lump 的句柄；预定义 lump 与哨兵为 nil
	data      []byte      // 预定义 lump 的内存正文
	namespace Namespace
	source    Source

	locks    uint
	lockedAt time.Time
	next     int
}

func sentinel(name wad.Name) record {
	return record{name: name, namespace: NamespaceGlobal, next: -1}
}

// RecordInfo 是目录项的只读快照。
type RecordInfo struct {
	Handle    int       `json:"handle"`
	Name      string    `json:"name"`
	Size      int       `json:"size"`
	Namespace Namespace `json:"namespace"`
	Source    Source    `json:"source"`
	Locks     uint      `json:"locks"`
	Cached    bool      `json:"cached"`
}

// LockInfo 描述当前被锁定的 lump 及其持锁时长。
type LockInfo struct {
	Handle    int           `json:"handle"`
	Name      string        `json:"name"`
	Size      int           `json:"size"`
	Locks     uint          `json:"locks"`
	LockedFor time.Duration `json:"locked_for"`
}
