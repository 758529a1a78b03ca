package wad

import (
	"errors"
	"fmt"
	"strings"
)

// NameSize 是目录项中 lump 名称字段的固定长度。
const NameSize = 8

// ErrNameTooLong 表示文件名主干超过 8 个字符，无法作为 lump 名称。
var ErrNameTooLong = errors.New("filename base longer than 8 characters")

// Name 是定长 8 字节的 lump 名称，NUL 填充，不保证以 NUL 结尾。
//
// 所有构造函数都会把第一个 NUL 之后的字节清零（等价于 strncpy 的填充），
// 因此对整个数组做大小写折叠比较就等同于按 C 字符串比较前 8 个字符。
type Name [NameSize]byte

// ParseName 把字符串截断/填充为 Name，保留原始大小写。
func ParseName(s string) Name {
	var n Name
	for i := 0; i < NameSize && i < len(s); i++ {
		if s[i] == 0 {
			break
		}
		n[i] = s[i]
	}
	return n
}

// NameFromBytes 读取磁盘上的 8 字节名称字段，NUL 之后的残留字节被丢弃。
func NameFromBytes(b []byte) Name {
	var n Name
	for i := 0; i < NameSize && i < len(b); i++ {
		if b[i] == 0 {
			break
		}
		n[i] = b[i]
	}
	return n
}

// String 返回 NUL 之前的部分。
func (n Name) String() string {
	for i, c := range n {
		if c == 0 {
			return string(n[:i])
		}
	}
	return string(n[:])
}

// Equal 大小写不敏感地比较两个名称的全部 8 个字节。
func (n Name) Equal(other Name) bool {
	for i := 0; i < NameSize; i++ {
		if upper(n[i]) != upper(other[i]) {
			return false
		}
	}
	return true
}

// Hash 计算 lump 名称的散列值，调用方需要自行对表长取模。
//
// 权重与提前终止点固定：首字符起步，第二个字符乘 3，之后每个字符乘 2，
// 遇到 NUL 即停止；第七个字符非零时第八个字符无条件参与。
// 这一分布让平均链长保持在 2 以下，不能替换成通用散列。
func Hash(n Name) uint32 {
	h := uint32(upper(n[0]))
	if n[1] == 0 {
		return h
	}
	h = h*3 + uint32(upper(n[1]))
	for i := 2; i < 6; i++ {
		if n[i] == 0 {
			return h
		}
		h = h*2 + uint32(upper(n[i]))
	}
	if n[6] == 0 {
		return h
	}
	h = h*2 + uint32(upper(n[6]))
	h = h*2 + uint32(upper(n[7]))
	return h
}

// IsMarker 判断 name 是否为 marker 对应的区段标记。
//
// 除完全匹配外，还接受首字符重复的写法：name[0] == marker[0] 且
// name[1:8] 与 marker[0:7] 匹配，例如 SS_START 视同 S_START。
func IsMarker(marker, name Name) bool {
	if name.Equal(marker) {
		return true
	}
	if name[0] != marker[0] {
		return false
	}
	for i := 0; i < NameSize-1; i++ {
		a, b := upper(name[i+1]), upper(marker[i])
		if a != b {
			return false
		}
		if a == 0 {
			break
		}
	}
	return true
}

// ExtractFileBase 从路径中提取 lump 名称：去掉目录（/、\ 以及盘符冒号），
// 截止到第一个 '.'，转换为大写。主干超过 8 个字符返回 ErrNameTooLong。
func ExtractFileBase(path string) (Name, error) {
	start := len(path)
	for start > 0 {
		prev := path[start-1]
		if prev == '/' || prev == '\\' || prev == ':' {
			break
		}
		start--
	}
	base := path[start:]
	if idx := strings.IndexByte(base, '.'); idx >= 0 {
		base = base[:idx]
	}
	if len(base) > NameSize {
		return Name{}, fmt.Errorf("%w: %s", ErrNameTooLong, path)
	}
	// 逐字节折叠，非 ASCII 字节原样保留，长度与上面的检查一致。
	name := ParseName(base)
	for i, c := range name {
		name[i] = upper(c)
	}
	return name, nil
}

// HasExtension 大小写不敏感地判断 path 是否以 ext（含点）结尾。
// 与原有行为保持一致：路径长度不超过扩展名长度时视为不匹配。
func HasExtension(path, ext string) bool {
	if len(path) <= len(ext) {
		return false
	}
	return strings.EqualFold(path[len(path)-len(ext):], ext)
}

// AddDefaultExtension 在文件名没有扩展名时追加 ext。
func AddDefaultExtension(path, ext string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/' && path[i] != '\\'; i-- {
		if path[i] == '.' {
			return path
		}
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return path + ext
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
