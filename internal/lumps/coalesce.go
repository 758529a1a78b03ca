package lumps

import "github.com/any-hub/lumphub/internal/wad"

// coalesce 把 start/end 标记之间的 lump 搬到目录末尾组成一个连续区段，并打上 ns 标签。
//
// 区段外的 lump 保持原相对顺序排在前面；区段内的 lump 同样保持相对顺序。
// 第一次遇到 start 标记时插入一个零长度的 start 哨兵，只要见过 end 标记就在末尾
// 追加一个零长度的 end 哨兵。源文件中的标记 lump 本身被丢弃。
func coalesce(records []record, start, end wad.Name, ns Namespace) []record {
	unmarked := make([]record, 0, len(records))
	var marked []record
	inBlock, sawEnd := false, false

	for _, r := range records {
		switch {
		case wad.IsMarker(start, r.name):
			if len(marked) == 0 {
				marked = append(marked, sentinel(start))
			}
			inBlock = true
		case wad.IsMarker(end, r.name):
			sawEnd = true
			inBlock = false
		case inBlock:
			r.namespace = ns
			marked = append(marked, r)
		default:
			unmarked = append(unmarked, r)
		}
	}

	result := append(unmarked, marked...)
	if sawEnd {
		result = append(result, sentinel(end))
	}
	return result
}
