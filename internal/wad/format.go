package wad

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// 磁盘布局（全部小端）：
//
//	header    : magic[4] | numlumps int32 | infotableofs int32
//	directory : numlumps × (filepos int32 | size int32 | name[8])
const (
	HeaderSize   = 12
	DirEntrySize = 16
)

// Magic 标识容器类型。
type Magic [4]byte

var (
	MagicIWAD = Magic{'I', 'W', 'A', 'D'}
	MagicPWAD = Magic{'P', 'W', 'A', 'D'}
)

// ErrBadMagic 表示文件头既不是 IWAD 也不是 PWAD。
var ErrBadMagic = errors.New("wad file doesn't have IWAD or PWAD id")

// ErrBadHeader 表示头部的数量或偏移为负值。
var ErrBadHeader = errors.New("wad header declares negative count or offset")

// Header 是容器文件头。
type Header struct {
	Magic     Magic
	NumLumps  int32
	DirOffset int32
}

// DirEntry 是目录表中的一项。
type DirEntry struct {
	Offset int32
	Size   int32
	Name   Name
}

// Lump 是写出容器时使用的名称 + 正文。
type Lump struct {
	Name Name
	Data []byte
}

// ReadHeader 读取并校验容器头部。
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, fmt.Errorf("read header: %w", err)
	}
	var h Header
	copy(h.Magic[:], buf[0:4])
	if h.Magic != MagicIWAD && h.Magic != MagicPWAD {
		return Header{}, ErrBadMagic
	}
	h.NumLumps = int32(binary.LittleEndian.Uint32(buf[4:8]))
	h.DirOffset = int32(binary.LittleEndian.Uint32(buf[8:12]))
	if h.NumLumps < 0 || h.DirOffset < 0 {
		return Header{}, ErrBadHeader
	}
	return h, nil
}

// ReadDirectory 从 h.DirOffset 处读取 h.NumLumps 个目录项。
// size 是容器的总字节数，目录表越过文件末尾时在分配之前返回 ErrBadHeader。
func ReadDirectory(r io.ReaderAt, h Header, size int64) ([]DirEntry, error) {
	if h.NumLumps == 0 {
		return nil, nil
	}
	if end := int64(h.DirOffset) + int64(h.NumLumps)*DirEntrySize; end > size {
		return nil, fmt.Errorf("directory (%d entries at %d) ends past %d bytes: %w",
			h.NumLumps, h.DirOffset, size, ErrBadHeader)
	}
	raw := make([]byte, int(h.NumLumps)*DirEntrySize)
	if n, err := r.ReadAt(raw, int64(h.DirOffset)); n < len(raw) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read directory (%d entries at %d): %w", h.NumLumps, h.DirOffset, err)
	}
	entries := make([]DirEntry, h.NumLumps)
	for i := range entries {
		rec := raw[i*DirEntrySize : (i+1)*DirEntrySize]
		entries[i] = DirEntry{
			Offset: int32(binary.LittleEndian.Uint32(rec[0:4])),
			Size:   int32(binary.LittleEndian.Uint32(rec[4:8])),
			Name:   NameFromBytes(rec[8:16]),
		}
	}
	return entries, nil
}

// WriteArchive 按 header → directory → 正文 的顺序写出容器，目录紧跟在头部之后。
func WriteArchive(w io.Writer, magic Magic, lumps []Lump) error {
	header := make([]byte, HeaderSize)
	copy(header[0:4], magic[:])
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(lumps)))
	binary.LittleEndian.PutUint32(header[8:12], HeaderSize)
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	pos := HeaderSize + len(lumps)*DirEntrySize
	entry := make([]byte, DirEntrySize)
	for _, lump := range lumps {
		binary.LittleEndian.PutUint32(entry[0:4], uint32(pos))
		binary.LittleEndian.PutUint32(entry[4:8], uint32(len(lump.Data)))
		copy(entry[8:16], lump.Name[:])
		if _, err := w.Write(entry); err != nil {
			return fmt.Errorf("write directory entry %s: %w", lump.Name, err)
		}
		pos += len(lump.Data)
	}

	for _, lump := range lumps {
		if _, err := w.Write(lump.Data); err != nil {
			return fmt.Errorf("write lump %s: %w", lump.Name, err)
		}
	}
	return nil
}
