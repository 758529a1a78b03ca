package lumps

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/any-hub/lumphub/internal/wad"
)

// Predefined 是编译进程序的 lump，在任何归档之前进入目录。
type Predefined struct {
	Name wad.Name
	Data []byte
}

// ExportPredefined 把 lumps 写成独立的 PWAD，文件名没有扩展名时补上 .wad。
// 返回实际写出的路径。这是一次性的诊断导出，调用方写完后应结束进程。
func ExportPredefined(path string, lumps []Predefined) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty filename", ErrExport)
	}
	if len(lumps) == 0 {
		return "", fmt.Errorf("%w: no built-in lumps compiled in", ErrExport)
	}
	target := wad.AddDefaultExtension(path, wadExtension)

	f, err := os.OpenFile(target, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("%w %s: %v", ErrExport, target, err)
	}

	entries := make([]wad.Lump, len(lumps))
	for i, p := range lumps {
		entries[i] = wad.Lump{Name: p.Name, Data: p.Data}
	}

	w := bufio.NewWriter(f)
	err = wad.WriteArchive(w, wad.MagicPWAD, entries)
	if err == nil {
		err = w.Flush()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", errors.Join(ErrExport, err)
	}
	return target, nil
}
