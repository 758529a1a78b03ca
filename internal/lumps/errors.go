package lumps

import "errors"

var (
	// ErrArchiveMissing 表示必需的归档无法打开（网络回退后仍失败）。
	ErrArchiveMissing = errors.New("couldn't open archive")
	// ErrNoLumps 表示加载全部归档后目录为空。
	ErrNoLumps = errors.New("no files found")
	// ErrBadHandle 表示调用方传入了越界的 lump 编号。
	ErrBadHandle = errors.New("lump handle out of range")
	// ErrShortRead 表示后备文件比目录声明的短。
	ErrShortRead = errors.New("short read")
	// ErrShortBuffer 表示目标缓冲区小于 lump 长度。
	ErrShortBuffer = errors.New("destination buffer smaller than lump")
	// ErrNotFound 表示必需的 lump 名称不存在。
	ErrNotFound = errors.New("lump not found")
	// ErrExport 表示预定义 lump 无法写出。
	ErrExport = errors.New("cannot write predefined lumps wad")
)

// FatalError 是交给 fatal sink 的错误，Op 为出错的操作名。
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func panicFatal(err error) {
	panic(err)
}
