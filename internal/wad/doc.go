// Package wad implements the on-disk container format shared by IWAD and PWAD
// archives: the 12-byte header, the 16-byte directory entries and the fixed
// 8-byte lump names. It also owns the name primitives every other layer relies
// on (case folding, the lookup hash, region marker matching and deriving a lump
// name from a loose file path). The package performs no caching and keeps no
// state; the catalog in internal/lumps builds on top of it.
package wad
