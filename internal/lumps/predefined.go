//go:build !nopredefined

package lumps

import (
	"encoding/binary"

	"github.com/any-hub/lumphub/internal/wad"
)

// DefaultPredefined 返回内置的 lump 集合：默认的开关贴图表 SWITCHES
// 与动画表 ANIMATED，均为磁盘二进制布局。构建时加 nopredefined 标签可去掉。
func DefaultPredefined() []Predefined {
	return []Predefined{
		{Name: wad.ParseName("SWITCHES"), Data: encodeSwitches(defaultSwitches)},
		{Name: wad.ParseName("ANIMATED"), Data: encodeAnimated(defaultAnimated)},
	}
}

type switchDef struct {
	off, on string
	episode int16
}

type animDef struct {
	texture     bool
	last, first string
	speed       int32
}

// 每项 20 字节：name1[9] | name2[9] | episode int16，episode 为 0 的项结束列表。
var defaultSwitches = []switchDef{
	{"SW1BRCOM", "SW2BRCOM", 1},
	{"SW1BRN1", "SW2BRN1", 1},
	{"SW1BRN2", "SW2BRN2", 1},
	{"SW1BRNGN", "SW2BRNGN", 1},
	{"SW1BROWN", "SW2BROWN", 1},
	{"SW1COMM", "SW2COMM", 1},
	{"SW1COMP", "SW2COMP", 1},
	{"SW1DIRT", "SW2DIRT", 1},
	{"SW1EXIT", "SW2EXIT", 1},
	{"SW1GRAY", "SW2GRAY", 1},
	{"SW1GRAY1", "SW2GRAY1", 1},
	{"SW1METAL", "SW2METAL", 1},
	{"SW1PIPE", "SW2PIPE", 1},
	{"SW1SLAD", "SW2SLAD", 1},
	{"SW1STARG", "SW2STARG", 1},
	{"SW1STON1", "SW2STON1", 1},
	{"SW1STON2", "SW2STON2", 1},
	{"SW1STONE", "SW2STONE", 1},
	{"SW1STRTN", "SW2STRTN", 1},
	{"SW1BLUE", "SW2BLUE", 2},
	{"SW1CMT", "SW2CMT", 2},
	{"SW1GARG", "SW2GARG", 2},
	{"SW1GSTON", "SW2GSTON", 2},
	{"SW1HOT", "SW2HOT", 2},
	{"SW1LION", "SW2LION", 2},
	{"SW1SATYR", "SW2SATYR", 2},
	{"SW1SKIN", "SW2SKIN", 2},
	{"SW1VINE", "SW2VINE", 2},
	{"SW1WOOD", "SW2WOOD", 2},
	{"SW1PANEL", "SW2PANEL", 3},
	{"SW1ROCK", "SW2ROCK", 3},
	{"SW1MET2", "SW2MET2", 3},
	{"SW1WDMET", "SW2WDMET", 3},
	{"SW1BRIK", "SW2BRIK", 3},
	{"SW1MOD1", "SW2MOD1", 3},
	{"SW1ZIM", "SW2ZIM", 3},
	{"SW1STON6", "SW2STON6", 3},
	{"SW1TEK", "SW2TEK", 3},
	{"SW1MARB", "SW2MARB", 3},
	{"SW1SKULL", "SW2SKULL", 3},
}

// 每项 23 字节：istexture int8 | endname[9] | startname[9] | speed int32，istexture 为 -1 结束列表。
var defaultAnimated = []animDef{
	{false, "NUKAGE3", "NUKAGE1", 8},
	{false, "FWATER4", "FWATER1", 8},
	{false, "SWATER4", "SWATER1", 8},
	{false, "LAVA4", "LAVA1", 8},
	{false, "BLOOD3", "BLOOD1", 8},
	{false, "RROCK08", "RROCK05", 8},
	{false, "SLIME04", "SLIME01", 8},
	{false, "SLIME08", "SLIME05", 8},
	{false, "SLIME12", "SLIME09", 8},
	{true, "BLODGR4", "BLODGR1", 8},
	{true, "SLADRIP3", "SLADRIP1", 8},
	{true, "BLODRIP4", "BLODRIP1", 8},
	{true, "FIREWALL", "FIREWALA", 8},
	{true, "GSTFONT3", "GSTFONT1", 8},
	{true, "FIRELAVA", "FIRELAV3", 8},
	{true, "FIREMAG3", "FIREMAG1", 8},
	{true, "FIREBLU2", "FIREBLU1", 8},
	{true, "ROCKRED3", "ROCKRED1", 8},
	{true, "BFALL4", "BFALL1", 8},
	{true, "SFALL4", "SFALL1", 8},
	{true, "WFALL4", "WFALL1", 8},
	{true, "DBRAIN4", "DBRAIN1", 8},
}

const (
	switchRecordSize = 20
	animRecordSize   = 23
)

func encodeSwitches(defs []switchDef) []byte {
	out := make([]byte, (len(defs)+1)*switchRecordSize)
	for i, d := range defs {
		rec := out[i*switchRecordSize:]
		copy(rec[0:9], d.off)
		copy(rec[9:18], d.on)
		binary.LittleEndian.PutUint16(rec[18:20], uint16(d.episode))
	}
	return out
}

func encodeAnimated(defs []animDef) []byte {
	out := make([]byte, (len(defs)+1)*animRecordSize)
	for i, d := range defs {
		rec := out[i*animRecordSize:]
		if d.texture {
			rec[0] = 1
		}
		copy(rec[1:10], d.last)
		copy(rec[10:19], d.first)
		binary.LittleEndian.PutUint32(rec[19:23], uint32(d.speed))
	}
	out[len(defs)*animRecordSize] = 0xFF
	return out
}
