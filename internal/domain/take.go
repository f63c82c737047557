package domain

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Chord 是文件名里编码的调性/和弦标签：A–G，后面可选 '#' 或 'b'。
type Chord string

// Valid 报告 c 是否为合法的 12 音级写法（含升降号）。
func (c Chord) Valid() bool {
	s := string(c)
	if len(s) == 0 || len(s) > 2 {
		return false
	}
	if s[0] < 'A' || s[0] > 'G' {
		return false
	}
	return len(s) == 1 || s[1] == '#' || s[1] == 'b'
}

// BGVMarker 是带和声版本文件名里必须出现的片段。
const BGVMarker = "with Background Vocals"

// Take 是从文件名解析出来的一条录音（bare 或 bgv）。
//
// 约束：构造后只读；Path 必须与解析得到的字段一致（由 takename.Parse 保证）。
type Take struct {
	Path       string
	Title      string
	Chord      Chord
	TrimLength float64 // 秒，非负
	HasBGV     bool
	Ext        string // 原始扩展名（含 '.'，保留大小写）
}

// Dir 返回 take 所在目录。
func (t Take) Dir() string { return filepath.Dir(t.Path) }

// Key 返回分组键。
func (t Take) Key() GroupKey {
	return GroupKey{Title: t.Title, Chord: t.Chord, TrimLength: t.TrimLength}
}

// GroupKey 是配对用的复合键：(title, chord, trim_length)。
// 三个字段都是可比较类型，可以直接作为 map key。
type GroupKey struct {
	Title      string
	Chord      Chord
	TrimLength float64
}

// String 用于报告/日志展示，形如 "Song-C-30.0s"。
func (k GroupKey) String() string {
	return k.Title + "-" + string(k.Chord) + "-" + FormatTrimLength(k.TrimLength) + "s"
}

// FormatTrimLength 按输出文件名的约定格式化裁剪时长：
// 整数也保留一位小数（30 -> "30.0"），非整数取最短表示（30.25 -> "30.25"）。
func FormatTrimLength(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
