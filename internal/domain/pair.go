package domain

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Pair 是一对已匹配的 bare/bgv 录音。
//
// 不变量：Bare.HasBGV=false、BGV.HasBGV=true，且 title/chord/trim_length 完全相同。
// 只能通过 NewPair 构造。
type Pair struct {
	Bare Take
	BGV  Take
}

// PairInvariantError 表示用于构造 Pair 的两条 take 不满足不变量。
type PairInvariantError struct {
	Field string // "has_bgv" | "title" | "chord" | "trim_length"
	Bare  string
	BGV   string
}

func (e *PairInvariantError) Error() string {
	return fmt.Sprintf("pair 不变量被破坏（%s）：bare=%q bgv=%q", e.Field, e.Bare, e.BGV)
}

// IsPairInvariant 判断 err 是否为 PairInvariantError。
func IsPairInvariant(err error) bool {
	var e *PairInvariantError
	return errors.As(err, &e)
}

// NewPair 校验不变量并构造 Pair。
func NewPair(bare, bgv Take) (Pair, error) {
	if bare.HasBGV {
		return Pair{}, &PairInvariantError{Field: "has_bgv", Bare: bare.Path, BGV: bgv.Path}
	}
	if !bgv.HasBGV {
		return Pair{}, &PairInvariantError{Field: "has_bgv", Bare: bare.Path, BGV: bgv.Path}
	}
	if bare.Title != bgv.Title {
		return Pair{}, &PairInvariantError{Field: "title", Bare: bare.Title, BGV: bgv.Title}
	}
	if bare.Chord != bgv.Chord || !bare.Chord.Valid() {
		return Pair{}, &PairInvariantError{Field: "chord", Bare: string(bare.Chord), BGV: string(bgv.Chord)}
	}
	if bare.TrimLength != bgv.TrimLength {
		return Pair{}, &PairInvariantError{
			Field: "trim_length",
			Bare:  FormatTrimLength(bare.TrimLength),
			BGV:   FormatTrimLength(bgv.TrimLength),
		}
	}
	return Pair{Bare: bare, BGV: bgv}, nil
}

// Key 返回该 pair 的分组键。
func (p Pair) Key() GroupKey { return p.Bare.Key() }

// OutputName 返回合成文件名：<title>-<chord>-Trimmed_<trim>s-Split.wav。
func (p Pair) OutputName() string {
	return p.Bare.Title + "-" + string(p.Bare.Chord) + "-Trimmed_" + FormatTrimLength(p.Bare.TrimLength) + "s" + SplitSuffix
}

// OutputPath 返回合成文件的绝对路径（与 bare 同目录）。
func (p Pair) OutputPath() string {
	return filepath.Join(p.Bare.Dir(), p.OutputName())
}

// SplitSuffix 是合成文件的固定后缀；扫描阶段据此排除自己的产物。
const SplitSuffix = "-Split.wav"
