package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/John-Robertt/bgvsplit/internal/domain"
	"github.com/John-Robertt/bgvsplit/internal/scan"
	"github.com/John-Robertt/bgvsplit/internal/takename"
)

// Groups 是一次分组的完整结果。
//
// - Pairs：恰好一条 bare + 一条 bgv 的分组，按 key 首次出现的顺序
// - Unmatched：文件名解析失败的输入，按扫描顺序
// - Incomplete：凑不成 pair 的分组（1 条、>=3 条、或 2 条同 flag），按 key 首次出现的顺序
type Groups struct {
	Pairs      []domain.Pair
	Unmatched  []domain.Unmatched
	Incomplete []domain.IncompleteGroup
}

// GroupTakes 把扫描结果解析为 Take，并按 (title, chord, trim_length) 分组配对。
//
// 单个文件解析失败只会进入 Unmatched，不影响其他文件。
// 返回 error 仅表示程序内部不变量被破坏（理论上不会发生）。
func GroupTakes(files []domain.AudioFile) (Groups, error) {
	index := make(map[domain.GroupKey]int, len(files))
	buckets := make([][]domain.Take, 0, len(files))
	out := Groups{
		Pairs:      make([]domain.Pair, 0, len(files)/2),
		Unmatched:  make([]domain.Unmatched, 0),
		Incomplete: make([]domain.IncompleteGroup, 0),
	}

	for i := range files {
		tk, err := takename.Parse(files[i].AbsPath)
		if err != nil {
			var me *takename.MismatchError
			if errors.As(err, &me) {
				out.Unmatched = append(out.Unmatched, domain.Unmatched{
					File:   files[i],
					Kind:   me.Kind,
					Reason: me.Error(),
				})
				continue
			}
			return Groups{}, err
		}

		k := tk.Key()
		if idx, ok := index[k]; ok {
			buckets[idx] = append(buckets[idx], tk)
			continue
		}
		index[k] = len(buckets)
		buckets = append(buckets, []domain.Take{tk})
	}

	for _, takes := range buckets {
		bare, bgv, kind := split(takes)
		if kind != "" {
			out.Incomplete = append(out.Incomplete, domain.IncompleteGroup{
				Key:   takes[0].Key(),
				Kind:  kind,
				Takes: takes,
			})
			continue
		}
		p, err := domain.NewPair(bare, bgv)
		if err != nil {
			return Groups{}, fmt.Errorf("构造 pair 失败：%w", err)
		}
		out.Pairs = append(out.Pairs, p)
	}
	return out, nil
}

// split 在分组恰好是一条 bare + 一条 bgv 时返回二者；否则返回 incomplete 的 kind。
func split(takes []domain.Take) (bare, bgv domain.Take, kind string) {
	switch {
	case len(takes) < 2:
		return domain.Take{}, domain.Take{}, domain.IncompleteOrphan
	case len(takes) > 2:
		return domain.Take{}, domain.Take{}, domain.IncompleteDuplicate
	}

	a, b := takes[0], takes[1]
	if a.HasBGV == b.HasBGV {
		return domain.Take{}, domain.Take{}, domain.IncompleteSameFlag
	}
	if a.HasBGV {
		a, b = b, a
	}
	return a, b, ""
}

// FindPairs 扫描 dir（不递归）并返回所有匹配成功的 pair。
//
// 无法解析的文件、凑不成对的分组都会被跳过（只记日志），调用方拿到的只有 pair。
// 需要区分"没有歌"和"有落单的 take"时，请直接使用 scan.ScanAudio + GroupTakes。
func FindPairs(dir string) ([]domain.Pair, error) {
	files, err := scan.ScanAudio(dir)
	if err != nil {
		return nil, err
	}

	g, err := GroupTakes(files)
	if err != nil {
		return nil, err
	}

	for _, u := range g.Unmatched {
		slog.Warn("跳过无法解析的文件", "file", u.File.Name, "kind", u.Kind, "err", u.Reason)
	}
	for _, ig := range g.Incomplete {
		slog.Debug("丢弃不完整分组", "key", ig.Key.String(), "kind", ig.Kind, "takes", len(ig.Takes))
	}
	return g.Pairs, nil
}
