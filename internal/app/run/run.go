package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/John-Robertt/bgvsplit/internal/app"
	"github.com/John-Robertt/bgvsplit/internal/app/planner"
	"github.com/John-Robertt/bgvsplit/internal/audio"
	"github.com/John-Robertt/bgvsplit/internal/config"
	"github.com/John-Robertt/bgvsplit/internal/domain"
	"github.com/John-Robertt/bgvsplit/internal/infra/fsx"
	"github.com/John-Robertt/bgvsplit/internal/offset"
	"github.com/John-Robertt/bgvsplit/internal/scan"
	"github.com/John-Robertt/bgvsplit/internal/stereo"
)

// Execute 执行一次 run（dry-run/apply），并返回对外稳定的 RunReport。
// 该函数尽量把错误"降级"为 item 级失败（单个 pair 失败不影响其他）。
func Execute(ctx context.Context, eff config.EffectiveConfig, codec stereo.Codec) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, codec, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息（由上层决定是否启用）。
//
// 阶段固定为 scan → group → plan → exec，全部串行。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, codec stereo.Codec, obs Observer) domain.RunReport {
	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		RunID:     uuid.NewString(),
		Path:      eff.Path,
		DryRun:    !eff.Apply,
		StartedAt: time.Now().UTC(),
		Items:     make([]domain.ItemResult, 0, 32),
	}
	finish := func() domain.RunReport {
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		if obs != nil {
			obs.OnFinish(rr)
		}
		return rr
	}

	scanStarted := time.Now()
	files, err := scan.ScanAudio(eff.Path)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("扫描失败：%v", err)))
		return finish()
	}
	scanDur := time.Since(scanStarted)

	groupStarted := time.Now()
	g, err := app.GroupTakes(files)
	if err != nil {
		code := domain.ErrCodeIOFailed
		if domain.IsPairInvariant(err) {
			code = domain.ErrCodePairInvariant
		}
		rr.Items = append(rr.Items, syntheticFailed(code, fmt.Sprintf("分组失败：%v", err)))
		return finish()
	}
	groupDur := time.Since(groupStarted)

	if obs != nil {
		obs.OnPhaseDone("scan", map[string]any{
			"files":     len(files),
			"unmatched": len(g.Unmatched),
		}, scanDur)
		obs.OnPhaseDone("group", map[string]any{
			"pairs":      len(g.Pairs),
			"incomplete": len(g.Incomplete),
		}, groupDur)
	}

	for _, u := range g.Unmatched {
		slog.Warn("跳过无法解析的文件", "file", u.File.Name, "kind", u.Kind)
		rr.Items = append(rr.Items, unmatchedItem(u))
	}
	for _, ig := range g.Incomplete {
		slog.Info("丢弃不完整分组", "key", ig.Key.String(), "kind", ig.Kind, "takes", len(ig.Takes))
		rr.Items = append(rr.Items, incompleteItem(ig))
	}

	planStarted := time.Now()
	plans, planErrs := planner.PlanPairs(g.Pairs, eff.Overwrite)
	planDur := time.Since(planStarted)

	if obs != nil {
		var needExport, skip, failed int
		for i := range plans {
			switch {
			case planErrs[i] != nil:
				failed++
			case plans[i].NeedExport:
				needExport++
			default:
				skip++
			}
		}
		obs.OnPhaseDone("plan", map[string]any{
			"pairs":       len(plans),
			"need_export": needExport,
			"skip":        skip,
			"failed":      failed,
		}, planDur)
		obs.OnPhaseDone("exec", map[string]any{
			"total_items": len(plans),
			"apply":       eff.Apply,
		}, 0)
	}

	for i := range plans {
		oneStarted := time.Now()
		var res domain.ItemResult
		if planErrs[i] != nil {
			res = failedPlanItem(plans[i], planErrs[i])
		} else {
			res = execOne(ctx, eff, codec, plans[i])
		}
		rr.Items = append(rr.Items, res)
		if obs != nil {
			obs.OnItemDone(i+1, len(plans), res.Key, res, time.Since(oneStarted))
		}
	}

	return finish()
}

func pairItem(p domain.Pair, out string) domain.ItemResult {
	return domain.ItemResult{
		Key:        p.Key().String(),
		Title:      p.Bare.Title,
		Chord:      string(p.Bare.Chord),
		TrimLength: p.Bare.TrimLength,
		Output:     out,
		Files: []domain.FileResult{
			fileResult(p.Bare.Path, domain.FileRoleBare),
			fileResult(p.BGV.Path, domain.FileRoleBGV),
		},
	}
}

// fileResult 带上容器标签（best-effort：WAV 等无标签文件留空）。
func fileResult(path, role string) domain.FileResult {
	fr := domain.FileResult{Src: filepath.Base(path), Role: role}
	if t, err := audio.ReadTags(path); err == nil {
		fr.Format = t.FileType
		fr.Title = t.Title
	}
	return fr
}

func setFileStatus(item *domain.ItemResult, status string) {
	for i := range item.Files {
		item.Files[i].Status = status
	}
}

func execOne(ctx context.Context, eff config.EffectiveConfig, codec stereo.Codec, p domain.PairPlan) domain.ItemResult {
	item := pairItem(p.Pair, p.OutputPath)

	if err := ctx.Err(); err != nil {
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeIOFailed
		item.ErrorMsg = fmt.Sprintf("运行已取消：%v", err)
		setFileStatus(&item, domain.StatusFailed)
		return item
	}

	if eff.MeasureOffset {
		sec, err := offset.AudioOffset(ctx, codec, p.Pair.Bare.Path, p.Pair.BGV.Path, eff.OffsetRate)
		if err != nil {
			slog.Warn("偏移测量失败", "key", item.Key, "err", err)
			item.OffsetError = err.Error()
		} else {
			item.OffsetSeconds = &sec
		}
	}

	switch {
	case !p.NeedExport:
		item.Status = domain.StatusSkipped
		item.ErrorMsg = "输出文件已存在（使用 --overwrite 重新导出）"
	case !eff.Apply:
		item.Status = domain.StatusPlanned
	default:
		err := stereo.ExportPair(ctx, codec, p.Pair.Bare.Path, p.Pair.BGV.Path, p.OutputPath, stereo.Options{
			SampleRate: eff.SampleRate,
			Overwrite:  eff.Overwrite,
		})
		if err != nil {
			fillExportError(&item, err)
			return item
		}
		item.Status = domain.StatusExported
	}
	setFileStatus(&item, item.Status)
	return item
}

func fillExportError(item *domain.ItemResult, err error) {
	item.Status = domain.StatusFailed
	item.ErrorMsg = err.Error()
	item.ErrorCode = domain.ErrCodeIOFailed

	var ee *stereo.ExportError
	if errors.As(err, &ee) {
		item.ErrorCode = ee.Code()
		for i := range item.Files {
			if (ee.Stage == stereo.StageDecodeBare && item.Files[i].Role == domain.FileRoleBare) ||
				(ee.Stage == stereo.StageDecodeBGV && item.Files[i].Role == domain.FileRoleBGV) {
				item.Files[i].Status = domain.StatusFailed
			} else {
				item.Files[i].Status = domain.StatusSkipped
			}
		}
		return
	}
	setFileStatus(item, domain.StatusFailed)
}

func failedPlanItem(p domain.PairPlan, err error) domain.ItemResult {
	item := pairItem(p.Pair, p.OutputPath)
	item.Status = domain.StatusFailed
	item.ErrorCode = domain.ErrCodeIOFailed
	if fsx.IsPathTypeConflict(err) {
		item.ErrorCode = domain.ErrCodeTargetConflict
	}
	item.ErrorMsg = fmt.Sprintf("规划失败：%v", err)
	setFileStatus(&item, domain.StatusSkipped)
	return item
}

func unmatchedItem(u domain.Unmatched) domain.ItemResult {
	item := domain.ItemResult{
		Status:    domain.StatusUnmatched,
		ErrorCode: domain.ErrCodeUnmatchedName,
		Files: []domain.FileResult{{
			Src:    u.File.Name,
			Role:   domain.FileRoleInput,
			Status: domain.StatusUnmatched,
		}},
	}
	switch u.Kind {
	case domain.UnmatchedHidden:
		item.ErrorMsg = "隐藏文件（以 '.' 开头）不参与匹配"
	case domain.UnmatchedBGVFlagMismatch:
		item.ErrorMsg = fmt.Sprintf("文件名包含 %q 但位置不对；请改为 <title>-<chord>-%s-Trimmed_<N>s.<ext>", domain.BGVMarker, domain.BGVMarker)
	default:
		item.ErrorMsg = "文件名不符合 <title>-<chord>[-" + domain.BGVMarker + "]-Trimmed_<N>s.<ext>"
	}
	return item
}

func incompleteItem(ig domain.IncompleteGroup) domain.ItemResult {
	item := domain.ItemResult{
		Key:        ig.Key.String(),
		Title:      ig.Key.Title,
		Chord:      string(ig.Key.Chord),
		TrimLength: ig.Key.TrimLength,
		Status:     domain.StatusIncomplete,
		ErrorCode:  domain.ErrCodeIncompleteGroup,
		Files:      make([]domain.FileResult, 0, len(ig.Takes)),
	}
	for _, tk := range ig.Takes {
		role := domain.FileRoleBare
		if tk.HasBGV {
			role = domain.FileRoleBGV
		}
		item.Files = append(item.Files, domain.FileResult{
			Src:    filepath.Base(tk.Path),
			Role:   role,
			Status: domain.StatusIncomplete,
		})
	}
	switch ig.Kind {
	case domain.IncompleteOrphan:
		item.ErrorMsg = "只找到一条录音，缺少对应的 bare/bgv"
	case domain.IncompleteDuplicate:
		item.ErrorMsg = fmt.Sprintf("同一首歌找到 %d 条录音（期望恰好 2 条），无法确定配对", len(ig.Takes))
	case domain.IncompleteSameFlag:
		item.ErrorMsg = "两条录音同为 bare 或同为 bgv"
	}
	return item
}

func syntheticFailed(code, msg string) domain.ItemResult {
	return domain.ItemResult{
		Status:    domain.StatusFailed,
		ErrorCode: code,
		ErrorMsg:  msg,
		Files:     []domain.FileResult{},
	}
}
