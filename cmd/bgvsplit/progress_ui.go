package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/John-Robertt/bgvsplit/internal/app/run"
	"github.com/John-Robertt/bgvsplit/internal/config"
	"github.com/John-Robertt/bgvsplit/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的进度输出。
//
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - exec 阶段用 mpb 进度条；进度条存活期间不直接写 w，失败明细在 OnFinish 里统一打印
type progressUI struct {
	w         io.Writer
	startedAt time.Time

	progress *mpb.Progress
	bar      *mpb.Bar

	failures []string
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	p.startedAt = time.Now()

	mode := "dry-run"
	modeHint := " (不写入任何文件)"
	if eff.Apply {
		mode = "apply"
		modeHint = ""
	}

	fmt.Fprintf(p.w, "[%s] bgvsplit run (%s)\n", p.startedAt.Format("15:04:05"), mode)
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  path: %s\n", eff.Path)
	fmt.Fprintf(p.w, "  mode: %s%s\n", mode, modeHint)
	fmt.Fprintf(p.w, "  overwrite: %s\n", onOff(eff.Overwrite))
	fmt.Fprintf(p.w, "  sample_rate: %d\n", eff.SampleRate)
	if eff.MeasureOffset {
		fmt.Fprintf(p.w, "  measure_offset: on (%d Hz)\n", eff.OffsetRate)
	} else {
		fmt.Fprintln(p.w, "  measure_offset: off")
	}
	fmt.Fprintf(p.w, "  ffmpeg: %s\n", eff.FFmpegBin)
	fmt.Fprintln(p.w)
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	switch name {
	case "scan":
		fmt.Fprintf(p.w, "扫描: files=%d unmatched=%d (%s)\n",
			intField(fields, "files"), intField(fields, "unmatched"), formatShortDuration(dur),
		)
	case "group":
		fmt.Fprintf(p.w, "分组: pairs=%d incomplete=%d (%s)\n",
			intField(fields, "pairs"), intField(fields, "incomplete"), formatShortDuration(dur),
		)
	case "plan":
		fmt.Fprintf(p.w, "规划: pairs=%d need_export=%d skip=%d failed=%d (%s)\n",
			intField(fields, "pairs"),
			intField(fields, "need_export"),
			intField(fields, "skip"),
			intField(fields, "failed"),
			formatShortDuration(dur),
		)
	case "exec":
		total := intField(fields, "total_items")
		fmt.Fprintf(p.w, "执行: total_items=%d\n\n", total)
		if total > 0 {
			p.startBar(total)
		}
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

func (p *progressUI) startBar(total int) {
	p.progress = mpb.New(mpb.WithOutput(p.w), mpb.WithWidth(64))
	p.bar = p.progress.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name("导出: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 30),
		),
	)
}

func (p *progressUI) OnItemDone(idx, total int, key string, res domain.ItemResult, dur time.Duration) {
	if p.bar != nil {
		p.bar.EwmaIncrement(dur)
	}
	if res.Status == domain.StatusFailed {
		p.failures = append(p.failures, fmt.Sprintf("[%d/%d] %s FAIL %s: %s",
			idx, total, key, res.ErrorCode, truncate(res.ErrorMsg, 160),
		))
	}
}

func (p *progressUI) OnFinish(rr domain.RunReport) {
	if p.progress != nil {
		if !p.bar.Completed() {
			p.bar.Abort(false)
		}
		p.progress.Wait()
		p.progress, p.bar = nil, nil
	}

	for _, line := range p.failures {
		fmt.Fprintln(p.w, line)
	}
	fmt.Fprintf(p.w, "耗时: %s\n", formatElapsed(time.Since(p.startedAt)))
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}
