package domain

import (
	"sort"
	"time"
)

const (
	StatusExported   = "exported"
	StatusPlanned    = "planned" // dry-run：已规划，未导出
	StatusSkipped    = "skipped"
	StatusFailed     = "failed"
	StatusUnmatched  = "unmatched"
	StatusIncomplete = "incomplete"
)

const (
	FileRoleBare  = "bare"
	FileRoleBGV   = "bgv"
	FileRoleInput = "input" // unmatched / incomplete 条目里的文件
)

const (
	ErrCodeUnmatchedName   = "unmatched_name"
	ErrCodeIncompleteGroup = "incomplete_group"
	ErrCodePairInvariant   = "pair_invariant"
	ErrCodeDecodeFailed    = "decode_failed"
	ErrCodeEncodeFailed    = "encode_failed"
	ErrCodeTargetConflict  = "target_conflict"
	ErrCodeIOFailed        = "io_failed"
	ErrCodeDegenerate      = "degenerate_signal"
	ErrCodeConfigInvalid   = "config_invalid"
)

// RunReport 是对外稳定输出（stdout JSON）的结构。
type RunReport struct {
	RunID  string `json:"run_id"`
	Path   string `json:"path"`
	DryRun bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Exported   int `json:"exported"`
	Planned    int `json:"planned"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	Unmatched  int `json:"unmatched"`
	Incomplete int `json:"incomplete"`
}

type ItemResult struct {
	Key        string  `json:"key"`
	Title      string  `json:"title"`
	Chord      string  `json:"chord"`
	TrimLength float64 `json:"trim_length"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Output string `json:"output"`
	// OffsetSeconds 仅在开启 measure_offset 且测量成功时非空：bgv 相对 bare 的延迟（秒）。
	OffsetSeconds *float64 `json:"offset_seconds,omitempty"`
	// OffsetError 为测量失败的原因；测量失败不改变 Status。
	OffsetError string `json:"offset_error,omitempty"`

	Files []FileResult `json:"files"`
}

type FileResult struct {
	Src    string `json:"src"`
	Role   string `json:"role"`
	Status string `json:"status"`

	// Format/Title 来自容器标签（读取失败时为空）。
	Format string `json:"format,omitempty"`
	Title  string `json:"title,omitempty"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：有 key 的在前且保持原顺序（即 pair 的首见顺序）；key=="" 的条目排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		return r.Items[i].Key != "" && r.Items[j].Key == ""
	})

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusExported:
			s.Exported++
		case StatusPlanned:
			s.Planned++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		case StatusUnmatched:
			s.Unmatched++
		case StatusIncomplete:
			s.Incomplete++
		}
	}
	r.Summary = s
}
