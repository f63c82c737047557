package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestRunReport_Finalize_SortAndSummaryAndUTC(t *testing.T) {
	r := RunReport{
		Path:       "/abs/path",
		DryRun:     true,
		StartedAt:  time.Date(2026, 2, 9, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2026, 2, 9, 10, 0, 1, 0, time.FixedZone("X", 8*3600)),
		Items: []ItemResult{
			{Key: "B-C-3.0s", Status: StatusSkipped},
			{Key: "", Status: StatusUnmatched},
			{Key: "A-D-3.0s", Status: StatusExported},
			{Key: "", Status: StatusFailed},
			{Key: "Z-E-1.0s", Status: StatusIncomplete},
		},
	}

	r.Finalize()

	// key=="" 必须排在最后；其余保持原顺序（pair 首见顺序，而不是字典序）。
	got := []string{r.Items[0].Key, r.Items[1].Key, r.Items[2].Key, r.Items[3].Key, r.Items[4].Key}
	want := []string{"B-C-3.0s", "A-D-3.0s", "Z-E-1.0s", "", ""}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("items 排序不符合契约：got=%v want=%v", got, want)
		}
	}
	if r.Items[3].Status != StatusUnmatched || r.Items[4].Status != StatusFailed {
		t.Fatalf("key 为空的条目应保持稳定顺序：%+v", r.Items[3:])
	}
	s := r.Summary
	if s.Exported != 1 || s.Skipped != 1 || s.Failed != 1 || s.Unmatched != 1 || s.Incomplete != 1 || s.Planned != 0 {
		t.Fatalf("summary 统计不正确：%+v", s)
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	// time.Time 在 UTC 下应输出 'Z' 后缀。
	if !bytes.Contains(b, []byte("\"started_at\":\"2026-02-09T02:00:00Z\"")) {
		t.Fatalf("started_at 不是 UTC RFC3339：%s", string(b))
	}
	// 未测量 offset 时不应输出该字段。
	if bytes.Contains(b, []byte("offset_seconds")) {
		t.Fatalf("offset_seconds 应省略：%s", string(b))
	}
}
