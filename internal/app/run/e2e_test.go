package run

import (
	"context"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/John-Robertt/bgvsplit/internal/audio"
	"github.com/John-Robertt/bgvsplit/internal/config"
	"github.com/John-Robertt/bgvsplit/internal/domain"
)

const testRate = 8000

func dryRun(root string) config.EffectiveConfig {
	return config.EffectiveConfig{
		Path:       root,
		SampleRate: testRate,
		OffsetRate: testRate,
	}
}

func applyRun(root string) config.EffectiveConfig {
	eff := dryRun(root)
	eff.Apply = true
	return eff
}

// writeTone 写出 1 秒单声道正弦。
func writeTone(t *testing.T, path string, freq float64) {
	t.Helper()
	data := make([]float64, testRate)
	for i := range data {
		data[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/testRate)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("创建文件失败：%v", err)
	}
	defer f.Close()
	if err := audio.WriteWAV(f, audio.Buffer{SampleRate: testRate, Channels: 1, Data: data}); err != nil {
		t.Fatalf("写入 WAV 失败：%v", err)
	}
}

func findItem(t *testing.T, rr domain.RunReport, key string) domain.ItemResult {
	t.Helper()
	for _, it := range rr.Items {
		if it.Key == key {
			return it
		}
	}
	t.Fatalf("report 中找不到 key=%q：%+v", key, rr.Items)
	return domain.ItemResult{}
}

func TestExecute_DryRun_NoWrites(t *testing.T) {
	root := t.TempDir()
	writeTone(t, filepath.Join(root, "Song-C-Trimmed_1s.wav"), 440)
	writeTone(t, filepath.Join(root, "Song-C-with Background Vocals-Trimmed_1s.wav"), 880)

	rr := Execute(context.Background(), dryRun(root), &audio.Codec{})

	if !rr.DryRun || rr.RunID == "" {
		t.Fatalf("report 头部不正确：%+v", rr)
	}
	out := filepath.Join(root, "Song-C-Trimmed_1.0s-Split.wav")
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("dry-run 不应写出文件，但 Stat err=%v", err)
	}
	entries, _ := os.ReadDir(root)
	if len(entries) != 2 {
		t.Fatalf("dry-run 不应在目录中留下任何文件：%d 个条目", len(entries))
	}

	it := findItem(t, rr, "Song-C-1.0s")
	if it.Status != domain.StatusPlanned || it.Output != out {
		t.Fatalf("期望 planned 且 output=%q：%+v", out, it)
	}
	if rr.Summary.Planned != 1 || rr.Summary.Failed != 0 {
		t.Fatalf("summary 不正确：%+v", rr.Summary)
	}
}

func TestExecute_Apply_ExportThenSkip(t *testing.T) {
	root := t.TempDir()
	writeTone(t, filepath.Join(root, "Song-C-Trimmed_1s.wav"), 440)
	writeTone(t, filepath.Join(root, "Song-C-with Background Vocals-Trimmed_1s.wav"), 880)

	rr := Execute(context.Background(), applyRun(root), &audio.Codec{})
	it := findItem(t, rr, "Song-C-1.0s")
	if it.Status != domain.StatusExported {
		t.Fatalf("期望 exported：%+v", it)
	}
	for _, f := range it.Files {
		if f.Status != domain.StatusExported {
			t.Fatalf("文件状态应为 exported：%+v", f)
		}
	}

	f, err := os.Open(it.Output)
	if err != nil {
		t.Fatalf("输出文件不存在：%v", err)
	}
	buf, err := audio.ReadWAV(f)
	_ = f.Close()
	if err != nil {
		t.Fatalf("读取输出失败：%v", err)
	}
	if buf.Channels != 2 || buf.SampleRate != testRate || buf.Frames() != testRate {
		t.Fatalf("输出格式不正确：channels=%d rate=%d frames=%d", buf.Channels, buf.SampleRate, buf.Frames())
	}

	// 第二次运行：输出已存在（且不会被当作输入扫描）。
	rr2 := Execute(context.Background(), applyRun(root), &audio.Codec{})
	if rr2.Summary.Skipped != 1 || rr2.Summary.Exported != 0 || rr2.Summary.Unmatched != 0 {
		t.Fatalf("第二次运行应跳过：%+v", rr2.Summary)
	}

	// overwrite：重新导出。
	eff := applyRun(root)
	eff.Overwrite = true
	rr3 := Execute(context.Background(), eff, &audio.Codec{})
	if rr3.Summary.Exported != 1 {
		t.Fatalf("overwrite 应重新导出：%+v", rr3.Summary)
	}
}

func TestExecute_SurfacesUnmatchedAndIncomplete(t *testing.T) {
	root := t.TempDir()
	writeTone(t, filepath.Join(root, "Song-C-Trimmed_1s.wav"), 440)
	writeTone(t, filepath.Join(root, "Song-C-with Background Vocals-Trimmed_1s.wav"), 880)
	writeTone(t, filepath.Join(root, "Orphan-G-Trimmed_2s.wav"), 440)
	writeTone(t, filepath.Join(root, "random take.wav"), 440)

	rr := Execute(context.Background(), applyRun(root), &audio.Codec{})

	s := rr.Summary
	if s.Exported != 1 || s.Incomplete != 1 || s.Unmatched != 1 || s.Failed != 0 {
		t.Fatalf("summary 不正确：%+v", s)
	}
	inc := findItem(t, rr, "Orphan-G-2.0s")
	if inc.ErrorCode != domain.ErrCodeIncompleteGroup || len(inc.Files) != 1 || inc.Files[0].Role != domain.FileRoleBare {
		t.Fatalf("incomplete 条目不正确：%+v", inc)
	}
	last := rr.Items[len(rr.Items)-1]
	if last.Key != "" || last.Status != domain.StatusUnmatched || last.Files[0].Src != "random take.wav" {
		t.Fatalf("unmatched 条目应排在最后：%+v", last)
	}
}

func TestExecute_DecodeFailureIsolatedPerPair(t *testing.T) {
	root := t.TempDir()
	writeTone(t, filepath.Join(root, "Good-A-Trimmed_1s.wav"), 440)
	writeTone(t, filepath.Join(root, "Good-A-with Background Vocals-Trimmed_1s.wav"), 880)
	writeTone(t, filepath.Join(root, "Bad-B-Trimmed_1s.wav"), 440)
	if err := os.WriteFile(filepath.Join(root, "Bad-B-with Background Vocals-Trimmed_1s.wav"), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}

	rr := Execute(context.Background(), applyRun(root), &audio.Codec{})

	if rr.Summary.Exported != 1 || rr.Summary.Failed != 1 {
		t.Fatalf("summary 不正确：%+v", rr.Summary)
	}
	bad := findItem(t, rr, "Bad-B-1.0s")
	if bad.ErrorCode != domain.ErrCodeDecodeFailed {
		t.Fatalf("期望 decode_failed：%+v", bad)
	}
	for _, f := range bad.Files {
		want := domain.StatusSkipped
		if f.Role == domain.FileRoleBGV {
			want = domain.StatusFailed
		}
		if f.Status != want {
			t.Fatalf("文件 %q 期望 status=%q，实际 %q", f.Src, want, f.Status)
		}
	}
	if _, err := os.Stat(bad.Output); !os.IsNotExist(err) {
		t.Fatalf("失败的 pair 不应留下输出：%v", err)
	}
}

func TestExecute_TargetConflict(t *testing.T) {
	root := t.TempDir()
	writeTone(t, filepath.Join(root, "Song-C-Trimmed_1s.wav"), 440)
	writeTone(t, filepath.Join(root, "Song-C-with Background Vocals-Trimmed_1s.wav"), 880)
	if err := os.Mkdir(filepath.Join(root, "Song-C-Trimmed_1.0s-Split.wav"), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}

	rr := Execute(context.Background(), applyRun(root), &audio.Codec{})
	it := findItem(t, rr, "Song-C-1.0s")
	if it.Status != domain.StatusFailed || it.ErrorCode != domain.ErrCodeTargetConflict {
		t.Fatalf("期望 target_conflict：%+v", it)
	}
}

// writeNoise 写出确定性的伪随机噪声；bgv 用同一信号延迟 delay 个样本。
func writeNoise(t *testing.T, path string, delay int) {
	t.Helper()
	r := rand.New(rand.NewSource(42))
	src := make([]float64, testRate)
	for i := range src {
		src[i] = r.Float64() - 0.5
	}
	data := make([]float64, testRate)
	for i := delay; i < len(data); i++ {
		data[i] = src[i-delay]
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("创建文件失败：%v", err)
	}
	defer f.Close()
	if err := audio.WriteWAV(f, audio.Buffer{SampleRate: testRate, Channels: 1, Data: data}); err != nil {
		t.Fatalf("写入 WAV 失败：%v", err)
	}
}

func TestExecute_MeasureOffset(t *testing.T) {
	root := t.TempDir()
	writeNoise(t, filepath.Join(root, "Song-C-Trimmed_1s.wav"), 0)
	// bgv 延迟 80 个样本（10ms）。
	writeNoise(t, filepath.Join(root, "Song-C-with Background Vocals-Trimmed_1s.wav"), 80)

	eff := dryRun(root)
	eff.MeasureOffset = true
	rr := Execute(context.Background(), eff, &audio.Codec{})

	it := findItem(t, rr, "Song-C-1.0s")
	if it.OffsetSeconds == nil {
		t.Fatalf("期望测得 offset：%+v", it)
	}
	if math.Abs(*it.OffsetSeconds-0.01) > 1e-9 {
		t.Fatalf("期望 offset=0.01s，实际 %v", *it.OffsetSeconds)
	}
	if it.Status != domain.StatusPlanned {
		t.Fatalf("测量 offset 不应改变状态：%+v", it)
	}
}

func TestExecute_MeasureOffset_FailureDoesNotFailItem(t *testing.T) {
	root := t.TempDir()
	silent := make([]float64, testRate)
	for _, n := range []string{"Mute-D-Trimmed_1s.wav", "Mute-D-with Background Vocals-Trimmed_1s.wav"} {
		f, err := os.Create(filepath.Join(root, n))
		if err != nil {
			t.Fatalf("创建文件失败：%v", err)
		}
		if err := audio.WriteWAV(f, audio.Buffer{SampleRate: testRate, Channels: 1, Data: silent}); err != nil {
			t.Fatalf("写入 WAV 失败：%v", err)
		}
		_ = f.Close()
	}

	eff := dryRun(root)
	eff.MeasureOffset = true
	rr := Execute(context.Background(), eff, &audio.Codec{})

	it := findItem(t, rr, "Mute-D-1.0s")
	if it.OffsetSeconds != nil || it.OffsetError == "" {
		t.Fatalf("全零信号应记录 offset_error：%+v", it)
	}
	if it.Status != domain.StatusPlanned || rr.Summary.Failed != 0 {
		t.Fatalf("offset 失败不应让条目失败：%+v", it)
	}
}

func TestExecute_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeTone(t, filepath.Join(root, "Song-C-Trimmed_1s.wav"), 440)
	writeTone(t, filepath.Join(root, "Song-C-with Background Vocals-Trimmed_1s.wav"), 880)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rr := Execute(ctx, applyRun(root), &audio.Codec{})
	if rr.Summary.Failed != 1 {
		t.Fatalf("已取消的 ctx 应让条目失败：%+v", rr.Summary)
	}
	if _, err := os.Stat(filepath.Join(root, "Song-C-Trimmed_1.0s-Split.wav")); !os.IsNotExist(err) {
		t.Fatalf("已取消时不应写出文件：%v", err)
	}
}
