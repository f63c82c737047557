package fsx

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func assertNoTemp(t *testing.T, dir, stem string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "."+stem+".tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
	}
}

func TestWriteFileAtomic_SuccessAndNoTempLeft(t *testing.T) {
	dir := t.TempDir()

	if err := WriteFileAtomic(dir, "report.json", []byte("hello")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	// 覆盖写。
	if err := WriteFileAtomic(dir, "report.json", []byte("world")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "report.json"))
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != "world" {
		t.Fatalf("内容不一致：%q", string(b))
	}
	assertNoTemp(t, dir, "report")
}

func TestWriteFileAtomicWith_TempKeepsExtension(t *testing.T) {
	dir := t.TempDir()

	var seen string
	err := WriteFileAtomicWith(dir, "Song-C-Trimmed_3.0s-Split.wav", false, func(f *os.File) error {
		seen = filepath.Base(f.Name())
		_, err := f.WriteString("RIFF")
		return err
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !strings.HasPrefix(seen, ".Song-C-Trimmed_3.0s-Split.tmp-") || filepath.Ext(seen) != ".wav" {
		t.Fatalf("临时文件名不符合约定：%q", seen)
	}
	if _, err := os.Stat(filepath.Join(dir, "Song-C-Trimmed_3.0s-Split.wav")); err != nil {
		t.Fatalf("最终文件不存在：%v", err)
	}
}

func TestWriteFileAtomicWith_FillFail_CleanupTemp(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("boom")

	err := WriteFileAtomicWith(dir, "out.wav", true, func(f *os.File) error {
		_, _ = f.WriteString("partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("期望透传 fill 错误，实际：%v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.wav")); !os.IsNotExist(err) {
		t.Fatalf("不应写出最终文件：%v", err)
	}
	assertNoTemp(t, dir, "out")
}

func TestWriteFileAtomicWith_NoReplace(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.wav")
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}

	called := false
	err := WriteFileAtomicWith(dir, "out.wav", false, func(*os.File) error {
		called = true
		return nil
	})
	if !errors.Is(err, os.ErrExist) {
		t.Fatalf("期望 os.ErrExist，实际：%v", err)
	}
	if called {
		t.Fatalf("目标已存在时不应调用 fill")
	}
	if b, _ := os.ReadFile(dst); string(b) != "old" {
		t.Fatalf("原文件被修改：%q", string(b))
	}
}

func TestWriteFileAtomic_RenameFail_CleanupTemp(t *testing.T) {
	dir := t.TempDir()

	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		return os.ErrPermission
	}
	defer func() { renameFunc = old }()

	if err := WriteFileAtomic(dir, "a.txt", []byte("hello")); err == nil {
		t.Fatalf("期望失败，但得到 nil")
	}
	if _, err := os.Stat(filepath.Join(dir, "a.txt")); !os.IsNotExist(err) {
		t.Fatalf("不应写出最终文件：%v", err)
	}
	assertNoTemp(t, dir, "a")
}

func TestStatTarget(t *testing.T) {
	dir := t.TempDir()

	exists, err := StatTarget(filepath.Join(dir, "missing.wav"))
	if err != nil || exists {
		t.Fatalf("不存在的路径：exists=%v err=%v", exists, err)
	}

	file := filepath.Join(dir, "a.wav")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
	exists, err = StatTarget(file)
	if err != nil || !exists {
		t.Fatalf("常规文件：exists=%v err=%v", exists, err)
	}

	sub := filepath.Join(dir, "b.wav")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if _, err := StatTarget(sub); !IsPathTypeConflict(err) {
		t.Fatalf("期望 PathTypeConflictError，实际：%T %v", err, err)
	}
	// 写入同样要拒绝目录目标。
	if err := WriteFileAtomic(dir, "b.wav", nil); !IsPathTypeConflict(err) {
		t.Fatalf("期望 PathTypeConflictError，实际：%T %v", err, err)
	}
}
