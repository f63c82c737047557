// Package fsx 封装导出阶段需要的文件系统语义：同目录临时文件 + rename 的原子写入，
// 以及目标路径类型冲突、跨盘 rename 的显式错误类型。
package fsx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// 测试通过替换它来模拟 EXDEV 等 rename 失败。
var renameFunc = os.Rename

// PathTypeConflictError 表示目标路径类型冲突（例如期望文件但实际是目录）。
// 上层映射为 error_code=target_conflict。
type PathTypeConflictError struct {
	Path string
	Want string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("目标路径类型冲突：%q（期望 %s，实际 %s）", e.Path, e.Want, e.Got)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// CrossDeviceError 表示 rename 跨文件系统（EXDEV）。
// 临时文件总是与目标同目录，出现该错误通常意味着目录本身是挂载点/符号链接的特殊情况。
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("跨盘 rename 失败（EXDEV）：%q -> %q：%v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

func IsCrossDevice(err error) bool {
	var e *CrossDeviceError
	return errors.As(err, &e)
}

// Rename 封装 os.Rename，并把 EXDEV 显式标记为 CrossDeviceError。
func Rename(src, dst string) error {
	if err := renameFunc(src, dst); err != nil {
		if isEXDEV(err) {
			return &CrossDeviceError{Src: src, Dst: dst, Err: err}
		}
		return err
	}
	return nil
}

// StatTarget 检查将要写入的目标路径。
//
// - 不存在：(false, nil)
// - 常规文件：(true, nil)
// - 目录/符号链接/设备等：*PathTypeConflictError
func StatTarget(path string) (exists bool, err error) {
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if fi.IsDir() {
		return true, &PathTypeConflictError{Path: path, Want: "file", Got: "dir"}
	}
	if !fi.Mode().IsRegular() {
		return true, &PathTypeConflictError{Path: path, Want: "regular file", Got: fi.Mode().Type().String()}
	}
	return true, nil
}

// WriteFileAtomic 在 dir 下原子写入 name，目标已存在时覆盖。用于 report 等可覆盖的产物。
func WriteFileAtomic(dir, name string, data []byte) error {
	return WriteFileAtomicWith(dir, name, true, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

// WriteFileAtomicWith 在 dir 下创建同目录临时文件，交给 fill 写入内容，成功后 rename 为 name。
//
// - 临时文件名保留 name 的扩展名（".<stem>.tmp-XXXX<ext>"），外部编码器可按扩展名推断格式
// - fill 既可以直接写 f，也可以按 f.Name() 让子进程写同一路径
// - replace=false 时目标已存在返回 os.ErrExist（不会创建临时文件）
// - 任一步失败都会删除临时文件，不会留下半成品
func WriteFileAtomicWith(dir, name string, replace bool, fill func(f *os.File) error) error {
	dst := filepath.Join(filepath.Clean(dir), name)
	exists, err := StatTarget(dst)
	if err != nil {
		return err
	}
	if exists && !replace {
		return os.ErrExist
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	// 前缀带 '.'：扫描阶段会把它当作隐藏文件忽略。
	tmp, err := os.CreateTemp(dir, "."+stem+".tmp-*"+ext)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := fill(tmp); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := Rename(tmpName, dst); err != nil {
		return err
	}
	_ = syncDirBestEffort(dir)
	return nil
}

func syncDirBestEffort(dir string) error {
	// Windows 上目录 Sync 的语义与支持情况不稳定，直接跳过。
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
