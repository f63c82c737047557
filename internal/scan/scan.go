package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/bgvsplit/internal/domain"
)

// ScanAudio 列出 dir 下（不递归）的候选文件。
//
// 规则（硬约束）：
// - 只看常规文件；子目录、符号链接到目录等一律忽略
// - 不按扩展名过滤：任何 ffmpeg 能解码的容器都可能是输入，能否匹配交给文件名解析决定
// - 排除本工具自己的产物（*-Split.wav），避免重复运行时把输出当成输入
//
// 注意：扫描阶段只做 stat（DirEntry.Info），不读文件内容。
func ScanAudio(dir string) ([]domain.AudioFile, error) {
	dir, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]domain.AudioFile, 0, len(entries))
	for _, d := range entries {
		if d.IsDir() {
			continue
		}

		name := d.Name()
		if isSplitOutput(name) {
			continue
		}

		info, err := d.Info()
		if err != nil {
			return nil, err
		}
		if !info.Mode().IsRegular() {
			continue
		}

		files = append(files, domain.AudioFile{
			AbsPath: filepath.Join(dir, name),
			Name:    name,
			Ext:     strings.ToLower(filepath.Ext(name)),
			Size:    info.Size(),
			ModUnix: info.ModTime().Unix(),
		})
	}

	// os.ReadDir 已按文件名排序；这里再显式排序一次，让"扫描顺序"不依赖实现细节。
	sort.SliceStable(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func isSplitOutput(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), strings.ToLower(domain.SplitSuffix))
}
