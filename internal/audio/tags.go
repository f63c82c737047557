package audio

import (
	"os"

	"github.com/dhowden/tag"
)

// Tags 是从容器元数据里读到的、用于报告展示的最小信息。
type Tags struct {
	Format   string // 例如 "MP4"、"ID3v2.3"、"VORBIS"
	FileType string // 例如 "M4A"、"MP3"、"FLAC"
	Title    string
}

// ReadTags 读取 path 的容器标签。
//
// WAV 等没有标签的文件会返回 tag.ErrNoTagsFound；报告层把任何错误视为"无标签"。
func ReadTags(path string) (Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tags{}, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return Tags{}, err
	}
	return Tags{
		Format:   string(m.Format()),
		FileType: string(m.FileType()),
		Title:    m.Title(),
	}, nil
}
