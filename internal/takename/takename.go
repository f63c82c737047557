// Package takename 解析/生成录音文件名：
//
//	<title>-<chord>[-with Background Vocals]-Trimmed_<number>s.<ext>
//
// 解析失败时返回 *MismatchError，由调用方决定跳过还是失败。
package takename

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/John-Robertt/bgvsplit/internal/domain"
)

// title 用非贪婪匹配，保证 "A-B-C-Trimmed_..." 这类标题里带 '-' 的名字也能回溯到正确的 chord。
// 注意：RE2 不支持 (?!\.)，"不能以 '.' 开头" 在 Parse 里单独判断。
var nameRE = regexp.MustCompile(
	`^(?P<title>.+?)-(?P<chord>[A-G](?:b|#)?)(?P<bgv>-` + domain.BGVMarker + `)?-Trimmed_(?P<trim>\d+(?:\.\d+)?)s\.(?P<ext>[A-Za-z0-9]+)$`,
)

var (
	idxTitle = nameRE.SubexpIndex("title")
	idxChord = nameRE.SubexpIndex("chord")
	idxBGV   = nameRE.SubexpIndex("bgv")
	idxTrim  = nameRE.SubexpIndex("trim")
	idxExt   = nameRE.SubexpIndex("ext")
)

type MismatchError struct {
	// Kind: domain.UnmatchedNoMatch / UnmatchedHidden / UnmatchedBGVFlagMismatch
	Kind string
	Name string
	Err  error
}

func (e *MismatchError) Error() string {
	switch e.Kind {
	case domain.UnmatchedHidden:
		return fmt.Sprintf("隐藏文件不参与匹配：%q", e.Name)
	case domain.UnmatchedBGVFlagMismatch:
		return fmt.Sprintf("文件名包含 %q，但不在 chord 与 -Trimmed_ 之间：%q", domain.BGVMarker, e.Name)
	default:
		if e.Err != nil {
			return fmt.Sprintf("文件名不符合命名约定：%q：%v", e.Name, e.Err)
		}
		return fmt.Sprintf("文件名不符合命名约定：%q（期望 <title>-<chord>[-%s]-Trimmed_<N>s.<ext>）", e.Name, domain.BGVMarker)
	}
}

func (e *MismatchError) Unwrap() error { return e.Err }

// IsMismatch 判断 err 是否为 MismatchError。
func IsMismatch(err error) bool {
	var e *MismatchError
	return errors.As(err, &e)
}

// Parse 从 path 的文件名部分解析出 Take；Take.Path 保留传入的 path。
//
// has_bgv 由两处独立得出：正则里的 infix 捕获，以及文件名里是否包含 BGVMarker。
// 两者不一致说明命名有问题（例如标题本身带了 marker），按 mismatch 处理而不是猜测。
func Parse(path string) (domain.Take, error) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return domain.Take{}, &MismatchError{Kind: domain.UnmatchedHidden, Name: name}
	}

	m := nameRE.FindStringSubmatch(name)
	if m == nil {
		return domain.Take{}, &MismatchError{Kind: domain.UnmatchedNoMatch, Name: name}
	}

	infix := m[idxBGV] != ""
	if infix != strings.Contains(name, domain.BGVMarker) {
		return domain.Take{}, &MismatchError{Kind: domain.UnmatchedBGVFlagMismatch, Name: name}
	}

	trim, err := strconv.ParseFloat(m[idxTrim], 64)
	if err != nil {
		return domain.Take{}, &MismatchError{Kind: domain.UnmatchedNoMatch, Name: name, Err: err}
	}

	return domain.Take{
		Path:       path,
		Title:      m[idxTitle],
		Chord:      domain.Chord(m[idxChord]),
		TrimLength: trim,
		HasBGV:     infix,
		Ext:        "." + m[idxExt],
	}, nil
}

// Format 生成 t 对应的规范文件名（不含目录）。
// trim 使用最短表示（3 -> "3"，3.5 -> "3.5"），Parse 后得到相同的 float。
func Format(t domain.Take) string {
	var b strings.Builder
	b.WriteString(t.Title)
	b.WriteByte('-')
	b.WriteString(string(t.Chord))
	if t.HasBGV {
		b.WriteString("-" + domain.BGVMarker)
	}
	b.WriteString("-Trimmed_")
	b.WriteString(strconv.FormatFloat(t.TrimLength, 'f', -1, 64))
	b.WriteString("s")
	ext := t.Ext
	if ext == "" {
		ext = ".m4a"
	}
	b.WriteString(ext)
	return b.String()
}
