package audio

import (
	"errors"
	"fmt"
)

// CodecError 表示一次解码/编码失败。
type CodecError struct {
	Op   string // decode | encode
	Path string
	Err  error
}

func (e *CodecError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s 失败：%q", e.Op, e.Path)
	}
	return fmt.Sprintf("%s 失败：%q：%v", e.Op, e.Path, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// UnsupportedFormatError 表示原生路径无法处理该格式（且没有可用的 ffmpeg 兜底）。
type UnsupportedFormatError struct {
	Ext    string
	Reason string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("不支持的音频格式：%q", e.Ext)
	}
	return fmt.Sprintf("不支持的音频格式：%q：%s", e.Ext, e.Reason)
}

func IsUnsupportedFormat(err error) bool {
	var e *UnsupportedFormatError
	return errors.As(err, &e)
}
