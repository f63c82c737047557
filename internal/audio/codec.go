package audio

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// DecodeOptions 描述调用方需要的 PCM 形态；零值表示"保持源文件原样"。
type DecodeOptions struct {
	Channels   int
	SampleRate int
}

// Codec 按路径扩展名选择原生 WAV 或 ffmpeg。
//
// 规则：
// - .wav 且采样率满足要求：原生解码（不依赖 ffmpeg）
// - 其他情况：交给 FFmpeg；FFmpeg 为 nil 时返回 *UnsupportedFormatError
type Codec struct {
	FFmpeg *FFmpeg
}

func isWAV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".wav")
}

// Decode 读取 path 并按 opts 输出 PCM。
func (c *Codec) Decode(ctx context.Context, path string, opts DecodeOptions) (Buffer, error) {
	if isWAV(path) {
		buf, err := decodeWAVFile(path)
		switch {
		case err == nil:
			if opts.SampleRate == 0 || opts.SampleRate == buf.SampleRate {
				if opts.Channels == 1 {
					buf = Mono(buf)
				}
				if opts.Channels <= 1 || opts.Channels == buf.Channels {
					return buf, nil
				}
			}
		case !IsUnsupportedFormat(err):
			return Buffer{}, &CodecError{Op: "decode", Path: path, Err: err}
		}
		// 采样率/声道数不满足、或原生不支持：尝试 ffmpeg。
	}

	if c == nil || c.FFmpeg == nil {
		return Buffer{}, &CodecError{Op: "decode", Path: path, Err: &UnsupportedFormatError{
			Ext:    strings.ToLower(filepath.Ext(path)),
			Reason: "需要 ffmpeg，但未配置",
		}}
	}

	ch, rate := opts.Channels, opts.SampleRate
	if ch <= 0 {
		ch = 2
	}
	if rate <= 0 {
		rate = 44100
	}
	buf, err := c.FFmpeg.Decode(ctx, path, ch, rate)
	if err != nil {
		return Buffer{}, &CodecError{Op: "decode", Path: path, Err: err}
	}
	return buf, nil
}

func decodeWAVFile(path string) (Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return Buffer{}, err
	}
	defer f.Close()
	return ReadWAV(f)
}

// Encode 把 b 写入已打开的 f（通常是同目录临时文件）。
//
// 输出格式由 f.Name() 的扩展名决定：.wav 原生写出，其余交给 ffmpeg 写同一路径。
func (c *Codec) Encode(ctx context.Context, f *os.File, b Buffer) error {
	name := f.Name()
	if isWAV(name) {
		if err := WriteWAV(f, b); err != nil {
			return &CodecError{Op: "encode", Path: name, Err: err}
		}
		return nil
	}

	if c == nil || c.FFmpeg == nil {
		return &CodecError{Op: "encode", Path: name, Err: &UnsupportedFormatError{
			Ext:    strings.ToLower(filepath.Ext(name)),
			Reason: "需要 ffmpeg，但未配置",
		}}
	}
	if err := c.FFmpeg.Encode(ctx, name, b); err != nil {
		return &CodecError{Op: "encode", Path: name, Err: err}
	}
	return nil
}
