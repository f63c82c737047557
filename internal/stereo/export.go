// Package stereo 把一对 bare / bgv 录音合成为一条立体声文件：bare 在左声道，bgv 在右声道。
package stereo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/John-Robertt/bgvsplit/internal/audio"
	"github.com/John-Robertt/bgvsplit/internal/domain"
	"github.com/John-Robertt/bgvsplit/internal/infra/fsx"
)

// DefaultSampleRate 是输出文件的默认采样率。
const DefaultSampleRate = 44100

// Codec 是导出需要的编解码能力（audio.Codec 满足该接口）。
type Codec interface {
	Decode(ctx context.Context, path string, opts audio.DecodeOptions) (audio.Buffer, error)
	Encode(ctx context.Context, f *os.File, b audio.Buffer) error
}

type Options struct {
	// SampleRate 为输出采样率；<=0 时使用 DefaultSampleRate。
	SampleRate int
	// Overwrite=false 时目标已存在则失败（os.ErrExist）。
	Overwrite bool
}

const (
	StageDecodeBare = "decode_bare"
	StageDecodeBGV  = "decode_bgv"
	StageMix        = "mix"
	StageWrite      = "write"
)

// ExportError 描述某个 pair 在哪一步失败；Path 为出问题的文件。
type ExportError struct {
	Stage string
	Path  string
	Err   error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("导出失败（%s）：%q：%v", e.Stage, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// Code 把失败映射为报告里的 error_code。
func (e *ExportError) Code() string {
	switch {
	case fsx.IsPathTypeConflict(e.Err), errors.Is(e.Err, os.ErrExist):
		return domain.ErrCodeTargetConflict
	case e.Stage == StageDecodeBare, e.Stage == StageDecodeBGV:
		return domain.ErrCodeDecodeFailed
	}
	var ce *audio.CodecError
	if errors.As(e.Err, &ce) && ce.Op == "encode" {
		return domain.ErrCodeEncodeFailed
	}
	if e.Stage == StageMix {
		return domain.ErrCodeEncodeFailed
	}
	return domain.ErrCodeIOFailed
}

// ExportPair 解码 bare 与 bgv（各自下混为单声道、统一采样率），较短的一侧补静音，
// 交错为立体声后按 outputPath 的扩展名编码，原子写入。
func ExportPair(ctx context.Context, codec Codec, barePath, bgvPath, outputPath string, opts Options) error {
	rate := opts.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	dopts := audio.DecodeOptions{Channels: 1, SampleRate: rate}

	left, err := codec.Decode(ctx, barePath, dopts)
	if err != nil {
		return &ExportError{Stage: StageDecodeBare, Path: barePath, Err: err}
	}
	right, err := codec.Decode(ctx, bgvPath, dopts)
	if err != nil {
		return &ExportError{Stage: StageDecodeBGV, Path: bgvPath, Err: err}
	}

	if left.Frames() != right.Frames() {
		slog.Debug("两条录音时长不同，较短的一侧补静音",
			"bare", left.Duration(), "bgv", right.Duration(), "output", outputPath)
	}

	mixed, err := audio.Stereo(left, right)
	if err != nil {
		return &ExportError{Stage: StageMix, Path: outputPath, Err: err}
	}

	err = fsx.WriteFileAtomicWith(filepath.Dir(outputPath), filepath.Base(outputPath), opts.Overwrite, func(f *os.File) error {
		return codec.Encode(ctx, f, mixed)
	})
	if err != nil {
		return &ExportError{Stage: StageWrite, Path: outputPath, Err: err}
	}
	return nil
}

// Export 是 ExportPair 针对 domain.Pair 的便捷形式：输出到 pair.OutputPath()。
func Export(ctx context.Context, codec Codec, p domain.Pair, opts Options) (string, error) {
	out := p.OutputPath()
	if err := ExportPair(ctx, codec, p.Bare.Path, p.BGV.Path, out, opts); err != nil {
		return "", err
	}
	return out, nil
}
