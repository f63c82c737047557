// Package offset 通过互相关估计两段录音之间的时间偏移。
//
// 约定：结果为正表示 other 相对 reference 延迟；为负表示提前。
package offset

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/John-Robertt/bgvsplit/internal/audio"
)

// DefaultSampleRate 是估计偏移时统一重采样到的采样率。
const DefaultSampleRate = 16000

// Decoder 是 AudioOffset 需要的最小解码能力（audio.Codec 满足该接口）。
type Decoder interface {
	Decode(ctx context.Context, path string, opts audio.DecodeOptions) (audio.Buffer, error)
}

// DegenerateSignalError 表示信号为空或全零，无法归一化。
type DegenerateSignalError struct {
	// Path 为出问题的文件；纯内存调用时为 "reference" 或 "other"。
	Path string
}

func (e *DegenerateSignalError) Error() string {
	return fmt.Sprintf("信号为空或全零，无法归一化：%q", e.Path)
}

func IsDegenerateSignal(err error) bool {
	var e *DegenerateSignalError
	return errors.As(err, &e)
}

// Normalize 返回 x 除以自身最大绝对值后的副本。
// x 为空或全零时 ok=false。
func Normalize(x []float64) (out []float64, ok bool) {
	if len(x) == 0 {
		return nil, false
	}
	peak := floats.Norm(x, math.Inf(1))
	if peak == 0 || math.IsNaN(peak) || math.IsInf(peak, 0) {
		return nil, false
	}
	out = make([]float64, len(x))
	copy(out, x)
	floats.Scale(1/peak, out)
	return out, true
}

// Estimate 在内存中估计 other 相对 reference 的偏移（秒）。
//
// lag = argmax(xcorr(other, reference)) - (len(reference) - 1)；并列最大值取第一个。
func Estimate(reference, other []float64, sampleRate int) (float64, error) {
	if sampleRate <= 0 {
		return 0, fmt.Errorf("sample_rate 非法：%d", sampleRate)
	}
	ref, ok := Normalize(reference)
	if !ok {
		return 0, &DegenerateSignalError{Path: "reference"}
	}
	oth, ok := Normalize(other)
	if !ok {
		return 0, &DegenerateSignalError{Path: "other"}
	}
	return float64(Lag(ref, oth)) / float64(sampleRate), nil
}

// Lag 返回以样本为单位的偏移；输入不要求归一化，但都必须非空。
//
// 并列最大值取第一个，与直接互相关的 argmax 一致。
func Lag(reference, other []float64) int {
	c := CrossCorrelate(other, reference)
	return firstPeak(c) - (len(reference) - 1)
}

// peakTolerance 是判定"与最大值并列"的相对容差，吸收 FFT 的舍入误差。
const peakTolerance = 1e-9

// firstPeak 返回第一个与最大值相差不超过容差的下标；c 必须非空。
func firstPeak(c []float64) int {
	peak := floats.Max(c)
	tol := peakTolerance * math.Max(1, math.Abs(peak))
	for i, v := range c {
		if v >= peak-tol {
			return i
		}
	}
	return floats.MaxIdx(c)
}

// AudioOffset 解码两段音频（单声道，sampleRate<=0 时用 DefaultSampleRate）并返回偏移秒数。
// 任一文件失败都会立即返回，错误里带出问题的文件路径。
func AudioOffset(ctx context.Context, dec Decoder, referencePath, otherPath string, sampleRate int) (float64, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	opts := audio.DecodeOptions{Channels: 1, SampleRate: sampleRate}

	ref, err := dec.Decode(ctx, referencePath, opts)
	if err != nil {
		return 0, err
	}
	oth, err := dec.Decode(ctx, otherPath, opts)
	if err != nil {
		return 0, err
	}

	refN, ok := Normalize(ref.Data)
	if !ok {
		return 0, &DegenerateSignalError{Path: referencePath}
	}
	othN, ok := Normalize(oth.Data)
	if !ok {
		return 0, &DegenerateSignalError{Path: otherPath}
	}
	return float64(Lag(refN, othN)) / float64(sampleRate), nil
}
