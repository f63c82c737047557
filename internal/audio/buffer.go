// Package audio 提供最小的音频读写能力：PCM 缓冲区、声道混合、原生 WAV 编解码，
// 以及通过外部 ffmpeg 处理其他容器格式与重采样。
package audio

import (
	"fmt"
	"time"
)

// Buffer 是交错排列（interleaved）的浮点 PCM，样本范围 [-1, 1]。
type Buffer struct {
	SampleRate int
	Channels   int
	Data       []float64
}

// Frames 返回帧数（每帧包含 Channels 个样本）。
func (b Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Data) / b.Channels
}

// Duration 返回时长；SampleRate 非法时为 0。
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

func (b Buffer) validate() error {
	if b.SampleRate <= 0 {
		return fmt.Errorf("sample_rate 非法：%d", b.SampleRate)
	}
	if b.Channels <= 0 {
		return fmt.Errorf("channels 非法：%d", b.Channels)
	}
	if len(b.Data)%b.Channels != 0 {
		return fmt.Errorf("样本数 %d 不是声道数 %d 的整数倍", len(b.Data), b.Channels)
	}
	return nil
}

// Mono 把多声道下混为单声道（逐帧取平均）。单声道输入原样返回。
func Mono(b Buffer) Buffer {
	if b.Channels <= 1 {
		return b
	}
	n := b.Frames()
	out := make([]float64, n)
	inv := 1 / float64(b.Channels)
	for i := 0; i < n; i++ {
		var sum float64
		base := i * b.Channels
		for c := 0; c < b.Channels; c++ {
			sum += b.Data[base+c]
		}
		out[i] = sum * inv
	}
	return Buffer{SampleRate: b.SampleRate, Channels: 1, Data: out}
}

// Channel 取出第 ch 个声道（0 起）为单声道缓冲区。
func Channel(b Buffer, ch int) (Buffer, error) {
	if ch < 0 || ch >= b.Channels {
		return Buffer{}, fmt.Errorf("声道越界：%d（共 %d 个）", ch, b.Channels)
	}
	n := b.Frames()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = b.Data[i*b.Channels+ch]
	}
	return Buffer{SampleRate: b.SampleRate, Channels: 1, Data: out}, nil
}
