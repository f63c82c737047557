package audio

import (
	"errors"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM = 1

	// 输出固定为 16-bit PCM。
	outBitDepth = 16
)

// ReadWAV 解码整段 WAV（整数 PCM）为浮点缓冲区。
//
// IEEE float 等非整数 PCM 返回 *UnsupportedFormatError，调用方可改走 ffmpeg。
func ReadWAV(r io.ReadSeeker) (Buffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return Buffer{}, errors.New("不是合法的 WAV 文件")
	}
	if d.WavAudioFormat != wavFormatPCM {
		return Buffer{}, &UnsupportedFormatError{Ext: ".wav", Reason: fmt.Sprintf("audio_format=%d", d.WavAudioFormat)}
	}

	ib, err := d.FullPCMBuffer()
	if err != nil {
		return Buffer{}, fmt.Errorf("读取 PCM 数据失败：%w", err)
	}
	if ib == nil || ib.Format == nil {
		return Buffer{}, errors.New("WAV 缺少格式信息")
	}

	depth := ib.SourceBitDepth
	if depth == 0 {
		depth = int(d.BitDepth)
	}
	if depth <= 0 || depth > 32 {
		return Buffer{}, &UnsupportedFormatError{Ext: ".wav", Reason: fmt.Sprintf("bit_depth=%d", depth)}
	}

	out := Buffer{
		SampleRate: ib.Format.SampleRate,
		Channels:   ib.Format.NumChannels,
		Data:       make([]float64, len(ib.Data)),
	}
	if depth == 8 {
		// 8-bit WAV 是无符号样本，中点 128。
		for i, v := range ib.Data {
			out.Data[i] = float64(v-128) / 128
		}
	} else {
		scale := 1 / float64(int64(1)<<(depth-1))
		for i, v := range ib.Data {
			out.Data[i] = float64(v) * scale
		}
	}
	if err := out.validate(); err != nil {
		return Buffer{}, err
	}
	return out, nil
}

// WriteWAV 以 16-bit PCM 写出 b。超出 [-1, 1] 的样本会被截断。
func WriteWAV(w io.WriteSeeker, b Buffer) error {
	if err := b.validate(); err != nil {
		return err
	}

	enc := wav.NewEncoder(w, b.SampleRate, outBitDepth, b.Channels, wavFormatPCM)
	ib := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: b.Channels, SampleRate: b.SampleRate},
		Data:           toInt16(b.Data),
		SourceBitDepth: outBitDepth,
	}
	if err := enc.Write(ib); err != nil {
		_ = enc.Close()
		return fmt.Errorf("写入 PCM 数据失败：%w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("写入 WAV 头失败：%w", err)
	}
	return nil
}

func toInt16(src []float64) []int {
	out := make([]int, len(src))
	for i, v := range src {
		out[i] = int(math.Round(clamp(v) * math.MaxInt16))
	}
	return out
}

func clamp(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	case math.IsNaN(v):
		return 0
	}
	return v
}
