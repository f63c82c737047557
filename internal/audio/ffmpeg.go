package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultFFmpegBin 是未显式配置时使用的可执行文件名（从 PATH 查找）。
const DefaultFFmpegBin = "ffmpeg"

// FFmpeg 通过子进程调用 ffmpeg 处理非 WAV 容器与重采样。
type FFmpeg struct {
	Bin string
}

func (f *FFmpeg) bin() string {
	if f == nil || strings.TrimSpace(f.Bin) == "" {
		return DefaultFFmpegBin
	}
	return f.Bin
}

// Available 检查 ffmpeg 是否可执行。
func (f *FFmpeg) Available() error {
	if _, err := exec.LookPath(f.bin()); err != nil {
		return fmt.Errorf("找不到 ffmpeg（%s）：%w", f.bin(), err)
	}
	return nil
}

// Decode 把任意 ffmpeg 可读的输入解码为 channels 声道、sampleRate 采样率的浮点 PCM。
func (f *FFmpeg) Decode(ctx context.Context, path string, channels, sampleRate int) (Buffer, error) {
	if channels <= 0 || sampleRate <= 0 {
		return Buffer{}, fmt.Errorf("ffmpeg 解码参数非法：channels=%d sample_rate=%d", channels, sampleRate)
	}
	cmd := exec.CommandContext(ctx, f.bin(),
		"-v", "error",
		"-nostdin",
		"-i", path,
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(sampleRate),
		"-f", "f32le",
		"pipe:1",
	)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Buffer{}, ffmpegErr(err, &stderr)
	}

	b := out.Bytes()
	if len(b)%4 != 0 {
		return Buffer{}, errors.New("ffmpeg 输出的 f32le 长度不是 4 的整数倍")
	}
	data := make([]float64, len(b)/4)
	for i := range data {
		data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:])))
	}
	buf := Buffer{SampleRate: sampleRate, Channels: channels, Data: data}
	if err := buf.validate(); err != nil {
		return Buffer{}, err
	}
	return buf, nil
}

// Encode 把 b 以 16-bit PCM 经 stdin 交给 ffmpeg，由 outPath 的扩展名决定输出容器。
// outPath 已存在时会被覆盖（调用方负责原子替换语义）。
func (f *FFmpeg) Encode(ctx context.Context, outPath string, b Buffer) error {
	if err := b.validate(); err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, f.bin(),
		"-v", "error",
		"-y",
		"-f", "s16le",
		"-ar", strconv.Itoa(b.SampleRate),
		"-ac", strconv.Itoa(b.Channels),
		"-i", "pipe:0",
		outPath,
	)
	cmd.Stdin = bytes.NewReader(s16le(b.Data))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return ffmpegErr(err, &stderr)
	}
	return nil
}

func s16le(src []float64) []byte {
	out := make([]byte, 2*len(src))
	for i, v := range toInt16(src) {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(v)))
	}
	return out
}

func ffmpegErr(err error, stderr *bytes.Buffer) error {
	msg := strings.TrimSpace(stderr.String())
	if msg == "" {
		return fmt.Errorf("ffmpeg 执行失败：%w", err)
	}
	// ffmpeg 的错误输出可能很长，只保留最后一行。
	if i := strings.LastIndexByte(msg, '\n'); i >= 0 {
		msg = msg[i+1:]
	}
	return fmt.Errorf("ffmpeg 执行失败：%w：%s", err, msg)
}
