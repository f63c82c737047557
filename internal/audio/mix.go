package audio

import "fmt"

// Stereo 把两条单声道交错为立体声：left 在左声道，right 在右声道。
//
// 两者采样率必须一致；较短的一侧在尾部补静音，输出帧数等于较长的一侧。
func Stereo(left, right Buffer) (Buffer, error) {
	if left.Channels != 1 || right.Channels != 1 {
		return Buffer{}, fmt.Errorf("stereo 需要两条单声道输入：left=%d right=%d", left.Channels, right.Channels)
	}
	if left.SampleRate != right.SampleRate {
		return Buffer{}, fmt.Errorf("采样率不一致：left=%d right=%d", left.SampleRate, right.SampleRate)
	}

	n := max(len(left.Data), len(right.Data))
	out := make([]float64, 2*n)
	for i := 0; i < n; i++ {
		if i < len(left.Data) {
			out[2*i] = left.Data[i]
		}
		if i < len(right.Data) {
			out[2*i+1] = right.Data[i]
		}
	}
	return Buffer{SampleRate: left.SampleRate, Channels: 2, Data: out}, nil
}
