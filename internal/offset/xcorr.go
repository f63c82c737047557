package offset

import (
	"math/bits"

	"gonum.org/v1/gonum/dsp/fourier"
)

// CrossCorrelate 计算 a 与 b 的完整互相关（"full" 模式），长度 len(a)+len(b)-1：
//
//	c[i] = Σ_n a[n+k] · b[n]，其中 k = i - (len(b)-1)
//
// 内部使用零填充到 2 的幂的实数 FFT；结果与 CrossCorrelateDirect 在浮点误差内一致。
func CrossCorrelate(a, b []float64) []float64 {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	outLen := len(a) + len(b) - 1
	n := nextPow2(outLen)

	fft := fourier.NewFFT(n)
	buf := make([]float64, n)

	copy(buf, a)
	fa := fft.Coefficients(nil, buf)

	clear(buf)
	copy(buf, b)
	fb := fft.Coefficients(nil, buf)

	for i := range fa {
		fa[i] *= complex(real(fb[i]), -imag(fb[i]))
	}
	// 循环互相关：r[k] 对应正滞后 k，r[n+k] 对应负滞后 k。
	r := fft.Sequence(buf, fa)
	inv := 1 / float64(n)

	out := make([]float64, outLen)
	shift := len(b) - 1
	for i := range out {
		k := i - shift
		if k < 0 {
			k += n
		}
		out[i] = r[k] * inv
	}
	return out
}

// CrossCorrelateDirect 是 CrossCorrelate 的 O(N·M) 直接实现，语义完全相同。
func CrossCorrelateDirect(a, b []float64) []float64 {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	out := make([]float64, len(a)+len(b)-1)
	shift := len(b) - 1
	for i := range out {
		k := i - shift
		lo := max(0, -k)
		hi := min(len(b), len(a)-k)
		var sum float64
		for j := lo; j < hi; j++ {
			sum += a[j+k] * b[j]
		}
		out[i] = sum
	}
	return out
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
