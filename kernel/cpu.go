// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import (
	"math/cmplx"
	"sort"

	"github.com/chewxy/math32"
	"github.com/kimlab-isi/retinocore/isierrors"
	"github.com/kimlab-isi/retinocore/tensor"
	"gonum.org/v1/gonum/dsp/fourier"
)

// cpuBackend implements Backend entirely on the CPU, using
// gonum.org/v1/gonum/dsp/fourier for all FFT work and
// github.com/chewxy/math32 for elementwise float32 math, matching the
// teacher's float32-throughout numeric style.
type cpuBackend struct{}

// NewCPUBackend returns the default, always-available Backend.
func NewCPUBackend() Backend { return cpuBackend{} }

func (cpuBackend) Name() string { return "cpu" }

func (cpuBackend) FFTTimeAxis(cube tensor.FrameCube) (ComplexCube, error) {
	if cube.T < 1 || cube.H < 1 || cube.W < 1 {
		return ComplexCube{}, &isierrors.InvalidInputError{
			Shape:   dims(cube.T, cube.H, cube.W),
			Message: "frame cube must have positive dimensions",
		}
	}
	if !cube.IsContiguous() {
		return ComplexCube{}, &isierrors.InvalidInputError{
			Shape:   dims(cube.T, cube.H, cube.W),
			Message: "frame cube is not row-major contiguous",
		}
	}
	pixels := cube.Pixels()
	out := ComplexCube{T: cube.T, H: cube.H, W: cube.W, Values: make([]complex128, cube.T*pixels)}
	fft := fourier.NewCmplxFFT(cube.T)
	series := make([]complex128, cube.T)
	for p := 0; p < pixels; p++ {
		y, x := p/cube.W, p%cube.W
		var mean float64
		for t := 0; t < cube.T; t++ {
			mean += float64(cube.At(t, y, x))
		}
		mean /= float64(cube.T)
		for t := 0; t < cube.T; t++ {
			series[t] = complex(float64(cube.At(t, y, x))-mean, 0)
		}
		coefs := fft.Coefficients(nil, series)
		for t := 0; t < cube.T; t++ {
			out.Set(t, y, x, coefs[t])
		}
	}
	return out, nil
}

func (c cpuBackend) FFTGaussianBlur(data tensor.Map2D, sigma float32) (tensor.Map2D, error) {
	if sigma <= 0 {
		return data.Clone(), nil
	}
	if !data.IsContiguous() {
		return tensor.Map2D{}, &isierrors.InvalidInputError{
			Shape:   dims(data.H, data.W),
			Message: "map is not row-major contiguous",
		}
	}
	kernelMap := gaussianKernel2D(data.H, data.W, sigma)

	dataSpec := c.fft2(data.Values, data.H, data.W)
	kernelSpec := c.fft2(kernelMap.Values, data.H, data.W)

	prod := make([]complex128, len(dataSpec))
	for i := range prod {
		prod[i] = dataSpec[i] * complex(cmplx.Abs(kernelSpec[i]), 0)
	}
	back := c.ifft2(prod, data.H, data.W)

	out := tensor.NewMap2D(data.H, data.W)
	for i, v := range back {
		out.Values[i] = float32(real(v))
	}
	return out, nil
}

// fft2 performs a 2D forward complex FFT: rows then columns.
func (cpuBackend) fft2(real64 []float32, h, w int) []complex128 {
	buf := make([]complex128, h*w)
	for i, v := range real64 {
		buf[i] = complex(float64(v), 0)
	}
	rowFFT := fourier.NewCmplxFFT(w)
	row := make([]complex128, w)
	for y := 0; y < h; y++ {
		copy(row, buf[y*w:(y+1)*w])
		coefs := rowFFT.Coefficients(nil, row)
		copy(buf[y*w:(y+1)*w], coefs)
	}
	colFFT := fourier.NewCmplxFFT(h)
	col := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = buf[y*w+x]
		}
		coefs := colFFT.Coefficients(nil, col)
		for y := 0; y < h; y++ {
			buf[y*w+x] = coefs[y]
		}
	}
	return buf
}

// ifft2 performs a 2D inverse complex FFT: rows then columns, normalized.
func (cpuBackend) ifft2(spec []complex128, h, w int) []complex128 {
	buf := make([]complex128, len(spec))
	copy(buf, spec)
	rowFFT := fourier.NewCmplxFFT(w)
	row := make([]complex128, w)
	for y := 0; y < h; y++ {
		copy(row, buf[y*w:(y+1)*w])
		coefs := rowFFT.Sequence(nil, row)
		for x := 0; x < w; x++ {
			buf[y*w+x] = coefs[x] / complex(float64(w), 0)
		}
	}
	colFFT := fourier.NewCmplxFFT(h)
	col := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = buf[y*w+x]
		}
		coefs := colFFT.Sequence(nil, col)
		for y := 0; y < h; y++ {
			buf[y*w+x] = coefs[y] / complex(float64(h), 0)
		}
	}
	return buf
}

// gaussianKernel2D builds an h x w kernel centered at (h/2, w/2),
// normalized to unit sum, matching the MATLAB reference's
// same-shape-as-image convention.
func gaussianKernel2D(h, w int, sigma float32) tensor.Map2D {
	k := tensor.NewMap2D(h, w)
	cy, cx := float32(h/2), float32(w/2)
	var sum float32
	twoSigma2 := 2 * sigma * sigma
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dy := float32(y) - cy
			dx := float32(x) - cx
			v := math32.Exp(-(dy*dy + dx*dx) / twoSigma2)
			k.Set(y, x, v)
			sum += v
		}
	}
	if sum != 0 {
		for i := range k.Values {
			k.Values[i] /= sum
		}
	}
	return k
}

func (cpuBackend) GradientCentral(data tensor.Map2D) (tensor.Map2D, tensor.Map2D) {
	h, w := data.H, data.W
	dy := tensor.NewMap2D(h, w)
	dx := tensor.NewMap2D(h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var gy float32
			switch {
			case h == 1:
				gy = 0
			case y == 0:
				gy = data.At(1, x) - data.At(0, x)
			case y == h-1:
				gy = data.At(h-1, x) - data.At(h-2, x)
			default:
				gy = (data.At(y+1, x) - data.At(y-1, x)) / 2
			}
			var gx float32
			switch {
			case w == 1:
				gx = 0
			case x == 0:
				gx = data.At(y, 1) - data.At(y, 0)
			case x == w-1:
				gx = data.At(y, w-1) - data.At(y, w-2)
			default:
				gx = (data.At(y, x+1) - data.At(y, x-1)) / 2
			}
			dy.Set(y, x, gy)
			dx.Set(y, x, gx)
		}
	}
	return dy, dx
}

func (cpuBackend) MedianFilter3x3(data tensor.Map2D) tensor.Map2D {
	h, w := data.H, data.W
	out := tensor.NewMap2D(h, w)
	window := make([]float32, 0, 9)
	clamp := func(v, lo, hi int) int {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			window = window[:0]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					ny := clamp(y+dy, 0, h-1)
					nx := clamp(x+dx, 0, w-1)
					window = append(window, data.At(ny, nx))
				}
			}
			sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })
			out.Set(y, x, window[len(window)/2])
		}
	}
	return out
}

func (cpuBackend) ConnectedComponents4(mask tensor.MapU8) (tensor.MapI32, int) {
	h, w := mask.H, mask.W
	labels := tensor.NewMapI32(h, w)
	next := int32(1)
	stack := make([][2]int, 0, h*w/4+1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if mask.At(y, x) == 0 || labels.At(y, x) != 0 {
				continue
			}
			stack = stack[:0]
			stack = append(stack, [2]int{y, x})
			labels.Set(y, x, next)
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				py, px := p[0], p[1]
				neighbors := [4][2]int{{py - 1, px}, {py + 1, px}, {py, px - 1}, {py, px + 1}}
				for _, n := range neighbors {
					ny, nx := n[0], n[1]
					if ny < 0 || ny >= h || nx < 0 || nx >= w {
						continue
					}
					if mask.At(ny, nx) == 0 || labels.At(ny, nx) != 0 {
						continue
					}
					labels.Set(ny, nx, next)
					stack = append(stack, [2]int{ny, nx})
				}
			}
			next++
		}
	}
	return labels, int(next - 1)
}

func dims(a, b int, c ...int) string {
	s := itoa(a) + "x" + itoa(b)
	for _, v := range c {
		s += "x" + itoa(v)
	}
	return s
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
