// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kernel provides the six numeric primitives the rest of the
// analysis pipeline is built from: time-axis FFT, stimulus-bin lookup,
// FFT-domain Gaussian blur, central-difference gradients, a 3x3 median
// filter, and 4-connected component labeling. A Backend abstracts over a
// CPU implementation (always available) and an experimental GPU one.
package kernel

import (
	"github.com/kimlab-isi/retinocore/tensor"
)

// ComplexCube holds per-pixel complex time series after fft_time_axis,
// row-major [t,y,x] like tensor.FrameCube but complex-valued.
type ComplexCube struct {
	T, H, W int
	Values  []complex128
}

// At returns the value at (t,y,x).
func (c ComplexCube) At(t, y, x int) complex128 {
	return c.Values[(t*c.H+y)*c.W+x]
}

// Set assigns the value at (t,y,x).
func (c ComplexCube) Set(t, y, x int, v complex128) {
	c.Values[(t*c.H+y)*c.W+x] = v
}

// Backend is the numeric kernel the rest of the pipeline depends on. The
// CPU backend (NewCPUBackend) is always available; the GPU backend
// (NewGPUBackend) is experimental and opt-in, per the documented FFT
// hazard on large arrays.
type Backend interface {
	// FFTTimeAxis computes the forward DFT of cube along the time axis,
	// after removing each pixel's mean over time (DC removal).
	FFTTimeAxis(cube tensor.FrameCube) (ComplexCube, error)

	// FFTGaussianBlur applies Re(IFFT2(FFT2(data) * |FFT2(kernel)|)) with
	// a centered, unit-sum-normalized Gaussian kernel the same shape as
	// data. Sigma <= 0 returns data unchanged.
	FFTGaussianBlur(data tensor.Map2D, sigma float32) (tensor.Map2D, error)

	// GradientCentral returns (dy, dx): central differences in the
	// interior, forward/backward differences at the edges.
	GradientCentral(data tensor.Map2D) (tensor.Map2D, tensor.Map2D)

	// MedianFilter3x3 replaces each pixel with the median of its 3x3
	// neighborhood, clamping at the border (edge replication).
	MedianFilter3x3(data tensor.Map2D) tensor.Map2D

	// ConnectedComponents4 labels 4-connected regions of nonzero pixels
	// in mask, returning the label map (0 = background) and the number
	// of labels assigned (excluding background).
	ConnectedComponents4(mask tensor.MapU8) (tensor.MapI32, int)

	// Name identifies the backend ("cpu" or "gpu") for provenance.
	Name() string
}

// StimulusBin returns argmin_k |k/t - stimulusFreq| over the forward
// rFFT frequency axis of length t.
func StimulusBin(t int, stimulusFreq float64) int {
	best, bestErr := 0, -1.0
	n := t/2 + 1
	for k := 0; k < n; k++ {
		freq := float64(k) / float64(t)
		diff := freq - stimulusFreq
		if diff < 0 {
			diff = -diff
		}
		if bestErr < 0 || diff < bestErr {
			best, bestErr = k, diff
		}
	}
	return best
}
