// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package phase extracts per-pixel Fourier phase, magnitude, and
// coherence at the stimulus temporal frequency from a single direction's
// frame cube (Kalatsky & Stryker, 2003), and provides a standard spatial
// Gaussian smoother for the resulting phase maps.
package phase

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/kimlab-isi/retinocore/isierrors"
	"github.com/kimlab-isi/retinocore/kernel"
	"github.com/kimlab-isi/retinocore/tensor"
)

// PhaseMap, MagnitudeMap and CoherenceMap are all dense [H,W] maps;
// distinct names document intent at call sites.
type (
	PhaseMap      = tensor.Map2D
	MagnitudeMap  = tensor.Map2D
	CoherenceMap  = tensor.Map2D
)

// ExtractPhase runs the Fourier phase extraction for a single direction's
// frame cube: forward time-axis FFT (with per-pixel DC removal performed
// by the backend), isolate the bin nearest the stimulus frequency, and
// derive phase, magnitude, and clamped coherence.
//
// cyclesPerSweep is the number of stimulus cycles completed over the
// full sweep; the stimulus frequency used for bin selection is
// cyclesPerSweep / cube.T.
func ExtractPhase(backend kernel.Backend, cube tensor.FrameCube, cyclesPerSweep float64) (PhaseMap, MagnitudeMap, CoherenceMap, error) {
	if cube.T < 2 {
		return PhaseMap{}, MagnitudeMap{}, CoherenceMap{}, &isierrors.InvalidInputError{
			Shape:   "rank-3 frame cube",
			Message: "frame cube must have at least 2 time samples",
		}
	}
	if !cube.IsContiguous() {
		return PhaseMap{}, MagnitudeMap{}, CoherenceMap{}, &isierrors.InvalidInputError{
			Shape:   "rank-3 frame cube",
			Message: "frame cube is not row-major contiguous",
		}
	}

	spectrum, err := backend.FFTTimeAxis(cube)
	if err != nil {
		return PhaseMap{}, MagnitudeMap{}, CoherenceMap{}, err
	}

	stimulusFreq := cyclesPerSweep / float64(cube.T)
	bin := kernel.StimulusBin(cube.T, stimulusFreq)

	h, w := cube.H, cube.W
	phaseMap := tensor.NewMap2D(h, w)
	magMap := tensor.NewMap2D(h, w)
	cohMap := tensor.NewMap2D(h, w)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := spectrum.At(bin, y, x)
			re, im := real(a), imag(a)
			if math.IsNaN(re) || math.IsNaN(im) || math.IsInf(re, 0) || math.IsInf(im, 0) {
				return PhaseMap{}, MagnitudeMap{}, CoherenceMap{}, &isierrors.BackendFailureError{
					Backend:   backend.Name(),
					ArraySize: cube.Pixels(),
					Message:   "FFT produced non-finite output at the stimulus bin",
				}
			}
			mag := math32.Hypot(float32(re), float32(im))
			ph := math32.Atan2(float32(im), float32(re))

			var tmean, variance float64
			for t := 0; t < cube.T; t++ {
				tmean += float64(cube.At(t, y, x))
			}
			tmean /= float64(cube.T)
			for t := 0; t < cube.T; t++ {
				d := float64(cube.At(t, y, x)) - tmean
				variance += d * d
			}
			stddev := math.Sqrt(variance / float64(cube.T))
			coh := float64(mag) / (stddev + 1e-10)
			if coh < 0 {
				coh = 0
			}
			if coh > 1 {
				coh = 1
			}

			phaseMap.Set(y, x, ph)
			magMap.Set(y, x, mag)
			cohMap.Set(y, x, float32(coh))
		}
	}

	return phaseMap, magMap, cohMap, nil
}

// SmoothPhase applies a standard, non-cyclic separable Gaussian
// (reflective edge handling) to a phase map, distinct from C5's
// post-conversion FFT-based cyclic smoothing. sigma <= 0 returns m
// unchanged.
func SmoothPhase(m tensor.Map2D, sigma float32) tensor.Map2D {
	if sigma <= 0 {
		return m.Clone()
	}
	kernel1D := gaussianKernel1D(sigma)
	horiz := convolveRows(m, kernel1D)
	return convolveCols(horiz, kernel1D)
}

func gaussianKernel1D(sigma float32) []float32 {
	radius := int(math32.Ceil(3 * sigma))
	if radius < 1 {
		radius = 1
	}
	size := 2*radius + 1
	k := make([]float32, size)
	var sum float32
	twoSigma2 := 2 * sigma * sigma
	for i := 0; i < size; i++ {
		d := float32(i - radius)
		v := math32.Exp(-(d * d) / twoSigma2)
		k[i] = v
		sum += v
	}
	if sum != 0 {
		for i := range k {
			k[i] /= sum
		}
	}
	return k
}

func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - i - 1
		}
	}
	return i
}

func convolveRows(m tensor.Map2D, k []float32) tensor.Map2D {
	radius := len(k) / 2
	out := tensor.NewMap2D(m.H, m.W)
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			var acc float32
			for i, wgt := range k {
				sx := reflect(x+i-radius, m.W)
				acc += wgt * m.At(y, sx)
			}
			out.Set(y, x, acc)
		}
	}
	return out
}

func convolveCols(m tensor.Map2D, k []float32) tensor.Map2D {
	radius := len(k) / 2
	out := tensor.NewMap2D(m.H, m.W)
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			var acc float32
			for i, wgt := range k {
				sy := reflect(y+i-radius, m.H)
				acc += wgt * m.At(sy, x)
			}
			out.Set(y, x, acc)
		}
	}
	return out
}
