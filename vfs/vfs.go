// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vfs computes the gradient-angle visual field sign map (Zhuang
// et al., 2017) from combined azimuth/elevation retinotopy maps.
package vfs

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/kimlab-isi/retinocore/kernel"
	"github.com/kimlab-isi/retinocore/retinotopy"
	"github.com/kimlab-isi/retinocore/tensor"
)

// VfsMap is a dense [H,W] map of visual field sign values in [-1,1]
// (0 denotes masked/undefined downstream, after thresholding).
type VfsMap = tensor.Map2D

// PostSmoothSigma is the fixed FFT-based smoothing sigma applied after
// VFS computation. It matches the MATLAB reference default and is never
// user-configurable.
const PostSmoothSigma float32 = 3.0

// Compute derives the raw, post-smoothed visual field sign map from
// azimuth and elevation retinotopy maps:
//  1. optional pre-smoothing of azimuth/elevation via FFTGaussianBlur,
//  2. central-difference gradients of each map,
//  3. gradient direction angles theta_H = atan2(d azim/dy, d azim/dx),
//     theta_V = atan2(d elev/dy, d elev/dx),
//  4. V = exp(i*theta_H) * exp(-i*theta_V); raw VFS = sin(arg(V)),
//  5. NaN replaced with 0,
//  6. post-smoothing at PostSmoothSigma (fixed).
func Compute(backend kernel.Backend, azimuth, elevation retinotopy.RetinotopyMap, smoothingSigma float32) (VfsMap, error) {
	az, el := azimuth, elevation
	if smoothingSigma > 0 {
		var err error
		az, err = backend.FFTGaussianBlur(az, smoothingSigma)
		if err != nil {
			return VfsMap{}, err
		}
		el, err = backend.FFTGaussianBlur(el, smoothingSigma)
		if err != nil {
			return VfsMap{}, err
		}
	}

	azDy, azDx := backend.GradientCentral(az)
	elDy, elDx := backend.GradientCentral(el)

	h, w := az.H, az.W
	raw := tensor.NewMap2D(h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			thetaH := math32.Atan2(azDy.At(y, x), azDx.At(y, x))
			thetaV := math32.Atan2(elDy.At(y, x), elDx.At(y, x))
			// V = exp(i*thetaH) * exp(-i*thetaV); arg(V) = thetaH - thetaV.
			arg := thetaH - thetaV
			v := math32.Sin(arg)
			if float32IsNaN(v) {
				v = 0
			}
			raw.Set(y, x, v)
		}
	}

	smoothed, err := backend.FFTGaussianBlur(raw, PostSmoothSigma)
	if err != nil {
		return VfsMap{}, err
	}
	return smoothed, nil
}

func float32IsNaN(v float32) bool {
	return math.IsNaN(float64(v))
}
