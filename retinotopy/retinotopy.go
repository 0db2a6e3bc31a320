// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package retinotopy combines phase maps from opposing directional
// sweeps into azimuth/elevation retinotopy maps (Marshel et al., 2011),
// using a simple half-difference with no temporal-delay correction.
package retinotopy

import (
	"math"

	"github.com/kimlab-isi/retinocore/phase"
	"github.com/kimlab-isi/retinocore/tensor"
)

// RetinotopyMap is a dense [H,W] map of visual field position in
// degrees.
type RetinotopyMap = tensor.Map2D

const (
	azimuthDegreesPerRadian   = 60.0 / math.Pi
	elevationDegreesPerRadian = 30.0 / math.Pi
)

// CombineAzimuth derives the azimuth map from the leftward and rightward
// sweep phase maps: ((phiLR - phiRL) / 2) * (60/pi). No delay
// correction is applied; this is the published, verified-correct form
// for this data flow.
func CombineAzimuth(lr, rl phase.PhaseMap) RetinotopyMap {
	return combine(lr, rl, azimuthDegreesPerRadian)
}

// CombineElevation derives the elevation map from the top-to-bottom and
// bottom-to-top sweep phase maps: ((phiTB - phiBT) / 2) * (30/pi). No
// delay correction is applied.
func CombineElevation(tb, bt phase.PhaseMap) RetinotopyMap {
	return combine(tb, bt, elevationDegreesPerRadian)
}

func combine(a, b phase.PhaseMap, scale float64) RetinotopyMap {
	out := tensor.NewMap2D(a.H, a.W)
	for y := 0; y < a.H; y++ {
		for x := 0; x < a.W; x++ {
			diff := (float64(a.At(y, x)) - float64(b.At(y, x))) / 2
			out.Set(y, x, float32(diff*scale))
		}
	}
	return out
}
