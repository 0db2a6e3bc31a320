// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package boundary detects visual area boundaries as sign reversals in
// a median-filtered visual field sign map.
package boundary

import (
	"github.com/kimlab-isi/retinocore/kernel"
	"github.com/kimlab-isi/retinocore/tensor"
	"github.com/kimlab-isi/retinocore/vfs"
)

// BoundaryMap is a dense [H,W] binary map: 1 marks a boundary pixel.
type BoundaryMap = tensor.MapU8

// signReversalMagnitude is the minimum |vfs| both pixels of a pair must
// exceed for a sign flip between them to count as a boundary, rather
// than noise near the undefined/masked sentinel value of 0.
const signReversalMagnitude = 0.1

// Detect applies a 3x3 median filter to displayVfs, then marks the
// earlier pixel of each horizontally or vertically adjacent pair as a
// boundary whenever both pixels exceed signReversalMagnitude in
// absolute value and their product is negative (a true sign reversal).
// Thinning is intentionally disabled: the sign-reversal rule already
// produces a boundary at most 2 pixels wide.
func Detect(backend kernel.Backend, displayVfs vfs.VfsMap) BoundaryMap {
	filtered := backend.MedianFilter3x3(displayVfs)
	h, w := filtered.H, filtered.W
	out := tensor.NewMapU8(h, w)

	for y := 0; y < h; y++ {
		for x := 0; x < w-1; x++ {
			a := filtered.At(y, x)
			b := filtered.At(y, x+1)
			if absf32(a) > signReversalMagnitude && absf32(b) > signReversalMagnitude && a*b < 0 {
				out.Set(y, x, 1)
			}
		}
	}
	for y := 0; y < h-1; y++ {
		for x := 0; x < w; x++ {
			a := filtered.At(y, x)
			b := filtered.At(y+1, x)
			if absf32(a) > signReversalMagnitude && absf32(b) > signReversalMagnitude && a*b < 0 {
				out.Set(y, x, 1)
			}
		}
	}
	return out
}

func absf32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
