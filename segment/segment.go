// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package segment labels connected visual areas from a thresholded
// visual field sign map and its boundary map (Zhuang et al., 2017).
package segment

import (
	"math"

	"github.com/kimlab-isi/retinocore/boundary"
	"github.com/kimlab-isi/retinocore/config"
	"github.com/kimlab-isi/retinocore/kernel"
	"github.com/kimlab-isi/retinocore/tensor"
	"github.com/kimlab-isi/retinocore/vfs"
)

// AreaMap is a dense [H,W] label map. 0 is background; positive-sign
// and negative-sign regions are labeled with disjoint, positive
// integer ranges (negative-sign labels are offset past the
// positive-sign label count).
type AreaMap = tensor.MapI32

// Segment labels 4-connected positive-sign and negative-sign regions of
// displayVfs that are not on a boundary, drops components smaller than
// the minimum area (converted from mm^2 to pixels via imageWidthPx and
// cfg.RingSizeMM when available; otherwise cfg.AreaMinSizeMM2 is
// treated as a raw pixel count and the caller should log a warning),
// and returns the resulting AreaMap.
func Segment(backend kernel.Backend, displayVfs vfs.VfsMap, bnd boundary.BoundaryMap, cfg config.AnalysisConfig, imageWidthPx *int) (AreaMap, bool) {
	h, w := displayVfs.H, displayVfs.W

	calibrated := false
	minPixels := cfg.AreaMinSizeMM2
	if imageWidthPx != nil && *imageWidthPx > 0 && cfg.RingSizeMM > 0 {
		pixelsPerMM := float32(*imageWidthPx) / cfg.RingSizeMM
		minPixels = cfg.AreaMinSizeMM2 * pixelsPerMM * pixelsPerMM
		calibrated = true
	}

	posMask := tensor.NewMapU8(h, w)
	negMask := tensor.NewMapU8(h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := displayVfs.At(y, x)
			if bnd.At(y, x) != 0 || math.IsNaN(float64(v)) {
				continue
			}
			switch {
			case v > 0:
				posMask.Set(y, x, 1)
			case v < 0:
				negMask.Set(y, x, 1)
			}
		}
	}

	posLabels, posCount := backend.ConnectedComponents4(posMask)
	negLabels, negCount := backend.ConnectedComponents4(negMask)

	out := tensor.NewMapI32(h, w)
	for i, v := range posLabels.Values {
		out.Values[i] = v
	}
	for i, v := range negLabels.Values {
		if v != 0 {
			out.Values[i] = v + int32(posCount)
		}
	}
	_ = negCount

	sizes := make(map[int32]int)
	for _, v := range out.Values {
		if v != 0 {
			sizes[v]++
		}
	}
	for i, v := range out.Values {
		if v == 0 {
			continue
		}
		if float32(sizes[v]) < minPixels {
			out.Values[i] = 0
		}
	}

	return out, calibrated
}
