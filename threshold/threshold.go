// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package threshold produces the three thresholded visual field sign
// variants (coherence, magnitude, statistical) plus per-direction
// diagnostic thresholding, per Zhuang et al. (2017). Zero denotes
// "masked / undefined" uniformly across all variants.
package threshold

import (
	"sort"

	"github.com/kimlab-isi/retinocore/tensor"
	"github.com/kimlab-isi/retinocore/vfs"
	"gonum.org/v1/gonum/stat"
)

// ThresholdCoherence zeros out raw VFS wherever the per-pixel minimum
// coherence across directions falls below coherenceThreshold. It is the
// primary variant when coherence maps are available for all directions.
func ThresholdCoherence(raw vfs.VfsMap, minCoherence tensor.Map2D, coherenceThreshold float32) vfs.VfsMap {
	out := raw.Clone()
	for i, v := range out.Values {
		if minCoherence.Values[i] < coherenceThreshold {
			out.Values[i] = 0
		} else {
			out.Values[i] = v
		}
	}
	return out
}

// MinCoherence computes the per-pixel minimum across any number of
// per-direction coherence maps. Callers pass only the maps that are
// actually present.
func MinCoherence(maps ...tensor.Map2D) tensor.Map2D {
	if len(maps) == 0 {
		return tensor.Map2D{}
	}
	out := maps[0].Clone()
	for _, m := range maps[1:] {
		for i, v := range m.Values {
			if v < out.Values[i] {
				out.Values[i] = v
			}
		}
	}
	return out
}

// MeanMagnitude computes the per-pixel mean across any number of
// per-direction magnitude maps.
func MeanMagnitude(maps ...tensor.Map2D) tensor.Map2D {
	if len(maps) == 0 {
		return tensor.Map2D{}
	}
	out := tensor.NewMap2D(maps[0].H, maps[0].W)
	for _, m := range maps {
		for i, v := range m.Values {
			out.Values[i] += v
		}
	}
	n := float32(len(maps))
	for i := range out.Values {
		out.Values[i] /= n
	}
	return out
}

// ThresholdMagnitude zeros out raw VFS below the median of the
// per-pixel mean magnitude map, the fallback variant used when
// coherence is unavailable. It returns the thresholded map and the
// effective cutoff actually applied (the median), for provenance —
// distinct from any user-configured MagnitudeThreshold field.
func ThresholdMagnitude(raw vfs.VfsMap, meanMag tensor.Map2D) (vfs.VfsMap, float32) {
	cutoff := median(meanMag.Values)
	out := raw.Clone()
	for i, v := range out.Values {
		if meanMag.Values[i] < cutoff {
			out.Values[i] = 0
		} else {
			out.Values[i] = v
		}
	}
	return out, cutoff
}

// ThresholdStatistical computes tau = vfsThresholdSD * std(raw), always
// derived from the raw VFS array regardless of what is being masked,
// and zeros pixels with |vfs| < tau. When coherenceMasked is non-nil,
// it is used as the two-stage starting point (coherence-thresholded
// map further reduced by tau); otherwise tau is applied directly to raw
// and reducedConfidence is reported true.
func ThresholdStatistical(raw vfs.VfsMap, coherenceMasked *vfs.VfsMap, vfsThresholdSD float32) (out vfs.VfsMap, reducedConfidence bool) {
	tau := vfsThresholdSD * float32(stat.StdDev(float64Slice(raw.Values), nil))

	base := raw
	reducedConfidence = true
	if coherenceMasked != nil {
		base = *coherenceMasked
		reducedConfidence = false
	}
	out = base.Clone()
	for i, v := range out.Values {
		if absf32(v) < tau {
			out.Values[i] = 0
		}
	}
	return out, reducedConfidence
}

// ThresholdDirectionMagnitudes applies magnitude-threshold zeroing and
// percentile-threshold zeroing to a single direction's magnitude map,
// for diagnostics attached to the result but not used to gate
// downstream stages.
func ThresholdDirectionMagnitudes(mag tensor.Map2D, magnitudeThreshold, responseThresholdPercent float32) (magThresholded, pctThresholded tensor.Map2D) {
	magThresholded = mag.Clone()
	for i, v := range magThresholded.Values {
		if v < magnitudeThreshold {
			magThresholded.Values[i] = 0
		}
	}

	nonzero := make([]float32, 0, len(mag.Values))
	for _, v := range mag.Values {
		if v != 0 {
			nonzero = append(nonzero, v)
		}
	}
	cutoff := percentile(nonzero, responseThresholdPercent)
	pctThresholded = mag.Clone()
	for i, v := range pctThresholded.Values {
		if v < cutoff {
			pctThresholded.Values[i] = 0
		}
	}
	return magThresholded, pctThresholded
}

func median(values []float32) float32 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float32, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func percentile(values []float32, p float32) float32 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float32, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	rank := (p / 100) * float32(len(sorted)-1)
	lo := int(rank)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float32(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func float64Slice(src []float32) []float64 {
	out := make([]float64, len(src))
	for i, v := range src {
		out[i] = float64(v)
	}
	return out
}

func absf32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
