// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package result defines the AnalysisResult record produced by a
// pipeline run and a self-describing binary container format for
// persisting it, with atomic temp-write-fsync-rename semantics.
package result

import (
	"github.com/kimlab-isi/retinocore/boundary"
	"github.com/kimlab-isi/retinocore/phase"
	"github.com/kimlab-isi/retinocore/retinotopy"
	"github.com/kimlab-isi/retinocore/segment"
	"github.com/kimlab-isi/retinocore/tensor"
	"github.com/kimlab-isi/retinocore/vfs"
)

// Direction identifies one of the four sweep directions.
type Direction string

const (
	LR Direction = "LR"
	RL Direction = "RL"
	TB Direction = "TB"
	BT Direction = "BT"
)

// AllDirections lists the four sweep directions in canonical order.
var AllDirections = []Direction{LR, RL, TB, BT}

// DirectionBundle holds one value per direction, any of which may be
// absent (zero value) when that direction's input was missing.
type DirectionBundle[M any] struct {
	LR, RL, TB, BT M
	Present        map[Direction]bool
}

// NewDirectionBundle returns an empty bundle with no directions marked
// present.
func NewDirectionBundle[M any]() DirectionBundle[M] {
	return DirectionBundle[M]{Present: make(map[Direction]bool)}
}

// Set assigns the value for a direction and marks it present.
func (b *DirectionBundle[M]) Set(d Direction, v M) {
	switch d {
	case LR:
		b.LR = v
	case RL:
		b.RL = v
	case TB:
		b.TB = v
	case BT:
		b.BT = v
	}
	if b.Present == nil {
		b.Present = make(map[Direction]bool)
	}
	b.Present[d] = true
}

// Has reports whether a direction's value was set.
func (b DirectionBundle[M]) Has(d Direction) bool {
	return b.Present != nil && b.Present[d]
}

// AnalysisResult is the complete, immutable-after-completion output of
// one pipeline run.
type AnalysisResult struct {
	// RunID is a unique identifier stamped by the orchestrator
	// (github.com/google/uuid) at the start of Run; it is also mirrored
	// into Metadata["run_id"].
	RunID string

	Phase      DirectionBundle[phase.PhaseMap]
	Magnitude  DirectionBundle[phase.MagnitudeMap]
	Coherence  DirectionBundle[phase.CoherenceMap]

	Azimuth   retinotopy.RetinotopyMap
	Elevation retinotopy.RetinotopyMap

	RawVFS         vfs.VfsMap
	CoherenceVFS   vfs.VfsMap
	MagnitudeVFS   vfs.VfsMap
	StatisticalVFS vfs.VfsMap
	HasCoherenceVFS bool

	Boundary boundary.BoundaryMap
	Area     segment.AreaMap

	Anatomical      tensor.Map2D
	HasAnatomical   bool
	HasAzimuth      bool
	HasElevation    bool

	// Metadata records run provenance: run_id, backend identity, the raw
	// (unused) gradient_window_size, the effective magnitude-threshold
	// cutoff actually applied, the VFS post-smoothing sigma constant, a
	// reduced-confidence flag, and the supplemented algorithms_used,
	// quality_issues, and processing_duration facts about this run.
	Metadata map[string]any
}
