// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline orchestrates the full retinotopic analysis run: for
// each direction, extract or accept phase/magnitude/coherence, combine
// into azimuth/elevation, compute and threshold the visual field sign,
// detect boundaries, segment areas, and assemble the result.
package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kimlab-isi/retinocore/boundary"
	"github.com/kimlab-isi/retinocore/config"
	"github.com/kimlab-isi/retinocore/isierrors"
	"github.com/kimlab-isi/retinocore/kernel"
	"github.com/kimlab-isi/retinocore/phase"
	"github.com/kimlab-isi/retinocore/result"
	"github.com/kimlab-isi/retinocore/retinotopy"
	"github.com/kimlab-isi/retinocore/segment"
	"github.com/kimlab-isi/retinocore/tensor"
	"github.com/kimlab-isi/retinocore/threshold"
	"github.com/kimlab-isi/retinocore/vfs"
	"github.com/sirupsen/logrus"
)

// DirectionInput is one direction's session input: either a FrameCube
// (the orchestrator runs C2 over it) or a precomputed phase/magnitude
// pair, with an optional precomputed coherence map.
type DirectionInput struct {
	Cube tensor.FrameCube
	HasCube bool

	Phase     phase.PhaseMap
	Magnitude phase.MagnitudeMap
	HasPrecomputed bool

	Coherence    phase.CoherenceMap
	HasCoherence bool
}

// SessionInputs is the Go shape of the session-loader external
// interface: per-direction inputs, an optional anatomical reference,
// and the stimulus cycles-per-sweep used for phase extraction.
type SessionInputs struct {
	Directions     map[result.Direction]DirectionInput
	Anatomical     tensor.Map2D
	HasAnatomical  bool
	ImageWidthPx   *int
	CyclesPerSweep float64
}

// ProgressSink is invoked between stages with a fraction in [0,1] and a
// human-readable stage label. It is optional; a nil sink is never
// called.
type ProgressSink func(fraction float64, stage string)

// LayerSink optionally receives named intermediate maps as they are
// computed, for live preview. It is a side channel: it never affects
// results.
type LayerSink func(name string, m tensor.Map2D)

// Orchestrator sequences the analysis pipeline with a fixed backend and
// configuration.
type Orchestrator struct {
	Backend  kernel.Backend
	Config   config.AnalysisConfig
	Progress ProgressSink
	Layer    LayerSink

	cancelled int32
}

// RequestCancel marks the orchestrator cancelled. The running Run call
// observes this at the next stage boundary and returns a
// *isierrors.CancelledError without writing partial results.
func (o *Orchestrator) RequestCancel() {
	atomic.StoreInt32(&o.cancelled, 1)
}

func (o *Orchestrator) checkCancelled(stage string) error {
	if atomic.LoadInt32(&o.cancelled) != 0 {
		return &isierrors.CancelledError{Stage: stage}
	}
	return nil
}

func (o *Orchestrator) report(fraction float64, stage string) {
	if o.Progress != nil {
		o.Progress(fraction, stage)
	}
	if err := o.checkCancelled(stage); err == nil {
		logrus.Debugf("pipeline: entering stage %q (%.0f%%)", stage, fraction*100)
	}
}

func (o *Orchestrator) emitLayer(name string, m tensor.Map2D) {
	if o.Layer != nil {
		o.Layer(name, m)
	}
}

// Run sequences C2 through C8 over the given session inputs and
// assembles an AnalysisResult. Directions missing a cube or a
// precomputed phase/magnitude pair are skipped; per the partial-input
// contract, azimuth is left absent when LR or RL is missing and
// elevation when TB or BT is missing, and the VFS, threshold, boundary
// and area stages run only when both maps are present.
func (o *Orchestrator) Run(ctx context.Context, in SessionInputs) (*result.AnalysisResult, error) {
	if err := o.checkCancelled("phase-extraction"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &isierrors.CancelledError{Stage: "phase-extraction"}
	}

	startTime := time.Now()
	runID := uuid.NewString()

	res := &result.AnalysisResult{
		RunID:     runID,
		Phase:     result.NewDirectionBundle[phase.PhaseMap](),
		Magnitude: result.NewDirectionBundle[phase.MagnitudeMap](),
		Coherence: result.NewDirectionBundle[phase.CoherenceMap](),
		Metadata:  map[string]any{"run_id": runID},
	}

	var algorithms []string
	var qualityIssues []string
	var usedFourier bool

	var missing []string
	for _, d := range result.AllDirections {
		di, ok := in.Directions[d]
		if !ok {
			missing = append(missing, string(d))
			continue
		}
		if di.HasCube {
			usedFourier = true
		}
		issue, err := o.extractDirection(res, d, di, in.CyclesPerSweep)
		if err != nil {
			return nil, err
		}
		if issue != "" {
			qualityIssues = append(qualityIssues, issue)
		}
	}
	if usedFourier {
		algorithms = append(algorithms, "fourier-phase-extraction")
	}
	if o.Config.PhaseFilterSigma > 0 {
		algorithms = append(algorithms, "phase-smoothing")
	}
	if len(missing) > 0 {
		msg := (&isierrors.PartialInputError{MissingDirections: missing}).Error()
		logrus.Warnf("pipeline: missing direction(s) %v; affected outputs left empty (%s)", missing, msg)
		qualityIssues = append(qualityIssues, msg)
	}

	if in.HasAnatomical {
		res.Anatomical = centerCropSquare(in.Anatomical)
		res.HasAnatomical = true
	}

	o.report(0.2, "retinotopy-combination")
	if err := o.checkCancelled("retinotopy-combination"); err != nil {
		return nil, err
	}
	if res.Phase.Has(result.LR) && res.Phase.Has(result.RL) {
		res.Azimuth = retinotopy.CombineAzimuth(res.Phase.LR, res.Phase.RL)
		res.HasAzimuth = true
		o.emitLayer("azimuth_map", res.Azimuth)
	}
	if res.Phase.Has(result.TB) && res.Phase.Has(result.BT) {
		res.Elevation = retinotopy.CombineElevation(res.Phase.TB, res.Phase.BT)
		res.HasElevation = true
		o.emitLayer("elevation_map", res.Elevation)
	}
	if res.HasAzimuth || res.HasElevation {
		algorithms = append(algorithms, "bidirectional-retinotopy-combination")
	}
	if !res.HasAzimuth || !res.HasElevation {
		// VFS needs both maps; nothing further to compute.
		res.Metadata["backend"] = o.Backend.Name()
		res.Metadata["algorithms_used"] = algorithms
		res.Metadata["quality_issues"] = qualityIssues
		res.Metadata["processing_duration"] = time.Since(startTime).String()
		return res, nil
	}

	o.report(0.4, "gradient-and-vfs")
	if err := o.checkCancelled("gradient-and-vfs"); err != nil {
		return nil, err
	}
	raw, err := vfs.Compute(o.Backend, res.Azimuth, res.Elevation, o.Config.SmoothingSigma)
	if err != nil {
		return nil, err
	}
	res.RawVFS = raw
	o.emitLayer("sign_map", raw)
	algorithms = append(algorithms, "gradient-angle-vfs")

	o.report(0.6, "thresholding")
	if err := o.checkCancelled("thresholding"); err != nil {
		return nil, err
	}
	thresholdAlgorithms, thresholdIssues := o.thresholdAll(res)
	algorithms = append(algorithms, thresholdAlgorithms...)
	qualityIssues = append(qualityIssues, thresholdIssues...)

	displayVfs := res.MagnitudeVFS
	if res.HasCoherenceVFS {
		displayVfs = res.CoherenceVFS
	}

	o.report(0.75, "boundary-detection")
	if err := o.checkCancelled("boundary-detection"); err != nil {
		return nil, err
	}
	res.Boundary = boundary.Detect(o.Backend, displayVfs)
	o.emitLayer("boundary_map", mapU8ToMap2D(res.Boundary))
	algorithms = append(algorithms, "boundary-detection")

	o.report(0.9, "area-segmentation")
	if err := o.checkCancelled("area-segmentation"); err != nil {
		return nil, err
	}
	area, calibrated := segment.Segment(o.Backend, displayVfs, res.Boundary, o.Config, in.ImageWidthPx)
	res.Area = area
	algorithms = append(algorithms, "connected-components-segmentation")
	if !calibrated {
		msg := "area segmentation has no pixel/mm calibration (image width or ring size missing); treating area_min_size_mm2 as a raw pixel count"
		logrus.Warnf("pipeline: %s (area_min_size_mm2=%v)", msg, o.Config.AreaMinSizeMM2)
		qualityIssues = append(qualityIssues, msg)
	}

	res.Metadata["backend"] = o.Backend.Name()
	res.Metadata["gradient_window_size"] = o.Config.GradientWindowSize
	res.Metadata["vfs_post_smooth_sigma"] = vfs.PostSmoothSigma
	res.Metadata["area_calibrated"] = calibrated
	res.Metadata["algorithms_used"] = algorithms
	res.Metadata["quality_issues"] = qualityIssues
	res.Metadata["processing_duration"] = time.Since(startTime).String()

	o.report(1.0, "complete")
	return res, nil
}

// thresholdAll computes the three thresholded VFS variants from
// res.RawVFS, per-direction coherence, and per-direction magnitude,
// degrading coherence-thresholded to unavailable (HasCoherenceVFS
// false) when any direction's coherence is missing. It returns the
// algorithm names it applied and any quality issues it observed, for
// the caller to fold into the run's provenance metadata.
func (o *Orchestrator) thresholdAll(res *result.AnalysisResult) (algorithms, qualityIssues []string) {
	var cohMaps, magMaps []tensor.Map2D
	for _, d := range result.AllDirections {
		if res.Coherence.Has(d) {
			cohMaps = append(cohMaps, fieldForCoherence(res.Coherence, d))
		}
		if res.Magnitude.Has(d) {
			magMaps = append(magMaps, fieldForMagnitude(res.Magnitude, d))
		}
	}

	meanMag := threshold.MeanMagnitude(magMaps...)
	magVFS, effectiveCutoff := threshold.ThresholdMagnitude(res.RawVFS, meanMag)
	res.MagnitudeVFS = magVFS
	res.Metadata["effective_magnitude_threshold"] = effectiveCutoff
	algorithms = append(algorithms, "magnitude-threshold")

	var coherenceVFS *vfs.VfsMap
	if len(cohMaps) == len(result.AllDirections) {
		minCoh := threshold.MinCoherence(cohMaps...)
		cv := threshold.ThresholdCoherence(res.RawVFS, minCoh, o.Config.CoherenceThreshold)
		res.CoherenceVFS = cv
		res.HasCoherenceVFS = true
		coherenceVFS = &cv
		algorithms = append(algorithms, "coherence-threshold")
	} else {
		msg := (&isierrors.ThresholdUnderdeterminedError{Reason: "not all four directions have a coherence map"}).Error()
		logrus.Warnf("pipeline: %s; degrading to magnitude-thresholded display VFS", msg)
		qualityIssues = append(qualityIssues, msg)
	}

	statVFS, reducedConfidence := threshold.ThresholdStatistical(res.RawVFS, coherenceVFS, o.Config.VfsThresholdSD)
	res.StatisticalVFS = statVFS
	algorithms = append(algorithms, "statistical-threshold")
	if reducedConfidence {
		res.Metadata["reduced_confidence"] = true
		qualityIssues = append(qualityIssues, "statistical threshold computed without a coherence-thresholded map; reduced confidence")
	}

	directionDiagnostics := make(map[string]tensor.Map2D, 2*len(result.AllDirections))
	for _, d := range result.AllDirections {
		if !res.Magnitude.Has(d) {
			continue
		}
		mag := fieldForMagnitude(res.Magnitude, d)
		magThresholded, pctThresholded := threshold.ThresholdDirectionMagnitudes(mag, o.Config.MagnitudeThreshold, o.Config.ResponseThresholdPercent)
		directionDiagnostics["magnitude_thresholded/"+string(d)] = magThresholded
		directionDiagnostics["percentile_thresholded/"+string(d)] = pctThresholded
	}
	res.Metadata["direction_diagnostics"] = directionDiagnostics
	return algorithms, qualityIssues
}

func fieldForCoherence(b result.DirectionBundle[phase.CoherenceMap], d result.Direction) tensor.Map2D {
	switch d {
	case result.LR:
		return b.LR
	case result.RL:
		return b.RL
	case result.TB:
		return b.TB
	default:
		return b.BT
	}
}

func fieldForMagnitude(b result.DirectionBundle[phase.MagnitudeMap], d result.Direction) tensor.Map2D {
	switch d {
	case result.LR:
		return b.LR
	case result.RL:
		return b.RL
	case result.TB:
		return b.TB
	default:
		return b.BT
	}
}

func (o *Orchestrator) extractDirection(res *result.AnalysisResult, d result.Direction, di DirectionInput, cyclesPerSweep float64) (qualityIssue string, err error) {
	var pm phase.PhaseMap
	var mm phase.MagnitudeMap
	var cm phase.CoherenceMap
	var haveCoherence bool

	switch {
	case di.HasCube:
		pm, mm, cm, err = phase.ExtractPhase(o.Backend, di.Cube, cyclesPerSweep)
		if err != nil {
			return "", err
		}
		haveCoherence = true
	case di.HasPrecomputed:
		pm, mm = di.Phase, di.Magnitude
		if di.HasCoherence {
			cm = di.Coherence
			haveCoherence = true
		} else {
			cm = onesLike(pm)
			haveCoherence = true
			res.Metadata["reduced_confidence"] = true
			qualityIssue = "direction " + string(d) + " has no coherence map; synthesized coherence=1 (reduced confidence)"
			logrus.Warnf("pipeline: %s", qualityIssue)
		}
	default:
		return "", nil
	}

	if o.Config.PhaseFilterSigma > 0 {
		pm = phase.SmoothPhase(pm, o.Config.PhaseFilterSigma)
	}

	res.Phase.Set(d, pm)
	res.Magnitude.Set(d, mm)
	if haveCoherence {
		res.Coherence.Set(d, cm)
	}
	return qualityIssue, nil
}

func onesLike(m phase.PhaseMap) tensor.Map2D {
	out := tensor.NewMap2D(m.H, m.W)
	for i := range out.Values {
		out.Values[i] = 1
	}
	return out
}

func mapU8ToMap2D(m tensor.MapU8) tensor.Map2D {
	out := tensor.NewMap2D(m.H, m.W)
	for i, v := range m.Values {
		out.Values[i] = float32(v)
	}
	return out
}

func centerCropSquare(m tensor.Map2D) tensor.Map2D {
	if m.H == m.W {
		return m
	}
	side := m.H
	if m.W < side {
		side = m.W
	}
	offY := (m.H - side) / 2
	offX := (m.W - side) / 2
	out := tensor.NewMap2D(side, side)
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			out.Set(y, x, m.At(y+offY, x+offX))
		}
	}
	return out
}
