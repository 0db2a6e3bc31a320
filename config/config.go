// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config defines AnalysisConfig, the frozen, fully-validated
// parameter set the analysis pipeline is invoked with. The core never
// substitutes a default value for a missing field; that is the parameter
// store's job, external to this repo.
package config

import (
	"github.com/kimlab-isi/retinocore/isierrors"
)

// AnalysisConfig is the complete, required parameter set for one analysis
// run. All nine fields are mandatory; Validate reports the first problem
// it finds as a *isierrors.ConfigurationMissingError.
type AnalysisConfig struct {
	CoherenceThreshold      float32 `desc:"minimum per-pixel minimum coherence to keep in the coherence-thresholded VFS, in [0,1]"`
	MagnitudeThreshold      float32 `desc:"per-direction magnitude cutoff used only for diagnostic direction thresholding, >= 0"`
	SmoothingSigma          float32 `desc:"FFT-based spatial smoothing sigma applied to azimuth/elevation before gradient computation, >= 0"`
	VfsThresholdSD          float32 `desc:"multiple of raw-VFS standard deviation used by the statistical threshold, >= 0"`
	RingSizeMM              float32 `desc:"physical width covered by the image, for mm<->pixel calibration, > 0"`
	PhaseFilterSigma        float32 `desc:"spatial Gaussian sigma applied to phase maps before conversion to retinotopy, >= 0"`
	GradientWindowSize      int32   `desc:"reserved for provenance only -- central differences are always used regardless of this value"`
	ResponseThresholdPercent float32 `desc:"percentile (0-100) used for the per-direction diagnostic percentile threshold"`
	AreaMinSizeMM2          float32 `desc:"minimum visual area size in mm^2 (or raw pixels, if calibration unavailable), > 0"`

	// set records which fields were explicitly assigned via a setter, so
	// Validate can distinguish "never set" from "set to its zero value".
	set map[string]bool
}

// Set marks a field as explicitly provided. Callers building an
// AnalysisConfig from an external parameter store should call Set for
// every field they read, even when the value happens to be the Go zero
// value, so Validate does not mistake "configured as 0" for "missing".
func (c *AnalysisConfig) Set(field string) {
	if c.set == nil {
		c.set = make(map[string]bool)
	}
	c.set[field] = true
}

func (c *AnalysisConfig) isSet(field string) bool {
	return c.set != nil && c.set[field]
}

// Validate checks that all nine fields were explicitly set and lie within
// their documented ranges. It returns the first violation found, in field
// declaration order, wrapped as *isierrors.ConfigurationMissingError.
func (c *AnalysisConfig) Validate() error {
	type check struct {
		field string
		ok    bool
		msg   string
	}
	checks := []check{
		{"CoherenceThreshold", c.isSet("CoherenceThreshold") && c.CoherenceThreshold >= 0 && c.CoherenceThreshold <= 1, "must be set and in [0,1]"},
		{"MagnitudeThreshold", c.isSet("MagnitudeThreshold") && c.MagnitudeThreshold >= 0, "must be set and >= 0"},
		{"SmoothingSigma", c.isSet("SmoothingSigma") && c.SmoothingSigma >= 0, "must be set and >= 0"},
		{"VfsThresholdSD", c.isSet("VfsThresholdSD") && c.VfsThresholdSD >= 0, "must be set and >= 0"},
		{"RingSizeMM", c.isSet("RingSizeMM") && c.RingSizeMM > 0, "must be set and > 0"},
		{"PhaseFilterSigma", c.isSet("PhaseFilterSigma") && c.PhaseFilterSigma >= 0, "must be set and >= 0"},
		{"GradientWindowSize", c.isSet("GradientWindowSize"), "must be set (value is recorded for provenance but otherwise unused)"},
		{"ResponseThresholdPercent", c.isSet("ResponseThresholdPercent") && c.ResponseThresholdPercent >= 0 && c.ResponseThresholdPercent <= 100, "must be set and in [0,100]"},
		{"AreaMinSizeMM2", c.isSet("AreaMinSizeMM2") && c.AreaMinSizeMM2 > 0, "must be set and > 0"},
	}
	for _, chk := range checks {
		if !chk.ok {
			return &isierrors.ConfigurationMissingError{Field: chk.field, Reason: chk.msg}
		}
	}
	return nil
}

// New builds a validated AnalysisConfig from explicit values, marking all
// nine fields as set. Intended for callers (tests, cmd/isianalyze) that
// already have every value in hand; a real parameter-store adapter should
// instead populate the struct field-by-field, calling Set per field as it
// reads it, so a store that omits a field is caught by Validate.
func New(coherenceThreshold, magnitudeThreshold, smoothingSigma, vfsThresholdSD,
	ringSizeMM, phaseFilterSigma float32, gradientWindowSize int32,
	responseThresholdPercent, areaMinSizeMM2 float32) (AnalysisConfig, error) {
	c := AnalysisConfig{
		CoherenceThreshold:       coherenceThreshold,
		MagnitudeThreshold:       magnitudeThreshold,
		SmoothingSigma:           smoothingSigma,
		VfsThresholdSD:           vfsThresholdSD,
		RingSizeMM:               ringSizeMM,
		PhaseFilterSigma:         phaseFilterSigma,
		GradientWindowSize:       gradientWindowSize,
		ResponseThresholdPercent: responseThresholdPercent,
		AreaMinSizeMM2:           areaMinSizeMM2,
	}
	for _, f := range []string{
		"CoherenceThreshold", "MagnitudeThreshold", "SmoothingSigma", "VfsThresholdSD",
		"RingSizeMM", "PhaseFilterSigma", "GradientWindowSize", "ResponseThresholdPercent",
		"AreaMinSizeMM2",
	} {
		c.Set(f)
	}
	if err := c.Validate(); err != nil {
		return AnalysisConfig{}, err
	}
	return c, nil
}
