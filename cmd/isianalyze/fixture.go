// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/kimlab-isi/retinocore/config"
	"github.com/kimlab-isi/retinocore/kernel"
	"github.com/kimlab-isi/retinocore/pipeline"
	"github.com/kimlab-isi/retinocore/result"
	"github.com/kimlab-isi/retinocore/tensor"
)

// fixtureFile is the on-disk YAML shape of a session fixture: raw frame
// cube values per direction (flattened, row-major [t,y,x]) plus the
// configuration fields and stimulus parameters for one analysis run.
type fixtureFile struct {
	T              int                  `yaml:"t"`
	H              int                  `yaml:"h"`
	W              int                  `yaml:"w"`
	CyclesPerSweep float64              `yaml:"cycles_per_sweep"`
	ImageWidthPx   *int                 `yaml:"image_width_px"`
	Directions     map[string][]float32 `yaml:"directions"`

	CoherenceThreshold       float32 `yaml:"coherence_threshold"`
	MagnitudeThreshold       float32 `yaml:"magnitude_threshold"`
	SmoothingSigma           float32 `yaml:"smoothing_sigma"`
	VfsThresholdSD           float32 `yaml:"vfs_threshold_sd"`
	RingSizeMM               float32 `yaml:"ring_size_mm"`
	PhaseFilterSigma         float32 `yaml:"phase_filter_sigma"`
	GradientWindowSize       int32   `yaml:"gradient_window_size"`
	ResponseThresholdPercent float32 `yaml:"response_threshold_percent"`
	AreaMinSizeMM2           float32 `yaml:"area_min_size_mm2"`
}

func loadFixture(path string) (config.AnalysisConfig, pipeline.SessionInputs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return config.AnalysisConfig{}, pipeline.SessionInputs{}, err
	}
	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return config.AnalysisConfig{}, pipeline.SessionInputs{}, err
	}

	cfg, err := config.New(f.CoherenceThreshold, f.MagnitudeThreshold, f.SmoothingSigma,
		f.VfsThresholdSD, f.RingSizeMM, f.PhaseFilterSigma, f.GradientWindowSize,
		f.ResponseThresholdPercent, f.AreaMinSizeMM2)
	if err != nil {
		return config.AnalysisConfig{}, pipeline.SessionInputs{}, err
	}

	inputs := pipeline.SessionInputs{
		Directions:     make(map[result.Direction]pipeline.DirectionInput),
		CyclesPerSweep: f.CyclesPerSweep,
		ImageWidthPx:   f.ImageWidthPx,
	}
	for name, values := range f.Directions {
		cube, err := tensor.NewFrameCubeFrom(f.T, f.H, f.W, values)
		if err != nil {
			return config.AnalysisConfig{}, pipeline.SessionInputs{}, err
		}
		inputs.Directions[result.Direction(name)] = pipeline.DirectionInput{Cube: cube, HasCube: true}
	}

	return cfg, inputs, nil
}

func newOrchestrator(backend kernel.Backend, cfg config.AnalysisConfig) *pipeline.Orchestrator {
	return &pipeline.Orchestrator{
		Backend: backend,
		Config:  cfg,
		Progress: func(fraction float64, stage string) {
			logrus.Debugf("isianalyze: %s (%.0f%%)", stage, fraction*100)
		},
	}
}

func saveResult(res *result.AnalysisResult, path string) error {
	c := result.ToContainer(res)
	return result.Save(c, path)
}
