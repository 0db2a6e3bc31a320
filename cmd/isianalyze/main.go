// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command isianalyze runs the ISI retinotopic analysis pipeline over a
// YAML session fixture and writes the resulting container to disk.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kimlab-isi/retinocore/kernel"
)

var (
	fixturePath string
	outputPath  string
	logLevel    string
	useGPU      bool
)

var rootCmd = &cobra.Command{
	Use:   "isianalyze",
	Short: "Run the intrinsic signal imaging retinotopic analysis pipeline",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one analysis over a session fixture and persist the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		logrus.SetLevel(level)

		backend := kernel.NewCPUBackend()
		if useGPU {
			gpuBackend, err := kernel.NewGPUBackend()
			if err != nil {
				return err
			}
			backend = gpuBackend
		}
		logrus.Infof("isianalyze: backend=%s fixture=%s output=%s", backend.Name(), fixturePath, outputPath)

		cfg, inputs, err := loadFixture(fixturePath)
		if err != nil {
			return fmt.Errorf("loading fixture %q: %w", fixturePath, err)
		}

		orch := newOrchestrator(backend, cfg)
		res, err := orch.Run(context.Background(), inputs)
		if err != nil {
			return fmt.Errorf("running pipeline: %w", err)
		}

		if err := saveResult(res, outputPath); err != nil {
			return fmt.Errorf("saving result to %q: %w", outputPath, err)
		}
		logrus.Infof("isianalyze: wrote result to %s", outputPath)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}

func init() {
	runCmd.Flags().StringVar(&fixturePath, "fixture", "", "path to a YAML session fixture (required)")
	runCmd.Flags().StringVar(&outputPath, "output", "result.isi", "path to write the analysis result container")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&useGPU, "gpu", false, "use the experimental GPU backend (requires ENABLE_GPU_FFT_EXPERIMENTAL=1)")
	runCmd.MarkFlagRequired("fixture")
	rootCmd.AddCommand(runCmd)
}
