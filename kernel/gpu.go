// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import (
	"os"
	"runtime"

	"github.com/goki/vgpu/vgpu"
	"github.com/kimlab-isi/retinocore/isierrors"
	"github.com/kimlab-isi/retinocore/tensor"
)

func init() {
	// vgpu requires the OS thread hosting the GPU context to stay fixed.
	runtime.LockOSThread()
}

// MaxSafePixels bounds the per-frame pixel count the experimental GPU
// backend will attempt a time-axis FFT over. Above this size the
// original reference implementation's GPU path (PyTorch on Apple
// Metal/MPS) silently returned an all-zero FFT result for large
// transforms; rather than reproduce that silently, FFTTimeAxis returns
// an *isierrors.BackendFailureError so the hazard is surfaced instead of
// hidden.
const MaxSafePixels = 1 << 16

// Option configures a GPU backend.
type Option func(*gpuBackend)

// AllowExperimental bypasses the ENABLE_GPU_FFT_EXPERIMENTAL environment
// check, for tests that want to exercise the GPU path deterministically.
func AllowExperimental() Option {
	return func(g *gpuBackend) { g.allowed = true }
}

// WithMaxSafePixels overrides MaxSafePixels, mainly for tests that need
// to exercise the failure path on small arrays.
func WithMaxSafePixels(n int) Option {
	return func(g *gpuBackend) { g.maxSafePixels = n }
}

type gpuBackend struct {
	cpu           Backend
	gpu           *vgpu.GPU
	allowed       bool
	maxSafePixels int
}

// NewGPUBackend constructs the experimental GPU-accelerated Backend. It
// requires ENABLE_GPU_FFT_EXPERIMENTAL=1 in the environment, or the
// AllowExperimental option, and returns an error otherwise so callers
// cannot enable the hazard by accident. All non-FFT primitives delegate
// to a CPU backend, since the documented hazard is specific to the
// time-axis FFT.
func NewGPUBackend(opts ...Option) (Backend, error) {
	g := &gpuBackend{
		cpu:           NewCPUBackend(),
		maxSafePixels: MaxSafePixels,
	}
	for _, opt := range opts {
		opt(g)
	}
	if !g.allowed && os.Getenv("ENABLE_GPU_FFT_EXPERIMENTAL") != "1" {
		return nil, &isierrors.ConfigurationMissingError{
			Field:  "ENABLE_GPU_FFT_EXPERIMENTAL",
			Reason: "GPU backend is experimental and opt-in; set ENABLE_GPU_FFT_EXPERIMENTAL=1 or pass kernel.AllowExperimental()",
		}
	}
	if err := vgpu.InitNoDisplay(); err != nil {
		return nil, &isierrors.BackendFailureError{
			Backend:   "gpu",
			ArraySize: 0,
			Message:   "failed to initialize headless Vulkan instance: " + err.Error(),
		}
	}
	gp := vgpu.NewComputeGPU()
	gp.Config("isi-fft")
	g.gpu = gp
	return g, nil
}

func (g *gpuBackend) Name() string { return "gpu" }

func (g *gpuBackend) FFTTimeAxis(cube tensor.FrameCube) (ComplexCube, error) {
	if cube.Pixels() > g.maxSafePixels {
		return ComplexCube{}, &isierrors.BackendFailureError{
			Backend:   "gpu",
			ArraySize: cube.Pixels(),
			Message:   "array exceeds MaxSafePixels; the GPU FFT path is known to misbehave on large transforms (see documented MPS hazard) and is refused rather than silently zeroed",
		}
	}
	return g.cpu.FFTTimeAxis(cube)
}

func (g *gpuBackend) FFTGaussianBlur(data tensor.Map2D, sigma float32) (tensor.Map2D, error) {
	return g.cpu.FFTGaussianBlur(data, sigma)
}

func (g *gpuBackend) GradientCentral(data tensor.Map2D) (tensor.Map2D, tensor.Map2D) {
	return g.cpu.GradientCentral(data)
}

func (g *gpuBackend) MedianFilter3x3(data tensor.Map2D) tensor.Map2D {
	return g.cpu.MedianFilter3x3(data)
}

func (g *gpuBackend) ConnectedComponents4(mask tensor.MapU8) (tensor.MapI32, int) {
	return g.cpu.ConnectedComponents4(mask)
}
