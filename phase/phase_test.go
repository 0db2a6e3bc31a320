package phase

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimlab-isi/retinocore/kernel"
	"github.com/kimlab-isi/retinocore/tensor"
)

func TestExtractPhase_ConstantInputYieldsZeroMagnitudeAndCoherence(t *testing.T) {
	backend := kernel.NewCPUBackend()
	cube := tensor.NewFrameCube(64, 4, 4)
	for t0 := 0; t0 < 64; t0++ {
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				cube.Set(t0, y, x, 100.0)
			}
		}
	}
	_, mag, coh, err := ExtractPhase(backend, cube, 10)
	require.NoError(t, err)
	for _, v := range mag.Values {
		assert.InDelta(t, 0, v, 1e-5)
	}
	for _, v := range coh.Values {
		assert.InDelta(t, 0, v, 1e-5)
	}
}

func TestExtractPhase_SinusoidRecoversKnownPhase(t *testing.T) {
	backend := kernel.NewCPUBackend()
	const T = 64
	cube := tensor.NewFrameCube(T, 1, 1)
	phaseOffset := math.Pi / 4
	for t0 := 0; t0 < T; t0++ {
		v := math.Cos(2*math.Pi*(10.0/T)*float64(t0) + phaseOffset)
		cube.Set(t0, 0, 0, float32(v))
	}
	pm, mag, coh, err := ExtractPhase(backend, cube, 10)
	require.NoError(t, err)
	assert.InDelta(t, phaseOffset, float64(pm.At(0, 0)), 0.05)
	assert.Greater(t, mag.At(0, 0), float32(0))
	assert.GreaterOrEqual(t, coh.At(0, 0), float32(0))
	assert.LessOrEqual(t, coh.At(0, 0), float32(1))
}

func TestExtractPhase_RejectsSingleTimepoint(t *testing.T) {
	backend := kernel.NewCPUBackend()
	cube := tensor.NewFrameCube(1, 2, 2)
	_, _, _, err := ExtractPhase(backend, cube, 10)
	require.Error(t, err)
}

func TestExtractPhase_OutputShapeMatchesInput(t *testing.T) {
	backend := kernel.NewCPUBackend()
	cube := tensor.NewFrameCube(32, 5, 7)
	pm, mag, coh, err := ExtractPhase(backend, cube, 4)
	require.NoError(t, err)
	assert.Equal(t, 5, pm.H)
	assert.Equal(t, 7, pm.W)
	assert.Equal(t, 5, mag.H)
	assert.Equal(t, 7, coh.W)
}

func TestSmoothPhase_ZeroSigmaIsIdentity(t *testing.T) {
	m := tensor.NewMap2D(4, 4)
	m.Set(2, 2, 3)
	out := SmoothPhase(m, 0)
	assert.Equal(t, m.Values, out.Values)
}

func TestSmoothPhase_ConstantMapUnchanged(t *testing.T) {
	m := tensor.NewMap2D(5, 5)
	for i := range m.Values {
		m.Values[i] = 2.5
	}
	out := SmoothPhase(m, 1.0)
	for _, v := range out.Values {
		assert.InDelta(t, 2.5, v, 1e-4)
	}
}
