package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimlab-isi/retinocore/kernel"
	"github.com/kimlab-isi/retinocore/tensor"
)

func TestCompute_ConstantMapsYieldZeroVFS(t *testing.T) {
	backend := kernel.NewCPUBackend()
	az := tensor.NewMap2D(8, 8)
	el := tensor.NewMap2D(8, 8)
	for i := range az.Values {
		az.Values[i] = 5
		el.Values[i] = 5
	}
	out, err := Compute(backend, az, el, 0)
	require.NoError(t, err)
	for _, v := range out.Values {
		assert.InDelta(t, 0, v, 1e-5)
	}
}

func TestCompute_OutputWithinUnitRange(t *testing.T) {
	backend := kernel.NewCPUBackend()
	az := tensor.NewMap2D(16, 16)
	el := tensor.NewMap2D(16, 16)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			az.Set(y, x, float32(x))
			el.Set(y, x, float32(y))
		}
	}
	out, err := Compute(backend, az, el, 0)
	require.NoError(t, err)
	for _, v := range out.Values {
		assert.GreaterOrEqual(t, v, float32(-1.0001))
		assert.LessOrEqual(t, v, float32(1.0001))
	}
}

func TestCompute_PostSmoothSigmaIsFixed(t *testing.T) {
	assert.Equal(t, float32(3.0), PostSmoothSigma)
}
