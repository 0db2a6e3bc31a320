package boundary

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kimlab-isi/retinocore/kernel"
	"github.com/kimlab-isi/retinocore/tensor"
)

func TestDetect_MarksSignReversal(t *testing.T) {
	backend := kernel.NewCPUBackend()
	vfsMap := tensor.NewMap2D(3, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			if x < 2 {
				vfsMap.Set(y, x, 0.8)
			} else {
				vfsMap.Set(y, x, -0.8)
			}
		}
	}
	out := Detect(backend, vfsMap)
	found := false
	for _, v := range out.Values {
		if v != 0 {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDetect_NoReversalWhenSameSign(t *testing.T) {
	backend := kernel.NewCPUBackend()
	vfsMap := tensor.NewMap2D(3, 3)
	for i := range vfsMap.Values {
		vfsMap.Values[i] = 0.5
	}
	out := Detect(backend, vfsMap)
	for _, v := range out.Values {
		assert.Equal(t, uint8(0), v)
	}
}

func TestDetect_IgnoresNearZeroUndefinedPixels(t *testing.T) {
	backend := kernel.NewCPUBackend()
	vfsMap := tensor.NewMap2D(1, 2)
	vfsMap.Set(0, 0, 0.05)
	vfsMap.Set(0, 1, -0.05)
	out := Detect(backend, vfsMap)
	for _, v := range out.Values {
		assert.Equal(t, uint8(0), v)
	}
}
