package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kimlab-isi/retinocore/config"
	"github.com/kimlab-isi/retinocore/kernel"
	"github.com/kimlab-isi/retinocore/tensor"
)

func testConfig(t *testing.T, ringSizeMM, areaMinSizeMM2 float32) config.AnalysisConfig {
	t.Helper()
	cfg, err := config.New(0.3, 0.1, 1.0, 5, ringSizeMM, 1.0, 3, 90, areaMinSizeMM2)
	if err != nil {
		t.Fatalf("building test config: %v", err)
	}
	return cfg
}

func TestSegment_DropsComponentsBelowMinimumSize(t *testing.T) {
	backend := kernel.NewCPUBackend()
	const side = 30
	vfsMap := tensor.NewMap2D(side, side)
	// one 5x5 = 25px positive blob (dropped), one 10x10=100px positive blob (kept).
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			vfsMap.Set(y, x, 0.9)
		}
	}
	for y := 10; y < 20; y++ {
		for x := 10; x < 20; x++ {
			vfsMap.Set(y, x, 0.9)
		}
	}
	bnd := tensor.NewMapU8(side, side)
	width := side
	cfg := testConfig(t, float32(side), 50) // area_min_size_mm2=50, ring=side -> pixels_per_mm=1 -> N_min=50px

	area, calibrated := Segment(backend, vfsMap, bnd, cfg, &width)
	assert.True(t, calibrated)

	counts := make(map[int32]int)
	for _, v := range area.Values {
		if v != 0 {
			counts[v]++
		}
	}
	assert.Len(t, counts, 1)
}

func TestSegment_PositiveAndNegativeLabelsDisjoint(t *testing.T) {
	backend := kernel.NewCPUBackend()
	vfsMap := tensor.NewMap2D(10, 10)
	for y := 0; y < 5; y++ {
		for x := 0; x < 10; x++ {
			vfsMap.Set(y, x, 0.9)
		}
	}
	for y := 5; y < 10; y++ {
		for x := 0; x < 10; x++ {
			vfsMap.Set(y, x, -0.9)
		}
	}
	bnd := tensor.NewMapU8(10, 10)
	cfg := testConfig(t, 1, 1) // no calibration via imageWidthPx=nil -> raw-pixel fallback, tiny threshold
	area, calibrated := Segment(backend, vfsMap, bnd, cfg, nil)
	assert.False(t, calibrated)

	posLabel := area.At(0, 0)
	negLabel := area.At(9, 0)
	assert.NotEqual(t, int32(0), posLabel)
	assert.NotEqual(t, int32(0), negLabel)
	assert.NotEqual(t, posLabel, negLabel)
}
