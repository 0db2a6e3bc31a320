package result

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimlab-isi/retinocore/tensor"
)

func sampleResult() *AnalysisResult {
	raw := tensor.NewMap2D(2, 2)
	raw.Values = []float32{0.1, -0.2, 0.3, -0.4}
	return &AnalysisResult{
		RunID:          "test-run",
		RawVFS:         raw,
		MagnitudeVFS:   raw.Clone(),
		StatisticalVFS: raw.Clone(),
		Boundary:       tensor.NewMapU8(2, 2),
		Area:           tensor.NewMapI32(2, 2),
		Metadata:       map[string]any{"backend": "cpu"},
	}
}

func TestSaveLoad_RoundTripsByteIdentical(t *testing.T) {
	res := sampleResult()
	c := ToContainer(res)

	path := filepath.Join(t.TempDir(), "result.isi")
	require.NoError(t, Save(c, path))

	loaded, err := Load(path)
	require.NoError(t, err)

	m1, ok1 := c.Float32Map("raw_vfs_map")
	m2, ok2 := loaded.Float32Map("raw_vfs_map")
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, m1.Values, m2.Values)
	assert.ElementsMatch(t, c.Names(), loaded.Names())
}

func TestSaveLoad_SecondSaveProducesIdenticalDatasets(t *testing.T) {
	res := sampleResult()
	c := ToContainer(res)
	path := filepath.Join(t.TempDir(), "result.isi")

	require.NoError(t, Save(c, path))
	first, err := Load(path)
	require.NoError(t, err)

	firstContainer := ToContainer(res)
	require.NoError(t, Save(firstContainer, path))
	second, err := Load(path)
	require.NoError(t, err)

	m1, _ := first.Float32Map("raw_vfs_map")
	m2, _ := second.Float32Map("raw_vfs_map")
	assert.Equal(t, m1.Values, m2.Values)
}

func TestToContainer_OmitsAbsentOptionalDatasets(t *testing.T) {
	res := sampleResult()
	res.HasAzimuth = false
	res.HasCoherenceVFS = false
	c := ToContainer(res)
	_, ok := c.Float32Map("azimuth_map")
	assert.False(t, ok)
	_, ok = c.Float32Map("coherence_vfs_map")
	assert.False(t, ok)
}

func TestDirectionBundle_HasTracksSetDirections(t *testing.T) {
	b := NewDirectionBundle[tensor.Map2D]()
	assert.False(t, b.Has(LR))
	b.Set(LR, tensor.NewMap2D(1, 1))
	assert.True(t, b.Has(LR))
	assert.False(t, b.Has(RL))
}
