package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimlab-isi/retinocore/config"
	"github.com/kimlab-isi/retinocore/kernel"
	"github.com/kimlab-isi/retinocore/result"
	"github.com/kimlab-isi/retinocore/tensor"
)

func testConfig(t *testing.T) config.AnalysisConfig {
	t.Helper()
	cfg, err := config.New(0.3, 0.1, 0, 5, 10, 0, 3, 90, 0.02)
	require.NoError(t, err)
	return cfg
}

func constantCube(tLen, h, w int, value float32) tensor.FrameCube {
	c := tensor.NewFrameCube(tLen, h, w)
	for i := range c.Values {
		c.Values[i] = value
	}
	return c
}

func TestRun_ConstantInputYieldsZeroedVFSAndNoAreas(t *testing.T) {
	orch := &Orchestrator{Backend: kernel.NewCPUBackend(), Config: testConfig(t)}
	cube := constantCube(64, 8, 8, 100.0)

	inputs := SessionInputs{
		Directions: map[result.Direction]DirectionInput{
			result.LR: {Cube: cube, HasCube: true},
			result.RL: {Cube: cube, HasCube: true},
			result.TB: {Cube: cube, HasCube: true},
			result.BT: {Cube: cube, HasCube: true},
		},
		CyclesPerSweep: 10,
	}

	res, err := orch.Run(context.Background(), inputs)
	require.NoError(t, err)
	require.True(t, res.HasAzimuth)
	require.True(t, res.HasElevation)

	for _, v := range res.RawVFS.Values {
		assert.InDelta(t, 0, v, 1e-4)
	}
	for _, v := range res.Area.Values {
		assert.Equal(t, int32(0), v)
	}
}

func TestRun_MissingDirectionLeavesAzimuthAbsent(t *testing.T) {
	orch := &Orchestrator{Backend: kernel.NewCPUBackend(), Config: testConfig(t)}
	cube := constantCube(64, 4, 4, 50.0)

	inputs := SessionInputs{
		Directions: map[result.Direction]DirectionInput{
			result.LR: {Cube: cube, HasCube: true},
			result.TB: {Cube: cube, HasCube: true},
			result.BT: {Cube: cube, HasCube: true},
		},
		CyclesPerSweep: 8,
	}

	res, err := orch.Run(context.Background(), inputs)
	require.NoError(t, err)
	assert.False(t, res.HasAzimuth)
	assert.True(t, res.HasElevation)
}

func TestRun_CancelBeforeStartReturnsCancelledError(t *testing.T) {
	orch := &Orchestrator{Backend: kernel.NewCPUBackend(), Config: testConfig(t)}
	orch.RequestCancel()

	_, err := orch.Run(context.Background(), SessionInputs{Directions: map[result.Direction]DirectionInput{}})
	require.Error(t, err)
}

func TestRun_ReportsProgressBetweenStages(t *testing.T) {
	var stages []string
	orch := &Orchestrator{
		Backend: kernel.NewCPUBackend(),
		Config:  testConfig(t),
		Progress: func(fraction float64, stage string) {
			stages = append(stages, stage)
		},
	}
	cube := constantCube(32, 4, 4, 10.0)
	inputs := SessionInputs{
		Directions: map[result.Direction]DirectionInput{
			result.LR: {Cube: cube, HasCube: true},
			result.RL: {Cube: cube, HasCube: true},
			result.TB: {Cube: cube, HasCube: true},
			result.BT: {Cube: cube, HasCube: true},
		},
		CyclesPerSweep: 4,
	}
	_, err := orch.Run(context.Background(), inputs)
	require.NoError(t, err)
	assert.Contains(t, stages, "complete")
}

func TestRun_StampsRunIDAndProvenanceMetadata(t *testing.T) {
	orch := &Orchestrator{Backend: kernel.NewCPUBackend(), Config: testConfig(t)}
	cube := constantCube(32, 4, 4, 10.0)
	inputs := SessionInputs{
		Directions: map[result.Direction]DirectionInput{
			result.LR: {Cube: cube, HasCube: true},
			result.RL: {Cube: cube, HasCube: true},
			result.TB: {Cube: cube, HasCube: true},
			result.BT: {Cube: cube, HasCube: true},
		},
		CyclesPerSweep: 4,
	}

	res, err := orch.Run(context.Background(), inputs)
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, res.RunID, res.Metadata["run_id"])

	algorithms, ok := res.Metadata["algorithms_used"].([]string)
	require.True(t, ok)
	assert.Contains(t, algorithms, "fourier-phase-extraction")
	assert.Contains(t, algorithms, "gradient-angle-vfs")
	assert.Contains(t, algorithms, "connected-components-segmentation")

	_, ok = res.Metadata["quality_issues"].([]string)
	assert.True(t, ok)

	duration, ok := res.Metadata["processing_duration"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, duration)
}

func TestRun_RunIDsAreUniquePerRun(t *testing.T) {
	orch := &Orchestrator{Backend: kernel.NewCPUBackend(), Config: testConfig(t)}
	cube := constantCube(32, 4, 4, 10.0)
	inputs := SessionInputs{
		Directions: map[result.Direction]DirectionInput{
			result.LR: {Cube: cube, HasCube: true},
			result.RL: {Cube: cube, HasCube: true},
			result.TB: {Cube: cube, HasCube: true},
			result.BT: {Cube: cube, HasCube: true},
		},
		CyclesPerSweep: 4,
	}

	res1, err := orch.Run(context.Background(), inputs)
	require.NoError(t, err)
	res2, err := orch.Run(context.Background(), inputs)
	require.NoError(t, err)

	assert.NotEqual(t, res1.RunID, res2.RunID)
}
