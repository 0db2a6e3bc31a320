package retinotopy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kimlab-isi/retinocore/tensor"
)

func TestCombineAzimuth_HalfDifferenceScaledToDegrees(t *testing.T) {
	lr := tensor.NewMap2D(1, 1)
	rl := tensor.NewMap2D(1, 1)
	lr.Set(0, 0, 1.0)
	rl.Set(0, 0, -1.0)
	out := CombineAzimuth(lr, rl)
	expected := float32(((1.0 - (-1.0)) / 2) * (60.0 / math.Pi))
	assert.InDelta(t, expected, out.At(0, 0), 1e-5)
}

func TestCombineElevation_HalfDifferenceScaledToDegrees(t *testing.T) {
	tb := tensor.NewMap2D(1, 1)
	bt := tensor.NewMap2D(1, 1)
	tb.Set(0, 0, 0.5)
	bt.Set(0, 0, -0.5)
	out := CombineElevation(tb, bt)
	expected := float32(((0.5 - (-0.5)) / 2) * (30.0 / math.Pi))
	assert.InDelta(t, expected, out.At(0, 0), 1e-5)
}

func TestCombineAzimuth_IdenticalPhasesYieldZero(t *testing.T) {
	a := tensor.NewMap2D(2, 2)
	for i := range a.Values {
		a.Values[i] = 0.3
	}
	out := CombineAzimuth(a, a)
	for _, v := range out.Values {
		assert.Equal(t, float32(0), v)
	}
}
