package simulate

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"causalbench/adapters/rng"
	"causalbench/domain/core"
	"causalbench/domain/scm"
)

func newTestSimulator() *Simulator {
	return NewSimulator(rng.NewPCGAdapter())
}

func TestSample_ShapesAndKeys(t *testing.T) {
	model, err := scm.MakeSCM(scm.MotifConfounding, 0)
	require.NoError(t, err)

	table, err := newTestSimulator().Sample(model, 200, 123, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"U", "X", "Y"}, table.Nodes())
	assert.Equal(t, 200, table.Len())
	for node, col := range table {
		assert.Len(t, col, 200, node)
	}
}

func TestSample_Deterministic(t *testing.T) {
	model, err := scm.MakeSCM(scm.MotifInstrumentalVariable, 3)
	require.NoError(t, err)
	sim := newTestSimulator()

	a, err := sim.Sample(model, 100, 999, nil)
	require.NoError(t, err)
	b, err := sim.Sample(model, 100, 999, nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := sim.Sample(model, 100, 1000, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a["Y"], c["Y"])
}

func TestSample_DoOperatorPinsNode(t *testing.T) {
	for _, kind := range scm.AllMotifKinds() {
		model, err := scm.MakeSCM(kind, 0)
		require.NoError(t, err)

		table, err := newTestSimulator().Sample(model, 50, 7, map[string]float64{"X": 1.0})
		require.NoError(t, err)

		x, err := table.Column("X")
		require.NoError(t, err)
		require.Len(t, x, 50)
		for i, v := range x {
			assert.Equal(t, 1.0, v, "%s draw %d", kind, i)
		}
	}
}

func TestSample_InterventionPropagatesToChildren(t *testing.T) {
	model, err := scm.MakeSCM(scm.MotifNoConfounding, 4)
	require.NoError(t, err)
	w, err := model.Weight("X", "Y")
	require.NoError(t, err)

	table, err := newTestSimulator().Sample(model, 20000, 11, map[string]float64{"X": 2.0})
	require.NoError(t, err)

	mean := 0.0
	for _, v := range table["Y"] {
		mean += v
	}
	mean /= float64(len(table["Y"]))
	assert.InDelta(t, 2.0*w, mean, 0.05)
}

func TestSample_NoiseScale(t *testing.T) {
	model, err := scm.MakeSCM(scm.MotifMediation, 2)
	require.NoError(t, err)
	std, err := model.NoiseStd("X")
	require.NoError(t, err)

	table, err := newTestSimulator().Sample(model, 20000, 5, nil)
	require.NoError(t, err)

	var sum, sumSq float64
	for _, v := range table["X"] {
		sum += v
		sumSq += v * v
	}
	n := float64(len(table["X"]))
	variance := sumSq/n - (sum/n)*(sum/n)
	assert.InDelta(t, std, math.Sqrt(variance), 0.05)
}

func TestSample_InvalidArguments(t *testing.T) {
	model, err := scm.MakeSCM(scm.MotifConfounding, 0)
	require.NoError(t, err)
	sim := newTestSimulator()

	_, err = sim.Sample(model, -1, 0, nil)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = sim.Sample(model, 10, 0, map[string]float64{"Q": 1})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	empty, err := sim.Sample(model, 0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestSample_ColumnMissing(t *testing.T) {
	_, err := SampleTable{}.Column("X")
	assert.ErrorIs(t, err, core.ErrNodeNotFound)
}

func TestSampleProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25
	properties := gopter.NewProperties(parameters)
	sim := newTestSimulator()
	kinds := scm.AllMotifKinds()

	properties.Property("same seed gives identical tables", prop.ForAll(
		func(kindIdx uint8, modelSeed, sampleSeed int64) bool {
			model, err := scm.MakeSCM(kinds[int(kindIdx)%len(kinds)], modelSeed)
			if err != nil {
				return false
			}
			a, err := sim.Sample(model, 64, sampleSeed, nil)
			if err != nil {
				return false
			}
			b, err := sim.Sample(model, 64, sampleSeed, nil)
			if err != nil {
				return false
			}
			for node, col := range a {
				for i := range col {
					if col[i] != b[node][i] {
						return false
					}
				}
			}
			return true
		},
		gen.UInt8(),
		gen.Int64(),
		gen.Int64(),
	))

	properties.Property("intervened column is constant", prop.ForAll(
		func(kindIdx uint8, v float64) bool {
			model, err := scm.MakeSCM(kinds[int(kindIdx)%len(kinds)], 0)
			if err != nil {
				return false
			}
			table, err := sim.Sample(model, 32, 1, map[string]float64{"X": v})
			if err != nil {
				return false
			}
			for _, x := range table["X"] {
				if x != v {
					return false
				}
			}
			return true
		},
		gen.UInt8(),
		gen.Float64Range(-10, 10),
	))

	properties.TestingRun(t)
}
