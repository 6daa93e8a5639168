package scm

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Parameter ranges for randomly instantiated models
const (
	WeightMin   = -2.0
	WeightMax   = 2.0
	NoiseStdMin = 0.5
	NoiseStdMax = 1.5
)

// paramStream is the PCG increment used for parameter draws
const paramStream = 0x243f6a8885a308d3

// LinearGaussianSCM is a DAG where every node equals a weighted sum of its
// parents plus independent Gaussian noise. Immutable after construction.
type LinearGaussianSCM struct {
	dag      *DAG
	weights  map[Edge]float64
	noiseStd map[string]float64
}

// NewLinearGaussianSCM draws edge weights (in edge order) and then noise
// standard deviations (in node order) from a single source seeded by seed.
func NewLinearGaussianSCM(edges []Edge, seed int64) (*LinearGaussianSCM, error) {
	dag, err := FromEdges(edges)
	if err != nil {
		return nil, err
	}

	src := rand.NewPCG(uint64(seed), paramStream)
	weightDist := distuv.Uniform{Min: WeightMin, Max: WeightMax, Src: src}
	noiseDist := distuv.Uniform{Min: NoiseStdMin, Max: NoiseStdMax, Src: src}

	m := &LinearGaussianSCM{
		dag:      dag,
		weights:  make(map[Edge]float64, len(edges)),
		noiseStd: make(map[string]float64, len(dag.nodes)),
	}
	for _, e := range dag.edges {
		m.weights[e] = weightDist.Rand()
	}
	for _, n := range dag.nodes {
		m.noiseStd[n] = noiseDist.Rand()
	}
	return m, nil
}

// DAG returns the underlying graph
func (m *LinearGaussianSCM) DAG() *DAG {
	return m.dag
}

// Weight returns the linear coefficient of parent in child's equation
func (m *LinearGaussianSCM) Weight(parent, child string) (float64, error) {
	w, ok := m.weights[Edge{Parent: parent, Child: child}]
	if !ok {
		return 0, fmt.Errorf("no edge %s->%s", parent, child)
	}
	return w, nil
}

// NoiseStd returns the noise standard deviation of node
func (m *LinearGaussianSCM) NoiseStd(node string) (float64, error) {
	s, ok := m.noiseStd[node]
	if !ok {
		return 0, fmt.Errorf("no noise std for node %s", node)
	}
	return s, nil
}
