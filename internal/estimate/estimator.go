// Package estimate turns simulated samples into the two probabilities the
// benchmark compares: P(Y>0 | X≈x) from observational data and
// P(Y>0 | do(X=x)) from interventional Monte Carlo.
package estimate

import (
	"fmt"
	"math"

	"causalbench/domain/bench"
	"causalbench/domain/core"
	"causalbench/domain/scm"
	"causalbench/internal/simulate"
)

// Node names the benchmark question is asked about
const (
	XNode = "X"
	YNode = "Y"
)

// Comparison defaults
const (
	DefaultBand = 0.1
	DefaultTol  = 0.02
	DefaultNObs = 20000
	DefaultNMC  = 20000
)

// EstimateObsProb approximates P(Y>0 | X=xValue) by the share of rows with
// |X - xValue| <= band whose Y is positive. It returns NaN when no row falls
// inside the band; errors are reserved for missing or ragged columns.
func EstimateObsProb(table simulate.SampleTable, xNode, yNode string, xValue, band float64) (float64, error) {
	x, err := table.Column(xNode)
	if err != nil {
		return math.NaN(), err
	}
	y, err := table.Column(yNode)
	if err != nil {
		return math.NaN(), err
	}
	if len(x) != len(y) {
		return math.NaN(), core.NewInvalidArgumentError("table", "column %s has %d rows, %s has %d", xNode, len(x), yNode, len(y))
	}

	inBand, positive := 0, 0
	for i := range x {
		if math.Abs(x[i]-xValue) <= band {
			inBand++
			if y[i] > 0 {
				positive++
			}
		}
	}
	if inBand == 0 {
		return math.NaN(), nil
	}
	return float64(positive) / float64(inBand), nil
}

// Estimator runs the Monte Carlo side of the comparison
type Estimator struct {
	sim *simulate.Simulator
}

// NewEstimator creates an estimator that samples through sim
func NewEstimator(sim *simulate.Simulator) *Estimator {
	return &Estimator{sim: sim}
}

// EstimateDoProb re-simulates model under do and returns the share of draws
// with Y > 0
func (e *Estimator) EstimateDoProb(model *scm.LinearGaussianSCM, do map[string]float64, nMC int, seed int64) (float64, error) {
	if nMC <= 0 {
		return math.NaN(), core.NewInvalidArgumentError("n_mc", "must be positive, got %d", nMC)
	}
	table, err := e.sim.Sample(model, nMC, seed, do)
	if err != nil {
		return math.NaN(), err
	}
	y, err := table.Column(YNode)
	if err != nil {
		return math.NaN(), err
	}
	return FractionPositive(y), nil
}

// CompareOptions configures CompareObsVsDo
type CompareOptions struct {
	NObs int
	NMC  int
	Seed int64
	Tol  float64
	Band float64

	// ObsData, when set, replaces the observational draw at Seed
	ObsData simulate.SampleTable
}

// DefaultCompareOptions returns the stand-alone comparison defaults
func DefaultCompareOptions() CompareOptions {
	return CompareOptions{
		NObs: DefaultNObs,
		NMC:  DefaultNMC,
		Tol:  DefaultTol,
		Band: DefaultBand,
	}
}

// CompareObsVsDo estimates both probabilities for a single-node intervention
// and labels their relation. Observational samples use opts.Seed and the
// interventional draw uses opts.Seed+1. An empty conditioning band is
// retried once at twice the width; if still empty the label falls back to
// approx_equal and ObsProb stays NaN.
func (e *Estimator) CompareObsVsDo(model *scm.LinearGaussianSCM, do map[string]float64, opts CompareOptions) (bench.Comparison, error) {
	if len(do) != 1 {
		return bench.Comparison{}, core.NewInvalidArgumentError("do", "expected exactly one intervention such as {X: 1.0}, got %d: %v", len(do), do)
	}
	var xNode string
	var xValue float64
	for k, v := range do {
		xNode, xValue = k, v
	}

	obsData := opts.ObsData
	if obsData == nil {
		if opts.NObs <= 0 {
			return bench.Comparison{}, core.NewInvalidArgumentError("n_obs", "must be positive, got %d", opts.NObs)
		}
		var err error
		obsData, err = e.sim.Sample(model, opts.NObs, opts.Seed, nil)
		if err != nil {
			return bench.Comparison{}, fmt.Errorf("observational sample: %w", err)
		}
	}

	obsProb, err := EstimateObsProb(obsData, xNode, YNode, xValue, opts.Band)
	if err != nil {
		return bench.Comparison{}, err
	}

	doProb, err := e.EstimateDoProb(model, do, opts.NMC, opts.Seed+1)
	if err != nil {
		return bench.Comparison{}, fmt.Errorf("interventional sample: %w", err)
	}

	if math.IsNaN(obsProb) {
		obsProb, err = EstimateObsProb(obsData, xNode, YNode, xValue, 2*opts.Band)
		if err != nil {
			return bench.Comparison{}, err
		}
	}

	return bench.Comparison{
		ObsProb: obsProb,
		DoProb:  doProb,
		Label:   LabelFor(obsProb, doProb, opts.Tol),
	}, nil
}

// LabelFor applies the single-tolerance rule: within tol is approx_equal,
// otherwise the larger side wins. A NaN observational probability is
// approx_equal.
func LabelFor(obsProb, doProb, tol float64) bench.Label {
	if math.IsNaN(obsProb) {
		return bench.LabelApproxEqual
	}
	diff := obsProb - doProb
	switch {
	case math.Abs(diff) <= tol:
		return bench.LabelApproxEqual
	case diff > 0:
		return bench.LabelObsGtDo
	default:
		return bench.LabelDoGtObs
	}
}
