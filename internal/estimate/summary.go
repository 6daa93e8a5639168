package estimate

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// FractionPositive returns the share of values strictly above zero, NaN for
// an empty slice
func FractionPositive(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	positive := 0
	for _, v := range values {
		if v > 0 {
			positive++
		}
	}
	return float64(positive) / float64(len(values))
}

// Summary holds population moments of one column
type Summary struct {
	Mean float64
	Std  float64
}

// Summarize computes the population mean and standard deviation. Both are
// NaN for an empty column.
func Summarize(values []float64) Summary {
	mean, err := stats.Mean(values)
	if err != nil {
		return Summary{Mean: math.NaN(), Std: math.NaN()}
	}
	std, err := stats.StandardDeviationPopulation(values)
	if err != nil {
		std = math.NaN()
	}
	return Summary{Mean: mean, Std: std}
}

// OLSSlope is the least-squares slope of y on x using population moments.
// It is 0 when x has no variance or fewer than two rows.
func OLSSlope(x, y []float64) float64 {
	if len(x) < 2 || len(y) < 2 {
		return 0
	}
	varX, err := stats.PopulationVariance(x)
	if err != nil || varX <= 0 {
		return 0
	}
	cov, err := stats.CovariancePopulation(x, y)
	if err != nil {
		return 0
	}
	return cov / varX
}

// Correlation is Pearson's r, NaN when either column is constant
func Correlation(x, y []float64) float64 {
	sx, err := stats.StandardDeviationPopulation(x)
	if err != nil || sx == 0 {
		return math.NaN()
	}
	sy, err := stats.StandardDeviationPopulation(y)
	if err != nil || sy == 0 {
		return math.NaN()
	}
	r, err := stats.Correlation(x, y)
	if err != nil {
		return math.NaN()
	}
	return r
}

// z975 is the two-sided 95% normal critical value
var z975 = distuv.UnitNormal.Quantile(0.975)

// WaldInterval returns the normal-approximation 95% interval of a proportion
// estimated from n rows, clipped to [0,1]. NaN bounds when p is NaN or n is 0.
func WaldInterval(p float64, n int) (low, high float64) {
	if n <= 0 || math.IsNaN(p) {
		return math.NaN(), math.NaN()
	}
	se := math.Sqrt(p * (1 - p) / float64(n))
	return math.Max(0, p-z975*se), math.Min(1, p+z975*se)
}

// CountInBand counts rows with |x - center| <= band
func CountInBand(x []float64, center, band float64) int {
	count := 0
	for _, v := range x {
		if math.Abs(v-center) <= band {
			count++
		}
	}
	return count
}
