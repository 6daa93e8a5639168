package builder

import (
	"math"

	"causalbench/domain/core"
	"causalbench/domain/scm"
)

// maxAttemptBudget bounds n*multiplier*kinds so the attempt cap cannot overflow
const maxAttemptBudget = 1 << 40

// Options configures one build
type Options struct {
	N                  int
	Seed               int64
	SCMKinds           []scm.MotifKind
	BalanceLabels      bool
	StratifyMotifLabel bool

	NPromptObsSamples int
	NObsSamples       int
	NMCSamples        int

	Tol              float64
	EqMargin         float64
	DirMargin        float64
	DiscardAmbiguous bool

	DoValue float64
	XBand   float64

	MaxAttemptMultiplier int

	// Workers bounds concurrent attempt evaluation. Output does not depend on it.
	Workers int
}

// DefaultOptions returns the standard benchmark configuration
func DefaultOptions() Options {
	return Options{
		N:                    25,
		SCMKinds:             append([]scm.MotifKind(nil), scm.DefaultMotifKinds...),
		BalanceLabels:        true,
		NPromptObsSamples:    2000,
		NObsSamples:          8000,
		NMCSamples:           8000,
		Tol:                  0.02,
		EqMargin:             0.06,
		DirMargin:            0.06,
		DiscardAmbiguous:     true,
		DoValue:              1.0,
		XBand:                0.25,
		MaxAttemptMultiplier: 200,
		Workers:              1,
	}
}

// Validate checks option ranges and motif kinds
func (o Options) Validate() error {
	if o.N < 0 {
		return core.NewInvalidArgumentError("n", "must be non-negative, got %d", o.N)
	}
	if len(o.SCMKinds) == 0 {
		return core.NewInvalidArgumentError("scm_kinds", "must contain at least one motif")
	}
	seen := make(map[scm.MotifKind]bool, len(o.SCMKinds))
	for _, k := range o.SCMKinds {
		if seen[k] {
			return core.NewInvalidArgumentError("scm_kinds", "duplicate motif %q", k)
		}
		seen[k] = true
	}
	if err := scm.ValidateMotifKinds(o.SCMKinds); err != nil {
		return err
	}

	counts := []struct {
		name  string
		value int
	}{
		{"n_prompt_obs_samples", o.NPromptObsSamples},
		{"n_obs_samples", o.NObsSamples},
		{"n_mc_samples", o.NMCSamples},
		{"max_attempt_multiplier", o.MaxAttemptMultiplier},
	}
	for _, c := range counts {
		if c.value <= 0 {
			return core.NewInvalidArgumentError(c.name, "must be positive, got %d", c.value)
		}
	}

	if o.N > maxAttemptBudget/o.MaxAttemptMultiplier/max(1, len(o.SCMKinds)) {
		return core.NewInvalidArgumentError("n", "n=%d with max_attempt_multiplier=%d over %d kinds exceeds the attempt budget of %d",
			o.N, o.MaxAttemptMultiplier, len(o.SCMKinds), maxAttemptBudget)
	}

	margins := []struct {
		name  string
		value float64
	}{
		{"tol", o.Tol},
		{"eq_margin", o.EqMargin},
		{"dir_margin", o.DirMargin},
	}
	for _, m := range margins {
		if m.value < 0 || math.IsNaN(m.value) {
			return core.NewInvalidArgumentError(m.name, "must be a non-negative number, got %v", m.value)
		}
	}
	if !(o.XBand > 0) || math.IsInf(o.XBand, 0) {
		return core.NewInvalidArgumentError("x_band", "must be positive and finite, got %v", o.XBand)
	}
	if math.IsNaN(o.DoValue) || math.IsInf(o.DoValue, 0) {
		return core.NewInvalidArgumentError("do_value", "must be finite, got %v", o.DoValue)
	}
	if o.Workers < 0 {
		return core.NewInvalidArgumentError("workers", "must be non-negative, got %d", o.Workers)
	}
	return nil
}

// maxAttempts is the attempt cap for the build
func (o Options) maxAttempts() int {
	limit := max(10, o.N*o.MaxAttemptMultiplier)
	if o.StratifyMotifLabel {
		limit = max(limit, o.N*o.MaxAttemptMultiplier*len(o.SCMKinds))
	}
	return limit
}

func (o Options) workers() int {
	if o.Workers < 1 {
		return 1
	}
	return o.Workers
}
