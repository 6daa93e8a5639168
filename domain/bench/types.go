package bench

import (
	"encoding/json"
	"fmt"
	"math"

	"causalbench/domain/core"
	"causalbench/domain/scm"
)

// Label compares P(Y>0 | X≈x) (observational) with P(Y>0 | do(X=x))
type Label string

const (
	LabelObsGtDo     Label = "obs_gt_do"
	LabelDoGtObs     Label = "do_gt_obs"
	LabelApproxEqual Label = "approx_equal"
)

// Labels lists every label in canonical order. Quota remainders go to the
// front of this list.
var Labels = []Label{LabelObsGtDo, LabelDoGtObs, LabelApproxEqual}

// Valid reports whether l is one of the three benchmark labels
func (l Label) Valid() bool {
	switch l {
	case LabelObsGtDo, LabelDoGtObs, LabelApproxEqual:
		return true
	}
	return false
}

// TaskPrefix prefixes the motif kind in an instance's task name
const TaskPrefix = "intervention_compare_"

// TaskName returns the task name for kind
func TaskName(kind scm.MotifKind) string {
	return TaskPrefix + string(kind)
}

// Prob is a probability-like value that marshals NaN as JSON null
type Prob float64

// IsNaN reports whether the value could not be estimated
func (p Prob) IsNaN() bool {
	return math.IsNaN(float64(p))
}

func (p Prob) MarshalJSON() ([]byte, error) {
	f := float64(p)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

func (p *Prob) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Prob(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("prob: %w", err)
	}
	*p = Prob(f)
	return nil
}

// Comparison is the outcome of comparing observational and interventional
// probabilities for one model
type Comparison struct {
	ObsProb float64
	DoProb  float64
	Label   Label
}

// MarshalJSON encodes an unestimable ObsProb as null
func (c Comparison) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ObsProb Prob  `json:"obs_prob"`
		DoProb  Prob  `json:"do_prob"`
		Label   Label `json:"label"`
	}{Prob(c.ObsProb), Prob(c.DoProb), c.Label})
}

// Gold is the ground-truth record attached to an instance. Scorers compare
// a model's {"label": ...} answer against Label.
type Gold struct {
	Label     Label   `json:"label"`
	ObsProb   Prob    `json:"obs_prob"`
	DoProb    Prob    `json:"do_prob"`
	Gap       Prob    `json:"gap"`
	Tol       float64 `json:"tol"`
	EqMargin  float64 `json:"eq_margin"`
	DirMargin float64 `json:"dir_margin"`
	Band      float64 `json:"band"`
	DoValue   float64 `json:"do_value"`

	NObs       int `json:"n_obs"`
	NMC        int `json:"n_mc"`
	NPromptObs int `json:"n_prompt_obs"`

	// Features shown in the prompt, kept so baselines need not parse text
	PromptAHat          Prob `json:"prompt_a_hat"`
	PromptDeltaBaseline Prob `json:"prompt_delta_a_baseline"`
	PromptCIWidth       Prob `json:"prompt_ci_width"`
	PromptNInBand       int  `json:"prompt_n_in_band"`
}

// Instance is one immutable benchmark item
type Instance struct {
	InstanceID core.InstanceID `json:"instance_id"`
	Task       string          `json:"task"`
	SCMKind    scm.MotifKind   `json:"scm_kind"`
	Prompt     string          `json:"prompt"`
	Gold       Gold            `json:"gold"`
}

// HashFields returns the fields that identify the instance in a set hash
func (i Instance) HashFields() []string {
	return []string{
		i.InstanceID.String(),
		i.Task,
		string(i.Gold.Label),
		fmt.Sprintf("%.17g", float64(i.Gold.ObsProb)),
		fmt.Sprintf("%.17g", float64(i.Gold.DoProb)),
		i.Prompt,
	}
}

// SetHash fingerprints an ordered instance set
func SetHash(instances []Instance) core.InstanceSetHash {
	records := make([][]string, len(instances))
	for i, inst := range instances {
		records[i] = inst.HashFields()
	}
	return core.ComputeInstanceSetHash(records)
}
