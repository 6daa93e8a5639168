package builder

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"causalbench/adapters/rng"
	"causalbench/domain/bench"
	"causalbench/domain/core"
	"causalbench/domain/scm"
	"causalbench/internal"
	"causalbench/internal/estimate"
	"causalbench/ports"
)

// smallOptions keeps sampling cheap enough for unit tests
func smallOptions(n int, kinds ...scm.MotifKind) Options {
	opts := DefaultOptions()
	opts.N = n
	opts.Seed = 7
	if len(kinds) > 0 {
		opts.SCMKinds = kinds
	}
	opts.NObsSamples = 1000
	opts.NMCSamples = 1000
	opts.NPromptObsSamples = 500
	opts.Tol = 0.05
	return opts
}

func newTestBuilder(opts ...BuilderOption) *Builder {
	opts = append([]BuilderOption{WithLogger(internal.NewLogger(internal.LogLevelError))}, opts...)
	return NewBuilder(rng.NewPCGAdapter(), opts...)
}

func labelCounts(instances []bench.Instance) map[bench.Label]int {
	counts := make(map[bench.Label]int)
	for _, inst := range instances {
		counts[inst.Gold.Label]++
	}
	return counts
}

func TestBuild_BalancedLabels(t *testing.T) {
	instances, err := newTestBuilder().Build(context.Background(), smallOptions(6))
	require.NoError(t, err)
	require.Len(t, instances, 6)

	counts := labelCounts(instances)
	for _, l := range bench.Labels {
		assert.Equal(t, 2, counts[l], string(l))
	}
	for _, inst := range instances {
		assert.Equal(t, scm.MotifConfounding, inst.SCMKind)
		assert.Equal(t, "intervention_compare_confounding", inst.Task)
		assert.NotEmpty(t, inst.Prompt)
		assert.False(t, inst.InstanceID.IsEmpty())
		assert.Equal(t, 0.25, inst.Gold.Band)
		assert.Equal(t, 500, inst.Gold.NPromptObs)
	}
}

func TestBuild_MarginLabelsMatchGold(t *testing.T) {
	opts := smallOptions(6)
	instances, err := newTestBuilder().Build(context.Background(), opts)
	require.NoError(t, err)

	for _, inst := range instances {
		g := inst.Gold
		label, ok := AssignLabelWithMargins(float64(g.ObsProb), float64(g.DoProb), opts.EqMargin, opts.DirMargin)
		require.True(t, ok, "discarding mode never accepts ambiguous attempts")
		assert.Equal(t, label, g.Label)
		assert.InDelta(t, float64(g.Gap), math.Abs(float64(g.ObsProb)-float64(g.DoProb)), 1e-12)
	}
}

func TestBuild_MultipleMotifsUnbalanced(t *testing.T) {
	kinds := []scm.MotifKind{scm.MotifConfounding, scm.MotifMediation, scm.MotifCollider}
	opts := smallOptions(9, kinds...)
	opts.BalanceLabels = false

	instances, err := newTestBuilder().Build(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, instances, 9)

	seen := make(map[scm.MotifKind]bool)
	for _, inst := range instances {
		seen[inst.SCMKind] = true
		assert.True(t, inst.Gold.Label.Valid())
	}
	for _, k := range kinds {
		assert.True(t, seen[k], string(k))
	}
}

func TestBuild_Stratified(t *testing.T) {
	kinds := []scm.MotifKind{scm.MotifConfounding, scm.MotifBackdoorAdjustable}
	opts := smallOptions(6, kinds...)
	opts.StratifyMotifLabel = true

	instances, err := newTestBuilder().Build(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, instances, 6)

	got := make(map[Bucket]int)
	for _, inst := range instances {
		got[Bucket{Kind: inst.SCMKind, Label: inst.Gold.Label}]++
	}
	assert.Equal(t, TargetBucketCounts(6, kinds), got)
}

func TestBuild_WorkerCountDoesNotChangeOutput(t *testing.T) {
	for _, stratify := range []bool{false, true} {
		opts := smallOptions(6, scm.MotifConfounding, scm.MotifBackdoorAdjustable)
		opts.StratifyMotifLabel = stratify

		opts.Workers = 1
		sequential, err := newTestBuilder().Build(context.Background(), opts)
		require.NoError(t, err)

		opts.Workers = 4
		parallel, err := newTestBuilder().Build(context.Background(), opts)
		require.NoError(t, err)

		require.Len(t, parallel, len(sequential))
		for i := range sequential {
			assert.Equal(t, sequential[i].InstanceID, parallel[i].InstanceID, "stratify=%t", stratify)
			assert.Equal(t, sequential[i].Gold.Label, parallel[i].Gold.Label)
		}
		assert.Equal(t, bench.SetHash(sequential), bench.SetHash(parallel))
	}
}

func TestBuild_StableAcrossRuns(t *testing.T) {
	opts := smallOptions(3)
	first, err := BuildInstances(context.Background(), opts)
	require.NoError(t, err)
	second, err := BuildInstances(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, bench.SetHash(first), bench.SetHash(second))
	ids := make(map[core.InstanceID]bool)
	for _, inst := range first {
		assert.False(t, ids[inst.InstanceID], "instance ids are unique")
		ids[inst.InstanceID] = true
	}

	opts.Seed++
	other, err := BuildInstances(context.Background(), opts)
	require.NoError(t, err)
	assert.NotEqual(t, first[0].InstanceID, other[0].InstanceID)
}

func TestBuild_InfeasibleReturnsBuildError(t *testing.T) {
	opts := smallOptions(2)
	// no comparison can satisfy either margin, so every attempt is ambiguous
	opts.EqMargin = 0
	opts.DirMargin = 1
	opts.MaxAttemptMultiplier = 1

	_, err := newTestBuilder().Build(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrBuild))

	var buildErr *BuildError
	require.True(t, errors.As(err, &buildErr))
	assert.Equal(t, 2, buildErr.Requested)
	assert.Equal(t, 0, buildErr.Accepted)
	assert.Equal(t, 10, buildErr.Attempts)
	assert.Equal(t, 10, buildErr.MaxAttempts)
	assert.Equal(t, 1, buildErr.LabelTargets[bench.LabelObsGtDo])
	assert.Contains(t, err.Error(), "accepted=0")
	assert.Contains(t, err.Error(), "obs_gt_do: 0/1")
}

func TestBuild_StratifiedInfeasibleReturnsBuildError(t *testing.T) {
	opts := smallOptions(6, scm.MotifConfounding, scm.MotifMediation)
	opts.StratifyMotifLabel = true
	opts.EqMargin = 0
	opts.DirMargin = 1
	opts.MaxAttemptMultiplier = 1

	_, err := newTestBuilder().Build(context.Background(), opts)
	var buildErr *BuildError
	require.True(t, errors.As(err, &buildErr))
	assert.True(t, buildErr.Stratified)
	assert.Equal(t, 12, buildErr.MaxAttempts)
	assert.Equal(t, 12, buildErr.Attempts)
	assert.Equal(t, 1, buildErr.BucketTargets[Bucket{Kind: scm.MotifConfounding, Label: bench.LabelObsGtDo}])
	assert.Equal(t, 0, buildErr.BucketCounts[Bucket{Kind: scm.MotifConfounding, Label: bench.LabelObsGtDo}])
	assert.Len(t, buildErr.BucketTargets, 6)

	msg := err.Error()
	assert.Contains(t, msg, "after 12/12 attempts")
	assert.Contains(t, msg, "bucket_counts={confounding/obs_gt_do: 0/1")
	assert.Contains(t, msg, "mediation/approx_equal: 0/1}")
}

func TestBuild_ReducedConfigurationFallsBackToComparisonLabel(t *testing.T) {
	opts := smallOptions(4)
	opts.EqMargin = 0
	opts.DirMargin = 1
	opts.DiscardAmbiguous = false
	opts.BalanceLabels = false

	instances, err := newTestBuilder().Build(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, instances, 4)
	for _, inst := range instances {
		g := inst.Gold
		assert.Equal(t, estimate.LabelFor(float64(g.ObsProb), float64(g.DoProb), opts.Tol), g.Label)
	}
}

func TestBuild_ZeroAndInvalid(t *testing.T) {
	b := newTestBuilder()

	instances, err := b.Build(context.Background(), smallOptions(0))
	require.NoError(t, err)
	assert.Empty(t, instances)

	_, err = b.Build(context.Background(), smallOptions(-1))
	assert.True(t, core.IsInvalidArgument(err))

	opts := smallOptions(3)
	opts.SCMKinds = nil
	_, err = b.Build(context.Background(), opts)
	assert.True(t, core.IsInvalidArgument(err))

	opts.SCMKinds = []scm.MotifKind{"nope", scm.MotifConfounding}
	_, err = b.Build(context.Background(), opts)
	assert.ErrorIs(t, err, core.ErrUnknownMotif)

	opts.SCMKinds = []scm.MotifKind{scm.MotifConfounding, scm.MotifConfounding}
	_, err = b.Build(context.Background(), opts)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	opts = smallOptions(3)
	opts.XBand = 0
	_, err = b.Build(context.Background(), opts)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestOptionsValidate_AttemptBudget(t *testing.T) {
	opts := smallOptions(math.MaxInt/2, scm.MotifConfounding, scm.MotifMediation)
	err := opts.Validate()
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "attempt budget")

	opts.StratifyMotifLabel = true
	opts.N = maxAttemptBudget / opts.MaxAttemptMultiplier / 2
	assert.NoError(t, opts.Validate())
	assert.Equal(t, opts.N*opts.MaxAttemptMultiplier*2, opts.maxAttempts())

	opts.N++
	assert.ErrorIs(t, opts.Validate(), core.ErrInvalidArgument)
}

func TestBuild_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestBuilder().Build(ctx, smallOptions(3))
	assert.ErrorIs(t, err, context.Canceled)
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
	accepted int
	finished bool
	ok       bool
	attempts int
}

func (r *countingRecorder) AttemptEvaluated(_ string, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = make(map[string]int)
	}
	r.outcomes[outcome]++
}

func (r *countingRecorder) InstanceAccepted(string, string, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accepted++
}

func (r *countingRecorder) BuildFinished(ok bool, attempts int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished, r.ok, r.attempts = true, ok, attempts
}

var _ ports.BuildRecorder = (*countingRecorder)(nil)

func TestBuild_RecorderSeesEveryAttempt(t *testing.T) {
	rec := &countingRecorder{}
	instances, err := newTestBuilder(WithRecorder(rec)).Build(context.Background(), smallOptions(6))
	require.NoError(t, err)

	assert.True(t, rec.finished)
	assert.True(t, rec.ok)
	assert.Equal(t, len(instances), rec.accepted)
	assert.Equal(t, len(instances), rec.outcomes[ports.OutcomeAccepted])
	total := 0
	for _, n := range rec.outcomes {
		total += n
	}
	assert.Equal(t, rec.attempts, total)
}
