// Package builder builds labeled intervention-comparison instances by
// rejection sampling random motif models until label quotas are met.
package builder

import (
	"context"
	"math"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"causalbench/adapters/rng"
	"causalbench/domain/bench"
	"causalbench/domain/core"
	"causalbench/domain/scm"
	"causalbench/internal"
	"causalbench/internal/estimate"
	"causalbench/internal/simulate"
	"causalbench/ports"
)

// Seed offsets for the independent streams of one attempt
const (
	goldObsSeedOffset    = 100_000
	compareSeedOffset    = 200_000
	promptObsSeedOffset  = 300_000
	labelOrderSeedOffset = 400_000
)

// Builder turns build options into a deterministic instance set
type Builder struct {
	rng      ports.RNGPort
	sim      *simulate.Simulator
	est      *estimate.Estimator
	recorder ports.BuildRecorder
	logger   *internal.Logger
}

// BuilderOption customizes a Builder
type BuilderOption func(*Builder)

// WithRecorder attaches a build event recorder
func WithRecorder(r ports.BuildRecorder) BuilderOption {
	return func(b *Builder) {
		if r != nil {
			b.recorder = r
		}
	}
}

// WithLogger replaces the default logger
func WithLogger(l *internal.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a builder drawing all randomness from source
func NewBuilder(source ports.RNGPort, opts ...BuilderOption) *Builder {
	sim := simulate.NewSimulator(source)
	b := &Builder{
		rng:      source,
		sim:      sim,
		est:      estimate.NewEstimator(sim),
		recorder: ports.NopRecorder{},
		logger:   internal.DefaultLogger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildInstances builds with the default PCG source
func BuildInstances(ctx context.Context, opts Options) ([]bench.Instance, error) {
	return NewBuilder(rng.NewPCGAdapter()).Build(ctx, opts)
}

// evaluation is the seed-determined part of one attempt
type evaluation struct {
	kind      scm.MotifKind
	model     *scm.LinearGaussianSCM
	cmp       bench.Comparison
	label     bench.Label
	ambiguous bool
}

// Build returns exactly opts.N instances or an error. The result depends only
// on opts, never on opts.Workers.
func (b *Builder) Build(ctx context.Context, opts Options) ([]bench.Instance, error) {
	if opts.N < 0 {
		return nil, core.NewInvalidArgumentError("n", "must be non-negative, got %d", opts.N)
	}
	if opts.N == 0 {
		return []bench.Instance{}, nil
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	maxAttempts := opts.maxAttempts()
	workers := opts.workers()
	q := newQuotaState(opts.N, opts.SCMKinds, opts.StratifyMotifLabel)
	instances := make([]bench.Instance, 0, opts.N)

	b.logger.Info("building %d instances: kinds=%v seed=%d balance=%t stratify=%t max_attempts=%d workers=%d",
		opts.N, opts.SCMKinds, opts.Seed, opts.BalanceLabels, opts.StratifyMotifLabel, maxAttempts, workers)

	attempt := 0
	ok := false
	defer func() { b.recorder.BuildFinished(ok, attempt) }()

build:
	for len(instances) < opts.N && attempt < maxAttempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		window := min(workers, maxAttempts-attempt)
		planned := make([]scm.MotifKind, 0, window)
		for i := 0; i < window; i++ {
			kind, found := q.kindFor(attempt + i)
			if !found {
				break
			}
			planned = append(planned, kind)
		}
		if len(planned) == 0 {
			break
		}
		speculative, err := b.evaluateWindow(ctx, opts, attempt, planned, workers)
		if err != nil {
			return nil, err
		}

		for i := range planned {
			if len(instances) >= opts.N {
				break build
			}
			kind, found := q.kindFor(attempt)
			if !found {
				break build
			}
			ev := speculative[i]
			if ev.kind != kind {
				// quota changes inside the window moved the round robin
				if ev, err = b.evaluate(opts, attempt, kind); err != nil {
					return nil, err
				}
			}

			inst, accepted, err := b.consider(opts, q, attempt, len(instances), ev)
			if err != nil {
				return nil, err
			}
			if accepted {
				instances = append(instances, inst)
			}
			attempt++
		}
	}

	if len(instances) < opts.N {
		buildErr := newBuildError(opts, q, len(instances), attempt)
		b.logger.Warn("attempt budget exhausted: %v", buildErr)
		return nil, buildErr
	}

	ok = true
	b.logger.Info("built %d instances in %d attempts: %v", len(instances), attempt, q.labelCounts)
	return instances, nil
}

// evaluateWindow runs the planned attempts starting at first concurrently.
// Each attempt uses only its own seeds so results do not depend on scheduling.
func (b *Builder) evaluateWindow(ctx context.Context, opts Options, first int, planned []scm.MotifKind, workers int) ([]evaluation, error) {
	results := make([]evaluation, len(planned))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, kind := range planned {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ev, err := b.evaluate(opts, first+i, kind)
			if err != nil {
				return err
			}
			results[i] = ev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// evaluate draws the model of one attempt and labels its obs/do comparison
func (b *Builder) evaluate(opts Options, attempt int, kind scm.MotifKind) (evaluation, error) {
	a := int64(attempt)
	model, err := scm.MakeSCM(kind, opts.Seed+a)
	if err != nil {
		return evaluation{}, err
	}
	goldObs, err := b.sim.Sample(model, opts.NObsSamples, opts.Seed+goldObsSeedOffset+a, nil)
	if err != nil {
		return evaluation{}, err
	}
	cmp, err := b.est.CompareObsVsDo(model, map[string]float64{estimate.XNode: opts.DoValue}, estimate.CompareOptions{
		NObs:    opts.NObsSamples,
		NMC:     opts.NMCSamples,
		Seed:    opts.Seed + compareSeedOffset + a,
		Tol:     opts.Tol,
		Band:    opts.XBand,
		ObsData: goldObs,
	})
	if err != nil {
		return evaluation{}, err
	}

	label, decided := AssignLabelWithMargins(cmp.ObsProb, cmp.DoProb, opts.EqMargin, opts.DirMargin)
	return evaluation{kind: kind, model: model, cmp: cmp, label: label, ambiguous: !decided}, nil
}

// consider applies the discard and quota rules to ev and renders the
// instance when it is accepted
func (b *Builder) consider(opts Options, q *quotaState, attempt, count int, ev evaluation) (bench.Instance, bool, error) {
	kind := string(ev.kind)
	if ev.ambiguous && opts.DiscardAmbiguous {
		b.logger.Trace("attempt %d (%s): ambiguous obs=%.4f do=%.4f", attempt, kind, ev.cmp.ObsProb, ev.cmp.DoProb)
		b.recorder.AttemptEvaluated(kind, ports.OutcomeAmbiguous)
		return bench.Instance{}, false, nil
	}
	label := ev.label
	if ev.ambiguous {
		label = ev.cmp.Label
	}
	if opts.BalanceLabels && q.full(ev.kind, label) {
		b.logger.Trace("attempt %d (%s): quota for %s is full", attempt, kind, label)
		b.recorder.AttemptEvaluated(kind, ports.OutcomeQuotaFull)
		return bench.Instance{}, false, nil
	}

	a := int64(attempt)
	promptObs, err := b.sim.Sample(ev.model, opts.NPromptObsSamples, opts.Seed+promptObsSeedOffset+a, nil)
	if err != nil {
		return bench.Instance{}, false, err
	}
	prompt, features, err := RenderPrompt(ev.kind, promptObs, PromptParams{
		NObs:       opts.NPromptObsSamples,
		XValue:     opts.DoValue,
		XBand:      opts.XBand,
		LabelOrder: b.labelOrder(opts.Seed + labelOrderSeedOffset + a),
	})
	if err != nil {
		return bench.Instance{}, false, err
	}

	gap := math.Abs(ev.cmp.ObsProb - ev.cmp.DoProb)
	inst := bench.Instance{
		InstanceID: core.NewInstanceID(opts.Seed, attempt, kind, count),
		Task:       bench.TaskName(ev.kind),
		SCMKind:    ev.kind,
		Prompt:     prompt,
		Gold: bench.Gold{
			Label:     label,
			ObsProb:   bench.Prob(ev.cmp.ObsProb),
			DoProb:    bench.Prob(ev.cmp.DoProb),
			Gap:       bench.Prob(gap),
			Tol:       opts.Tol,
			EqMargin:  opts.EqMargin,
			DirMargin: opts.DirMargin,
			Band:      opts.XBand,
			DoValue:   opts.DoValue,

			NObs:       opts.NObsSamples,
			NMC:        opts.NMCSamples,
			NPromptObs: opts.NPromptObsSamples,

			PromptAHat:          bench.Prob(features.AHat),
			PromptDeltaBaseline: bench.Prob(features.DeltaBaseline),
			PromptCIWidth:       bench.Prob(features.CIWidth),
			PromptNInBand:       features.NInBand,
		},
	}

	q.accept(ev.kind, label)
	b.recorder.AttemptEvaluated(kind, ports.OutcomeAccepted)
	b.recorder.InstanceAccepted(kind, string(label), gap)
	b.logger.Debug("attempt %d (%s): accepted %s gap=%.4f", attempt, kind, label, gap)
	return inst, true, nil
}

// labelOrder permutes the answer labels with a dedicated stream
func (b *Builder) labelOrder(seed int64) []bench.Label {
	perm := rand.New(b.rng.Source(seed)).Perm(len(bench.Labels))
	order := make([]bench.Label, len(perm))
	for i, p := range perm {
		order[i] = bench.Labels[p]
	}
	return order
}
