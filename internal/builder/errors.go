package builder

import (
	"fmt"
	"strings"

	"causalbench/domain/bench"
	"causalbench/domain/core"
	"causalbench/domain/scm"
)

// BuildError reports a build that ran out of attempts before reaching the
// requested count. It matches core.ErrBuild with errors.Is.
type BuildError struct {
	Requested   int
	Accepted    int
	Attempts    int
	MaxAttempts int
	Kinds       []scm.MotifKind
	Stratified  bool

	LabelCounts   map[bench.Label]int
	LabelTargets  map[bench.Label]int
	BucketCounts  map[Bucket]int
	BucketTargets map[Bucket]int
}

func newBuildError(opts Options, q *quotaState, accepted, attempts int) *BuildError {
	e := &BuildError{
		Requested:     opts.N,
		Accepted:      accepted,
		Attempts:      attempts,
		MaxAttempts:   opts.maxAttempts(),
		Kinds:         append([]scm.MotifKind(nil), opts.SCMKinds...),
		Stratified:    opts.StratifyMotifLabel,
		LabelCounts:   make(map[bench.Label]int, len(bench.Labels)),
		LabelTargets:  make(map[bench.Label]int, len(bench.Labels)),
		BucketCounts:  make(map[Bucket]int, len(q.bucketTargets)),
		BucketTargets: make(map[Bucket]int, len(q.bucketTargets)),
	}
	for _, l := range bench.Labels {
		e.LabelCounts[l] = q.labelCounts[l]
		e.LabelTargets[l] = q.labelTargets[l]
	}
	for _, b := range BucketOrder(opts.SCMKinds) {
		e.BucketCounts[b] = q.bucketCounts[b]
		e.BucketTargets[b] = q.bucketTargets[b]
	}
	return e
}

func (e *BuildError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "could not build %d instances with requested balance from scm kinds %v: accepted=%d after %d/%d attempts",
		e.Requested, e.Kinds, e.Accepted, e.Attempts, e.MaxAttempts)

	sb.WriteString(" label_counts={")
	for i, l := range bench.Labels {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %d/%d", l, e.LabelCounts[l], e.LabelTargets[l])
	}
	sb.WriteString("}")

	if e.Stratified {
		sb.WriteString(" bucket_counts={")
		for i, b := range BucketOrder(e.Kinds) {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s: %d/%d", b, e.BucketCounts[b], e.BucketTargets[b])
		}
		sb.WriteString("}")
	}
	return sb.String()
}

func (e *BuildError) Unwrap() error {
	return core.ErrBuild
}
