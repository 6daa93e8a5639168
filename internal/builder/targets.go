package builder

import (
	"fmt"

	"causalbench/domain/bench"
	"causalbench/domain/scm"
)

// Bucket is a (motif, label) stratum
type Bucket struct {
	Kind  scm.MotifKind
	Label bench.Label
}

func (b Bucket) String() string {
	return fmt.Sprintf("%s/%s", b.Kind, b.Label)
}

// TargetLabelCounts splits n across the labels as evenly as possible; the
// remainder goes to the first labels in canonical order
func TargetLabelCounts(n int) map[bench.Label]int {
	counts := make(map[bench.Label]int, len(bench.Labels))
	base, rem := n/len(bench.Labels), n%len(bench.Labels)
	for i, l := range bench.Labels {
		counts[l] = base
		if i < rem {
			counts[l]++
		}
	}
	return counts
}

// BucketOrder lists buckets motif-major, label-minor
func BucketOrder(kinds []scm.MotifKind) []Bucket {
	buckets := make([]Bucket, 0, len(kinds)*len(bench.Labels))
	for _, k := range kinds {
		for _, l := range bench.Labels {
			buckets = append(buckets, Bucket{Kind: k, Label: l})
		}
	}
	return buckets
}

// TargetBucketCounts splits n evenly over every (motif, label) bucket with
// the remainder going to the first buckets in BucketOrder
func TargetBucketCounts(n int, kinds []scm.MotifKind) map[Bucket]int {
	order := BucketOrder(kinds)
	counts := make(map[Bucket]int, len(order))
	if len(order) == 0 {
		return counts
	}
	base, rem := n/len(order), n%len(order)
	for i, b := range order {
		counts[b] = base
		if i < rem {
			counts[b]++
		}
	}
	return counts
}

// quotaState tracks accepted counts against targets. It is only touched by
// the sequential acceptance loop.
type quotaState struct {
	kinds         []scm.MotifKind
	stratify      bool
	labelTargets  map[bench.Label]int
	labelCounts   map[bench.Label]int
	bucketTargets map[Bucket]int
	bucketCounts  map[Bucket]int
}

func newQuotaState(n int, kinds []scm.MotifKind, stratify bool) *quotaState {
	return &quotaState{
		kinds:         kinds,
		stratify:      stratify,
		labelTargets:  TargetLabelCounts(n),
		labelCounts:   make(map[bench.Label]int, len(bench.Labels)),
		bucketTargets: TargetBucketCounts(n, kinds),
		bucketCounts:  make(map[Bucket]int, len(kinds)*len(bench.Labels)),
	}
}

// candidateKinds returns the motifs eligible for the next attempt: all of
// them, or when stratifying only those with an under-quota bucket
func (q *quotaState) candidateKinds() []scm.MotifKind {
	if !q.stratify {
		return q.kinds
	}
	var out []scm.MotifKind
	for _, k := range q.kinds {
		for _, l := range bench.Labels {
			b := Bucket{Kind: k, Label: l}
			if q.bucketCounts[b] < q.bucketTargets[b] {
				out = append(out, k)
				break
			}
		}
	}
	return out
}

// kindFor picks the motif of attempt by round robin over the candidates
func (q *quotaState) kindFor(attempt int) (scm.MotifKind, bool) {
	c := q.candidateKinds()
	if len(c) == 0 {
		return "", false
	}
	return c[attempt%len(c)], true
}

// full reports whether accepting label for kind would exceed its quota
func (q *quotaState) full(kind scm.MotifKind, label bench.Label) bool {
	if q.stratify {
		b := Bucket{Kind: kind, Label: label}
		return q.bucketCounts[b] >= q.bucketTargets[b]
	}
	return q.labelCounts[label] >= q.labelTargets[label]
}

func (q *quotaState) accept(kind scm.MotifKind, label bench.Label) {
	q.labelCounts[label]++
	q.bucketCounts[Bucket{Kind: kind, Label: label}]++
}
