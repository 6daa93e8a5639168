package builder

import (
	"math"

	"causalbench/domain/bench"
)

// AssignLabelWithMargins labels the obs/do relation with a dead zone:
// gap < eqMargin is approx_equal, a signed difference beyond dirMargin picks
// a direction, anything else is ambiguous (ok == false). NaN inputs are
// ambiguous.
func AssignLabelWithMargins(obsProb, doProb, eqMargin, dirMargin float64) (label bench.Label, ok bool) {
	diff := obsProb - doProb
	gap := math.Abs(diff)
	switch {
	case gap < eqMargin:
		return bench.LabelApproxEqual, true
	case diff > dirMargin:
		return bench.LabelObsGtDo, true
	case -diff > dirMargin:
		return bench.LabelDoGtObs, true
	}
	return "", false
}
