package ports

// Attempt outcomes reported to a BuildRecorder
const (
	OutcomeAccepted  = "accepted"
	OutcomeAmbiguous = "ambiguous"
	OutcomeQuotaFull = "quota_full"
)

// BuildRecorder observes instance building. Implementations must not
// influence acceptance decisions.
type BuildRecorder interface {
	// AttemptEvaluated is called once per processed attempt, in attempt order
	AttemptEvaluated(kind, outcome string)

	// InstanceAccepted is called for every accepted instance with its gold label
	InstanceAccepted(kind, label string, gap float64)

	// BuildFinished is called once when Build returns
	BuildFinished(ok bool, attempts int)
}

// NopRecorder discards all build events
type NopRecorder struct{}

func (NopRecorder) AttemptEvaluated(string, string)          {}
func (NopRecorder) InstanceAccepted(string, string, float64) {}
func (NopRecorder) BuildFinished(bool, int)                  {}
