package builder

import (
	"fmt"
	"math"
	"strings"

	"causalbench/domain/bench"
	"causalbench/domain/scm"
	"causalbench/internal/estimate"
	"causalbench/internal/simulate"
)

// PromptParams controls what the prompt reports
type PromptParams struct {
	NObs       int
	XValue     float64
	XBand      float64
	LabelOrder []bench.Label
}

// PromptFeatures are the numbers shown to the model that a heuristic
// baseline would read back
type PromptFeatures struct {
	AHat          float64
	DeltaBaseline float64
	CIWidth       float64
	NInBand       int
}

// RenderPrompt formats the observational summary of table for kind. Nodes
// the motif marks unobserved are named but never summarized.
func RenderPrompt(kind scm.MotifKind, table simulate.SampleTable, p PromptParams) (string, PromptFeatures, error) {
	motif, err := scm.LookupMotif(kind)
	if err != nil {
		return "", PromptFeatures{}, err
	}
	x, err := table.Column(estimate.XNode)
	if err != nil {
		return "", PromptFeatures{}, err
	}
	y, err := table.Column(estimate.YNode)
	if err != nil {
		return "", PromptFeatures{}, err
	}

	aHat, err := estimate.EstimateObsProb(table, estimate.XNode, estimate.YNode, p.XValue, p.XBand)
	if err != nil {
		return "", PromptFeatures{}, err
	}
	baseline := estimate.FractionPositive(y)
	nInBand := estimate.CountInBand(x, p.XValue, p.XBand)
	ciLow, ciHigh := estimate.WaldInterval(aHat, nInBand)
	sx, sy := estimate.Summarize(x), estimate.Summarize(y)

	features := PromptFeatures{
		AHat:          aHat,
		DeltaBaseline: aHat - baseline,
		CIWidth:       ciHigh - ciLow,
		NInBand:       nInBand,
	}

	unobserved := "none"
	if len(motif.Unobserved) > 0 {
		unobserved = strings.Join(motif.Unobserved, ", ")
	}

	var extra []string
	for _, node := range table.Nodes() {
		if node == estimate.XNode || node == estimate.YNode || motif.IsUnobserved(node) {
			continue
		}
		extra = append(extra, fmt.Sprintf("- mean(%s): %s", node, fmtStat(estimate.Summarize(table[node]).Mean)))
	}

	answers := make([]string, len(p.LabelOrder))
	for i, l := range p.LabelOrder {
		answers[i] = fmt.Sprintf(`{"label":"%s"}`, l)
	}

	xv, xb := p.XValue, p.XBand
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task: %s\n", bench.TaskName(kind))
	fmt.Fprintf(&sb, "Causal DAG edges: %s\n", motif.EdgeList())
	fmt.Fprintf(&sb, "Unobserved variables: %s\n", unobserved)
	fmt.Fprintf(&sb, "Motif note: %s\n", motif.Description)
	sb.WriteString("We care about P(Y > 0).\n\n")
	sb.WriteString("From N observational samples, you are given these empirical summaries:\n")
	fmt.Fprintf(&sb, "- N = %d\n", p.NObs)
	fmt.Fprintf(&sb, "- Conditioning band: |X-%.1f| <= %.1f\n", xv, xb)
	fmt.Fprintf(&sb, "- Estimated A = P(Y > 0 | X ~ %.1f) using band |X-%.1f|<=%.1f: %s\n", xv, xv, xb, fmtStat(aHat))
	fmt.Fprintf(&sb, "- Approx 95%% CI for A_hat: [%s, %s]\n", fmtStat(ciLow), fmtStat(ciHigh))
	fmt.Fprintf(&sb, "- delta(A_hat - baseline): %s\n", fmtStat(features.DeltaBaseline))
	fmt.Fprintf(&sb, "- Count in band: %d\n", nInBand)
	fmt.Fprintf(&sb, "- Baseline P(Y > 0): %s\n", fmtStat(baseline))
	fmt.Fprintf(&sb, "- mean(X): %s\n", fmtStat(sx.Mean))
	fmt.Fprintf(&sb, "- mean(Y): %s\n", fmtStat(sy.Mean))
	fmt.Fprintf(&sb, "- std(X): %s\n", fmtStat(sx.Std))
	fmt.Fprintf(&sb, "- std(Y): %s\n", fmtStat(sy.Std))
	fmt.Fprintf(&sb, "- beta_hat (OLS slope of Y on X): %s\n", fmtStat(estimate.OLSSlope(x, y)))
	fmt.Fprintf(&sb, "- corr(X, Y): %s\n", fmtStat(estimate.Correlation(x, y)))
	sb.WriteString(strings.Join(extra, "\n"))
	sb.WriteString("\n\n")
	sb.WriteString("Now decide which is larger:\n")
	fmt.Fprintf(&sb, "A = P(Y > 0 | X ~ %.1f)  (observational)\n", xv)
	fmt.Fprintf(&sb, "B = P(Y > 0 | do(X = %.1f)) (interventional)\n\n", xv)
	sb.WriteString("Label mapping:\n")
	sb.WriteString("- if B > A, return do_gt_obs\n")
	sb.WriteString("- if A > B, return obs_gt_do\n")
	sb.WriteString("- if A and B are close, return approx_equal\n")
	sb.WriteString("Practical rubric for this benchmark:\n")
	sb.WriteString("- when delta(A_hat - baseline) <= -0.08 with a tight CI, B is often larger (lean do_gt_obs)\n")
	sb.WriteString("- when delta(A_hat - baseline) >= 0.08 with a tight CI, A is often larger (lean obs_gt_do)\n")
	sb.WriteString("- when delta is near 0 or CI is wide, lean approx_equal\n")
	sb.WriteString("Heuristic: if A_hat is very close to baseline P(Y > 0) and evidence is weak, prefer approx_equal.\n")
	fmt.Fprintf(&sb, "Return ONLY JSON: %s.\n", strings.Join(answers, " or "))

	return sb.String(), features, nil
}

func fmtStat(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return fmt.Sprintf("%.4f", v)
}
