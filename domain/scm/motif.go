package scm

import (
	"sort"
	"strings"

	"causalbench/domain/core"
)

// MotifKind names a causal-graph template
type MotifKind string

const (
	MotifConfounding          MotifKind = "confounding"
	MotifMediation            MotifKind = "mediation"
	MotifCollider             MotifKind = "collider"
	MotifInstrumentalVariable MotifKind = "instrumental_variable"
	MotifAntiCausal           MotifKind = "anti_causal"
	MotifBackdoorAdjustable   MotifKind = "backdoor_adjustable"
	MotifConfoundingOnly      MotifKind = "confounding_only"
	MotifNoConfounding        MotifKind = "no_confounding"
)

// DefaultMotifKinds is used when no kinds are requested
var DefaultMotifKinds = []MotifKind{MotifConfounding}

// Motif is the fixed description of one template
type Motif struct {
	Kind        MotifKind
	Edges       []Edge
	Unobserved  []string
	Description string
}

// IsUnobserved reports whether node must be hidden from prompts
func (m Motif) IsUnobserved(node string) bool {
	for _, u := range m.Unobserved {
		if u == node {
			return true
		}
	}
	return false
}

// EdgeList renders the edges as "A->B, C->D"
func (m Motif) EdgeList() string {
	parts := make([]string, len(m.Edges))
	for i, e := range m.Edges {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

// motifOrder is the canonical catalog order
var motifOrder = []MotifKind{
	MotifConfounding,
	MotifMediation,
	MotifCollider,
	MotifInstrumentalVariable,
	MotifAntiCausal,
	MotifBackdoorAdjustable,
	MotifConfoundingOnly,
	MotifNoConfounding,
}

var catalog = map[MotifKind]Motif{
	MotifConfounding: {
		Kind:        MotifConfounding,
		Edges:       []Edge{{"U", "X"}, {"U", "Y"}, {"X", "Y"}},
		Unobserved:  []string{"U"},
		Description: "U -> X, U -> Y, X -> Y. U is unobserved.",
	},
	MotifMediation: {
		Kind:        MotifMediation,
		Edges:       []Edge{{"X", "M"}, {"M", "Y"}},
		Description: "X -> M -> Y.",
	},
	MotifCollider: {
		Kind:        MotifCollider,
		Edges:       []Edge{{"X", "Y"}, {"X", "Z"}, {"Y", "Z"}},
		Description: "X -> Y, X -> Z, Y -> Z (collider at Z).",
	},
	MotifInstrumentalVariable: {
		Kind:        MotifInstrumentalVariable,
		Edges:       []Edge{{"Z", "X"}, {"X", "Y"}, {"U", "X"}, {"U", "Y"}},
		Unobserved:  []string{"U"},
		Description: "Z -> X -> Y, U -> X, U -> Y, with Z independent of U.",
	},
	MotifAntiCausal: {
		Kind:        MotifAntiCausal,
		Edges:       []Edge{{"Y", "X"}, {"U", "X"}, {"U", "Y"}},
		Unobserved:  []string{"U"},
		Description: "Y -> X, U -> X, U -> Y.",
	},
	MotifBackdoorAdjustable: {
		Kind:        MotifBackdoorAdjustable,
		Edges:       []Edge{{"W", "X"}, {"W", "Y"}, {"X", "Y"}},
		Description: "W -> X, W -> Y, X -> Y. W is observed and backdoor-adjustable.",
	},
	MotifConfoundingOnly: {
		Kind:        MotifConfoundingOnly,
		Edges:       []Edge{{"U", "X"}, {"U", "Y"}},
		Unobserved:  []string{"U"},
		Description: "U -> X, U -> Y, no X -> Y edge. U is unobserved.",
	},
	MotifNoConfounding: {
		Kind:        MotifNoConfounding,
		Edges:       []Edge{{"X", "Y"}},
		Description: "X -> Y with no common cause.",
	},
}

// AllMotifKinds returns every catalog kind in canonical order
func AllMotifKinds() []MotifKind {
	return append([]MotifKind(nil), motifOrder...)
}

// LookupMotif returns the descriptor of kind. The returned slices are copies.
func LookupMotif(kind MotifKind) (Motif, error) {
	m, ok := catalog[kind]
	if !ok {
		return Motif{}, core.NewUnknownMotifError(string(kind))
	}
	m.Edges = append([]Edge(nil), m.Edges...)
	m.Unobserved = append([]string(nil), m.Unobserved...)
	return m, nil
}

// MakeSCM instantiates a fresh model of kind with parameters drawn from seed
func MakeSCM(kind MotifKind, seed int64) (*LinearGaussianSCM, error) {
	m, ok := catalog[kind]
	if !ok {
		return nil, core.NewUnknownMotifError(string(kind))
	}
	return NewLinearGaussianSCM(m.Edges, seed)
}

// ValidateMotifKinds fails with ErrUnknownMotif listing every unknown kind
func ValidateMotifKinds(kinds []MotifKind) error {
	var unknown []string
	for _, k := range kinds {
		if _, ok := catalog[k]; !ok {
			unknown = append(unknown, string(k))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return core.NewUnknownMotifError(unknown...)
	}
	return nil
}

// ParseMotifKinds parses a comma separated list. Empty input yields the
// default kinds and "all" yields the full catalog.
func ParseMotifKinds(list string) ([]MotifKind, error) {
	raw := strings.ToLower(strings.TrimSpace(list))
	if raw == "" {
		return append([]MotifKind(nil), DefaultMotifKinds...), nil
	}
	if raw == "all" {
		return AllMotifKinds(), nil
	}

	var kinds []MotifKind
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			kinds = append(kinds, MotifKind(p))
		}
	}
	if len(kinds) == 0 {
		return append([]MotifKind(nil), DefaultMotifKinds...), nil
	}
	if err := ValidateMotifKinds(kinds); err != nil {
		return nil, err
	}
	return kinds, nil
}
