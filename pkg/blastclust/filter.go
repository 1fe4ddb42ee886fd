// Package blastclust builds sequence families from blast reports by
// incremental union of filtered hits.
package blastclust

import (
	"fmt"

	"github.com/yumyai/phyloclust/pkg/model"
)

// Hit is one tabular blast record (-outfmt 6 column order).
type Hit struct {
	Query       string
	Subject     string
	PctIdentity float64
	AlignLength int
	Mismatches  int
	GapOpenings int
	QStart      int
	QEnd        int
	SStart      int
	SEnd        int
	EValue      float64
	BitScore    float64
}

// Self reports whether the hit is the query matched against itself.
func (h *Hit) Self() bool {
	return h.Query == h.Subject
}

// Condition is one (field, comparator, integer-threshold) triple. The
// comparator set is the shared model enumeration.
type Condition struct {
	Field     string
	Op        model.Comparator
	Threshold int
}

// Filter admits a hit only when every condition passes.
type Filter []Condition

// fieldValue resolves a filterable numeric field, accepting the short
// aliases the run files use.
func fieldValue(h *Hit, field string) (float64, error) {
	switch field {
	case "pct_identity", "percent_identity", "pct":
		return h.PctIdentity, nil
	case "align_length", "length", "aln":
		return float64(h.AlignLength), nil
	case "mismatches":
		return float64(h.Mismatches), nil
	case "gap_openings", "gaps":
		return float64(h.GapOpenings), nil
	case "q_start":
		return float64(h.QStart), nil
	case "q_end":
		return float64(h.QEnd), nil
	case "s_start":
		return float64(h.SStart), nil
	case "s_end":
		return float64(h.SEnd), nil
	case "e_value", "evalue":
		return h.EValue, nil
	case "bit_score", "score":
		return h.BitScore, nil
	}
	return 0, &model.InputError{Msg: fmt.Sprintf("unknown filter field %q", field)}
}

// Match evaluates the conjunction of all conditions against a hit.
func (f Filter) Match(h *Hit) (bool, error) {
	for _, c := range f {
		v, err := fieldValue(h, c.Field)
		if err != nil {
			return false, err
		}
		if !c.Op.Eval(v, float64(c.Threshold)) {
			return false, nil
		}
	}
	return true, nil
}
