package model

import (
	"fmt"
	"strings"

	"github.com/evolbioinfo/goalign/align"
)

// Gap is the canonical gap character. ACE padding '*' is translated to it
// on ingest.
const Gap = '-'

// Row is one gapped sequence placed in an alignment. Start and End are the
// 1-based first and last non-gap columns; both are 0 for an all-gap row.
// Strand is +1 or -1.
type Row struct {
	MemberID string
	Start    int
	End      int
	Strand   int8
	Gapped   string
}

// extents recomputes Start/End from the gapped string.
func (r *Row) extents() {
	r.Start, r.End = 0, 0
	for i := 0; i < len(r.Gapped); i++ {
		if r.Gapped[i] != Gap {
			r.Start = i + 1
			break
		}
	}
	for i := len(r.Gapped) - 1; i >= 0; i-- {
		if r.Gapped[i] != Gap {
			r.End = i + 1
			break
		}
	}
}

// Ungapped returns the row with gap columns stripped.
func (r *Row) Ungapped() string {
	var b strings.Builder
	b.Grow(len(r.Gapped))
	for i := 0; i < len(r.Gapped); i++ {
		if r.Gapped[i] != Gap {
			b.WriteByte(r.Gapped[i])
		}
	}
	return b.String()
}

// Alignment is an ordered collection of rows of equal gapped length,
// with an optional consensus and metadata from the producing program.
type Alignment struct {
	rows  []*Row
	index map[string]int

	Consensus string
	Desc      string
	Score     float64
	Source    string
}

func NewAlignment() *Alignment {
	return &Alignment{index: make(map[string]int)}
}

// AddRow appends a row. Every row must have the same column count and a
// member id not already present. A zero Start/End pair is filled in from
// the gapped string; Strand defaults to +1.
func (a *Alignment) AddRow(r *Row) error {
	if r.MemberID == "" {
		return &InputError{Msg: "alignment row without member id"}
	}
	if _, dup := a.index[r.MemberID]; dup {
		return &InputError{Msg: fmt.Sprintf("duplicated alignment row %q", r.MemberID)}
	}
	if len(a.rows) > 0 && len(r.Gapped) != a.Columns() {
		return &InputError{Msg: fmt.Sprintf("row %q has %d columns, alignment has %d",
			r.MemberID, len(r.Gapped), a.Columns())}
	}
	if r.Strand == 0 {
		r.Strand = 1
	}
	if r.Start == 0 && r.End == 0 {
		r.extents()
	}
	if r.Start > r.End {
		return &InputError{Msg: fmt.Sprintf("row %q start %d after end %d", r.MemberID, r.Start, r.End)}
	}
	a.index[r.MemberID] = len(a.rows)
	a.rows = append(a.rows, r)
	return nil
}

// Len is the number of rows.
func (a *Alignment) Len() int {
	return len(a.rows)
}

// Columns is the gapped length shared by every row.
func (a *Alignment) Columns() int {
	if len(a.rows) == 0 {
		return 0
	}
	return len(a.rows[0].Gapped)
}

func (a *Alignment) Row(i int) *Row {
	return a.rows[i]
}

func (a *Alignment) RowByID(memberID string) (*Row, bool) {
	i, ok := a.index[memberID]
	if !ok {
		return nil, false
	}
	return a.rows[i], true
}

// MemberIDs returns row ids in row order.
func (a *Alignment) MemberIDs() []string {
	out := make([]string, len(a.rows))
	for i, r := range a.rows {
		out[i] = r.MemberID
	}
	return out
}

// Remove drops the rows of the given members, keeping row order.
func (a *Alignment) Remove(memberIDs ...string) {
	drop := make(map[string]bool, len(memberIDs))
	for _, id := range memberIDs {
		drop[id] = true
	}
	kept := a.rows[:0]
	for _, r := range a.rows {
		if !drop[r.MemberID] {
			kept = append(kept, r)
		}
	}
	a.rows = kept
	a.index = make(map[string]int, len(a.rows))
	for i, r := range a.rows {
		a.index[r.MemberID] = i
	}
}

// Keep drops every row not in the given member set.
func (a *Alignment) Keep(memberIDs ...string) {
	keep := make(map[string]bool, len(memberIDs))
	for _, id := range memberIDs {
		keep[id] = true
	}
	var drop []string
	for _, r := range a.rows {
		if !keep[r.MemberID] {
			drop = append(drop, r.MemberID)
		}
	}
	a.Remove(drop...)
}

// Clone deep-copies the alignment.
func (a *Alignment) Clone() *Alignment {
	out := NewAlignment()
	out.Consensus = a.Consensus
	out.Desc = a.Desc
	out.Score = a.Score
	out.Source = a.Source
	for _, r := range a.rows {
		cp := *r
		out.index[cp.MemberID] = len(out.rows)
		out.rows = append(out.rows, &cp)
	}
	return out
}

// Slice returns a new alignment over columns [start, end], 1-based
// inclusive. Row extents are recomputed and each row keeps its strand;
// consensus is sliced when present.
func (a *Alignment) Slice(start, end int) (*Alignment, error) {
	if start < 1 || end > a.Columns() || start > end {
		return nil, &InputError{Msg: fmt.Sprintf("slice [%d,%d] outside alignment of %d columns",
			start, end, a.Columns())}
	}
	out := NewAlignment()
	out.Desc = a.Desc
	out.Source = a.Source
	if a.Consensus != "" && end <= len(a.Consensus) {
		out.Consensus = a.Consensus[start-1 : end]
	}
	for _, r := range a.rows {
		nr := &Row{
			MemberID: r.MemberID,
			Strand:   r.Strand,
			Gapped:   r.Gapped[start-1 : end],
		}
		nr.extents()
		if nr.Start == 0 { // all-gap slice keeps a zero extent
			nr.End = 0
		}
		if err := out.addSliced(nr); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// addSliced appends without the start<=end check, so all-gap rows survive
// a column slice.
func (a *Alignment) addSliced(r *Row) error {
	if _, dup := a.index[r.MemberID]; dup {
		return &InputError{Msg: fmt.Sprintf("duplicated alignment row %q", r.MemberID)}
	}
	if len(a.rows) > 0 && len(r.Gapped) != a.Columns() {
		return &InputError{Msg: fmt.Sprintf("row %q has %d columns, alignment has %d",
			r.MemberID, len(r.Gapped), a.Columns())}
	}
	a.index[r.MemberID] = len(a.rows)
	a.rows = append(a.rows, r)
	return nil
}

// CompactGaps removes columns that are gaps in every row and recomputes
// extents. The consensus is compacted with the same column mask.
func (a *Alignment) CompactGaps() {
	cols := a.Columns()
	if cols == 0 {
		return
	}
	keep := make([]bool, cols)
	n := 0
	for c := 0; c < cols; c++ {
		for _, r := range a.rows {
			if r.Gapped[c] != Gap {
				keep[c] = true
				n++
				break
			}
		}
	}
	if n == cols {
		return
	}
	for _, r := range a.rows {
		var b strings.Builder
		b.Grow(n)
		for c := 0; c < cols; c++ {
			if keep[c] {
				b.WriteByte(r.Gapped[c])
			}
		}
		r.Gapped = b.String()
		r.extents()
	}
	if len(a.Consensus) == cols {
		var b strings.Builder
		b.Grow(n)
		for c := 0; c < cols; c++ {
			if keep[c] {
				b.WriteByte(a.Consensus[c])
			}
		}
		a.Consensus = b.String()
	}
}

// NumResidues counts non-gap characters over all rows.
func (a *Alignment) NumResidues() int {
	n := 0
	for _, r := range a.rows {
		for i := 0; i < len(r.Gapped); i++ {
			if r.Gapped[i] != Gap {
				n++
			}
		}
	}
	return n
}

// PercentIdentity is the mean pairwise identity over all row pairs,
// compared column-wise over the full alignment. Gap-vs-gap columns count
// as matches, matching the overlap-slice contract.
func (a *Alignment) PercentIdentity() float64 {
	if len(a.rows) < 2 || a.Columns() == 0 {
		return 0
	}
	var sum float64
	pairs := 0
	for i := 0; i < len(a.rows); i++ {
		for j := i + 1; j < len(a.rows); j++ {
			match := 0
			ri, rj := a.rows[i].Gapped, a.rows[j].Gapped
			for c := 0; c < len(ri); c++ {
				if ri[c] == rj[c] {
					match++
				}
			}
			sum += 100 * float64(match) / float64(len(ri))
			pairs++
		}
	}
	return sum / float64(pairs)
}

// MajorityConsensus synthesizes a consensus by per-column majority rule
// over non-gap characters. A column with only gaps stays a gap. Ties break
// to the lexicographically smallest character so the result is stable.
func (a *Alignment) MajorityConsensus() string {
	cols := a.Columns()
	var b strings.Builder
	b.Grow(cols)
	for c := 0; c < cols; c++ {
		counts := make(map[byte]int)
		for _, r := range a.rows {
			if ch := r.Gapped[c]; ch != Gap {
				counts[ch]++
			}
		}
		best := byte(Gap)
		bestN := 0
		for ch, n := range counts {
			if n > bestN || (n == bestN && ch < best) {
				best, bestN = ch, n
			}
		}
		b.WriteByte(best)
	}
	return b.String()
}

// Alignment properties prune_by_align can test.
const (
	PropScore        = "score"
	PropLength       = "length"
	PropNumResidues  = "num_residues"
	PropNumSequences = "num_sequences"
	PropIdentity     = "percentage_identity"
)

// Property returns the named scalar alignment property.
func (a *Alignment) Property(name string) (float64, error) {
	switch name {
	case PropScore:
		return a.Score, nil
	case PropLength:
		return float64(a.Columns()), nil
	case PropNumResidues:
		return float64(a.NumResidues()), nil
	case PropNumSequences:
		return float64(a.Len()), nil
	case PropIdentity:
		return a.PercentIdentity(), nil
	}
	return 0, &InputError{Msg: fmt.Sprintf("unknown alignment property %q", name)}
}

// ToGoalign converts to a goalign alignment for format IO.
func (a *Alignment) ToGoalign() (align.Alignment, error) {
	out := align.NewAlign(align.UNKNOWN)
	for _, r := range a.rows {
		if err := out.AddSequence(r.MemberID, r.Gapped, ""); err != nil {
			return nil, &InputError{Msg: fmt.Sprintf("converting row %q", r.MemberID), Err: err}
		}
	}
	out.AutoAlphabet()
	return out, nil
}

// FromGoalign builds a model alignment from a goalign alignment.
func FromGoalign(al align.Alignment) (*Alignment, error) {
	out := NewAlignment()
	for _, seq := range al.Sequences() {
		if err := out.AddRow(&Row{MemberID: seq.Name(), Gapped: seq.Sequence()}); err != nil {
			return nil, err
		}
	}
	return out, nil
}
