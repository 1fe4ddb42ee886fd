// Package overlap computes the pairwise overlap geometry of an alignment
// and selects jointly-overlapping member subsets.
package overlap

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/yumyai/phyloclust/pkg/model"
)

// Entry is the overlap of one unordered row pair: the shared column
// interval (1-based, inclusive), its length and the percent identity over
// that slice. Zero value for the diagonal and non-overlapping pairs.
type Entry struct {
	Start    int
	End      int
	Length   int
	Identity float64
}

// Method selects how an overlap is scored.
type Method string

const (
	// ByLength ranks pairs by overlap length alone.
	ByLength Method = "length"
	// ByScore ranks by length x (identity/100)^2, penalising short
	// high-identity and long low-identity pairs symmetrically.
	ByScore Method = "ovlscore"
)

// Score evaluates an entry under a method.
func Score(e Entry, m Method) float64 {
	switch m {
	case ByScore:
		f := e.Identity / 100
		return float64(e.Length) * f * f
	default:
		return float64(e.Length)
	}
}

// Matrix is the symmetric per-alignment overlap matrix.
type Matrix struct {
	ids []string
	idx map[string]int
	e   [][]Entry
}

// Compute builds the overlap matrix of an alignment.
func Compute(a *model.Alignment) (*Matrix, error) {
	if a == nil || a.Len() < 2 {
		return nil, fmt.Errorf("overlap needs at least two rows: %w", model.ErrEmptyInput)
	}
	n := a.Len()
	m := &Matrix{
		ids: a.MemberIDs(),
		idx: make(map[string]int, n),
		e:   make([][]Entry, n),
	}
	for i, id := range m.ids {
		m.idx[id] = i
		m.e[i] = make([]Entry, n)
	}
	for i := 0; i < n; i++ {
		ri := a.Row(i)
		for j := i + 1; j < n; j++ {
			rj := a.Row(j)
			e := pairOverlap(ri, rj)
			m.e[i][j] = e
			m.e[j][i] = e
		}
	}
	return m, nil
}

// pairOverlap intersects the two row extents and measures identity on the
// overlap slice. Gap-vs-gap columns count as matches; that is the
// documented contract of the slice identity.
func pairOverlap(a, b *model.Row) Entry {
	if a.Start == 0 || b.Start == 0 {
		return Entry{}
	}
	s, e := a.Start, a.End
	if b.Start > s {
		s = b.Start
	}
	if b.End < e {
		e = b.End
	}
	if s > e {
		return Entry{}
	}
	match := 0
	for c := s - 1; c < e; c++ {
		if a.Gapped[c] == b.Gapped[c] {
			match++
		}
	}
	length := e - s + 1
	return Entry{
		Start:    s,
		End:      e,
		Length:   length,
		Identity: 100 * float64(match) / float64(length),
	}
}

// Get returns the entry for an unordered pair; the diagonal is zero.
func (m *Matrix) Get(a, b string) (Entry, error) {
	i, ok := m.idx[a]
	if !ok {
		return Entry{}, &model.InputError{Msg: fmt.Sprintf("unknown overlap row %q", a)}
	}
	j, ok := m.idx[b]
	if !ok {
		return Entry{}, &model.InputError{Msg: fmt.Sprintf("unknown overlap row %q", b)}
	}
	return m.e[i][j], nil
}

// IDs returns the row ids in matrix order.
func (m *Matrix) IDs() []string {
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out
}

// Pair is one unordered row pair with its overlap.
type Pair struct {
	A, B  string
	Entry Entry
}

// Pairs enumerates the strict upper triangle in row order.
func (m *Matrix) Pairs() []Pair {
	var out []Pair
	for i := 0; i < len(m.ids); i++ {
		for j := i + 1; j < len(m.ids); j++ {
			out = append(out, Pair{A: m.ids[i], B: m.ids[j], Entry: m.e[i][j]})
		}
	}
	return out
}

// Best returns the pair maximising the method's score. Ties keep the
// first pair in row order, so repeated runs return the same pair.
func (m *Matrix) Best(method Method) (Pair, bool) {
	var best Pair
	bestScore := -1.0
	for _, p := range m.Pairs() {
		if p.Entry.Length == 0 {
			continue
		}
		if s := Score(p.Entry, method); s > bestScore {
			best, bestScore = p, s
		}
	}
	return best, bestScore >= 0
}

// Stats summarises the off-diagonal overlaps for diagnostics.
type Stats struct {
	MeanLength    float64
	MeanIdentity  float64
	StdevIdentity float64
	Overlapping   int
	Pairs         int
}

// Summary computes overlap statistics over all row pairs.
func (m *Matrix) Summary() Stats {
	var lengths, idents []float64
	pairs := m.Pairs()
	n := 0
	for _, p := range pairs {
		if p.Entry.Length > 0 {
			n++
			lengths = append(lengths, float64(p.Entry.Length))
			idents = append(idents, p.Entry.Identity)
		}
	}
	out := Stats{Overlapping: n, Pairs: len(pairs)}
	if n > 0 {
		out.MeanLength = stat.Mean(lengths, nil)
		out.MeanIdentity = stat.Mean(idents, nil)
		out.StdevIdentity = stat.StdDev(idents, nil)
	}
	return out
}
