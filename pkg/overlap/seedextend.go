package overlap

import (
	"sort"

	"github.com/yumyai/phyloclust/pkg/model"
)

// SeedOptions configure seed-and-extend subset construction.
type SeedOptions struct {
	Method      Method
	MinLength   int     // seed floor; 0 disables
	MinIdentity float64 // seed floor; 0 disables
	// EvalSeeds is how many of the top-ranked seed pairs to try.
	// Zero falls back to three, the pipeline default.
	EvalSeeds int
}

// Subset is a jointly-overlapping member set: the selected ids, the
// global overlap window across all of them, and the score of the pruned
// sub-alignment under the chosen method.
type Subset struct {
	Members []string
	Window  Entry
	Score   float64
}

// SelectSubset runs seed-and-extend: rank seed pairs, grow each of the
// top seeds by descending overseed score until the composition is
// satisfied, and keep the best-scoring valid set. Reports ok=false when
// no seed reaches the composition with a positive global overlap.
func SelectSubset(a *model.Alignment, comp model.Composition, strains *model.StrainTable, opts SeedOptions) (Subset, bool) {
	m, err := Compute(a)
	if err != nil {
		return Subset{}, false
	}
	seeds := m.Pairs()
	sort.SliceStable(seeds, func(i, j int) bool {
		return Score(seeds[i].Entry, opts.Method) > Score(seeds[j].Entry, opts.Method)
	})

	evalSeeds := opts.EvalSeeds
	if evalSeeds <= 0 {
		evalSeeds = 3
	}

	var best Subset
	found := false
	tried := 0
	for _, seed := range seeds {
		if seed.Entry.Length == 0 {
			break // sorted: the rest have no overlap either
		}
		if opts.MinLength > 0 && seed.Entry.Length < opts.MinLength {
			continue
		}
		if opts.MinIdentity > 0 && seed.Entry.Identity < opts.MinIdentity {
			continue
		}
		if tried >= evalSeeds {
			break
		}
		tried++

		sub, ok := extend(a, m, seed, comp, strains, opts.Method)
		if !ok {
			continue
		}
		if !found || sub.Score > best.Score {
			best, found = sub, true
		}
	}
	return best, found
}

// extend grows one seed pair. Extensions are scored on the interval their
// inclusion would leave, and added best-first while the composition is
// unsatisfied.
func extend(a *model.Alignment, m *Matrix, seed Pair, comp model.Composition, strains *model.StrainTable, method Method) (Subset, bool) {
	sel := model.NewSelection(comp, strains)
	sel.Push(seed.A)
	sel.Push(seed.B)
	selected := []string{seed.A, seed.B}
	inSet := map[string]bool{seed.A: true, seed.B: true}
	start, end := seed.Entry.Start, seed.Entry.End

	for !sel.Satisfied() {
		type cand struct {
			id         string
			start, end int
			score      float64
		}
		var candidates []cand
		for _, id := range m.IDs() {
			if inSet[id] {
				continue
			}
			row, ok := a.RowByID(id)
			if !ok || row.Start == 0 {
				continue
			}
			s, e := start, end
			if row.Start > s {
				s = row.Start
			}
			if row.End < e {
				e = row.End
			}
			if s > e {
				continue
			}
			candidates = append(candidates, cand{
				id:    id,
				start: s,
				end:   e,
				score: overseedScore(a, selected, id, s, e, method),
			})
		}
		if len(candidates) == 0 {
			return Subset{}, false
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].score != candidates[j].score {
				return candidates[i].score > candidates[j].score
			}
			return candidates[i].id < candidates[j].id
		})
		grew := false
		for _, c := range candidates {
			if !sel.Push(c.id) {
				continue // strain already satisfied or unknown
			}
			selected = append(selected, c.id)
			inSet[c.id] = true
			start, end = c.start, c.end
			grew = true
			break
		}
		if !grew {
			return Subset{}, false
		}
	}

	// global overlap across every selected row
	gs, ge := 0, 0
	for i, id := range selected {
		row, _ := a.RowByID(id)
		if i == 0 {
			gs, ge = row.Start, row.End
			continue
		}
		if row.Start > gs {
			gs = row.Start
		}
		if row.End < ge {
			ge = row.End
		}
	}
	if gs == 0 || gs > ge {
		return Subset{}, false
	}
	window := windowEntry(a, selected, gs, ge)
	sort.Strings(selected)
	return Subset{
		Members: selected,
		Window:  window,
		Score:   Score(window, method),
	}, true
}

// overseedScore is the score a candidate's inclusion would yield on the
// intersected interval: mean identity between the candidate and each
// already-selected row over that slice, folded into the overlap score.
func overseedScore(a *model.Alignment, selected []string, candidate string, start, end int, method Method) float64 {
	crow, ok := a.RowByID(candidate)
	if !ok {
		return 0
	}
	var sum float64
	for _, id := range selected {
		row, ok := a.RowByID(id)
		if !ok {
			continue
		}
		sum += sliceIdentity(crow, row, start, end)
	}
	e := Entry{
		Start:    start,
		End:      end,
		Length:   end - start + 1,
		Identity: sum / float64(len(selected)),
	}
	return Score(e, method)
}

// windowEntry measures the global overlap window: mean pairwise slice
// identity over every selected pair.
func windowEntry(a *model.Alignment, selected []string, start, end int) Entry {
	var sum float64
	pairs := 0
	for i := 0; i < len(selected); i++ {
		ri, _ := a.RowByID(selected[i])
		for j := i + 1; j < len(selected); j++ {
			rj, _ := a.RowByID(selected[j])
			sum += sliceIdentity(ri, rj, start, end)
			pairs++
		}
	}
	e := Entry{Start: start, End: end, Length: end - start + 1}
	if pairs > 0 {
		e.Identity = sum / float64(pairs)
	}
	return e
}

func sliceIdentity(a, b *model.Row, start, end int) float64 {
	match := 0
	for c := start - 1; c < end; c++ {
		if a.Gapped[c] == b.Gapped[c] {
			match++
		}
	}
	return 100 * float64(match) / float64(end-start+1)
}
