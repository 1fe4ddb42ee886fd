package prune

import (
	"sort"

	"go.uber.org/zap"

	"github.com/yumyai/phyloclust/logger"
	"github.com/yumyai/phyloclust/pkg/model"
)

// DistanceConstraint orders member pairs of one strain pair by distance:
// ascending to favour close pairs (min_distance), descending to favour
// distant ones (max_distance).
type DistanceConstraint struct {
	StrainA    string
	StrainB    string
	Descending bool
}

// StrainOptions configure prune_by_strains.
type StrainOptions struct {
	Composition model.Composition
	// Constraints are applied in order: pairs matching the first
	// constraint come first, then the second, then unmatched pairs.
	Constraints []DistanceConstraint
}

type memberPair struct {
	a, b     string
	dist     float64
	rank     int // index of first matching constraint; len(constraints) if none
	original int
}

func (c DistanceConstraint) matches(sa, sb string) bool {
	return (sa == c.StrainA && sb == c.StrainB) || (sa == c.StrainB && sb == c.StrainA)
}

// ByStrains keeps, per family, the member subset chosen by walking the
// constraint-ordered pair list into the Composition predicate. Families
// that cannot satisfy the composition are deleted; families without a
// distance matrix are left untouched. A fresh Selection is built for
// every family.
func ByStrains(cs *model.ClusterSet, opts StrainOptions) (Result, error) {
	res := newResult()
	if cs.Strains.Len() == 0 {
		return res, &model.ArgumentError{Msg: "prune_by_strains without loaded strains"}
	}
	for _, id := range cs.IDs() {
		f, _ := cs.Get(id)
		if f.Distance == nil {
			continue
		}
		pairs, err := orderedPairs(f.Distance, cs.Strains, opts.Constraints)
		if err != nil {
			return res, err
		}
		sel := model.NewSelection(opts.Composition, cs.Strains)
		for _, p := range pairs {
			sel.Push(p.a)
			sel.Push(p.b)
			if sel.Satisfied() {
				break
			}
		}
		if !sel.Satisfied() {
			res.deleteFamily(cs, id)
			logger.Debug("prune_by_strains removed family",
				zap.String("family", id), zap.String("composition", opts.Composition.String()))
			continue
		}
		res.pruneMembers(cs, f, sel.Members())
	}
	return res, nil
}

// orderedPairs lists every unordered member pair with its distance,
// grouped by the first constraint the pair's strain pair matches, sorted
// within each group (ascending for min_distance, descending for
// max_distance), stable within ties and for unmatched pairs.
func orderedPairs(d *model.DistanceMatrix, strains *model.StrainTable, constraints []DistanceConstraint) ([]memberPair, error) {
	labels := d.Labels()
	var pairs []memberPair
	for i := 0; i < len(labels); i++ {
		for j := i + 1; j < len(labels); j++ {
			a, b := labels[i], labels[j]
			dist, err := d.Get(a, b)
			if err != nil {
				return nil, err
			}
			sa, _ := strains.StrainOf(a)
			sb, _ := strains.StrainOf(b)
			rank := len(constraints)
			for k, c := range constraints {
				if c.matches(sa, sb) {
					rank = k
					break
				}
			}
			pairs = append(pairs, memberPair{a: a, b: b, dist: dist, rank: rank, original: len(pairs)})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].rank != pairs[j].rank {
			return pairs[i].rank < pairs[j].rank
		}
		if pairs[i].rank == len(constraints) {
			return pairs[i].original < pairs[j].original
		}
		if pairs[i].dist != pairs[j].dist {
			if constraints[pairs[i].rank].Descending {
				return pairs[i].dist > pairs[j].dist
			}
			return pairs[i].dist < pairs[j].dist
		}
		return pairs[i].original < pairs[j].original
	})
	return pairs, nil
}
