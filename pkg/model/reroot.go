package model

import (
	"errors"
	"fmt"
	"sort"
)

// RerootMode selects how a family tree is rerooted. Exactly one mode
// applies per run.
type RerootMode string

const (
	RerootMidpoint   RerootMode = "midpoint"
	RerootRefStrain  RerootMode = "reference-strain"
	RerootLongestSeq RerootMode = "longest-member"
)

// ErrNoReferenceLeaf marks a family whose tree holds no leaf of the
// requested reference strain. The family is left unchanged and reported
// on the failed list.
var ErrNoReferenceLeaf = errors.New("no leaf of the reference strain")

// MidpointRoot reroots the tree at the point equidistant along branches
// from the two most distant leaves. Degenerate trees (fewer than two
// leaves, or no positive path) are left unchanged; reports whether the
// tree was modified.
func (t *Tree) MidpointRoot() bool {
	leaves := t.Leaves()
	if len(leaves) < 2 {
		return false
	}
	var bestPath []*TreeNode
	bestLen := 0.0
	for i := 0; i < len(leaves); i++ {
		for j := i + 1; j < len(leaves); j++ {
			path, total := t.LeafPath(leaves[i], leaves[j])
			if total > bestLen {
				bestPath, bestLen = path, total
			}
		}
	}
	if bestLen <= 0 || bestPath == nil {
		return false
	}
	half := bestLen / 2
	cum := 0.0
	for i := 0; i < len(bestPath)-1; i++ {
		cur, next := bestPath[i], bestPath[i+1]
		var edgeLen float64
		var child *TreeNode
		if cur.Parent == next {
			child, edgeLen = cur, cur.Length
		} else {
			child, edgeLen = next, next.Length
		}
		if cum+edgeLen < half {
			cum += edgeLen
			continue
		}
		offset := half - cum // walked distance into this edge, from cur
		if offset == 0 {
			t.Reroot(cur)
			return true
		}
		if offset == edgeLen {
			t.Reroot(next)
			return true
		}
		var fromParent float64
		if child == cur {
			// walking child -> parent: offset is measured from the child end
			fromParent = edgeLen - offset
		} else {
			fromParent = offset
		}
		mid := insertOnBranch(child, fromParent)
		t.Reroot(mid)
		return true
	}
	return false
}

// RerootByStrain reroots at the leaf of the named strain farthest from the
// present root. With a single matching leaf that leaf is used; with none
// the tree is unchanged and ErrNoReferenceLeaf is returned.
func (t *Tree) RerootByStrain(strains *StrainTable, strain string) error {
	var candidates []*TreeNode
	for _, l := range t.Leaves() {
		if s, ok := strains.StrainOf(l.Name); ok && s == strain {
			candidates = append(candidates, l)
		}
	}
	if len(candidates) == 0 {
		return fmt.Errorf("%w: %s", ErrNoReferenceLeaf, strain)
	}
	sort.Slice(candidates, func(i, j int) bool {
		di, dj := candidates[i].Depth(), candidates[j].Depth()
		if di != dj {
			return di > dj
		}
		return candidates[i].Name < candidates[j].Name
	})
	return t.RerootAtLeaf(candidates[0].Name)
}

// RerootByLongestMember reroots at the leaf whose underlying raw sequence
// is longest, ties stable by name.
func (f *SequenceFamily) RerootByLongestMember() error {
	if f.Tree == nil {
		return &ArgumentError{Msg: fmt.Sprintf("family %s has no tree to reroot", f.ID)}
	}
	best := ""
	bestLen := -1
	for _, name := range f.Tree.LeafNames() {
		m, ok := f.Members[name]
		if !ok {
			continue
		}
		if m.Len() > bestLen || (m.Len() == bestLen && name < best) {
			best, bestLen = name, m.Len()
		}
	}
	if best == "" {
		return fmt.Errorf("family %s: %w", f.ID, ErrEmptyInput)
	}
	return f.Tree.RerootAtLeaf(best)
}
