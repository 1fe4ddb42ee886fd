package prune

import (
	"go.uber.org/zap"

	"github.com/yumyai/phyloclust/logger"
	"github.com/yumyai/phyloclust/pkg/model"
	"github.com/yumyai/phyloclust/pkg/overlap"
)

// OverlapOptions configure prune_by_overlaps.
type OverlapOptions struct {
	Composition model.Composition
	Seed        overlap.SeedOptions
	// Trim restricts the replacement alignment to the overlap window.
	Trim bool
	// Compact removes all-gap columns from the replacement alignment.
	Compact bool
}

// ByOverlaps runs seed-and-extend per family and replaces the family's
// alignment with the best jointly-overlapping sub-alignment. Families
// with no valid selection are deleted. The member set itself is kept:
// after overlap selection the alignment may hold a pruned subset of the
// members. Distance, tree and bootstrap are always invalidated when the
// alignment is replaced.
func ByOverlaps(cs *model.ClusterSet, opts OverlapOptions) (Result, error) {
	res := newResult()
	if cs.Strains.Len() == 0 {
		return res, &model.ArgumentError{Msg: "prune_by_overlaps without loaded strains"}
	}
	for _, id := range cs.IDs() {
		f, _ := cs.Get(id)
		if f.Alignment == nil || f.Alignment.Len() < 2 {
			continue
		}
		sub, ok := overlap.SelectSubset(f.Alignment, opts.Composition, cs.Strains, opts.Seed)
		if !ok {
			res.deleteFamily(cs, id)
			logger.Debug("prune_by_overlaps removed family", zap.String("family", id))
			continue
		}
		replacement := f.Alignment.Clone()
		var droppedRows []string
		kept := make(map[string]bool, len(sub.Members))
		for _, m := range sub.Members {
			kept[m] = true
		}
		for _, rowID := range replacement.MemberIDs() {
			if !kept[rowID] {
				droppedRows = append(droppedRows, rowID)
			}
		}
		replacement.Keep(sub.Members...)
		if opts.Trim {
			trimmed, err := replacement.Slice(sub.Window.Start, sub.Window.End)
			if err != nil {
				return res, err
			}
			replacement = trimmed
		}
		if opts.Compact {
			replacement.CompactGaps()
		}
		replacement.Source = f.Alignment.Source
		f.Alignment = replacement
		f.Invalidate()
		if len(droppedRows) > 0 {
			res.Pruned[id] = droppedRows
		}
	}
	return res, nil
}
