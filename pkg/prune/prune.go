// Package prune holds the cluster-set pruning operators. Each operator
// either deletes whole families or removes members from them, keeping the
// cross-entity invariants: member removal drops the matching alignment
// rows and invalidates distance, tree and bootstrap.
package prune

import (
	"sort"

	"go.uber.org/zap"

	"github.com/yumyai/phyloclust/logger"
	"github.com/yumyai/phyloclust/pkg/model"
)

// Result reports what an operator did: families deleted outright, and the
// members removed from each surviving family. For ByOverlaps, Pruned lists
// the rows dropped from the alignment; those members stay in the family.
type Result struct {
	Removed []string
	Pruned  map[string][]string
}

func newResult() Result {
	return Result{Pruned: make(map[string][]string)}
}

func (r *Result) deleteFamily(cs *model.ClusterSet, id string) {
	cs.Delete(id)
	r.Removed = append(r.Removed, id)
}

func (r *Result) pruneMembers(cs *model.ClusterSet, f *model.SequenceFamily, keep []string) {
	keepSet := make(map[string]bool, len(keep))
	for _, id := range keep {
		keepSet[id] = true
	}
	var drop []string
	for id := range f.Members {
		if !keepSet[id] {
			drop = append(drop, id)
		}
	}
	sort.Strings(drop)
	if len(drop) == 0 {
		return
	}
	f.RemoveMembers(drop...)
	cs.Unindex(drop...)
	r.Pruned[f.ID] = drop
}

// AlignPredicate tests one scalar alignment property against an integer
// threshold.
type AlignPredicate struct {
	Property  string
	Op        model.Comparator
	Threshold int
}

// ByAlign removes whole families whose alignment matches any of the
// predicates (disjunction). Families without an alignment are never
// removed. Downstream artifacts go with the family.
func ByAlign(cs *model.ClusterSet, preds []AlignPredicate) (Result, error) {
	res := newResult()
	// validate before touching anything
	probe := model.NewAlignment()
	for _, p := range preds {
		if _, err := probe.Property(p.Property); err != nil {
			return res, err
		}
	}
	for _, id := range cs.IDs() {
		f, _ := cs.Get(id)
		if f.Alignment == nil {
			continue
		}
		for _, p := range preds {
			v, err := f.Alignment.Property(p.Property)
			if err != nil {
				return res, err
			}
			if p.Op.Eval(v, float64(p.Threshold)) {
				res.deleteFamily(cs, id)
				logger.Debug("prune_by_align removed family",
					zap.String("family", id), zap.String("property", p.Property))
				break
			}
		}
	}
	return res, nil
}

// ByBootstrap removes any family whose consensus tree carries a node
// (excluding the root) with support strictly below the cutoff. Nodes
// without a support value are ignored; families without a consensus are
// left alone.
func ByBootstrap(cs *model.ClusterSet, cutoff float64) Result {
	res := newResult()
	for _, id := range cs.IDs() {
		f, _ := cs.Get(id)
		if f.Bootstrap == nil {
			continue
		}
		if min, ok := f.Bootstrap.MinSupport(); ok && min < cutoff {
			res.deleteFamily(cs, id)
			logger.Debug("prune_by_bootstrap removed family",
				zap.String("family", id), zap.Float64("min_support", min))
		}
	}
	return res
}
