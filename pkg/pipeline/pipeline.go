// Package pipeline drives the per-family phase chain: alignment ->
// distance -> tree -> bootstrap, with pruning and rerooting applicable
// between phases. The cluster set has a single writer; per-family work
// fans out over a fixed worker pool and tool failures stay scoped to the
// family that triggered them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/yumyai/phyloclust/logger"
	"github.com/yumyai/phyloclust/pkg/bootstrap"
	"github.com/yumyai/phyloclust/pkg/cache"
	"github.com/yumyai/phyloclust/pkg/config"
	"github.com/yumyai/phyloclust/pkg/exttool"
	"github.com/yumyai/phyloclust/pkg/model"
	"github.com/yumyai/phyloclust/pkg/overlap"
	"github.com/yumyai/phyloclust/pkg/prune"
)

// Pipeline owns one cluster set for the duration of a run.
type Pipeline struct {
	CS      *model.ClusterSet
	Runner  *exttool.Runner
	Cache   *cache.CacheDB // optional
	Workers int
}

func New(cs *model.ClusterSet, runner *exttool.Runner) *Pipeline {
	return &Pipeline{CS: cs, Runner: runner}
}

func (p *Pipeline) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.NumCPU()
}

// forEach runs fn over every family in a worker pool. Families whose fn
// fails with a recoverable error (tool failure, missing reference leaf,
// empty input) land on the failed list; argument and consistency errors
// abort the phase. Progress is reported as families complete.
func (p *Pipeline) forEach(ctx context.Context, phase string, fn func(ctx context.Context, f *model.SequenceFamily) error) ([]string, error) {
	ids := p.CS.IDs()
	if len(ids) == 0 {
		return nil, nil
	}

	jobs := make(chan string, len(ids))
	type outcome struct {
		id  string
		err error
	}
	results := make(chan outcome, len(ids))

	var wg sync.WaitGroup
	for range p.workers() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				f, _ := p.CS.Get(id)
				results <- outcome{id: id, err: fn(ctx, f)}
			}
		}()
	}
	for _, id := range ids {
		jobs <- id
	}
	close(jobs)
	go func() {
		wg.Wait()
		close(results)
	}()

	var failed []string
	var fatal error
	done := 0
	for r := range results {
		done++
		logger.Progress(phase, 100*float64(done)/float64(len(ids)), r.id)
		if r.err == nil {
			continue
		}
		var tf *model.ToolFailure
		switch {
		case errors.As(r.err, &tf):
			logger.Warn("tool failed, skipping family",
				zap.String("family", r.id), zap.String("tool", tf.Tool),
				zap.Int("exit", tf.ExitCode), zap.Bool("timeout", tf.TimedOut))
			failed = append(failed, r.id)
		case errors.Is(r.err, model.ErrNoReferenceLeaf), errors.Is(r.err, model.ErrEmptyInput):
			failed = append(failed, r.id)
		default:
			if fatal == nil {
				fatal = r.err
			}
		}
	}
	if fatal != nil {
		return failed, fatal
	}
	sort.Strings(failed)
	return failed, nil
}

// RunAlignments computes alignments for every family that has none.
func (p *Pipeline) RunAlignments(ctx context.Context, program string, args []string) ([]string, error) {
	return p.forEach(ctx, "aligning clusters", func(ctx context.Context, f *model.SequenceFamily) error {
		if f.Alignment != nil {
			return nil
		}
		aln, err := p.Runner.Align(ctx, f, program, args)
		if err != nil {
			return err
		}
		f.Alignment = aln
		return nil
	})
}

// Distance functions selectable per path.
const (
	DistNativePDist = "native-pdist"
	DistNativeJC69  = "native-jc69"
	DistDnadist     = "dnadist"
)

func (p *Pipeline) distanceFor(ctx context.Context, f *model.SequenceFamily, function string) (*model.DistanceMatrix, error) {
	switch function {
	case DistNativePDist, "":
		return model.PDistanceMatrix(f.Alignment)
	case DistNativeJC69:
		return model.JC69Matrix(f.Alignment)
	case DistDnadist:
		return p.Runner.DistanceMatrix(ctx, f.Alignment)
	}
	return nil, &model.ArgumentError{Msg: "unknown distance function " + function}
}

// RunDistances computes the distance matrix per family, consulting the
// cache first when one is attached.
func (p *Pipeline) RunDistances(ctx context.Context, function string) ([]string, error) {
	return p.forEach(ctx, "computing distances", func(ctx context.Context, f *model.SequenceFamily) error {
		if f.Alignment == nil || f.Distance != nil {
			return nil
		}
		if p.Cache != nil {
			if m, ok, err := p.Cache.GetDistance(ctx, f.ID, f.Alignment); err == nil && ok {
				f.Distance = m
				return nil
			}
		}
		m, err := p.distanceFor(ctx, f, function)
		if err != nil {
			return err
		}
		f.Distance = m
		if p.Cache != nil {
			if err := p.Cache.PutDistance(ctx, f.ID, f.Alignment, m); err != nil {
				logger.Warn("distance cache write failed",
					zap.String("family", f.ID), zap.Error(err))
			}
		}
		return nil
	})
}

// RunTrees infers a tree per family: NJ/UPGMA through neighbor from the
// distance matrix, ML through phyml from the alignment.
func (p *Pipeline) RunTrees(ctx context.Context, method string, args []string, outgroupStrain string) ([]string, error) {
	if method == exttool.TreeML && outgroupStrain != "" {
		return nil, &model.ArgumentError{Msg: "outgroup_strain cannot be used with an ML tree"}
	}
	return p.forEach(ctx, "inferring trees", func(ctx context.Context, f *model.SequenceFamily) error {
		if f.Alignment == nil || f.Tree != nil {
			return nil
		}
		var t *model.Tree
		var err error
		switch method {
		case exttool.TreeML:
			t, err = p.Runner.MLTree(ctx, f.Alignment, args)
		case exttool.TreeNJ, exttool.TreeUPGMA, "":
			if f.Distance == nil {
				return fmt.Errorf("family %s has no distances: %w", f.ID, model.ErrEmptyInput)
			}
			m := method
			if m == "" {
				m = exttool.TreeNJ
			}
			t, err = p.Runner.NeighborTree(ctx, f.Distance, m)
		default:
			return &model.ArgumentError{Msg: "unknown tree method " + method}
		}
		if err != nil {
			return err
		}
		if outgroupStrain != "" {
			if err := t.RerootByStrain(p.CS.Strains, outgroupStrain); err != nil {
				return err
			}
		}
		f.Tree = t
		return nil
	})
}

// RunBootstrap resamples, rebuilds and summarises a consensus per family.
func (p *Pipeline) RunBootstrap(ctx context.Context, args config.BootstrapArgs, distFunction, treeMethod string) ([]string, error) {
	opts := bootstrap.Options{Replicates: args.Replicates, Seed: args.Seed}
	return p.forEach(ctx, "bootstrapping clusters", func(ctx context.Context, f *model.SequenceFamily) error {
		if f.Alignment == nil || f.Bootstrap != nil {
			return nil
		}
		if p.Cache != nil {
			if t, ok, err := p.Cache.GetConsensus(ctx, f.ID, f.Alignment); err == nil && ok {
				f.Bootstrap = t
				return nil
			}
		}
		builder := func(a *model.Alignment) (*model.Tree, error) {
			fake := &model.SequenceFamily{ID: f.ID, Alignment: a}
			m, err := p.distanceFor(ctx, fake, distFunction)
			if err != nil {
				return nil, err
			}
			method := treeMethod
			if method == "" || method == exttool.TreeML {
				method = exttool.TreeNJ
			}
			return p.Runner.NeighborTree(ctx, m, method)
		}
		t, err := bootstrap.Run(f.Alignment, builder, opts)
		if err != nil {
			return err
		}
		f.Bootstrap = t
		if p.Cache != nil {
			if err := p.Cache.PutConsensus(ctx, f.ID, f.Alignment, t); err != nil {
				logger.Warn("consensus cache write failed",
					zap.String("family", f.ID), zap.Error(err))
			}
		}
		return nil
	})
}

// Reroot applies one rerooting mode to every family tree. Families whose
// reference strain is absent land on the failed list, unchanged.
func (p *Pipeline) Reroot(ctx context.Context, mode model.RerootMode, refStrain string) ([]string, error) {
	if mode == model.RerootRefStrain && refStrain == "" {
		return nil, &model.ArgumentError{Msg: "reference-strain rerooting without a strain"}
	}
	return p.forEach(ctx, "rerooting trees", func(_ context.Context, f *model.SequenceFamily) error {
		if f.Tree == nil {
			return nil
		}
		switch mode {
		case model.RerootMidpoint:
			f.Tree.MidpointRoot()
			return nil
		case model.RerootRefStrain:
			return f.Tree.RerootByStrain(p.CS.Strains, refStrain)
		case model.RerootLongestSeq:
			return f.RerootByLongestMember()
		}
		return &model.ArgumentError{Msg: "unknown reroot mode " + string(mode)}
	})
}

// PruneStrains applies prune_by_strains with the parsed run-file options.
func (p *Pipeline) PruneStrains(args *config.StrainArgs) (prune.Result, error) {
	opts := prune.StrainOptions{Composition: model.Composition(args.Composition)}
	for _, pair := range args.MinDistance {
		opts.Constraints = append(opts.Constraints, prune.DistanceConstraint{
			StrainA: pair[0], StrainB: pair[1],
		})
	}
	for _, pair := range args.MaxDistance {
		opts.Constraints = append(opts.Constraints, prune.DistanceConstraint{
			StrainA: pair[0], StrainB: pair[1], Descending: true,
		})
	}
	return prune.ByStrains(p.CS, opts)
}

// PruneOverlaps applies prune_by_overlaps with the parsed options.
func (p *Pipeline) PruneOverlaps(args *config.OverlapArgs) (prune.Result, error) {
	return prune.ByOverlaps(p.CS, prune.OverlapOptions{
		Composition: model.Composition(args.Composition),
		Seed: overlap.SeedOptions{
			Method:      overlap.Method(args.Method),
			MinLength:   args.MinLength,
			MinIdentity: args.MinIdentity,
			EvalSeeds:   args.EvalSeeds,
		},
		Trim:    args.Trim,
		Compact: args.Compact,
	})
}

// PruneBootstrap applies the support cutoff.
func (p *Pipeline) PruneBootstrap(cutoff float64) prune.Result {
	return prune.ByBootstrap(p.CS, cutoff)
}

// CheckConsistency verifies every family's cross-entity invariants.
// A violation is fatal.
func (p *Pipeline) CheckConsistency() error {
	for _, id := range p.CS.IDs() {
		f, _ := p.CS.Get(id)
		if err := f.CheckConsistency(); err != nil {
			return err
		}
	}
	return nil
}
