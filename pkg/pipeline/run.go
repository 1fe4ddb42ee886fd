package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/yumyai/phyloclust/logger"
	"github.com/yumyai/phyloclust/pkg/config"
	"github.com/yumyai/phyloclust/pkg/model"
	"github.com/yumyai/phyloclust/pkg/seqio"
)

// RunPath drives one analysis path over the cluster set in lifecycle
// order: alignment, overlap pruning, distance, strain pruning, tree,
// bootstrap, bootstrap filtering. Families that failed a tool are
// collected and reported; they keep whatever artifacts they had.
func (p *Pipeline) RunPath(ctx context.Context, path *config.Path, outDir string) ([]string, error) {
	var failed []string

	collect := func(ids []string, err error) error {
		failed = append(failed, ids...)
		return err
	}

	if path.AlignmentProgram != "" {
		if err := collect(p.RunAlignments(ctx, path.AlignmentProgram, path.AlignmentArgs)); err != nil {
			return failed, err
		}
	}
	if path.PruneOverlaps != nil {
		res, err := p.PruneOverlaps(path.PruneOverlaps)
		if err != nil {
			return failed, err
		}
		logger.Info("prune_by_overlaps done",
			zap.Int("removed_families", len(res.Removed)),
			zap.Int("pruned_families", len(res.Pruned)))
	}
	if path.DistanceFunction != "" || path.PruneStrains != nil || path.TreeMethod != "" {
		if err := collect(p.RunDistances(ctx, path.DistanceFunction)); err != nil {
			return failed, err
		}
	}
	if path.PruneStrains != nil {
		res, err := p.PruneStrains(path.PruneStrains)
		if err != nil {
			return failed, err
		}
		logger.Info("prune_by_strains done",
			zap.Int("removed_families", len(res.Removed)),
			zap.Int("pruned_families", len(res.Pruned)))
		// strain pruning invalidates distances; recompute for survivors
		if err := collect(p.RunDistances(ctx, path.DistanceFunction)); err != nil {
			return failed, err
		}
	}
	if path.TreeMethod != "" {
		if err := collect(p.RunTrees(ctx, path.TreeMethod, path.TreeArgs, "")); err != nil {
			return failed, err
		}
	}
	if path.Bootstrapping != nil {
		if err := collect(p.RunBootstrap(ctx, *path.Bootstrapping, path.DistanceFunction, path.TreeMethod)); err != nil {
			return failed, err
		}
		if path.FilterBootstrap > 0 {
			res := p.PruneBootstrap(float64(path.FilterBootstrap))
			logger.Info("prune_by_bootstrap done", zap.Int("removed_families", len(res.Removed)))
		}
	}

	if err := p.CheckConsistency(); err != nil {
		return failed, err
	}
	if outDir != "" {
		if err := p.WriteArtifacts(path, outDir); err != nil {
			return failed, err
		}
	}
	return failed, nil
}

// WriteArtifacts emits the path's output files: the membership table and
// per-family alignment, distance, tree and consensus files.
func (p *Pipeline) WriteArtifacts(path *config.Path, outDir string) error {
	name := path.Name
	if name == "" {
		name = fmt.Sprintf("path_%02d", path.ID)
	}
	dir := filepath.Join(outDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	mf, err := os.Create(filepath.Join(dir, "membership.tab"))
	if err != nil {
		return err
	}
	defer mf.Close()
	if err := seqio.WriteMembership(mf, p.CS); err != nil {
		return err
	}

	for _, id := range p.CS.IDs() {
		f, _ := p.CS.Get(id)
		if f.Alignment != nil {
			if err := writeTo(filepath.Join(dir, id+".aln"), func(w *os.File) error {
				return seqio.WriteAlignment(w, f.Alignment, seqio.FormatClustal)
			}); err != nil {
				return err
			}
		}
		if f.Distance != nil {
			if err := writeTo(filepath.Join(dir, id+".dist"), func(w *os.File) error {
				return seqio.FormatPhylipDistance(w, f.Distance)
			}); err != nil {
				return err
			}
		}
		if f.Tree != nil {
			if err := writeTo(filepath.Join(dir, id+".nwk"), func(w *os.File) error {
				return seqio.WriteNewick(w, f.Tree)
			}); err != nil {
				return err
			}
		}
		if f.Bootstrap != nil {
			if err := writeTo(filepath.Join(dir, id+".cons.nwk"), func(w *os.File) error {
				return seqio.WriteNewick(w, f.Bootstrap)
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeTo(path string, fn func(w *os.File) error) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(fh); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

// Ingest loads the cluster source named by the run file into a fresh
// cluster set: the blast report (always read with the tabular parser,
// whatever FASTBLASTPARSER says) or the assembly file, then member
// sequences and the strain table.
func Ingest(run *config.Run, rootname string) (*model.ClusterSet, error) {
	if run.ClusterFile == "" {
		return nil, &model.ArgumentError{Msg: "run file without CLUSTER_FILENAME"}
	}
	cs, err := ingestClusters(run, rootname)
	if err != nil {
		return nil, err
	}
	if run.MemberSeqFile != "" {
		fh, err := os.Open(run.MemberSeqFile)
		if err != nil {
			return nil, &model.InputError{Msg: "opening member sequences", Err: err}
		}
		n, err := seqio.AttachSequences(cs, fh)
		fh.Close()
		if err != nil {
			return nil, err
		}
		logger.Info("member sequences loaded", zap.Int("members", n))
	}
	if run.StrainFile != "" {
		fh, err := os.Open(run.StrainFile)
		if err != nil {
			return nil, &model.InputError{Msg: "opening strain table", Err: err}
		}
		st, err := seqio.ReadStrainTable(fh)
		fh.Close()
		if err != nil {
			return nil, err
		}
		cs.Strains = st
	}
	return cs, nil
}
