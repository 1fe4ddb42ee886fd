package exttool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yumyai/phyloclust/pkg/model"
	"github.com/yumyai/phyloclust/pkg/seqio"
)

// Tree methods the pipeline recognises.
const (
	TreeNJ    = "NJ"
	TreeUPGMA = "UPGMA"
	TreeML    = "ML"
)

// DistanceMatrix runs phylip dnadist over the alignment and parses the
// square matrix it writes.
func (r *Runner) DistanceMatrix(ctx context.Context, a *model.Alignment) (*model.DistanceMatrix, error) {
	if a == nil || a.Len() < 2 {
		return nil, fmt.Errorf("distance: %w", model.ErrEmptyInput)
	}
	dir, err := r.Scratch()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	infile := filepath.Join(dir, "infile")
	renames, err := seqio.WritePhylipAlignment(infile, a)
	if err != nil {
		return nil, err
	}
	// dnadist reads its menu from stdin: lower-triangular off, accept
	if _, err := r.Run(ctx, dir, "dnadist", nil, []byte("Y\n")); err != nil {
		return nil, err
	}
	fh, err := os.Open(filepath.Join(dir, "outfile"))
	if err != nil {
		return nil, &model.InputError{Msg: "dnadist produced no outfile", Err: err}
	}
	defer fh.Close()
	m, err := seqio.ReadPhylipDistance(fh)
	if err != nil {
		return nil, err
	}
	return seqio.RestoreLabels(m, renames)
}

// NeighborTree runs phylip neighbor (NJ or UPGMA) over a distance matrix
// and parses the resulting newick tree.
func (r *Runner) NeighborTree(ctx context.Context, d *model.DistanceMatrix, method string) (*model.Tree, error) {
	if d == nil || d.Len() < 2 {
		return nil, fmt.Errorf("tree: %w", model.ErrEmptyInput)
	}
	dir, err := r.Scratch()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	infile := filepath.Join(dir, "infile")
	renames, err := seqio.WritePhylipDistance(infile, d)
	if err != nil {
		return nil, err
	}
	menu := "Y\n"
	if method == TreeUPGMA {
		menu = "N\nY\n" // toggle to UPGMA, then accept
	}
	if _, err := r.Run(ctx, dir, "neighbor", nil, []byte(menu)); err != nil {
		return nil, err
	}
	return r.readOuttree(dir, renames)
}

// MLTree runs phyml on the alignment and parses its tree.
func (r *Runner) MLTree(ctx context.Context, a *model.Alignment, extraArgs []string) (*model.Tree, error) {
	if a == nil || a.Len() < 3 {
		return nil, fmt.Errorf("ml tree wants three rows: %w", model.ErrEmptyInput)
	}
	dir, err := r.Scratch()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	infile := filepath.Join(dir, "seqs.phy")
	renames, err := seqio.WritePhylipAlignment(infile, a)
	if err != nil {
		return nil, err
	}
	args := append([]string{"--input", infile, "--datatype", "nt", "--no_memory_check"}, extraArgs...)
	if _, err := r.Run(ctx, dir, "phyml", args, nil); err != nil {
		return nil, err
	}
	treefile := infile + "_phyml_tree.txt"
	fh, err := os.Open(treefile)
	if err != nil {
		return nil, &model.InputError{Msg: "phyml produced no tree file", Err: err}
	}
	defer fh.Close()
	t, err := model.ParseNewick(fh)
	if err != nil {
		return nil, err
	}
	restoreTreeLabels(t, renames)
	return t, nil
}

func (r *Runner) readOuttree(dir string, renames map[string]string) (*model.Tree, error) {
	fh, err := os.Open(filepath.Join(dir, "outtree"))
	if err != nil {
		return nil, &model.InputError{Msg: "neighbor produced no outtree", Err: err}
	}
	defer fh.Close()
	t, err := model.ParseNewick(fh)
	if err != nil {
		return nil, err
	}
	restoreTreeLabels(t, renames)
	return t, nil
}

// restoreTreeLabels maps the 10-character phylip aliases back to member
// ids.
func restoreTreeLabels(t *model.Tree, renames map[string]string) {
	if len(renames) == 0 {
		return
	}
	for _, l := range t.Leaves() {
		if full, ok := renames[strings.TrimSpace(l.Name)]; ok {
			l.Name = full
		}
	}
}
