package exttool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evolbioinfo/goalign/io/clustal"
	"github.com/evolbioinfo/goalign/io/fasta"

	"github.com/yumyai/phyloclust/pkg/model"
)

// Supported multiple-alignment programs.
const (
	ProgClustalw = "clustalw"
	ProgMuscle   = "muscle"
	ProgMafft    = "mafft"
	ProgKalign   = "kalign"
	ProgTcoffee  = "t_coffee"
)

// Align runs the configured aligner over the family members and returns
// the parsed alignment. Members without a raw sequence are an
// ArgumentError before anything is executed.
func (r *Runner) Align(ctx context.Context, f *model.SequenceFamily, program string, extraArgs []string) (*model.Alignment, error) {
	if f.Len() < 2 {
		return nil, fmt.Errorf("family %s: %w", f.ID, model.ErrEmptyInput)
	}
	ids := f.MemberIDs()
	for _, id := range ids {
		if f.Members[id].Seq == "" {
			return nil, &model.ArgumentError{Msg: fmt.Sprintf(
				"run_alignments without member sequences (family %s, member %s)", f.ID, id)}
		}
	}

	dir, err := r.Scratch()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.fasta")
	if err := writeFasta(in, f, ids); err != nil {
		return nil, err
	}

	var aln *model.Alignment
	switch program {
	case ProgClustalw:
		aln, err = r.alignClustalw(ctx, dir, in, extraArgs)
	case ProgMuscle:
		aln, err = r.alignMuscle(ctx, dir, in, extraArgs)
	case ProgMafft, ProgKalign, ProgTcoffee:
		aln, err = r.alignStdout(ctx, dir, program, in, extraArgs)
	default:
		return nil, &model.ArgumentError{Msg: fmt.Sprintf("unknown alignment program %q", program)}
	}
	if err != nil {
		return nil, err
	}
	aln.Source = program
	return aln, nil
}

func (r *Runner) alignClustalw(ctx context.Context, dir, in string, extra []string) (*model.Alignment, error) {
	out := filepath.Join(dir, "out.aln")
	args := append([]string{
		"-INFILE=" + in,
		"-OUTFILE=" + out,
		"-OUTPUT=CLUSTAL",
		"-OUTORDER=INPUT",
	}, extra...)
	if _, err := r.Run(ctx, dir, ProgClustalw, args, nil); err != nil {
		return nil, err
	}
	fh, err := os.Open(out)
	if err != nil {
		return nil, &model.InputError{Msg: "clustalw produced no output", Err: err}
	}
	defer fh.Close()
	ga, err := clustal.NewParser(fh).Parse()
	if err != nil {
		return nil, &model.InputError{Msg: "parsing clustalw output", Err: err}
	}
	return model.FromGoalign(ga)
}

func (r *Runner) alignMuscle(ctx context.Context, dir, in string, extra []string) (*model.Alignment, error) {
	out := filepath.Join(dir, "out.afa")
	args := append([]string{"-in", in, "-out", out}, extra...)
	if _, err := r.Run(ctx, dir, ProgMuscle, args, nil); err != nil {
		return nil, err
	}
	fh, err := os.Open(out)
	if err != nil {
		return nil, &model.InputError{Msg: "muscle produced no output", Err: err}
	}
	defer fh.Close()
	ga, err := fasta.NewParser(fh).Parse()
	if err != nil {
		return nil, &model.InputError{Msg: "parsing muscle output", Err: err}
	}
	return model.FromGoalign(ga)
}

// alignStdout covers the aligners that write fasta to stdout.
func (r *Runner) alignStdout(ctx context.Context, dir, program, in string, extra []string) (*model.Alignment, error) {
	args := append(append([]string{}, extra...), in)
	stdout, err := r.Run(ctx, dir, program, args, nil)
	if err != nil {
		return nil, err
	}
	ga, err := fasta.NewParser(strings.NewReader(stdout)).Parse()
	if err != nil {
		return nil, &model.InputError{Msg: fmt.Sprintf("parsing %s output", program), Err: err}
	}
	return model.FromGoalign(ga)
}

// writeFasta emits the family members in deterministic id order.
func writeFasta(path string, f *model.SequenceFamily, ids []string) error {
	if ids == nil {
		ids = f.MemberIDs()
		sort.Strings(ids)
	}
	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, ">%s\n%s\n", id, f.Members[id].Seq)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
