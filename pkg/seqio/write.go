package seqio

import (
	"fmt"
	"io"

	"github.com/evolbioinfo/goalign/io/clustal"
	"github.com/evolbioinfo/goalign/io/fasta"
	"github.com/evolbioinfo/goalign/io/nexus"
	"github.com/evolbioinfo/goalign/io/phylip"

	"github.com/yumyai/phyloclust/pkg/model"
)

// Alignment output formats.
const (
	FormatClustal = "clustalw"
	FormatFasta   = "fasta"
	FormatPhylip  = "phylip"
	FormatNexus   = "nexus"
)

// WriteMembership emits the cluster membership table, one
// `<cluster>\t<member>` line per member, families and members sorted.
func WriteMembership(w io.Writer, cs *model.ClusterSet) error {
	for _, id := range cs.IDs() {
		f, _ := cs.Get(id)
		for _, m := range f.MemberIDs() {
			if _, err := fmt.Fprintf(w, "%s\t%s\n", id, m); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteAlignment renders an alignment in the requested format through
// goalign.
func WriteAlignment(w io.Writer, a *model.Alignment, format string) error {
	ga, err := a.ToGoalign()
	if err != nil {
		return err
	}
	var out string
	switch format {
	case FormatClustal:
		out = clustal.WriteAlignment(ga)
	case FormatFasta:
		out = fasta.WriteAlignment(ga)
	case FormatPhylip:
		out = phylip.WriteAlignment(ga, false, false, false)
	case FormatNexus:
		out = nexus.WriteAlignment(ga)
	default:
		return &model.ArgumentError{Msg: fmt.Sprintf("unknown alignment format %q", format)}
	}
	_, err = io.WriteString(w, out)
	return err
}

// ReadClustalAlignment parses a clustalw alignment back into the model,
// the round-trip counterpart of WriteAlignment.
func ReadClustalAlignment(r io.Reader) (*model.Alignment, error) {
	ga, err := clustal.NewParser(r).Parse()
	if err != nil {
		return nil, &model.InputError{Msg: "parsing clustal alignment", Err: err}
	}
	return model.FromGoalign(ga)
}

// WriteNewick emits a tree with a trailing newline.
func WriteNewick(w io.Writer, t *model.Tree) error {
	_, err := fmt.Fprintln(w, t.Newick())
	return err
}
