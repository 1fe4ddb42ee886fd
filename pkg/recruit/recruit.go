// Package recruit pulls homologous sequences from an external blast
// database into existing families: the family consensus is blasted
// against the database, passing hits become new members with gap-padded
// alignment rows.
package recruit

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/yumyai/phyloclust/internal/util"
	"github.com/yumyai/phyloclust/logger"
	"github.com/yumyai/phyloclust/pkg/blastclust"
	"github.com/yumyai/phyloclust/pkg/exttool"
	"github.com/yumyai/phyloclust/pkg/model"
	"github.com/yumyai/phyloclust/pkg/seqio"
)

// Options configure one recruitment run.
type Options struct {
	// DB is the formatted blast database path.
	DB string
	// DBFasta is the fasta file behind the database; it is indexed into
	// memory on first use.
	DBFasta string
	// Filter applies the C6 filter machinery to the hits. Empty keeps
	// only the best-scoring hit.
	Filter blastclust.Filter
	// Strain, when set, is recorded for every recruited member.
	Strain string
	// Deflines annotates recruited members with subject descriptions.
	Deflines seqio.Deflines
}

// Recruiter runs consensus-vs-database blast per family.
type Recruiter struct {
	runner *exttool.Runner
	opts   Options
	dbseq  map[string]string
}

func New(runner *exttool.Runner, opts Options) (*Recruiter, error) {
	if opts.DB == "" || opts.DBFasta == "" {
		return nil, &model.ArgumentError{Msg: "recruit needs a blast database and its fasta"}
	}
	return &Recruiter{runner: runner, opts: opts}, nil
}

func (rc *Recruiter) loadDB() error {
	if rc.dbseq != nil {
		return nil
	}
	fh, err := os.Open(rc.opts.DBFasta)
	if err != nil {
		return &model.InputError{Msg: "opening database fasta", Err: err}
	}
	defer fh.Close()
	records, err := seqio.ReadFasta(fh)
	if err != nil {
		return err
	}
	rc.dbseq = make(map[string]string, len(records))
	for _, r := range records {
		rc.dbseq[r.ID] = r.Seq
	}
	return nil
}

// Recruit adds homologs to one family. The family consensus (stored, or
// synthesized by majority rule) is blasted against the database; each
// kept hit becomes a member plus a padded alignment row. Returns the
// recruited member ids.
func (rc *Recruiter) Recruit(ctx context.Context, f *model.SequenceFamily, strains *model.StrainTable) ([]string, error) {
	if f.Alignment == nil {
		return nil, &model.ArgumentError{Msg: fmt.Sprintf("family %s has no alignment to recruit into", f.ID)}
	}
	if err := rc.loadDB(); err != nil {
		return nil, err
	}

	consensus := f.Alignment.Consensus
	if consensus == "" {
		consensus = f.Alignment.MajorityConsensus()
	}
	// blast wants an ungapped query; remember which alignment column
	// each query position maps to
	colOf := make([]int, 0, len(consensus))
	var query strings.Builder
	for i := 0; i < len(consensus); i++ {
		if consensus[i] != model.Gap {
			colOf = append(colOf, i+1)
			query.WriteByte(consensus[i])
		}
	}
	if query.Len() == 0 {
		return nil, fmt.Errorf("family %s consensus is all gaps: %w", f.ID, model.ErrEmptyInput)
	}

	hits, err := rc.blastConsensus(ctx, f.ID, query.String())
	if err != nil {
		return nil, err
	}
	kept, err := rc.keepHits(hits)
	if err != nil {
		return nil, err
	}

	var recruited []string
	for _, h := range kept {
		if _, dup := f.Members[h.Subject]; dup {
			continue
		}
		raw, ok := rc.dbseq[h.Subject]
		if !ok {
			return recruited, &model.InputError{Msg: fmt.Sprintf("subject %q missing from database fasta", h.Subject)}
		}
		row, hitstr, strand, err := padHit(h, raw, colOf, f.Alignment.Columns())
		if err != nil {
			return recruited, err
		}
		m := &model.Member{ID: h.Subject, Seq: hitstr}
		if rc.opts.Deflines != nil {
			m.Description = rc.opts.Deflines[h.Subject]
		}
		f.AddMember(m)
		if err := f.Alignment.AddRow(&model.Row{MemberID: h.Subject, Strand: strand, Gapped: row}); err != nil {
			return recruited, err
		}
		if rc.opts.Strain != "" {
			strains.Set(h.Subject, rc.opts.Strain)
		}
		recruited = append(recruited, h.Subject)
	}
	if len(recruited) > 0 {
		f.Invalidate()
		logger.Info("recruited homologs",
			zap.String("family", f.ID), zap.Int("members", len(recruited)))
	}
	return recruited, nil
}

func (rc *Recruiter) blastConsensus(ctx context.Context, familyID, query string) ([]*blastclust.Hit, error) {
	dir, err := rc.runner.Scratch()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "consensus.fasta")
	content := fmt.Sprintf(">%s\n%s\n", familyID, query)
	if err := os.WriteFile(in, []byte(content), 0o644); err != nil {
		return nil, err
	}
	args := []string{"-db", rc.opts.DB, "-query", in, "-outfmt", "6"}
	stdout, err := rc.runner.Run(ctx, dir, "blastn", args, nil)
	if err != nil {
		return nil, err
	}

	var hits []*blastclust.Hit
	tr := blastclust.NewTabularReader(strings.NewReader(stdout))
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// keepHits applies the filter, or defaults to the best-scoring hit.
func (rc *Recruiter) keepHits(hits []*blastclust.Hit) ([]*blastclust.Hit, error) {
	if len(hits) == 0 {
		return nil, nil
	}
	if len(rc.opts.Filter) == 0 {
		best := hits[0]
		for _, h := range hits[1:] {
			if h.BitScore > best.BitScore {
				best = h
			}
		}
		return []*blastclust.Hit{best}, nil
	}
	var kept []*blastclust.Hit
	for _, h := range hits {
		ok, err := rc.opts.Filter.Match(h)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, h)
		}
	}
	return kept, nil
}

// padHit builds the gap-padded row for one hit. The hit string is the
// subject slice, reverse-complemented when the subject coordinates
// descend; it is placed at the alignment column of q_start and extended
// with trailing gaps to the alignment length.
func padHit(h *blastclust.Hit, raw string, colOf []int, columns int) (row, hitstr string, strand int8, err error) {
	ss, se := h.SStart, h.SEnd
	strand = 1
	if ss > se {
		ss, se = se, ss
		strand = -1
	}
	if ss < 1 || se > len(raw) {
		return "", "", 0, &model.InputError{Msg: fmt.Sprintf(
			"hit %s subject range [%d,%d] outside sequence of %d bases", h.Subject, h.SStart, h.SEnd, len(raw))}
	}
	hitstr = raw[ss-1 : se]
	if strand < 0 {
		hitstr = util.Revcomp(hitstr)
	}
	if h.QStart < 1 || h.QStart > len(colOf) {
		return "", "", 0, &model.InputError{Msg: fmt.Sprintf(
			"hit %s query start %d outside consensus of %d bases", h.Subject, h.QStart, len(colOf))}
	}
	startCol := colOf[h.QStart-1]
	row = strings.Repeat("-", startCol-1) + hitstr
	if len(row) > columns {
		row = row[:columns]
	} else if len(row) < columns {
		row += strings.Repeat("-", columns-len(row))
	}
	return row, hitstr, strand, nil
}
