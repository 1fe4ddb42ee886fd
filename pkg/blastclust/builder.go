package blastclust

import (
	"fmt"
	"io"

	"github.com/yumyai/phyloclust/pkg/model"
)

// ReportParser abstracts the full blast report parser (any supported
// format, handled by an external collaborator). The fast path is
// TabularReader, which satisfies it directly.
type ReportParser interface {
	// Next returns the next hit, or io.EOF when the report is done.
	Next() (*Hit, error)
}

// Options configure one clustering run.
type Options struct {
	Rootname string
	Filter   Filter
	// MaxClusterMembers caps cluster size at admission time; 0 means
	// unlimited. A subject refused by a full cluster seeds its own
	// cluster when it is next seen as a query.
	MaxClusterMembers int
}

// Builder unions hits into clusters in order of appearance. A member is
// assigned to at most one cluster; first assignment wins.
type Builder struct {
	opts Options
	cs   *model.ClusterSet
	seq  int
}

func NewBuilder(opts Options) *Builder {
	if opts.Rootname == "" {
		opts.Rootname = "cluster"
	}
	return &Builder{
		opts: opts,
		cs:   model.NewClusterSet(opts.Rootname),
	}
}

// newCluster seeds a fresh cluster holding one member. Internal ids are
// creation-ordered so the final renumbering stays stable.
func (b *Builder) newCluster(memberID string) *model.SequenceFamily {
	b.seq++
	f := model.NewFamily(fmt.Sprintf("%s_u%06d", b.opts.Rootname, b.seq))
	f.AddMember(&model.Member{ID: memberID})
	b.cs.Add(f)
	return f
}

// Consume applies the filter to one hit and unions the subject into the
// query's cluster. Self-hits always admit the query into its own cluster.
func (b *Builder) Consume(h *Hit) error {
	if h.Self() {
		if _, assigned := b.cs.FamilyOf(h.Query); !assigned {
			b.newCluster(h.Query)
		}
		return nil
	}
	ok, err := b.opts.Filter.Match(h)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if _, assigned := b.cs.FamilyOf(h.Subject); assigned {
		return nil // first assignment wins
	}
	qid, assigned := b.cs.FamilyOf(h.Query)
	var fam *model.SequenceFamily
	if assigned {
		fam, _ = b.cs.Get(qid)
	} else {
		fam = b.newCluster(h.Query)
	}
	if b.opts.MaxClusterMembers > 0 && fam.Len() >= b.opts.MaxClusterMembers {
		return nil // cap reached; subject seeds its own cluster later
	}
	if fam.AddMember(&model.Member{ID: h.Subject}) {
		b.cs.Index(h.Subject, fam.ID)
	}
	return nil
}

// Finish renumbers clusters by descending size with zero-padded ids and
// returns the set.
func (b *Builder) Finish() *model.ClusterSet {
	b.cs.Renumber()
	return b.cs
}

// Build consumes a whole report through any parser.
func Build(p ReportParser, opts Options) (*model.ClusterSet, error) {
	b := NewBuilder(opts)
	for {
		h, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := b.Consume(h); err != nil {
			return nil, err
		}
	}
	return b.Finish(), nil
}

// BuildFromTabular is the fast path: it accepts only the 12-column
// tabular form and reads it directly.
func BuildFromTabular(r io.Reader, opts Options) (*model.ClusterSet, error) {
	return Build(NewTabularReader(r), opts)
}
