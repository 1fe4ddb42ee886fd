// Package seqio reads the pipeline's input tables and writes its output
// artifacts. Everything is native streaming I/O; the defline file is
// pre-indexed into a map on first use instead of being grepped per hit.
package seqio

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/yumyai/phyloclust/pkg/model"
)

// FastaRecord is one id/sequence pair from a member fasta.
type FastaRecord struct {
	ID  string
	Seq string
}

// ReadFasta streams a fasta file; multi-line sequences are concatenated.
func ReadFasta(r io.Reader) ([]FastaRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	var out []FastaRecord
	var cur *FastaRecord
	var seq strings.Builder
	flush := func() {
		if cur != nil {
			cur.Seq = seq.String()
			out = append(out, *cur)
			seq.Reset()
		}
	}
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			flush()
			id := strings.Fields(line[1:])
			if len(id) == 0 {
				return nil, &model.InputError{Msg: "fasta header without id"}
			}
			cur = &FastaRecord{ID: id[0]}
			continue
		}
		if cur == nil {
			return nil, &model.InputError{Msg: "fasta sequence before first header"}
		}
		seq.WriteString(line)
	}
	if err := sc.Err(); err != nil {
		return nil, &model.InputError{Msg: "reading fasta", Err: err}
	}
	flush()
	return out, nil
}

// AttachSequences loads member sequences into a cluster set from a fasta
// stream. Records for unknown members are ignored; the count of members
// that got a sequence is returned.
func AttachSequences(cs *model.ClusterSet, r io.Reader) (int, error) {
	records, err := ReadFasta(r)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range records {
		fid, ok := cs.FamilyOf(rec.ID)
		if !ok {
			continue
		}
		f, _ := cs.Get(fid)
		if m, ok := f.Members[rec.ID]; ok {
			m.Seq = rec.Seq
			n++
		}
	}
	return n, nil
}

// ReadStrainTable parses the two-column member/strain table.
func ReadStrainTable(r io.Reader) (*model.StrainTable, error) {
	t := model.NewStrainTable()
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		cols := strings.Split(text, "\t")
		if len(cols) != 2 {
			return nil, &model.InputError{Msg: fmt.Sprintf("strain table line %d wants 2 columns", line)}
		}
		t.Set(strings.TrimSpace(cols[0]), strings.TrimSpace(cols[1]))
	}
	if err := sc.Err(); err != nil {
		return nil, &model.InputError{Msg: "reading strain table", Err: err}
	}
	if t.Len() == 0 {
		return nil, fmt.Errorf("no strains loaded: %w", model.ErrEmptyInput)
	}
	return t, nil
}

// ReadGOTable parses the two-column GO annotation table; the second
// column is a semicolon-separated list, each term optionally
// GO:NNNNNNN=<description>.
func ReadGOTable(r io.Reader) (map[string][]model.GOTerm, error) {
	out := make(map[string][]model.GOTerm)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		cols := strings.Split(text, "\t")
		if len(cols) != 2 {
			return nil, &model.InputError{Msg: fmt.Sprintf("GO table line %d wants 2 columns", line)}
		}
		id := strings.TrimSpace(cols[0])
		for _, raw := range strings.Split(cols[1], ";") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			term := model.GOTerm{ID: raw}
			if eq := strings.IndexByte(raw, '='); eq >= 0 {
				term.ID = strings.TrimSpace(raw[:eq])
				term.Description = strings.TrimSpace(raw[eq+1:])
			}
			out[id] = append(out[id], term)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &model.InputError{Msg: "reading GO table", Err: err}
	}
	return out, nil
}

// AttachGOTerms joins GO annotations onto cluster-set members.
func AttachGOTerms(cs *model.ClusterSet, terms map[string][]model.GOTerm) int {
	n := 0
	for id, list := range terms {
		fid, ok := cs.FamilyOf(id)
		if !ok {
			continue
		}
		f, _ := cs.Get(fid)
		if m, ok := f.Members[id]; ok {
			m.GOTerms = append(m.GOTerms, list...)
			n++
		}
	}
	return n
}

// Deflines maps subject ids to their blast defline descriptions.
type Deflines map[string]string

// ReadDeflines indexes the whole defline file in one pass.
func ReadDeflines(r io.Reader) (Deflines, error) {
	out := make(Deflines)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r\n")
		if text == "" {
			continue
		}
		cols := strings.SplitN(text, "\t", 2)
		if len(cols) != 2 {
			return nil, &model.InputError{Msg: fmt.Sprintf("defline file line %d wants 2 columns", line)}
		}
		out[strings.TrimPrefix(strings.TrimSpace(cols[0]), ">")] = strings.TrimSpace(cols[1])
	}
	if err := sc.Err(); err != nil {
		return nil, &model.InputError{Msg: "reading defline file", Err: err}
	}
	return out, nil
}
