package blastclust

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yumyai/phyloclust/pkg/model"
)

// ParseTabularLine reads one 12-column tab-separated blast record.
func ParseTabularLine(line string) (*Hit, error) {
	cols := strings.Split(line, "\t")
	if len(cols) != 12 {
		// blastall pads with spaces on some platforms
		cols = strings.Fields(line)
	}
	if len(cols) != 12 {
		return nil, &model.InputError{Msg: fmt.Sprintf("blast line has %d columns, want 12", len(cols))}
	}
	h := &Hit{Query: cols[0], Subject: cols[1]}
	var err error
	if h.PctIdentity, err = strconv.ParseFloat(cols[2], 64); err != nil {
		return nil, badColumn("pct-identity", cols[2], err)
	}
	ints := []struct {
		name string
		dst  *int
		raw  string
	}{
		{"aln-length", &h.AlignLength, cols[3]},
		{"mismatches", &h.Mismatches, cols[4]},
		{"gap-openings", &h.GapOpenings, cols[5]},
		{"q-start", &h.QStart, cols[6]},
		{"q-end", &h.QEnd, cols[7]},
		{"s-start", &h.SStart, cols[8]},
		{"s-end", &h.SEnd, cols[9]},
	}
	for _, c := range ints {
		if *c.dst, err = strconv.Atoi(c.raw); err != nil {
			return nil, badColumn(c.name, c.raw, err)
		}
	}
	if h.EValue, err = strconv.ParseFloat(cols[10], 64); err != nil {
		return nil, badColumn("e-value", cols[10], err)
	}
	if h.BitScore, err = strconv.ParseFloat(strings.TrimSpace(cols[11]), 64); err != nil {
		return nil, badColumn("bit-score", cols[11], err)
	}
	return h, nil
}

func badColumn(name, raw string, err error) error {
	return &model.InputError{Msg: fmt.Sprintf("blast column %s = %q", name, raw), Err: err}
}

// TabularReader streams hits from a tabular blast report. Comment lines
// (leading '#', as -outfmt 7 writes) and blank lines are skipped.
type TabularReader struct {
	sc   *bufio.Scanner
	line int
}

func NewTabularReader(r io.Reader) *TabularReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &TabularReader{sc: sc}
}

// Next returns the next hit, or io.EOF when the stream is done.
func (t *TabularReader) Next() (*Hit, error) {
	for t.sc.Scan() {
		t.line++
		line := strings.TrimRight(t.sc.Text(), "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		h, err := ParseTabularLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", t.line, err)
		}
		return h, nil
	}
	if err := t.sc.Err(); err != nil {
		return nil, &model.InputError{Msg: "reading blast report", Err: err}
	}
	return nil, io.EOF
}
