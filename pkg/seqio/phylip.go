package seqio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/yumyai/phyloclust/pkg/model"
)

// The phylip tools truncate names to ten characters, so member ids are
// swapped for short aliases on the way out and restored from the returned
// map when the tool's output comes back.

func phylipAlias(i int) string {
	return fmt.Sprintf("s%08d", i+1)
}

// WritePhylipAlignment writes a strict interleaved-free phylip alignment
// and returns the alias -> member-id map.
func WritePhylipAlignment(path string, a *model.Alignment) (map[string]string, error) {
	if a == nil || a.Len() == 0 {
		return nil, fmt.Errorf("phylip alignment: %w", model.ErrEmptyInput)
	}
	renames := make(map[string]string, a.Len())
	var b strings.Builder
	fmt.Fprintf(&b, " %d %d\n", a.Len(), a.Columns())
	for i := 0; i < a.Len(); i++ {
		r := a.Row(i)
		alias := phylipAlias(i)
		renames[alias] = r.MemberID
		fmt.Fprintf(&b, "%-10s%s\n", alias, r.Gapped)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return nil, err
	}
	return renames, nil
}

// WritePhylipDistance writes a square phylip distance matrix and returns
// the alias map.
func WritePhylipDistance(path string, d *model.DistanceMatrix) (map[string]string, error) {
	if d == nil || d.Len() == 0 {
		return nil, fmt.Errorf("phylip distance: %w", model.ErrEmptyInput)
	}
	labels := d.Labels()
	renames := make(map[string]string, len(labels))
	var b strings.Builder
	fmt.Fprintf(&b, "%5d\n", len(labels))
	for i, from := range labels {
		alias := phylipAlias(i)
		renames[alias] = from
		fmt.Fprintf(&b, "%-10s", alias)
		for _, to := range labels {
			v, err := d.Get(from, to)
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(&b, " %9.6f", v)
		}
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return nil, err
	}
	return renames, nil
}

// FormatPhylipDistance renders a square matrix with the real member ids,
// for the distance output artifact.
func FormatPhylipDistance(w io.Writer, d *model.DistanceMatrix) error {
	labels := d.Labels()
	if _, err := fmt.Fprintf(w, "%5d\n", len(labels)); err != nil {
		return err
	}
	for _, from := range labels {
		if _, err := fmt.Fprintf(w, "%-10s", from); err != nil {
			return err
		}
		for _, to := range labels {
			v, err := d.Get(from, to)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, " %9.6f", v); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// ReadPhylipDistance parses a square phylip matrix (wrapped rows
// allowed): a count line, then per row a label followed by count values.
func ReadPhylipDistance(r io.Reader) (*model.DistanceMatrix, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	next := func() (string, bool) {
		if sc.Scan() {
			return sc.Text(), true
		}
		return "", false
	}

	tok, ok := next()
	if !ok {
		return nil, fmt.Errorf("empty distance file: %w", model.ErrEmptyInput)
	}
	n, err := strconv.Atoi(tok)
	if err != nil || n < 1 {
		return nil, &model.InputError{Msg: fmt.Sprintf("bad taxon count %q", tok), Err: err}
	}

	labels := make([]string, n)
	values := make([][]float64, n)
	for i := 0; i < n; i++ {
		label, ok := next()
		if !ok {
			return nil, &model.InputError{Msg: fmt.Sprintf("distance matrix truncated at row %d", i+1)}
		}
		labels[i] = label
		values[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			tok, ok := next()
			if !ok {
				return nil, &model.InputError{Msg: fmt.Sprintf("distance row %q truncated", label)}
			}
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, &model.InputError{Msg: fmt.Sprintf("distance value %q in row %q", tok, label), Err: err}
			}
			values[i][j] = v
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &model.InputError{Msg: "reading distance matrix", Err: err}
	}

	m, err := model.NewDistanceMatrix(labels)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if err := m.Set(labels[i], labels[j], values[i][j]); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// RestoreLabels maps phylip aliases back to member ids on a parsed
// matrix.
func RestoreLabels(m *model.DistanceMatrix, renames map[string]string) (*model.DistanceMatrix, error) {
	if len(renames) == 0 {
		return m, nil
	}
	for _, alias := range m.Labels() {
		full, ok := renames[alias]
		if !ok {
			continue
		}
		if err := m.Rename(alias, full); err != nil {
			return nil, err
		}
	}
	return m, nil
}
