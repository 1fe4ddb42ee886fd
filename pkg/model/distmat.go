package model

import (
	"fmt"
)

// DistanceMatrix is a labelled symmetric matrix with a zero diagonal.
// Its label set always equals the member ids of the alignment it was
// derived from.
type DistanceMatrix struct {
	labels []string
	index  map[string]int
	d      [][]float64
}

func NewDistanceMatrix(labels []string) (*DistanceMatrix, error) {
	m := &DistanceMatrix{
		labels: make([]string, len(labels)),
		index:  make(map[string]int, len(labels)),
		d:      make([][]float64, len(labels)),
	}
	for i, l := range labels {
		if _, dup := m.index[l]; dup {
			return nil, &InputError{Msg: fmt.Sprintf("duplicated distance label %q", l)}
		}
		m.labels[i] = l
		m.index[l] = i
		m.d[i] = make([]float64, len(labels))
	}
	return m, nil
}

func (m *DistanceMatrix) Len() int {
	return len(m.labels)
}

// Labels returns the row labels in matrix order.
func (m *DistanceMatrix) Labels() []string {
	out := make([]string, len(m.labels))
	copy(out, m.labels)
	return out
}

func (m *DistanceMatrix) Has(label string) bool {
	_, ok := m.index[label]
	return ok
}

// Get returns the distance between two labelled rows.
func (m *DistanceMatrix) Get(a, b string) (float64, error) {
	i, ok := m.index[a]
	if !ok {
		return 0, &InputError{Msg: fmt.Sprintf("unknown distance label %q", a)}
	}
	j, ok := m.index[b]
	if !ok {
		return 0, &InputError{Msg: fmt.Sprintf("unknown distance label %q", b)}
	}
	return m.d[i][j], nil
}

// Set stores a distance symmetrically. Setting a non-zero diagonal entry
// is rejected.
func (m *DistanceMatrix) Set(a, b string, v float64) error {
	i, ok := m.index[a]
	if !ok {
		return &InputError{Msg: fmt.Sprintf("unknown distance label %q", a)}
	}
	j, ok := m.index[b]
	if !ok {
		return &InputError{Msg: fmt.Sprintf("unknown distance label %q", b)}
	}
	if i == j && v != 0 {
		return &ConsistencyError{Msg: fmt.Sprintf("non-zero diagonal for %q", a)}
	}
	m.d[i][j] = v
	m.d[j][i] = v
	return nil
}

// Rename relabels one row/column pair.
func (m *DistanceMatrix) Rename(old, new string) error {
	i, ok := m.index[old]
	if !ok {
		return &InputError{Msg: fmt.Sprintf("unknown distance label %q", old)}
	}
	if _, dup := m.index[new]; dup {
		return &InputError{Msg: fmt.Sprintf("distance label %q already present", new)}
	}
	delete(m.index, old)
	m.index[new] = i
	m.labels[i] = new
	return nil
}

// Without returns a copy with the given labels removed.
func (m *DistanceMatrix) Without(labels ...string) (*DistanceMatrix, error) {
	drop := make(map[string]bool, len(labels))
	for _, l := range labels {
		drop[l] = true
	}
	var kept []string
	for _, l := range m.labels {
		if !drop[l] {
			kept = append(kept, l)
		}
	}
	out, err := NewDistanceMatrix(kept)
	if err != nil {
		return nil, err
	}
	for i, a := range kept {
		for _, b := range kept[i+1:] {
			v, _ := m.Get(a, b)
			if err := out.Set(a, b, v); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
