package model

import (
	"fmt"
	"sort"
)

// StrainTable maps member ids to the strain they were sequenced from.
type StrainTable struct {
	byMember map[string]string
}

func NewStrainTable() *StrainTable {
	return &StrainTable{byMember: make(map[string]string)}
}

func (t *StrainTable) Set(memberID, strain string) {
	t.byMember[memberID] = strain
}

func (t *StrainTable) StrainOf(memberID string) (string, bool) {
	s, ok := t.byMember[memberID]
	return s, ok
}

func (t *StrainTable) Len() int {
	return len(t.byMember)
}

// Strains returns the distinct strain labels, sorted.
func (t *StrainTable) Strains() []string {
	seen := make(map[string]bool)
	for _, s := range t.byMember {
		seen[s] = true
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// MembersOf returns the member ids of one strain, sorted.
func (t *StrainTable) MembersOf(strain string) []string {
	var out []string
	for m, s := range t.byMember {
		if s == strain {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

// Composition is a multiset over strain labels: how many members of each
// strain a selection must contain.
type Composition map[string]int

func (c Composition) Clone() Composition {
	out := make(Composition, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Total is the number of members a satisfying selection holds.
func (c Composition) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

func (c Composition) String() string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := ""
	for i, k := range keys {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%s=%d", k, c[k])
	}
	return s
}

// Selection accumulates members against a Composition. It is a value owned
// by the caller and reset between families: construct a fresh one per run.
type Selection struct {
	need    Composition
	have    map[string]int
	members map[string]bool
	order   []string
	table   *StrainTable
}

func NewSelection(c Composition, table *StrainTable) *Selection {
	return &Selection{
		need:    c.Clone(),
		have:    make(map[string]int),
		members: make(map[string]bool),
		table:   table,
	}
}

// Push offers a member to the selection. The member is taken only when its
// strain is known and still has an open slot; duplicates are ignored.
// Returns whether the member was taken.
func (s *Selection) Push(memberID string) bool {
	if s.members[memberID] {
		return false
	}
	strain, ok := s.table.StrainOf(memberID)
	if !ok {
		return false
	}
	if s.have[strain] >= s.need[strain] {
		return false
	}
	s.have[strain]++
	s.members[memberID] = true
	s.order = append(s.order, memberID)
	return true
}

// Satisfied reports whether every strain requirement is met.
func (s *Selection) Satisfied() bool {
	for strain, n := range s.need {
		if s.have[strain] < n {
			return false
		}
	}
	return true
}

// Members returns the selected member ids in the order they were taken.
func (s *Selection) Members() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Has reports whether a member is already selected.
func (s *Selection) Has(memberID string) bool {
	return s.members[memberID]
}
