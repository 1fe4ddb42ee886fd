package model

import (
	"fmt"
	"sort"
)

// SequenceFamily is one putatively homologous gene family: the member set
// plus the optional artifacts computed from it. The alignment may hold a
// pruned subset of the members; distance labels and tree leaves always
// match the alignment rows.
type SequenceFamily struct {
	ID        string
	Members   map[string]*Member
	Alignment *Alignment
	Distance  *DistanceMatrix
	Tree      *Tree
	Bootstrap *Tree // majority-rule consensus with supports
}

func NewFamily(id string) *SequenceFamily {
	return &SequenceFamily{
		ID:      id,
		Members: make(map[string]*Member),
	}
}

// AddMember stores a member. First assignment wins: adding an id already
// present reports false and leaves the stored member untouched.
func (f *SequenceFamily) AddMember(m *Member) bool {
	if _, dup := f.Members[m.ID]; dup {
		return false
	}
	f.Members[m.ID] = m
	return true
}

func (f *SequenceFamily) Len() int {
	return len(f.Members)
}

// MemberIDs returns the member ids, sorted.
func (f *SequenceFamily) MemberIDs() []string {
	out := make([]string, 0, len(f.Members))
	for id := range f.Members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Invalidate clears the artifacts derived from the alignment.
func (f *SequenceFamily) Invalidate() {
	f.Distance = nil
	f.Tree = nil
	f.Bootstrap = nil
}

// InvalidateAll clears the alignment too.
func (f *SequenceFamily) InvalidateAll() {
	f.Alignment = nil
	f.Invalidate()
}

// RemoveMembers drops members from the family and from the alignment rows,
// then invalidates distance, tree and bootstrap.
func (f *SequenceFamily) RemoveMembers(ids ...string) {
	for _, id := range ids {
		delete(f.Members, id)
	}
	if f.Alignment != nil {
		f.Alignment.Remove(ids...)
	}
	f.Invalidate()
}

// KeepMembers drops every member not in the given set. Alignment rows are
// restricted the same way; downstream artifacts are invalidated.
func (f *SequenceFamily) KeepMembers(ids ...string) {
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	var drop []string
	for id := range f.Members {
		if !keep[id] {
			drop = append(drop, id)
		}
	}
	sort.Strings(drop)
	f.RemoveMembers(drop...)
}

// CheckConsistency verifies the cross-entity invariants:
// alignment rows are a subset of the member set, distance labels equal the
// alignment rows, tree leaves equal the alignment rows.
func (f *SequenceFamily) CheckConsistency() error {
	if f.Alignment == nil {
		if f.Distance != nil || f.Tree != nil || f.Bootstrap != nil {
			return &ConsistencyError{Msg: fmt.Sprintf(
				"family %s has derived artifacts without an alignment", f.ID)}
		}
		return nil
	}
	rows := f.Alignment.MemberIDs()
	for _, id := range rows {
		if _, ok := f.Members[id]; !ok {
			return &ConsistencyError{Msg: fmt.Sprintf(
				"family %s: alignment row %q is not a member", f.ID, id)}
		}
	}
	rowSet := make(map[string]bool, len(rows))
	for _, id := range rows {
		rowSet[id] = true
	}
	if f.Distance != nil {
		if f.Distance.Len() != len(rows) {
			return &ConsistencyError{Msg: fmt.Sprintf(
				"family %s: %d distance labels for %d alignment rows",
				f.ID, f.Distance.Len(), len(rows))}
		}
		for _, l := range f.Distance.Labels() {
			if !rowSet[l] {
				return &ConsistencyError{Msg: fmt.Sprintf(
					"family %s: distance label %q is not an alignment row", f.ID, l)}
			}
		}
	}
	for _, t := range []*Tree{f.Tree, f.Bootstrap} {
		if t == nil {
			continue
		}
		names := t.LeafNames()
		if len(names) != len(rows) {
			return &ConsistencyError{Msg: fmt.Sprintf(
				"family %s: %d tree leaves for %d alignment rows",
				f.ID, len(names), len(rows))}
		}
		for _, n := range names {
			if !rowSet[n] {
				return &ConsistencyError{Msg: fmt.Sprintf(
					"family %s: tree leaf %q is not an alignment row", f.ID, n)}
			}
		}
	}
	return nil
}

// ClusterSet owns the families of one run together with the strain table
// and the member index. Families are owned exclusively; a family's member
// set holds the members and its alignment rows refer to them by id.
type ClusterSet struct {
	Root     string // rootname for renumbered family ids
	Families map[string]*SequenceFamily
	Strains  *StrainTable

	memberIndex map[string]string // member id -> family id
}

func NewClusterSet(root string) *ClusterSet {
	return &ClusterSet{
		Root:        root,
		Families:    make(map[string]*SequenceFamily),
		Strains:     NewStrainTable(),
		memberIndex: make(map[string]string),
	}
}

func (cs *ClusterSet) Len() int {
	return len(cs.Families)
}

func (cs *ClusterSet) Get(id string) (*SequenceFamily, bool) {
	f, ok := cs.Families[id]
	return f, ok
}

// IDs returns the family ids, sorted.
func (cs *ClusterSet) IDs() []string {
	out := make([]string, 0, len(cs.Families))
	for id := range cs.Families {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Add stores a family and indexes its members.
func (cs *ClusterSet) Add(f *SequenceFamily) {
	cs.Families[f.ID] = f
	for id := range f.Members {
		cs.memberIndex[id] = f.ID
	}
}

// Delete removes families and their member index entries.
func (cs *ClusterSet) Delete(ids ...string) {
	for _, id := range ids {
		f, ok := cs.Families[id]
		if !ok {
			continue
		}
		for m := range f.Members {
			delete(cs.memberIndex, m)
		}
		delete(cs.Families, id)
	}
}

// FamilyOf returns the id of the family holding a member.
func (cs *ClusterSet) FamilyOf(memberID string) (string, bool) {
	id, ok := cs.memberIndex[memberID]
	return id, ok
}

// Unindex drops member index entries for members removed from a family.
func (cs *ClusterSet) Unindex(memberIDs ...string) {
	for _, id := range memberIDs {
		delete(cs.memberIndex, id)
	}
}

// Index records a member as belonging to a family.
func (cs *ClusterSet) Index(memberID, familyID string) {
	cs.memberIndex[memberID] = familyID
}

// Renumber reassigns family ids by descending member count, ties stable by
// original id, as zero-padded "<root>_<N>". The pad width grows with the
// family count but never drops below three digits.
func (cs *ClusterSet) Renumber() {
	type entry struct {
		id string
		f  *SequenceFamily
	}
	entries := make([]entry, 0, len(cs.Families))
	for id, f := range cs.Families {
		entries = append(entries, entry{id, f})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].f.Len() != entries[j].f.Len() {
			return entries[i].f.Len() > entries[j].f.Len()
		}
		return entries[i].id < entries[j].id
	})
	width := len(fmt.Sprintf("%d", len(entries)))
	if width < 3 {
		width = 3
	}
	renamed := make(map[string]*SequenceFamily, len(entries))
	for i, e := range entries {
		e.f.ID = fmt.Sprintf("%s_%0*d", cs.Root, width, i+1)
		renamed[e.f.ID] = e.f
		for m := range e.f.Members {
			cs.memberIndex[m] = e.f.ID
		}
	}
	cs.Families = renamed
}
