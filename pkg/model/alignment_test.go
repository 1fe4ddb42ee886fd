package model

import (
	"testing"
)

func mustRow(t *testing.T, a *Alignment, id, gapped string) {
	t.Helper()
	if err := a.AddRow(&Row{MemberID: id, Gapped: gapped}); err != nil {
		t.Fatalf("adding row %s: %v", id, err)
	}
}

func TestRowExtents(t *testing.T) {
	a := NewAlignment()
	mustRow(t, a, "m1", "--ACGT--")
	r, _ := a.RowByID("m1")
	if r.Start != 3 || r.End != 6 {
		t.Errorf("extents [%d,%d], want [3,6]", r.Start, r.End)
	}
}

func TestAddRowRejectsRagged(t *testing.T) {
	a := NewAlignment()
	mustRow(t, a, "m1", "ACGT")
	if err := a.AddRow(&Row{MemberID: "m2", Gapped: "ACGTT"}); err == nil {
		t.Error("ragged row accepted")
	}
	if err := a.AddRow(&Row{MemberID: "m1", Gapped: "ACGT"}); err == nil {
		t.Error("duplicate row accepted")
	}
}

func TestSliceAndCompact(t *testing.T) {
	a := NewAlignment()
	mustRow(t, a, "m1", "AA--CCGG")
	mustRow(t, a, "m2", "AA--CC--")

	s, err := a.Slice(1, 6)
	if err != nil {
		t.Fatal(err)
	}
	if s.Columns() != 6 {
		t.Fatalf("slice has %d columns, want 6", s.Columns())
	}
	s.CompactGaps()
	if s.Columns() != 4 {
		t.Errorf("compacted slice has %d columns, want 4", s.Columns())
	}
	r, _ := s.RowByID("m1")
	if r.Gapped != "AACC" {
		t.Errorf("compacted row %q, want AACC", r.Gapped)
	}
}

func TestMajorityConsensus(t *testing.T) {
	a := NewAlignment()
	mustRow(t, a, "m1", "AACG")
	mustRow(t, a, "m2", "AACT")
	mustRow(t, a, "m3", "AAC-")
	got := a.MajorityConsensus()
	// final column ties between G and T; the smaller byte wins
	if got != "AACG" {
		t.Errorf("consensus %q, want AACG", got)
	}
}

func TestProperties(t *testing.T) {
	a := NewAlignment()
	a.Score = 42
	mustRow(t, a, "m1", "AACC")
	mustRow(t, a, "m2", "AAC-")

	cases := []struct {
		prop string
		want float64
	}{
		{PropScore, 42},
		{PropLength, 4},
		{PropNumSequences, 2},
		{PropNumResidues, 7},
		{PropIdentity, 75},
	}
	for _, c := range cases {
		got, err := a.Property(c.prop)
		if err != nil {
			t.Fatalf("%s: %v", c.prop, err)
		}
		if got != c.want {
			t.Errorf("%s = %v, want %v", c.prop, got, c.want)
		}
	}
	if _, err := a.Property("no_such_property"); err == nil {
		t.Error("unknown property accepted")
	}
}

func TestRemoveKeepsOrder(t *testing.T) {
	a := NewAlignment()
	mustRow(t, a, "m1", "AAAA")
	mustRow(t, a, "m2", "CCCC")
	mustRow(t, a, "m3", "GGGG")
	a.Remove("m2")
	ids := a.MemberIDs()
	if len(ids) != 2 || ids[0] != "m1" || ids[1] != "m3" {
		t.Errorf("rows after remove: %v", ids)
	}
}
