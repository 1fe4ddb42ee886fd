package seqio

import (
	"strings"
	"testing"

	"github.com/yumyai/phyloclust/pkg/model"
)

func TestReadFasta(t *testing.T) {
	in := ">m1 some description\nACGT\nACGT\n>m2\nTTTT\n"
	recs, err := ReadFasta(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("%d records, want 2", len(recs))
	}
	if recs[0].ID != "m1" || recs[0].Seq != "ACGTACGT" {
		t.Errorf("record 0: %+v", recs[0])
	}
	if recs[1].ID != "m2" || recs[1].Seq != "TTTT" {
		t.Errorf("record 1: %+v", recs[1])
	}

	if _, err := ReadFasta(strings.NewReader("ACGT\n")); err == nil {
		t.Error("sequence before header accepted")
	}
}

func TestReadStrainTable(t *testing.T) {
	in := "m1\tSly\nm2\tNta\n"
	st, err := ReadStrainTable(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := st.StrainOf("m1"); s != "Sly" {
		t.Errorf("m1 strain %q", s)
	}
	if got := st.Strains(); len(got) != 2 {
		t.Errorf("strains %v", got)
	}

	if _, err := ReadStrainTable(strings.NewReader("")); err == nil {
		t.Error("empty table accepted")
	}
	if _, err := ReadStrainTable(strings.NewReader("one-column\n")); err == nil {
		t.Error("one-column line accepted")
	}
}

func TestReadGOTable(t *testing.T) {
	in := "m1\tGO:0008150=biological process;GO:0003674\n"
	terms, err := ReadGOTable(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	got := terms["m1"]
	if len(got) != 2 {
		t.Fatalf("terms %v", got)
	}
	if got[0].ID != "GO:0008150" || got[0].Description != "biological process" {
		t.Errorf("term 0: %+v", got[0])
	}
	if got[1].ID != "GO:0003674" || got[1].Description != "" {
		t.Errorf("term 1: %+v", got[1])
	}
}

func TestReadDeflines(t *testing.T) {
	in := ">s1\theat shock protein\ns2\thypothetical protein\n"
	d, err := ReadDeflines(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if d["s1"] != "heat shock protein" {
		t.Errorf("s1 defline %q", d["s1"])
	}
	if d["s2"] != "hypothetical protein" {
		t.Errorf("s2 defline %q", d["s2"])
	}
}

func TestWriteMembership(t *testing.T) {
	cs := model.NewClusterSet("t")
	f := model.NewFamily("t_001")
	f.AddMember(&model.Member{ID: "m2"})
	f.AddMember(&model.Member{ID: "m1"})
	cs.Add(f)

	var b strings.Builder
	if err := WriteMembership(&b, cs); err != nil {
		t.Fatal(err)
	}
	want := "t_001\tm1\nt_001\tm2\n"
	if b.String() != want {
		t.Errorf("membership %q, want %q", b.String(), want)
	}
}

// Round-trip: serialise an alignment to clustalw and read it back; row
// labels and sequences compare equal.
func TestClustalRoundTrip(t *testing.T) {
	a := model.NewAlignment()
	rows := map[string]string{
		"member_one": "ACGT-ACGTA",
		"member_two": "ACGTTACG--",
	}
	for _, id := range []string{"member_one", "member_two"} {
		if err := a.AddRow(&model.Row{MemberID: id, Gapped: rows[id]}); err != nil {
			t.Fatal(err)
		}
	}

	var b strings.Builder
	if err := WriteAlignment(&b, a, FormatClustal); err != nil {
		t.Fatal(err)
	}
	back, err := ReadClustalAlignment(strings.NewReader(b.String()))
	if err != nil {
		t.Fatal(err)
	}
	if back.Len() != a.Len() {
		t.Fatalf("round trip lost rows: %d", back.Len())
	}
	for id, want := range rows {
		r, ok := back.RowByID(id)
		if !ok {
			t.Fatalf("row %s missing after round trip", id)
		}
		if !strings.EqualFold(r.Gapped, want) {
			t.Errorf("row %s = %q, want %q", id, r.Gapped, want)
		}
	}
}

func TestPhylipDistanceRoundTrip(t *testing.T) {
	m, err := model.NewDistanceMatrix([]string{"alpha", "beta", "gamma"})
	if err != nil {
		t.Fatal(err)
	}
	_ = m.Set("alpha", "beta", 0.25)
	_ = m.Set("alpha", "gamma", 0.5)
	_ = m.Set("beta", "gamma", 0.125)

	var b strings.Builder
	if err := FormatPhylipDistance(&b, m); err != nil {
		t.Fatal(err)
	}
	back, err := ReadPhylipDistance(strings.NewReader(b.String()))
	if err != nil {
		t.Fatal(err)
	}
	for _, pair := range [][2]string{{"alpha", "beta"}, {"alpha", "gamma"}, {"beta", "gamma"}} {
		want, _ := m.Get(pair[0], pair[1])
		got, err := back.Get(pair[0], pair[1])
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("d(%s,%s) = %v, want %v", pair[0], pair[1], got, want)
		}
	}
}

func TestUnknownAlignmentFormat(t *testing.T) {
	a := model.NewAlignment()
	if err := a.AddRow(&model.Row{MemberID: "m1", Gapped: "ACGT"}); err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	if err := WriteAlignment(&b, a, "stockholm"); err == nil {
		t.Error("unknown format accepted")
	}
}
