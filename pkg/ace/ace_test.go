package ace

import (
	"strings"
	"testing"
)

// Contig C1 of length 16, two reads clipped to [3,10] and placed at
// pad-start 5 and 1.
const fixture = `AS 1 2

CO C1 16 2 0 U
ACGTACGTACGTACGT

AF r1 U 5
AF r2 C 1

RD r1 12 0 0
GGACGTACGTAC
QA 1 12 3 10

RD r2 12 0 0
TTACGT*CGTAC
QA 1 12 3 10
`

func TestParseContig(t *testing.T) {
	families, err := Parse(strings.NewReader(fixture), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(families) != 1 {
		t.Fatalf("%d families, want 1", len(families))
	}
	f := families[0]
	if f.ID != "C1" {
		t.Errorf("family id %q", f.ID)
	}
	if f.Len() != 2 {
		t.Fatalf("%d members, want 2", f.Len())
	}
	if f.Alignment == nil || f.Alignment.Len() != 2 {
		t.Fatal("alignment missing rows")
	}
	if f.Alignment.Consensus != "ACGTACGTACGTACGT" {
		t.Errorf("consensus %q", f.Alignment.Consensus)
	}

	// r1: clip [3,10] of GGACGTACGTAC -> ACGTACGT, 4 leading gaps for
	// pad start 5, trailing gaps to contig length 16
	r1, ok := f.Alignment.RowByID("r1")
	if !ok {
		t.Fatal("row r1 missing")
	}
	if r1.Gapped != "----ACGTACGT----" {
		t.Errorf("r1 row %q", r1.Gapped)
	}
	if r1.Start != 5 || r1.End != 12 {
		t.Errorf("r1 extents [%d,%d]", r1.Start, r1.End)
	}
	if r1.Strand != 1 {
		t.Errorf("r1 strand %d", r1.Strand)
	}
	if f.Members["r1"].Seq != "ACGTACGT" {
		t.Errorf("r1 unpadded seq %q", f.Members["r1"].Seq)
	}

	// r2: complemented read at pad start 1; the '*' pad becomes '-'
	r2, _ := f.Alignment.RowByID("r2")
	if r2.Strand != -1 {
		t.Errorf("r2 strand %d", r2.Strand)
	}
	if r2.Gapped != "ACGT-CGT--------" {
		t.Errorf("r2 row %q", r2.Gapped)
	}
	if f.Members["r2"].Seq != "ACGTCGT" {
		t.Errorf("r2 unpadded seq %q", f.Members["r2"].Seq)
	}
}

func TestNoSinglets(t *testing.T) {
	singlet := `AS 1 1

CO C1 8 1 0 U
ACGTACGT

AF r1 U 1

RD r1 8 0 0
ACGTACGT
QA 1 8 1 8
`
	families, err := Parse(strings.NewReader(singlet), Options{NoSinglets: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(families) != 0 {
		t.Errorf("singlet contig kept: %d families", len(families))
	}
	families, err = Parse(strings.NewReader(singlet), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(families) != 1 {
		t.Errorf("singlet contig dropped without nosinglets")
	}
}

func TestMalformedRecords(t *testing.T) {
	cases := []string{
		"AS 1\n",                          // short AS
		"AF r1 U 5\n",                     // AF outside contig
		"AS 1 1\n\nCO C1 x 1 0 U\nACGT\n", // non-integer length
		"QA 1 8 1 8\n",                    // QA without read
	}
	for i, c := range cases {
		if _, err := Parse(strings.NewReader(c), Options{}); err == nil {
			t.Errorf("case %d accepted", i)
		}
	}
}

func TestNegativePadStartNormalised(t *testing.T) {
	neg := `AS 1 2

CO C1 8 2 0 U
ACGTACGT

AF r1 U -3
AF r2 U 1

RD r1 8 0 0
ACGTACGT
QA 1 8 1 8

RD r2 8 0 0
ACGTACGT
QA 1 8 1 8
`
	families, err := Parse(strings.NewReader(neg), Options{})
	if err != nil {
		t.Fatal(err)
	}
	r1, _ := families[0].Alignment.RowByID("r1")
	if r1.Gapped != "ACGTACGT" {
		t.Errorf("negative pad start row %q", r1.Gapped)
	}
}
