package recruit

import (
	"testing"

	"github.com/yumyai/phyloclust/pkg/blastclust"
)

func TestPadHitForward(t *testing.T) {
	// alignment columns 1..12, every consensus position is a residue
	colOf := make([]int, 12)
	for i := range colOf {
		colOf[i] = i + 1
	}
	h := &blastclust.Hit{Subject: "s1", QStart: 4, SStart: 11, SEnd: 16}
	raw := "NNNNNNNNNNACGTGGNN"

	row, hitstr, strand, err := padHit(h, raw, colOf, 12)
	if err != nil {
		t.Fatal(err)
	}
	if strand != 1 {
		t.Errorf("strand %d", strand)
	}
	if hitstr != "ACGTGG" {
		t.Errorf("hit string %q", hitstr)
	}
	if row != "---ACGTGG---" {
		t.Errorf("padded row %q", row)
	}
}

func TestPadHitReverse(t *testing.T) {
	colOf := []int{1, 2, 3, 4, 5, 6, 7, 8}
	h := &blastclust.Hit{Subject: "s1", QStart: 1, SStart: 6, SEnd: 1}
	raw := "ACGTGG"

	row, hitstr, strand, err := padHit(h, raw, colOf, 8)
	if err != nil {
		t.Fatal(err)
	}
	if strand != -1 {
		t.Errorf("strand %d", strand)
	}
	if hitstr != "CCACGT" {
		t.Errorf("reverse-complemented hit %q", hitstr)
	}
	if row != "CCACGT--" {
		t.Errorf("padded row %q", row)
	}
}

// a gapped consensus shifts the placement to the real alignment column
func TestPadHitGappedConsensus(t *testing.T) {
	// consensus "-AC-GT": residues map to columns 2,3,5,6
	colOf := []int{2, 3, 5, 6}
	h := &blastclust.Hit{Subject: "s1", QStart: 2, SStart: 1, SEnd: 3}
	raw := "TTTAAA"

	row, _, _, err := padHit(h, raw, colOf, 8)
	if err != nil {
		t.Fatal(err)
	}
	if row != "--TTT---" {
		t.Errorf("padded row %q", row)
	}
}

func TestPadHitBadCoordinates(t *testing.T) {
	colOf := []int{1, 2, 3}
	if _, _, _, err := padHit(&blastclust.Hit{Subject: "s1", QStart: 9, SStart: 1, SEnd: 2}, "ACGT", colOf, 3); err == nil {
		t.Error("query start past consensus accepted")
	}
	if _, _, _, err := padHit(&blastclust.Hit{Subject: "s1", QStart: 1, SStart: 1, SEnd: 99}, "ACGT", colOf, 3); err == nil {
		t.Error("subject range past sequence accepted")
	}
}
