package model

import (
	"fmt"
	"math"
)

// Native distance functions computed straight from the alignment, so the
// engine can run without the phylip toolchain. Sites where either row has
// a gap are dropped pairwise.

// PDistanceMatrix fills a matrix with uncorrected p-distances.
func PDistanceMatrix(a *Alignment) (*DistanceMatrix, error) {
	return distanceMatrix(a, func(p float64) float64 { return p })
}

// JC69Matrix fills a matrix with Jukes-Cantor corrected distances.
// Saturated pairs (p >= 3/4) are pinned to a large finite distance.
func JC69Matrix(a *Alignment) (*DistanceMatrix, error) {
	return distanceMatrix(a, func(p float64) float64 {
		if p >= 0.75 {
			return 10
		}
		return -0.75 * math.Log(1-4*p/3)
	})
}

func distanceMatrix(a *Alignment, correct func(float64) float64) (*DistanceMatrix, error) {
	if a == nil || a.Len() < 2 {
		return nil, fmt.Errorf("distance needs at least two rows: %w", ErrEmptyInput)
	}
	m, err := NewDistanceMatrix(a.MemberIDs())
	if err != nil {
		return nil, err
	}
	for i := 0; i < a.Len(); i++ {
		for j := i + 1; j < a.Len(); j++ {
			ri, rj := a.Row(i), a.Row(j)
			sites, diff := 0, 0
			for c := 0; c < len(ri.Gapped); c++ {
				ci, cj := ri.Gapped[c], rj.Gapped[c]
				if ci == Gap || cj == Gap {
					continue
				}
				sites++
				if ci != cj {
					diff++
				}
			}
			p := 0.0
			if sites > 0 {
				p = float64(diff) / float64(sites)
			}
			if err := m.Set(ri.MemberID, rj.MemberID, correct(p)); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}
