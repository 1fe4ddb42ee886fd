package overlap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yumyai/phyloclust/pkg/model"
)

func buildAln(t *testing.T, rows map[string]string, order []string) *model.Alignment {
	t.Helper()
	a := model.NewAlignment()
	for _, id := range order {
		require.NoError(t, a.AddRow(&model.Row{MemberID: id, Gapped: rows[id]}))
	}
	return a
}

// Two rows AAAAACCCCC and ---AACCCCCGG over columns 1..12: the overlap
// is columns 4..10, length 7, identity 100%.
func TestPairOverlapGeometry(t *testing.T) {
	a := buildAln(t, map[string]string{
		"m1": "AAAAACCCCC--",
		"m2": "---AACCCCCGG",
	}, []string{"m1", "m2"})

	m, err := Compute(a)
	require.NoError(t, err)

	e, err := m.Get("m1", "m2")
	require.NoError(t, err)
	require.Equal(t, 4, e.Start)
	require.Equal(t, 10, e.End)
	require.Equal(t, 7, e.Length)
	require.InDelta(t, 100.0, e.Identity, 1e-9)

	// diagonal entries stay zero
	d, err := m.Get("m1", "m1")
	require.NoError(t, err)
	require.Equal(t, 0, d.Length)

	best, ok := m.Best(ByLength)
	require.True(t, ok)
	require.Equal(t, "m1", best.A)
	require.Equal(t, "m2", best.B)

	sub, err := a.Slice(e.Start, e.End)
	require.NoError(t, err)
	require.Equal(t, 7, sub.Columns())
}

func TestBestIsIdempotent(t *testing.T) {
	a := buildAln(t, map[string]string{
		"m1": "AAAACCCC",
		"m2": "--AACC--",
		"m3": "AAAACC--",
	}, []string{"m1", "m2", "m3"})
	m, err := Compute(a)
	require.NoError(t, err)
	first, ok := m.Best(ByScore)
	require.True(t, ok)
	for i := 0; i < 5; i++ {
		again, ok := m.Best(ByScore)
		require.True(t, ok)
		require.Equal(t, first, again)
	}
}

func TestNonOverlappingPair(t *testing.T) {
	a := buildAln(t, map[string]string{
		"m1": "AAAA----",
		"m2": "----CCCC",
	}, []string{"m1", "m2"})
	m, err := Compute(a)
	require.NoError(t, err)
	e, err := m.Get("m1", "m2")
	require.NoError(t, err)
	require.Equal(t, Entry{}, e)
	_, ok := m.Best(ByLength)
	require.False(t, ok)
}

func TestScorePenalisesBothWays(t *testing.T) {
	long := Entry{Length: 100, Identity: 50}
	short := Entry{Length: 10, Identity: 100}
	mid := Entry{Length: 60, Identity: 90}
	require.Greater(t, Score(mid, ByScore), Score(long, ByScore))
	require.Greater(t, Score(mid, ByScore), Score(short, ByScore))
}

func TestSelectSubsetMeetsComposition(t *testing.T) {
	st := model.NewStrainTable()
	st.Set("a1", "A")
	st.Set("a2", "A")
	st.Set("b1", "B")
	st.Set("c1", "C")

	a := buildAln(t, map[string]string{
		"a1": "AAAACCCCGG--",
		"b1": "--AACCCCGGGG",
		"c1": "--AACCCCGG--",
		"a2": "AAAA--------",
	}, []string{"a1", "b1", "c1", "a2"})

	sub, ok := SelectSubset(a, model.Composition{"A": 1, "B": 1, "C": 1}, st, SeedOptions{Method: ByScore})
	require.True(t, ok)
	require.ElementsMatch(t, []string{"a1", "b1", "c1"}, sub.Members)
	require.Equal(t, 3, sub.Window.Start)
	require.Equal(t, 10, sub.Window.End)
	require.Equal(t, 8, sub.Window.Length)
}

func TestSelectSubsetImpossible(t *testing.T) {
	st := model.NewStrainTable()
	st.Set("a1", "A")
	st.Set("b1", "B")
	a := buildAln(t, map[string]string{
		"a1": "AAAA----",
		"b1": "----CCCC",
	}, []string{"a1", "b1"})
	_, ok := SelectSubset(a, model.Composition{"A": 1, "B": 1}, st, SeedOptions{})
	require.False(t, ok)
}

func TestSummaryStats(t *testing.T) {
	a := buildAln(t, map[string]string{
		"m1": "AAAACCCC",
		"m2": "AAAACCCC",
	}, []string{"m1", "m2"})
	m, err := Compute(a)
	require.NoError(t, err)
	s := m.Summary()
	require.Equal(t, 1, s.Overlapping)
	require.InDelta(t, 8.0, s.MeanLength, 1e-9)
	require.InDelta(t, 100.0, s.MeanIdentity, 1e-9)
}
