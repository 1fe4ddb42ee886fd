package bootstrap

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yumyai/phyloclust/pkg/model"
)

// caterpillar builds a rooted tree ((first,second),rest...) with unit
// branch lengths.
func caterpillar(first, second string, rest ...string) *model.Tree {
	root := &model.TreeNode{Support: model.NoSupport}
	inner := &model.TreeNode{Length: 1, Support: model.NoSupport, Parent: root}
	for _, n := range []string{first, second} {
		inner.Children = append(inner.Children, &model.TreeNode{
			Name: n, Length: 1, Support: model.NoSupport, Parent: inner,
		})
	}
	root.Children = append(root.Children, inner)
	for _, n := range rest {
		root.Children = append(root.Children, &model.TreeNode{
			Name: n, Length: 1, Support: model.NoSupport, Parent: root,
		})
	}
	return &model.Tree{Root: root}
}

func TestConsensusMajority(t *testing.T) {
	trees := []*model.Tree{
		caterpillar("A", "B", "C", "D"),
		caterpillar("A", "B", "C", "D"),
		caterpillar("A", "C", "B", "D"),
	}
	cons, err := Consensus(trees, 0.5)
	require.NoError(t, err)

	names := cons.LeafNames()
	require.Len(t, names, 4)

	// the A|B clade appears in 2/3 replicates; A|C only in 1/3
	var abNode *model.TreeNode
	for _, n := range cons.Nodes() {
		if n.IsLeaf() || n == cons.Root {
			continue
		}
		sub := subtreeNames(n)
		require.Equal(t, []string{"A", "B"}, sub, "unexpected clade %v", sub)
		abNode = n
	}
	require.NotNil(t, abNode, "A|B clade missing from consensus")
	require.InDelta(t, 100.0*2/3, abNode.Support, 1e-9)
}

func TestConsensusDisagreeingLeaves(t *testing.T) {
	trees := []*model.Tree{
		caterpillar("A", "B", "C"),
		caterpillar("A", "B", "X"),
	}
	_, err := Consensus(trees, 0.5)
	require.Error(t, err)
}

func TestResampleKeepsShape(t *testing.T) {
	a := model.NewAlignment()
	require.NoError(t, a.AddRow(&model.Row{MemberID: "m1", Gapped: "ACGTACGT"}))
	require.NoError(t, a.AddRow(&model.Row{MemberID: "m2", Gapped: "TGCATGCA"}))

	rng := rand.New(rand.NewSource(7))
	r1 := Resample(a, rng)
	require.Equal(t, a.Len(), r1.Len())
	require.Equal(t, a.Columns(), r1.Columns())
	require.Equal(t, a.MemberIDs(), r1.MemberIDs())

	// same seed, same draw
	r2 := Resample(a, rand.New(rand.NewSource(7)))
	for i := 0; i < r1.Len(); i++ {
		require.Equal(t, r1.Row(i).Gapped, r2.Row(i).Gapped)
	}
}

func TestRunBuildsConsensus(t *testing.T) {
	a := model.NewAlignment()
	require.NoError(t, a.AddRow(&model.Row{MemberID: "m1", Gapped: "AAAAAAAACC"}))
	require.NoError(t, a.AddRow(&model.Row{MemberID: "m2", Gapped: "AAAAAAAACC"}))
	require.NoError(t, a.AddRow(&model.Row{MemberID: "m3", Gapped: "CCCCCCCCCC"}))

	builder := func(rep *model.Alignment) (*model.Tree, error) {
		// trivial builder: pair the two closest rows by p-distance
		m, err := model.PDistanceMatrix(rep)
		if err != nil {
			return nil, err
		}
		ids := rep.MemberIDs()
		bestA, bestB := ids[0], ids[1]
		bestD := 2.0
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				d, _ := m.Get(ids[i], ids[j])
				if d < bestD {
					bestA, bestB, bestD = ids[i], ids[j], d
				}
			}
		}
		var rest []string
		for _, id := range ids {
			if id != bestA && id != bestB {
				rest = append(rest, id)
			}
		}
		return caterpillar(bestA, bestB, rest...), nil
	}

	cons, err := Run(a, builder, Options{Replicates: 25, Seed: 11})
	require.NoError(t, err)
	require.Len(t, cons.LeafNames(), 3)
	// m1 and m2 are identical rows; their clade must dominate
	for _, n := range cons.Nodes() {
		if n.IsLeaf() || n == cons.Root {
			continue
		}
		require.Equal(t, []string{"m1", "m2"}, subtreeNames(n))
		require.Greater(t, n.Support, 50.0)
	}
}
