// Package bootstrap resamples alignment columns, rebuilds replicate trees
// through a caller-supplied builder, and summarises them as a
// majority-rule consensus carrying percent supports.
package bootstrap

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/yumyai/phyloclust/pkg/model"
)

// TreeBuilder turns one (resampled) alignment into a tree. In the
// pipeline this is the distance -> neighbor chain; tests plug in a local
// builder.
type TreeBuilder func(a *model.Alignment) (*model.Tree, error)

// Options configure one bootstrap run.
type Options struct {
	Replicates int     // default 100
	Seed       int64   // RNG seed so runs are repeatable
	Cutoff     float64 // clades must exceed this frequency, default 0.5
}

func (o Options) withDefaults() Options {
	if o.Replicates <= 0 {
		o.Replicates = 100
	}
	if o.Cutoff <= 0 {
		o.Cutoff = 0.5
	}
	return o
}

// Resample draws columns with replacement, keeping row order and ids.
func Resample(a *model.Alignment, rng *rand.Rand) *model.Alignment {
	cols := a.Columns()
	picked := make([]int, cols)
	for i := range picked {
		picked[i] = rng.Intn(cols)
	}
	out := model.NewAlignment()
	out.Desc = a.Desc
	out.Source = a.Source
	for i := 0; i < a.Len(); i++ {
		r := a.Row(i)
		var b strings.Builder
		b.Grow(cols)
		for _, c := range picked {
			b.WriteByte(r.Gapped[c])
		}
		row := &model.Row{MemberID: r.MemberID, Strand: r.Strand, Gapped: b.String()}
		// resampled rows can be all-gap; keep them anyway
		_ = out.AddRow(row)
	}
	return out
}

// Run executes the resample -> build -> consensus chain.
func Run(a *model.Alignment, build TreeBuilder, opts Options) (*model.Tree, error) {
	if a == nil || a.Len() < 2 || a.Columns() == 0 {
		return nil, fmt.Errorf("bootstrap needs an alignment with two rows: %w", model.ErrEmptyInput)
	}
	opts = opts.withDefaults()
	rng := rand.New(rand.NewSource(opts.Seed))
	trees := make([]*model.Tree, 0, opts.Replicates)
	for i := 0; i < opts.Replicates; i++ {
		rep := Resample(a, rng)
		t, err := build(rep)
		if err != nil {
			return nil, fmt.Errorf("replicate %d: %w", i+1, err)
		}
		trees = append(trees, t)
	}
	return Consensus(trees, opts.Cutoff)
}

type cladeInfo struct {
	key     string
	names   []string
	count   int
	lengths float64
}

// Consensus builds the majority-rule consensus of the replicate trees.
// Internal nodes carry percent supports; branch lengths are the mean over
// the replicates holding the clade.
func Consensus(trees []*model.Tree, cutoff float64) (*model.Tree, error) {
	if len(trees) == 0 {
		return nil, fmt.Errorf("consensus without trees: %w", model.ErrEmptyInput)
	}
	tips := append([]string(nil), trees[0].LeafNames()...)
	sort.Strings(tips)

	clades := make(map[string]*cladeInfo)
	leafLen := make(map[string]float64)
	for _, t := range trees {
		names := append([]string(nil), t.LeafNames()...)
		sort.Strings(names)
		if strings.Join(names, "|") != strings.Join(tips, "|") {
			return nil, &model.ConsistencyError{Msg: "replicate trees disagree on leaf set"}
		}
		for _, n := range t.Nodes() {
			if n == t.Root {
				continue
			}
			if n.IsLeaf() {
				leafLen[n.Name] += n.Length
				continue
			}
			sub := subtreeNames(n)
			key := strings.Join(sub, "|")
			ci, ok := clades[key]
			if !ok {
				ci = &cladeInfo{key: key, names: sub}
				clades[key] = ci
			}
			ci.count++
			ci.lengths += n.Length
		}
	}

	var kept []*cladeInfo
	total := float64(len(trees))
	for _, ci := range clades {
		if len(ci.names) < 2 || len(ci.names) >= len(tips) {
			continue
		}
		if float64(ci.count)/total > cutoff {
			kept = append(kept, ci)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if len(kept[i].names) != len(kept[j].names) {
			return len(kept[i].names) > len(kept[j].names)
		}
		return kept[i].key < kept[j].key
	})

	// star tree, then nest clades largest-first
	root := &model.TreeNode{Support: model.NoSupport}
	leafSets := make(map[*model.TreeNode]map[string]bool)
	leafSets[root] = make(map[string]bool, len(tips))
	for _, tip := range tips {
		leaf := &model.TreeNode{
			Name:    tip,
			Support: model.NoSupport,
			Length:  leafLen[tip] / total,
			Parent:  root,
		}
		root.Children = append(root.Children, leaf)
		leafSets[leaf] = map[string]bool{tip: true}
		leafSets[root][tip] = true
	}

	for _, ci := range kept {
		want := make(map[string]bool, len(ci.names))
		for _, n := range ci.names {
			want[n] = true
		}
		host := deepestContaining(root, leafSets, want)
		var inside []*model.TreeNode
		covered := 0
		for _, c := range host.Children {
			if subsetOf(leafSets[c], want) {
				inside = append(inside, c)
				covered += len(leafSets[c])
			}
		}
		if covered != len(want) {
			continue // incompatible with an already-placed clade
		}
		nn := &model.TreeNode{
			Support: 100 * float64(ci.count) / total,
			Length:  ci.lengths / float64(ci.count),
			Parent:  host,
		}
		keptChildren := host.Children[:0]
		for _, c := range host.Children {
			drop := false
			for _, in := range inside {
				if c == in {
					drop = true
					break
				}
			}
			if !drop {
				keptChildren = append(keptChildren, c)
			}
		}
		host.Children = append(keptChildren, nn)
		for _, in := range inside {
			in.Parent = nn
			nn.Children = append(nn.Children, in)
		}
		leafSets[nn] = want
	}

	return &model.Tree{Root: root}, nil
}

func subtreeNames(n *model.TreeNode) []string {
	var out []string
	var walk func(c *model.TreeNode)
	walk = func(c *model.TreeNode) {
		if c.IsLeaf() {
			out = append(out, c.Name)
			return
		}
		for _, ch := range c.Children {
			walk(ch)
		}
	}
	walk(n)
	sort.Strings(out)
	return out
}

func deepestContaining(root *model.TreeNode, leafSets map[*model.TreeNode]map[string]bool, want map[string]bool) *model.TreeNode {
	cur := root
	for {
		descended := false
		for _, c := range cur.Children {
			if c.IsLeaf() {
				continue
			}
			if containsAll(leafSets[c], want) {
				cur = c
				descended = true
				break
			}
		}
		if !descended {
			return cur
		}
	}
}

func containsAll(set, want map[string]bool) bool {
	if len(set) < len(want) {
		return false
	}
	for n := range want {
		if !set[n] {
			return false
		}
	}
	return true
}

func subsetOf(set, of map[string]bool) bool {
	if len(set) > len(of) {
		return false
	}
	for n := range set {
		if !of[n] {
			return false
		}
	}
	return true
}
