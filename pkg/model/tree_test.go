package model

import (
	"math"
	"testing"
)

// ((L1:0.1,L2:0.2):0.05,(L3:0.3,L4:0.4):0.05)
func fixtureTree() *Tree {
	root := &TreeNode{Support: NoSupport}
	x := &TreeNode{Length: 0.05, Support: NoSupport, Parent: root}
	y := &TreeNode{Length: 0.05, Support: NoSupport, Parent: root}
	root.Children = []*TreeNode{x, y}
	l1 := &TreeNode{Name: "L1", Length: 0.1, Support: NoSupport, Parent: x}
	l2 := &TreeNode{Name: "L2", Length: 0.2, Support: NoSupport, Parent: x}
	x.Children = []*TreeNode{l1, l2}
	l3 := &TreeNode{Name: "L3", Length: 0.3, Support: NoSupport, Parent: y}
	l4 := &TreeNode{Name: "L4", Length: 0.4, Support: NoSupport, Parent: y}
	y.Children = []*TreeNode{l3, l4}
	return &Tree{Root: root}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLeafPath(t *testing.T) {
	tr := fixtureTree()
	l2, _ := tr.FindLeaf("L2")
	l4, _ := tr.FindLeaf("L4")
	path, total := tr.LeafPath(l2, l4)
	if !approx(total, 0.7) {
		t.Errorf("L2-L4 path length %v, want 0.7", total)
	}
	if len(path) != 5 {
		t.Errorf("path has %d nodes, want 5", len(path))
	}
}

func TestMidpointRoot(t *testing.T) {
	tr := fixtureTree()
	if !tr.MidpointRoot() {
		t.Fatal("midpoint reroot reported no-op")
	}
	root := tr.Root
	if len(root.Children) != 2 {
		t.Fatalf("root has %d children, want 2", len(root.Children))
	}
	// the longest leaf-to-leaf path is L2..L4 = 0.7; both sides of the
	// new root reach their deepest leaf at half of it
	for _, c := range root.Children {
		max := 0.0
		sub := &Tree{Root: c}
		for _, l := range sub.Leaves() {
			if d := l.Depth(); d > max {
				max = d
			}
		}
		if !approx(max, 0.35) {
			t.Errorf("deepest leaf on one side at %v, want 0.35", max)
		}
	}
	// leaf set unchanged
	if len(tr.Leaves()) != 4 {
		t.Errorf("leaf count changed: %d", len(tr.Leaves()))
	}
}

func TestMidpointDegenerateNoop(t *testing.T) {
	single := &Tree{Root: &TreeNode{Name: "only", Support: NoSupport}}
	if single.MidpointRoot() {
		t.Error("degenerate tree was modified")
	}
	// all-zero branch lengths: no positive path, keep as is
	zero := fixtureTree()
	for _, n := range zero.Nodes() {
		n.Length = 0
	}
	if zero.MidpointRoot() {
		t.Error("zero-length tree was modified")
	}
}

func TestRerootAtLeaf(t *testing.T) {
	tr := fixtureTree()
	if err := tr.RerootAtLeaf("L3"); err != nil {
		t.Fatal(err)
	}
	root := tr.Root
	var leafChild *TreeNode
	for _, c := range root.Children {
		if c.Name == "L3" {
			leafChild = c
		}
	}
	if leafChild == nil {
		t.Fatal("L3 is not a direct descendant of the new root")
	}
	if leafChild.Length != 0 {
		t.Errorf("L3 branch length %v, want 0", leafChild.Length)
	}
	if len(tr.Leaves()) != 4 {
		t.Errorf("leaf count changed: %d", len(tr.Leaves()))
	}
	// total path L3..L4 must be conserved by the surgery
	l3, _ := tr.FindLeaf("L3")
	l4, _ := tr.FindLeaf("L4")
	if _, total := tr.LeafPath(l3, l4); !approx(total, 0.7) {
		t.Errorf("L3-L4 distance %v after reroot, want 0.7", total)
	}
}

func TestRerootByStrain(t *testing.T) {
	st := NewStrainTable()
	st.Set("L1", "A")
	st.Set("L2", "A")
	st.Set("L3", "B")
	st.Set("L4", "B")

	tr := fixtureTree()
	if err := tr.RerootByStrain(st, "A"); err != nil {
		t.Fatal(err)
	}
	// L2 is the deepest strain-A leaf (0.25 vs 0.15)
	found := false
	for _, c := range tr.Root.Children {
		if c.Name == "L2" && c.Length == 0 {
			found = true
		}
	}
	if !found {
		t.Error("expected L2 under the new root")
	}

	tr2 := fixtureTree()
	if err := tr2.RerootByStrain(st, "Z"); err == nil {
		t.Error("missing strain accepted")
	}
}

func TestRerootByLongestMember(t *testing.T) {
	f := NewFamily("fam")
	f.AddMember(&Member{ID: "L1", Seq: "ACGT"})
	f.AddMember(&Member{ID: "L2", Seq: "ACGTACGT"})
	f.AddMember(&Member{ID: "L3", Seq: "AC"})
	f.AddMember(&Member{ID: "L4", Seq: "ACG"})
	f.Tree = fixtureTree()
	if err := f.RerootByLongestMember(); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, c := range f.Tree.Root.Children {
		if c.Name == "L2" {
			found = true
		}
	}
	if !found {
		t.Error("expected longest member L2 under the new root")
	}
}

func TestMinSupport(t *testing.T) {
	tr := fixtureTree()
	if _, ok := tr.MinSupport(); ok {
		t.Error("supportless tree reported a support")
	}
	tr.Root.Children[0].Support = 80
	tr.Root.Children[1].Support = 55
	min, ok := tr.MinSupport()
	if !ok || min != 55 {
		t.Errorf("min support %v/%v, want 55/true", min, ok)
	}
}

func TestNewickRender(t *testing.T) {
	tr := fixtureTree()
	tr.Root.Children[0].Support = 90
	got := tr.Newick()
	want := "((L1:0.1,L2:0.2)90:0.05,(L3:0.3,L4:0.4):0.05);"
	if got != want {
		t.Errorf("newick %q, want %q", got, want)
	}
}
