package model

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/evolbioinfo/gotree/io/newick"
	gtree "github.com/evolbioinfo/gotree/tree"
)

// NoSupport marks a node without a bootstrap support value (the root, and
// trees that never went through bootstrapping).
const NoSupport = -1

// TreeNode is one node of a rooted tree. Length is the branch length to
// the parent (0 for the root); Support is the bootstrap support of that
// branch, NoSupport when absent.
type TreeNode struct {
	Name     string
	Length   float64
	Support  float64
	Parent   *TreeNode
	Children []*TreeNode
}

func (n *TreeNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// Depth is the branch-length distance from the root.
func (n *TreeNode) Depth() float64 {
	d := 0.0
	for p := n; p.Parent != nil; p = p.Parent {
		d += p.Length
	}
	return d
}

// Tree is a rooted tree with leaves labelled by member ids.
type Tree struct {
	Root *TreeNode
}

// Leaves returns the leaf nodes in traversal order.
func (t *Tree) Leaves() []*TreeNode {
	var out []*TreeNode
	var walk func(n *TreeNode)
	walk = func(n *TreeNode) {
		if n.IsLeaf() {
			out = append(out, n)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	if t.Root != nil {
		walk(t.Root)
	}
	return out
}

// LeafNames returns the leaf labels in traversal order.
func (t *Tree) LeafNames() []string {
	leaves := t.Leaves()
	out := make([]string, len(leaves))
	for i, l := range leaves {
		out[i] = l.Name
	}
	return out
}

// FindLeaf returns the leaf with the given label.
func (t *Tree) FindLeaf(name string) (*TreeNode, bool) {
	for _, l := range t.Leaves() {
		if l.Name == name {
			return l, true
		}
	}
	return nil, false
}

// Nodes returns every node, pre-order.
func (t *Tree) Nodes() []*TreeNode {
	var out []*TreeNode
	var walk func(n *TreeNode)
	walk = func(n *TreeNode) {
		out = append(out, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	if t.Root != nil {
		walk(t.Root)
	}
	return out
}

// Clone deep-copies the tree.
func (t *Tree) Clone() *Tree {
	var cp func(n, parent *TreeNode) *TreeNode
	cp = func(n, parent *TreeNode) *TreeNode {
		out := &TreeNode{Name: n.Name, Length: n.Length, Support: n.Support, Parent: parent}
		for _, c := range n.Children {
			out.Children = append(out.Children, cp(c, out))
		}
		return out
	}
	if t.Root == nil {
		return &Tree{}
	}
	return &Tree{Root: cp(t.Root, nil)}
}

// MinSupport returns the smallest support value carried by any node other
// than the root, and whether any node carries one.
func (t *Tree) MinSupport() (float64, bool) {
	min := 0.0
	found := false
	for _, n := range t.Nodes() {
		if n == t.Root || n.Support == NoSupport {
			continue
		}
		if !found || n.Support < min {
			min = n.Support
			found = true
		}
	}
	return min, found
}

// pathToRoot returns the node sequence from n up to the root.
func pathToRoot(n *TreeNode) []*TreeNode {
	var out []*TreeNode
	for p := n; p != nil; p = p.Parent {
		out = append(out, p)
	}
	return out
}

// LeafPath returns the node path between two leaves through their lowest
// common ancestor, and the summed branch length along it.
func (t *Tree) LeafPath(a, b *TreeNode) ([]*TreeNode, float64) {
	up := pathToRoot(a)
	onPath := make(map[*TreeNode]int, len(up))
	for i, n := range up {
		onPath[n] = i
	}
	var down []*TreeNode
	var lca *TreeNode
	for p := b; p != nil; p = p.Parent {
		if i, ok := onPath[p]; ok {
			lca = p
			up = up[:i+1]
			break
		}
		down = append(down, p)
	}
	if lca == nil {
		return nil, 0
	}
	path := make([]*TreeNode, 0, len(up)+len(down))
	path = append(path, up...)
	for i := len(down) - 1; i >= 0; i-- {
		path = append(path, down[i])
	}
	total := a.Depth() + b.Depth() - 2*lca.Depth()
	return path, total
}

// Reroot makes the given node the new root by reversing the parent chain
// above it. Branch lengths and supports stay attached to their edges.
func (t *Tree) Reroot(n *TreeNode) {
	if n == nil || n == t.Root {
		return
	}
	chain := pathToRoot(n)
	// Flip edges from the top down so each parent is detached before it
	// is re-attached as a child.
	for i := len(chain) - 2; i >= 0; i-- {
		child, parent := chain[i], chain[i+1]
		kept := parent.Children[:0]
		for _, c := range parent.Children {
			if c != child {
				kept = append(kept, c)
			}
		}
		parent.Children = kept
		parent.Parent = child
		parent.Length = child.Length
		parent.Support = child.Support
		child.Children = append(child.Children, parent)
	}
	n.Parent = nil
	n.Length = 0
	n.Support = NoSupport
	t.Root = n
}

// RerootAtLeaf inserts a new root directly above the named leaf. The leaf
// hangs from the new root at branch length zero; the rest of the tree
// keeps the leaf's former branch length.
func (t *Tree) RerootAtLeaf(name string) error {
	leaf, ok := t.FindLeaf(name)
	if !ok {
		return &InputError{Msg: fmt.Sprintf("leaf %q not in tree", name)}
	}
	if leaf.Parent == nil {
		return nil // degenerate single-node tree
	}
	anchor := &TreeNode{Support: NoSupport, Length: leaf.Length}
	parent := leaf.Parent
	kept := parent.Children[:0]
	for _, c := range parent.Children {
		if c != leaf {
			kept = append(kept, c)
		}
	}
	parent.Children = kept
	anchor.Parent = parent
	parent.Children = append(parent.Children, anchor)
	leaf.Parent = anchor
	leaf.Length = 0
	anchor.Children = append(anchor.Children, leaf)
	t.Reroot(anchor)
	return nil
}

// insertOnBranch splits the branch above child at fromParent length from
// the parent side, returning the inserted node.
func insertOnBranch(child *TreeNode, fromParent float64) *TreeNode {
	parent := child.Parent
	mid := &TreeNode{
		Support: NoSupport,
		Length:  fromParent,
		Parent:  parent,
	}
	kept := parent.Children[:0]
	for _, c := range parent.Children {
		if c != child {
			kept = append(kept, c)
		}
	}
	parent.Children = append(kept, mid)
	child.Parent = mid
	child.Length -= fromParent
	mid.Children = append(mid.Children, child)
	return mid
}

// Newick renders the tree; internal supports become node labels.
func (t *Tree) Newick() string {
	if t.Root == nil {
		return ";"
	}
	var b strings.Builder
	writeNewick(&b, t.Root)
	b.WriteByte(';')
	return b.String()
}

func writeNewick(b *strings.Builder, n *TreeNode) {
	if !n.IsLeaf() {
		b.WriteByte('(')
		for i, c := range n.Children {
			if i > 0 {
				b.WriteByte(',')
			}
			writeNewick(b, c)
		}
		b.WriteByte(')')
	}
	b.WriteString(n.Name)
	if !n.IsLeaf() && n.Support != NoSupport {
		b.WriteString(strconv.FormatFloat(n.Support, 'g', -1, 64))
	}
	if n.Parent != nil {
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(n.Length, 'g', -1, 64))
	}
}

// ParseNewick reads one newick tree through the gotree parser and converts
// it into the model tree.
func ParseNewick(r io.Reader) (*Tree, error) {
	gt, err := newick.NewParser(r).Parse()
	if err != nil {
		return nil, &InputError{Msg: "parsing newick", Err: err}
	}
	return FromGotree(gt)
}

// FromGotree converts a gotree tree rooted at its current root.
func FromGotree(gt *gtree.Tree) (*Tree, error) {
	groot := gt.Root()
	if groot == nil {
		return nil, &InputError{Msg: "tree without root"}
	}
	root := &TreeNode{Name: groot.Name(), Support: NoSupport}
	convertGotree(groot, nil, root)
	return &Tree{Root: root}, nil
}

func convertGotree(cur, prev *gtree.Node, out *TreeNode) {
	for _, e := range cur.Edges() {
		next := e.Right()
		if next == cur {
			next = e.Left()
		}
		if next == prev {
			continue
		}
		child := &TreeNode{
			Name:    next.Name(),
			Support: NoSupport,
			Parent:  out,
		}
		if l := e.Length(); l > 0 {
			child.Length = l
		}
		if s := e.Support(); s >= 0 {
			child.Support = s
		}
		out.Children = append(out.Children, child)
		convertGotree(next, cur, child)
	}
}
