package pipeline

import (
	"context"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/yumyai/phyloclust/logger"
	"github.com/yumyai/phyloclust/pkg/model"
)

func init() {
	if err := logger.InitLogger(zapcore.ErrorLevel); err != nil {
		panic(err)
	}
}

func testPipeline(t *testing.T, cs *model.ClusterSet) *Pipeline {
	t.Helper()
	pl := New(cs, nil)
	pl.Workers = 2
	return pl
}

func testClusterSet(t *testing.T) *model.ClusterSet {
	t.Helper()
	cs := model.NewClusterSet("t")
	for fid, rows := range map[string]map[string]string{
		"t_001": {"m1": "AAAACCCC", "m2": "AAAACCCT", "m3": "TTTTCCCC"},
		"t_002": {"m4": "GGGGCCCC", "m5": "GGGGCCCA"},
	} {
		f := model.NewFamily(fid)
		a := model.NewAlignment()
		for mid, seq := range rows {
			f.AddMember(&model.Member{ID: mid, Seq: seq})
		}
		for _, mid := range f.MemberIDs() {
			if err := a.AddRow(&model.Row{MemberID: mid, Gapped: rows[mid]}); err != nil {
				t.Fatal(err)
			}
		}
		f.Alignment = a
		cs.Add(f)
	}
	return cs
}

func TestRunDistancesNative(t *testing.T) {
	cs := testClusterSet(t)
	p := New(cs, nil)
	p.Workers = 2

	failed, err := p.RunDistances(context.Background(), DistNativePDist)
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 0 {
		t.Fatalf("failed families: %v", failed)
	}
	for _, id := range cs.IDs() {
		f, _ := cs.Get(id)
		if f.Distance == nil {
			t.Errorf("family %s has no distance", id)
		}
		if f.Distance.Len() != f.Alignment.Len() {
			t.Errorf("family %s: %d labels for %d rows", id, f.Distance.Len(), f.Alignment.Len())
		}
	}
	if err := p.CheckConsistency(); err != nil {
		t.Error(err)
	}
}

func TestRunDistancesUnknownFunction(t *testing.T) {
	cs := testClusterSet(t)
	p := New(cs, nil)
	if _, err := p.RunDistances(context.Background(), "not-a-function"); err == nil {
		t.Error("unknown distance function accepted")
	}
}

func TestRerootMidpointPhase(t *testing.T) {
	cs := testClusterSet(t)
	f, _ := cs.Get("t_001")
	root := &model.TreeNode{Support: model.NoSupport}
	inner := &model.TreeNode{Length: 0.1, Support: model.NoSupport, Parent: root}
	for _, n := range []string{"m1", "m2"} {
		inner.Children = append(inner.Children, &model.TreeNode{
			Name: n, Length: 0.2, Support: model.NoSupport, Parent: inner,
		})
	}
	root.Children = []*model.TreeNode{
		inner,
		{Name: "m3", Length: 0.5, Support: model.NoSupport, Parent: root},
	}
	f.Tree = &model.Tree{Root: root}

	failed, err := testPipeline(t, cs).Reroot(context.Background(), model.RerootMidpoint, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 0 {
		t.Fatalf("failed: %v", failed)
	}
	if len(f.Tree.Leaves()) != 3 {
		t.Error("leaf set changed by rerooting")
	}
}

func TestRerootByStrainCollectsFailures(t *testing.T) {
	cs := testClusterSet(t)
	cs.Strains.Set("m1", "A")
	f, _ := cs.Get("t_001")
	root := &model.TreeNode{Support: model.NoSupport}
	for _, n := range []string{"m1", "m2", "m3"} {
		root.Children = append(root.Children, &model.TreeNode{
			Name: n, Length: 0.1, Support: model.NoSupport, Parent: root,
		})
	}
	f.Tree = &model.Tree{Root: root}

	// t_002 has no tree and no strain-A leaves; only t_001 can reroot
	failed, err := testPipeline(t, cs).Reroot(context.Background(), model.RerootRefStrain, "A")
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 0 {
		t.Fatalf("failed: %v", failed)
	}

	// now ask for a strain nobody has: t_001 lands on the failed list
	failed, err = testPipeline(t, cs).Reroot(context.Background(), model.RerootRefStrain, "Z")
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 || failed[0] != "t_001" {
		t.Errorf("failed %v, want [t_001]", failed)
	}
}

func TestRerootRefStrainWithoutStrainRejected(t *testing.T) {
	cs := testClusterSet(t)
	if _, err := testPipeline(t, cs).Reroot(context.Background(), model.RerootRefStrain, ""); err == nil {
		t.Error("reference-strain rerooting without a strain accepted")
	}
}

func TestPruneBootstrapPhase(t *testing.T) {
	cs := testClusterSet(t)
	f, _ := cs.Get("t_002")
	low := &model.TreeNode{Support: model.NoSupport}
	n := &model.TreeNode{Support: 40, Parent: low}
	n.Children = []*model.TreeNode{
		{Name: "m4", Support: model.NoSupport, Parent: n},
		{Name: "m5", Support: model.NoSupport, Parent: n},
	}
	low.Children = []*model.TreeNode{n}
	f.Bootstrap = &model.Tree{Root: low}

	res := testPipeline(t, cs).PruneBootstrap(60)
	if len(res.Removed) != 1 || res.Removed[0] != "t_002" {
		t.Errorf("removed %v, want [t_002]", res.Removed)
	}
	if cs.Len() != 1 {
		t.Errorf("%d families left, want 1", cs.Len())
	}
}
