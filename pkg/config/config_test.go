package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yumyai/phyloclust/pkg/model"
)

const runFile = `# comment line
CLUSTER_DATASOURCE: [blast]
CLUSTER_FILENAME: [clusters.blast]
CLUSTER_VALUES: [pct_identity => >75; align_length => >60]
FASTBLASTPARSER: [1]
MEMBERSEQ_FILENAME: [members.fasta]
MEMBERSTRAIN_FILENAME: [strains.tab]

1PATH_NAME: [default]
1RUN_ALIGNMENT_PROGRAM: [clustalw]
1RUN_ALIGNMENT_ARGUMENTS: [-QUICKTREE -TYPE=DNA]
1RUN_DISTANCE_FUNCTION: [native-jc69]
1PRUNE_STRAINS_ARGUMENTS: [composition => Sly=1 Nta=1 Nto=1; min_distance => Sly-Nta Sly-Nto]
1RUN_TREE_METHOD: [NJ]
1RUN_BOOTSTRAPPING: [replicates => 100; seed => 42]
1FILTER_BOOTSTRAPPING: [60]
1RUN_TOPOANALYSIS: [1]

2PATH_NAME: [strict]
2PRUNE_OVERLAPS_ARGUMENTS: [composition => Sly=1 Nta=1; method => ovlscore; evalseed => 5; trim => 1; compact => 1]
2RUN_TREE_METHOD: [ML]
`

func TestParseRunFile(t *testing.T) {
	run, err := Parse(strings.NewReader(runFile))
	require.NoError(t, err)

	assert.Equal(t, "blast", run.Datasource)
	assert.Equal(t, "clusters.blast", run.ClusterFile)
	assert.True(t, run.FastParser)
	assert.Equal(t, "members.fasta", run.MemberSeqFile)
	assert.Equal(t, "strains.tab", run.StrainFile)
	require.Len(t, run.ClusterValues, 2)
	assert.Equal(t, FilterCond{Field: "pct_identity", Op: model.Gt, Threshold: 75}, run.ClusterValues[0])
	assert.Equal(t, FilterCond{Field: "align_length", Op: model.Gt, Threshold: 60}, run.ClusterValues[1])

	require.Len(t, run.Paths, 2)
	p1 := run.Paths[0]
	assert.Equal(t, 1, p1.ID)
	assert.Equal(t, "default", p1.Name)
	assert.Equal(t, "clustalw", p1.AlignmentProgram)
	assert.Equal(t, []string{"-QUICKTREE", "-TYPE=DNA"}, p1.AlignmentArgs)
	assert.Equal(t, "native-jc69", p1.DistanceFunction)
	require.NotNil(t, p1.PruneStrains)
	assert.Equal(t, map[string]int{"Sly": 1, "Nta": 1, "Nto": 1}, p1.PruneStrains.Composition)
	assert.Equal(t, [][2]string{{"Sly", "Nta"}, {"Sly", "Nto"}}, p1.PruneStrains.MinDistance)
	assert.Equal(t, "NJ", p1.TreeMethod)
	require.NotNil(t, p1.Bootstrapping)
	assert.Equal(t, 100, p1.Bootstrapping.Replicates)
	assert.Equal(t, int64(42), p1.Bootstrapping.Seed)
	assert.Equal(t, 60, p1.FilterBootstrap)
	assert.True(t, p1.TopoAnalysis)

	p2 := run.Paths[1]
	assert.Equal(t, "strict", p2.Name)
	require.NotNil(t, p2.PruneOverlaps)
	assert.Equal(t, "ovlscore", p2.PruneOverlaps.Method)
	assert.Equal(t, 5, p2.PruneOverlaps.EvalSeeds)
	assert.True(t, p2.PruneOverlaps.Trim)
	assert.True(t, p2.PruneOverlaps.Compact)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("NOT_A_KEY: [x]\n"))
	require.Error(t, err)
	_, err = Parse(strings.NewReader("1NOT_A_KEY: [x]\n"))
	require.Error(t, err)
	_, err = Parse(strings.NewReader("no brackets here\n"))
	require.Error(t, err)
}

func TestParseRejectsBadConditions(t *testing.T) {
	_, err := Parse(strings.NewReader("CLUSTER_VALUES: [pct_identity => ~75]\n"))
	require.Error(t, err)
	_, err = Parse(strings.NewReader("CLUSTER_VALUES: [pct_identity => >abc]\n"))
	require.Error(t, err)
	_, err = Parse(strings.NewReader("1FILTER_BOOTSTRAPPING: [sixty]\n"))
	require.Error(t, err)
}

func TestArgumentValidation(t *testing.T) {
	// fast parser only applies to a blast datasource
	_, err := Parse(strings.NewReader("CLUSTER_DATASOURCE: [ace]\nFASTBLASTPARSER: [1]\n"))
	require.Error(t, err)

	// alignments need member sequences for blast sources
	_, err = Parse(strings.NewReader("CLUSTER_DATASOURCE: [blast]\n1RUN_ALIGNMENT_PROGRAM: [muscle]\n"))
	require.Error(t, err)
}

func TestCommaEqualsSubkeyForm(t *testing.T) {
	run, err := Parse(strings.NewReader("CLUSTER_VALUES: [pct_identity = >90, align_length = >=50]\n"))
	require.NoError(t, err)
	require.Len(t, run.ClusterValues, 2)
	assert.Equal(t, model.Ge, run.ClusterValues[1].Op)
}
