// Package config parses the run-file grammar into typed per-path
// records: `<N>KEY: [value]` lines grouped by path id, where values are
// scalars or sub-key lists (`k1 => v1; k2 => v2` or `k1 = v1, k2 = v2`).
// Every recognised option is enumerated here; unknown keys are input
// errors rather than silently-carried hash entries.
package config

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/yumyai/phyloclust/pkg/model"
)

// FilterCond is one parsed `field => <op><threshold>` filter condition.
type FilterCond struct {
	Field     string
	Op        model.Comparator
	Threshold int
}

// StrainArgs are the PRUNE_STRAINS_ARGUMENTS options.
type StrainArgs struct {
	Composition map[string]int
	MinDistance [][2]string
	MaxDistance [][2]string
}

// OverlapArgs are the PRUNE_OVERLAPS_ARGUMENTS options.
type OverlapArgs struct {
	Composition map[string]int
	Method      string
	MinLength   int
	MinIdentity float64
	EvalSeeds   int
	Trim        bool
	Compact     bool
}

// BootstrapArgs are the RUN_BOOTSTRAPPING options.
type BootstrapArgs struct {
	Replicates int
	Seed       int64
}

// Path is one analysis path: an independent chain of per-family phases.
type Path struct {
	ID               int
	Name             string
	AlignmentProgram string
	AlignmentArgs    []string
	DistanceFunction string
	PruneStrains     *StrainArgs
	PruneOverlaps    *OverlapArgs
	TreeMethod       string
	TreeArgs         []string
	Bootstrapping    *BootstrapArgs
	FilterBootstrap  int // support cutoff; 0 disables
	TopoAnalysis     bool
}

// Run is one whole run file: the global cluster source plus the paths.
type Run struct {
	Datasource    string // "blast" or "ace"
	ClusterFile   string
	ClusterValues []FilterCond
	FastParser    bool
	MemberSeqFile string
	StrainFile    string
	Paths         []*Path
}

var lineRE = regexp.MustCompile(`^(\d*)([A-Z_]+):\s*\[(.*)\]\s*$`)

// Parse reads a run file.
func Parse(r io.Reader) (*Run, error) {
	run := &Run{}
	paths := make(map[int]*Path)

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := lineRE.FindStringSubmatch(line)
		if m == nil {
			return nil, &model.InputError{Msg: fmt.Sprintf("run file line %d: %q", lineNo, line)}
		}
		prefix, key, value := m[1], m[2], strings.TrimSpace(m[3])
		if prefix == "" {
			if err := run.setGlobal(key, value); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			continue
		}
		id, _ := strconv.Atoi(prefix)
		p, ok := paths[id]
		if !ok {
			p = &Path{ID: id}
			paths[id] = p
		}
		if err := p.set(key, value); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &model.InputError{Msg: "reading run file", Err: err}
	}

	for _, p := range paths {
		run.Paths = append(run.Paths, p)
	}
	sort.Slice(run.Paths, func(i, j int) bool { return run.Paths[i].ID < run.Paths[j].ID })
	if err := run.validate(); err != nil {
		return nil, err
	}
	return run, nil
}

func (run *Run) setGlobal(key, value string) error {
	switch key {
	case "CLUSTER_DATASOURCE":
		run.Datasource = value
	case "CLUSTER_FILENAME":
		run.ClusterFile = value
	case "CLUSTER_VALUES":
		conds, err := parseFilterConds(value)
		if err != nil {
			return err
		}
		run.ClusterValues = conds
	case "FASTBLASTPARSER":
		run.FastParser = parseBool(value)
	case "MEMBERSEQ_FILENAME":
		run.MemberSeqFile = value
	case "MEMBERSTRAIN_FILENAME":
		run.StrainFile = value
	default:
		return &model.InputError{Msg: fmt.Sprintf("unknown global key %q", key)}
	}
	return nil
}

func (p *Path) set(key, value string) error {
	switch key {
	case "PATH_NAME":
		p.Name = value
	case "RUN_ALIGNMENT_PROGRAM":
		p.AlignmentProgram = value
	case "RUN_ALIGNMENT_ARGUMENTS":
		p.AlignmentArgs = strings.Fields(value)
	case "RUN_DISTANCE_FUNCTION":
		p.DistanceFunction = value
	case "PRUNE_STRAINS_ARGUMENTS":
		args, err := parseStrainArgs(value)
		if err != nil {
			return err
		}
		p.PruneStrains = args
	case "PRUNE_OVERLAPS_ARGUMENTS":
		args, err := parseOverlapArgs(value)
		if err != nil {
			return err
		}
		p.PruneOverlaps = args
	case "RUN_TREE_METHOD":
		p.TreeMethod = value
	case "RUN_TREE_ARGUMENTS":
		p.TreeArgs = strings.Fields(value)
	case "RUN_BOOTSTRAPPING":
		args, err := parseBootstrapArgs(value)
		if err != nil {
			return err
		}
		p.Bootstrapping = args
	case "FILTER_BOOTSTRAPPING":
		n, err := strconv.Atoi(value)
		if err != nil {
			return &model.InputError{Msg: fmt.Sprintf("FILTER_BOOTSTRAPPING %q is not an integer", value), Err: err}
		}
		p.FilterBootstrap = n
	case "RUN_TOPOANALYSIS":
		p.TopoAnalysis = parseBool(value)
	default:
		return &model.InputError{Msg: fmt.Sprintf("unknown path key %q", key)}
	}
	return nil
}

func (run *Run) validate() error {
	switch run.Datasource {
	case "", "blast", "ace":
	default:
		return &model.InputError{Msg: fmt.Sprintf("unknown CLUSTER_DATASOURCE %q", run.Datasource)}
	}
	if run.FastParser && run.Datasource != "blast" {
		return &model.ArgumentError{Msg: "fast-blast-parser without a blast cluster file"}
	}
	for _, p := range run.Paths {
		if p.AlignmentProgram != "" && run.MemberSeqFile == "" && run.Datasource != "ace" {
			return &model.ArgumentError{Msg: fmt.Sprintf(
				"path %d: run_alignments without member sequences", p.ID)}
		}
	}
	return nil
}

// subkeys splits a sub-key list value in either accepted form.
func subkeys(value string) ([][2]string, bool) {
	sep, kv := ";", "=>"
	if !strings.Contains(value, "=>") {
		if !strings.Contains(value, "=") {
			return nil, false
		}
		sep, kv = ",", "="
	}
	var out [][2]string
	for _, part := range strings.Split(value, sep) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i := strings.Index(part, kv)
		if i < 0 {
			return nil, false
		}
		out = append(out, [2]string{
			strings.TrimSpace(part[:i]),
			strings.TrimSpace(part[i+len(kv):]),
		})
	}
	return out, len(out) > 0
}

var condRE = regexp.MustCompile(`^(<=|>=|==|<|>)\s*(-?\d+)$`)

// ParseFilterValues parses a CLUSTER_VALUES-style sub-key list outside a
// run file (the CLI --values flag uses the same grammar).
func ParseFilterValues(value string) ([]FilterCond, error) {
	return parseFilterConds(value)
}

func parseFilterConds(value string) ([]FilterCond, error) {
	pairs, ok := subkeys(value)
	if !ok {
		return nil, &model.InputError{Msg: fmt.Sprintf("CLUSTER_VALUES %q is not a sub-key list", value)}
	}
	var out []FilterCond
	for _, kv := range pairs {
		m := condRE.FindStringSubmatch(kv[1])
		if m == nil {
			return nil, &model.InputError{Msg: fmt.Sprintf("filter condition %q wants <op><integer>", kv[1])}
		}
		op, err := model.ParseComparator(m[1])
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, &model.InputError{Msg: fmt.Sprintf("filter threshold %q", m[2]), Err: err}
		}
		out = append(out, FilterCond{Field: kv[0], Op: op, Threshold: n})
	}
	return out, nil
}

// parseComposition reads space-separated `Strain=count` entries.
func parseComposition(value string) (map[string]int, error) {
	out := make(map[string]int)
	for _, part := range strings.Fields(value) {
		i := strings.IndexByte(part, '=')
		if i < 0 {
			return nil, &model.InputError{Msg: fmt.Sprintf("composition entry %q wants strain=count", part)}
		}
		n, err := strconv.Atoi(part[i+1:])
		if err != nil {
			return nil, &model.InputError{Msg: fmt.Sprintf("composition count %q", part[i+1:]), Err: err}
		}
		out[part[:i]] = n
	}
	if len(out) == 0 {
		return nil, &model.InputError{Msg: "empty composition"}
	}
	return out, nil
}

// parseStrainPairs reads space-separated `A-B` strain pairs.
func parseStrainPairs(value string) ([][2]string, error) {
	var out [][2]string
	for _, part := range strings.Fields(value) {
		i := strings.IndexByte(part, '-')
		if i < 0 {
			return nil, &model.InputError{Msg: fmt.Sprintf("strain pair %q wants A-B", part)}
		}
		out = append(out, [2]string{part[:i], part[i+1:]})
	}
	return out, nil
}

func parseStrainArgs(value string) (*StrainArgs, error) {
	pairs, ok := subkeys(value)
	if !ok {
		return nil, &model.InputError{Msg: fmt.Sprintf("PRUNE_STRAINS_ARGUMENTS %q is not a sub-key list", value)}
	}
	args := &StrainArgs{}
	for _, kv := range pairs {
		var err error
		switch kv[0] {
		case "composition":
			args.Composition, err = parseComposition(kv[1])
		case "min_distance":
			args.MinDistance, err = parseStrainPairs(kv[1])
		case "max_distance":
			args.MaxDistance, err = parseStrainPairs(kv[1])
		default:
			err = &model.InputError{Msg: fmt.Sprintf("unknown prune_strains option %q", kv[0])}
		}
		if err != nil {
			return nil, err
		}
	}
	if args.Composition == nil {
		return nil, &model.InputError{Msg: "prune_strains without a composition"}
	}
	return args, nil
}

func parseOverlapArgs(value string) (*OverlapArgs, error) {
	pairs, ok := subkeys(value)
	if !ok {
		return nil, &model.InputError{Msg: fmt.Sprintf("PRUNE_OVERLAPS_ARGUMENTS %q is not a sub-key list", value)}
	}
	args := &OverlapArgs{Method: "ovlscore"}
	for _, kv := range pairs {
		var err error
		switch kv[0] {
		case "composition":
			args.Composition, err = parseComposition(kv[1])
		case "method":
			if kv[1] != "length" && kv[1] != "ovlscore" {
				err = &model.InputError{Msg: fmt.Sprintf("unknown overlap method %q", kv[1])}
			} else {
				args.Method = kv[1]
			}
		case "minlen":
			args.MinLength, err = atoiOpt(kv)
		case "minident":
			var n int
			n, err = atoiOpt(kv)
			args.MinIdentity = float64(n)
		case "evalseed":
			args.EvalSeeds, err = atoiOpt(kv)
		case "trim":
			args.Trim = parseBool(kv[1])
		case "compact":
			args.Compact = parseBool(kv[1])
		default:
			err = &model.InputError{Msg: fmt.Sprintf("unknown prune_overlaps option %q", kv[0])}
		}
		if err != nil {
			return nil, err
		}
	}
	if args.Composition == nil {
		return nil, &model.InputError{Msg: "prune_overlaps without a composition"}
	}
	return args, nil
}

func parseBootstrapArgs(value string) (*BootstrapArgs, error) {
	// plain scalar means just the replicate count
	if n, err := strconv.Atoi(value); err == nil {
		return &BootstrapArgs{Replicates: n}, nil
	}
	pairs, ok := subkeys(value)
	if !ok {
		return nil, &model.InputError{Msg: fmt.Sprintf("RUN_BOOTSTRAPPING %q", value)}
	}
	args := &BootstrapArgs{}
	for _, kv := range pairs {
		switch kv[0] {
		case "replicates":
			n, err := strconv.Atoi(kv[1])
			if err != nil {
				return nil, &model.InputError{Msg: fmt.Sprintf("replicates %q", kv[1]), Err: err}
			}
			args.Replicates = n
		case "seed":
			n, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return nil, &model.InputError{Msg: fmt.Sprintf("seed %q", kv[1]), Err: err}
			}
			args.Seed = n
		default:
			return nil, &model.InputError{Msg: fmt.Sprintf("unknown bootstrapping option %q", kv[0])}
		}
	}
	return args, nil
}

func atoiOpt(kv [2]string) (int, error) {
	n, err := strconv.Atoi(kv[1])
	if err != nil {
		return 0, &model.InputError{Msg: fmt.Sprintf("%s %q is not an integer", kv[0], kv[1]), Err: err}
	}
	return n, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "yes", "true", "on":
		return true
	}
	return false
}
