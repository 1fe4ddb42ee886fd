package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/yumyai/phyloclust/pkg/model"
	"github.com/yumyai/phyloclust/pkg/seqio"
)

// report tallies members per family from a membership table and, when a
// GO table is given, the GO terms seen in each family.
func report(membershipFile, goFile string, w io.Writer) error {
	if membershipFile == "" {
		return &model.ArgumentError{Msg: "report needs --membership"}
	}
	fh, err := os.Open(membershipFile)
	if err != nil {
		return &model.InputError{Msg: "opening membership table", Err: err}
	}
	defer fh.Close()

	families := make(map[string][]string)
	sc := bufio.NewScanner(fh)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		cols := strings.Split(text, "\t")
		if len(cols) != 2 {
			return &model.InputError{Msg: fmt.Sprintf("membership line %d wants 2 columns", line)}
		}
		families[cols[0]] = append(families[cols[0]], cols[1])
	}
	if err := sc.Err(); err != nil {
		return &model.InputError{Msg: "reading membership table", Err: err}
	}

	var goTerms map[string][]model.GOTerm
	if goFile != "" {
		gh, err := os.Open(goFile)
		if err != nil {
			return &model.InputError{Msg: "opening GO table", Err: err}
		}
		goTerms, err = seqio.ReadGOTable(gh)
		gh.Close()
		if err != nil {
			return err
		}
	}

	ids := make([]string, 0, len(families))
	for id := range families {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		members := families[id]
		fmt.Fprintf(w, "%s\t%d", id, len(members))
		if goTerms != nil {
			tally := make(map[string]int)
			for _, m := range members {
				for _, t := range goTerms[m] {
					tally[t.ID]++
				}
			}
			terms := make([]string, 0, len(tally))
			for t := range tally {
				terms = append(terms, t)
			}
			sort.Strings(terms)
			var parts []string
			for _, t := range terms {
				parts = append(parts, fmt.Sprintf("%s:%d", t, tally[t]))
			}
			fmt.Fprintf(w, "\t%s", strings.Join(parts, ";"))
		}
		fmt.Fprintln(w)
	}
	return nil
}
