// Package ace ingests ACE-style assembly files into sequence families,
// one family per contig, with gap-padded read rows and the contig
// consensus.
package ace

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/yumyai/phyloclust/internal/util"
	"github.com/yumyai/phyloclust/pkg/model"
)

// Options control the ingest.
type Options struct {
	// NoSinglets discards contigs with a single read.
	NoSinglets bool
}

type afEntry struct {
	padStart int
	reverse  bool
}

type readEntry struct {
	id        string
	seq       string
	clipStart int
	clipEnd   int
	hasClip   bool
}

type contig struct {
	id        string
	length    int
	nreads    int
	consensus strings.Builder
	af        map[string]afEntry
	reads     []*readEntry
}

// Parse reads one assembly file and returns its families in file order.
func Parse(r io.Reader, opts Options) ([]*model.SequenceFamily, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var families []*model.SequenceFamily
	var cur *contig
	var curRead *readEntry
	inConsensus, inRead := false, false
	line := 0

	flush := func() error {
		if cur == nil {
			return nil
		}
		fam, err := cur.family()
		if err != nil {
			return err
		}
		if fam != nil && !(opts.NoSinglets && fam.Len() < 2) {
			families = append(families, fam)
		}
		cur = nil
		return nil
	}

	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		fields := strings.Fields(text)

		if len(fields) == 0 {
			inConsensus, inRead = false, false
			continue
		}

		switch fields[0] {
		case "AS":
			if len(fields) != 3 {
				return nil, parseErr(line, "AS record wants 2 fields")
			}
			continue
		case "CO":
			if err := flush(); err != nil {
				return nil, err
			}
			if len(fields) < 5 {
				return nil, parseErr(line, "CO record wants at least 4 fields")
			}
			var length, nreads int
			if _, err := fmt.Sscanf(fields[2], "%d", &length); err != nil {
				return nil, parseErr(line, fmt.Sprintf("CO bases %q", fields[2]))
			}
			if _, err := fmt.Sscanf(fields[3], "%d", &nreads); err != nil {
				return nil, parseErr(line, fmt.Sprintf("CO reads %q", fields[3]))
			}
			cur = &contig{
				id:     fields[1],
				length: length,
				nreads: nreads,
				af:     make(map[string]afEntry),
			}
			inConsensus, inRead = true, false
			continue
		case "AF":
			if cur == nil {
				return nil, parseErr(line, "AF record outside a contig")
			}
			if len(fields) != 4 {
				return nil, parseErr(line, "AF record wants 3 fields")
			}
			var pad int
			if _, err := fmt.Sscanf(fields[3], "%d", &pad); err != nil {
				return nil, parseErr(line, fmt.Sprintf("AF pad start %q", fields[3]))
			}
			cur.af[fields[1]] = afEntry{padStart: pad, reverse: fields[2] == "C"}
			inConsensus, inRead = false, false
			continue
		case "RD":
			if cur == nil {
				return nil, parseErr(line, "RD record outside a contig")
			}
			if len(fields) < 2 {
				return nil, parseErr(line, "RD record without read id")
			}
			curRead = &readEntry{id: fields[1]}
			cur.reads = append(cur.reads, curRead)
			inConsensus, inRead = false, true
			continue
		case "QA":
			if curRead == nil {
				return nil, parseErr(line, "QA record without a read")
			}
			if len(fields) != 5 {
				return nil, parseErr(line, "QA record wants 4 fields")
			}
			var qs, qe int
			if _, err := fmt.Sscanf(fields[3], "%d", &qs); err != nil {
				return nil, parseErr(line, fmt.Sprintf("QA align start %q", fields[3]))
			}
			if _, err := fmt.Sscanf(fields[4], "%d", &qe); err != nil {
				return nil, parseErr(line, fmt.Sprintf("QA align end %q", fields[4]))
			}
			curRead.clipStart, curRead.clipEnd, curRead.hasClip = qs, qe, true
			inConsensus, inRead = false, false
			continue
		case "BQ", "BS", "WA", "CT", "RT", "DS":
			// quality and annotation records the engine does not use
			inConsensus, inRead = false, false
			continue
		}

		// sequence continuation line
		switch {
		case inConsensus && cur != nil:
			cur.consensus.WriteString(text)
		case inRead && curRead != nil:
			curRead.seq += text
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &model.InputError{Msg: "reading assembly file", Err: err}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return families, nil
}

func parseErr(line int, msg string) error {
	return &model.InputError{Msg: fmt.Sprintf("assembly line %d: %s", line, msg)}
}

// family materialises one contig: every read becomes a member with a
// trimmed, gap-padded alignment row; the padded consensus goes on the
// alignment with '*' translated to the canonical gap.
func (c *contig) family() (*model.SequenceFamily, error) {
	fam := model.NewFamily(c.id)
	aln := model.NewAlignment()
	aln.Desc = fmt.Sprintf("assembly contig %s", c.id)
	aln.Source = "assembly"
	aln.Consensus = degap(c.consensus.String())

	for _, rd := range c.reads {
		if rd.seq == "" {
			return nil, &model.InputError{Msg: fmt.Sprintf("read %s has no sequence", rd.id)}
		}
		clipped := rd.seq
		if rd.hasClip {
			if rd.clipStart < 1 || rd.clipEnd > len(rd.seq) || rd.clipStart > rd.clipEnd {
				return nil, &model.InputError{Msg: fmt.Sprintf(
					"read %s clip [%d,%d] outside sequence of %d bases",
					rd.id, rd.clipStart, rd.clipEnd, len(rd.seq))}
			}
			clipped = rd.seq[rd.clipStart-1 : rd.clipEnd]
		}
		clipped = degap(clipped)

		af, ok := c.af[rd.id]
		if !ok {
			return nil, &model.InputError{Msg: fmt.Sprintf("read %s has no AF placement", rd.id)}
		}
		padStart := af.padStart
		if padStart < 1 {
			padStart = 1
		}
		row := strings.Repeat("-", padStart-1) + clipped
		if len(row) > c.length {
			row = row[:c.length]
		} else if len(row) < c.length {
			row += strings.Repeat("-", c.length-len(row))
		}

		strand := int8(1)
		if af.reverse {
			strand = -1
		}
		fam.AddMember(&model.Member{ID: rd.id, Seq: util.Ungap(clipped)})
		if err := aln.AddRow(&model.Row{MemberID: rd.id, Strand: strand, Gapped: row}); err != nil {
			return nil, err
		}
	}
	fam.Alignment = aln
	return fam, nil
}

// degap translates the ACE padding character into the canonical gap.
func degap(s string) string {
	return strings.ReplaceAll(s, "*", "-")
}
