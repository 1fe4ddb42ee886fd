package util

import (
	"errors"
	"io/fs"
	"os"
	"strings"
)

func DirExists(path string) bool {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	return info.IsDir()
}

// Revcomp returns the reverse complement of a nucleotide string.
// IUPAC ambiguity codes are complemented; gaps and unknown characters
// pass through unchanged.
func Revcomp(seq string) string {
	comp := map[byte]byte{
		'A': 'T', 'T': 'A', 'G': 'C', 'C': 'G',
		'a': 't', 't': 'a', 'g': 'c', 'c': 'g',
		'R': 'Y', 'Y': 'R', 'K': 'M', 'M': 'K',
		'r': 'y', 'y': 'r', 'k': 'm', 'm': 'k',
		'B': 'V', 'V': 'B', 'D': 'H', 'H': 'D',
		'b': 'v', 'v': 'b', 'd': 'h', 'h': 'd',
	}
	out := make([]byte, len(seq))
	for i := 0; i < len(seq); i++ {
		c := seq[len(seq)-1-i]
		if r, ok := comp[c]; ok {
			out[i] = r
		} else {
			out[i] = c
		}
	}
	return string(out)
}

// Ungap strips alignment gap characters ('-' and '*') from a row.
func Ungap(row string) string {
	var b strings.Builder
	b.Grow(len(row))
	for i := 0; i < len(row); i++ {
		if row[i] != '-' && row[i] != '*' {
			b.WriteByte(row[i])
		}
	}
	return b.String()
}
