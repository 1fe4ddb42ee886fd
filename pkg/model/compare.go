package model

import "fmt"

// Comparator is one of the five recognised comparison operators, shared by
// the blast filter expressions and the alignment pruning predicates.
// Anything else is rejected at parse time.
type Comparator string

const (
	Lt Comparator = "<"
	Le Comparator = "<="
	Eq Comparator = "=="
	Ge Comparator = ">="
	Gt Comparator = ">"
)

func ParseComparator(s string) (Comparator, error) {
	switch Comparator(s) {
	case Lt, Le, Eq, Ge, Gt:
		return Comparator(s), nil
	}
	return "", &InputError{Msg: fmt.Sprintf("unknown comparator %q", s)}
}

// Eval applies the comparator with the value on the left.
func (c Comparator) Eval(v, threshold float64) bool {
	switch c {
	case Lt:
		return v < threshold
	case Le:
		return v <= threshold
	case Eq:
		return v == threshold
	case Ge:
		return v >= threshold
	case Gt:
		return v > threshold
	}
	return false
}
