package table

import (
	"fmt"

	"github.com/fedscan/fedscan/internal/value"
)

// FilterOp enumerates the comparison operators a scan can push down.
type FilterOp int

const (
	FilterEq FilterOp = iota
	FilterNotEq
	FilterLt
	FilterLtEq
	FilterGt
	FilterGtEq
	FilterIsNull
	FilterIsNotNull
)

func (op FilterOp) String() string {
	switch op {
	case FilterEq:
		return "="
	case FilterNotEq:
		return "<>"
	case FilterLt:
		return "<"
	case FilterLtEq:
		return "<="
	case FilterGt:
		return ">"
	case FilterGtEq:
		return ">="
	case FilterIsNull:
		return "IS NULL"
	case FilterIsNotNull:
		return "IS NOT NULL"
	default:
		return "?"
	}
}

// Filter is one conjunct of a pushed-down predicate.
type Filter struct {
	Column  string
	Op      FilterOp
	Operand value.Value
}

// MatchRow evaluates the conjunction of filters against a full (unprojected)
// row. SQL comparison semantics apply: a comparison against NULL is not a
// match.
func MatchRow(schema Schema, row []value.Value, filters []Filter) (bool, error) {
	for _, f := range filters {
		idx := schema.FieldIndex(f.Column)
		if idx < 0 {
			return false, fmt.Errorf("unknown filter column %q", f.Column)
		}
		cell := row[idx]
		switch f.Op {
		case FilterIsNull:
			if !cell.IsNull() {
				return false, nil
			}
			continue
		case FilterIsNotNull:
			if cell.IsNull() {
				return false, nil
			}
			continue
		}
		if cell.IsNull() || f.Operand.IsNull() {
			return false, nil
		}
		cmp, ok := cell.Compare(f.Operand)
		if !ok {
			return false, fmt.Errorf("%w: cannot compare column %q (%s) with %s",
				ErrTypeMismatch, f.Column, cell.Type(), f.Operand.Type())
		}
		var match bool
		switch f.Op {
		case FilterEq:
			match = cmp == 0
		case FilterNotEq:
			match = cmp != 0
		case FilterLt:
			match = cmp < 0
		case FilterLtEq:
			match = cmp <= 0
		case FilterGt:
			match = cmp > 0
		case FilterGtEq:
			match = cmp >= 0
		}
		if !match {
			return false, nil
		}
	}
	return true, nil
}
