package storage

import (
	"fmt"
	"strings"
)

// Predicate is a composable visibility filter applied by the store before
// pagination. Fragments use ? placeholders; the store rebinds them to the
// numbered form its driver expects when it assembles the full query.
//
// A predicate is always well-formed: the scope filter produces one for
// every identity and entity kind, possibly over the universal or the empty
// set. The store never invents visibility logic of its own.
type Predicate struct {
	all  bool
	none bool
	expr string
	args []interface{}
}

// All matches every record.
func All() Predicate { return Predicate{all: true} }

// None matches no record.
func None() Predicate { return Predicate{none: true} }

// Where builds a predicate from a SQL fragment with ? placeholders.
func Where(expr string, args ...interface{}) Predicate {
	return Predicate{expr: expr, args: args}
}

// IsAll reports whether the predicate matches everything.
func (p Predicate) IsAll() bool { return p.all }

// IsNone reports whether the predicate matches nothing.
func (p Predicate) IsNone() bool { return p.none }

// And conjoins two predicates. All is the identity element; None is
// absorbing.
func (p Predicate) And(q Predicate) Predicate {
	if p.none || q.none {
		return None()
	}
	if p.all {
		return q
	}
	if q.all {
		return p
	}
	return Predicate{
		expr: "(" + p.expr + ") AND (" + q.expr + ")",
		args: append(append([]interface{}{}, p.args...), q.args...),
	}
}

// Or disjoins two predicates. None is the identity element; All is
// absorbing.
func (p Predicate) Or(q Predicate) Predicate {
	if p.all || q.all {
		return All()
	}
	if p.none {
		return q
	}
	if q.none {
		return p
	}
	return Predicate{
		expr: "(" + p.expr + ") OR (" + q.expr + ")",
		args: append(append([]interface{}{}, p.args...), q.args...),
	}
}

// SQL renders the predicate as a WHERE fragment with numbered placeholders
// starting at argStart, plus its arguments. All renders as a tautology and
// None as a contradiction so callers can splice the fragment in
// unconditionally.
func (p Predicate) SQL(argStart int) (string, []interface{}) {
	if p.all {
		return "1=1", nil
	}
	if p.none {
		return "1=0", nil
	}
	var b strings.Builder
	n := argStart
	for _, ch := range p.expr {
		if ch == '?' {
			fmt.Fprintf(&b, "$%d", n)
			n++
			continue
		}
		b.WriteRune(ch)
	}
	return b.String(), p.args
}
