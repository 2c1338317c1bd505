package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Operator is the comparison applied by a Cond.
type Operator string

const (
	OpEq    Operator = "="
	OpNe    Operator = "!="
	OpIn    Operator = "in"
	OpNotIn Operator = "not in"
)

// Record exposes field values to Match. Unset references must be reported
// as nil.
type Record interface {
	Field(name string) (any, bool)
}

// Expr is a node of a domain tree: a Cond, an And or an Or.
type Expr interface {
	isExpr()
}

// Cond compares one field against a value. For OpIn and OpNotIn, Value
// holds a []any.
type Cond struct {
	Field string
	Op    Operator
	Value any
}

// And is true when every member is true. An empty And is true.
type And []Expr

// Or is true when any member is true. An empty Or is false.
type Or []Expr

func (Cond) isExpr() {}
func (And) isExpr() {}
func (Or) isExpr() {}

// True matches every record.
func True() Expr { return And{} }

// False matches no record.
func False() Expr { return Or{} }

func Eq(field string, value any) Cond { return Cond{Field: field, Op: OpEq, Value: normalize(value)} }
func Ne(field string, value any) Cond { return Cond{Field: field, Op: OpNe, Value: normalize(value)} }
func IsNull(field string) Cond { return Cond{Field: field, Op: OpEq, Value: nil} }
func NotNull(field string) Cond { return Cond{Field: field, Op: OpNe, Value: nil} }

// In matches records whose field equals one of values. A nil entry matches
// unset fields.
func In(field string, values ...any) Cond {
	return Cond{Field: field, Op: OpIn, Value: normalizeAll(values)}
}

// NotIn is the negation of In.
func NotIn(field string, values ...any) Cond {
	return Cond{Field: field, Op: OpNotIn, Value: normalizeAll(values)}
}

// AND combines expressions, skipping nil ones and flattening nested Ands.
func AND(exprs ...Expr) Expr {
	out := And{}
	for _, e := range exprs {
		switch v := e.(type) {
		case nil:
		case And:
			out = append(out, v...)
		default:
			out = append(out, v)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

// OR combines expressions, skipping nil ones and flattening nested Ors.
// OR() with no operand is False.
func OR(exprs ...Expr) Expr {
	out := Or{}
	for _, e := range exprs {
		switch v := e.(type) {
		case nil:
		case Or:
			out = append(out, v...)
		default:
			out = append(out, v)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

// StripField replaces every condition on field with True.
func StripField(e Expr, field string) Expr {
	switch v := e.(type) {
	case nil:
		return nil
	case Cond:
		if v.Field == field {
			return True()
		}
		return v
	case And:
		out := And{}
		for _, m := range v {
			s := StripField(m, field)
			if isTrue(s) {
				continue
			}
			out = append(out, s)
		}
		if len(out) == 1 {
			return out[0]
		}
		return out
	case Or:
		out := Or{}
		for _, m := range v {
			s := StripField(m, field)
			if isTrue(s) {
				return True()
			}
			out = append(out, s)
		}
		if len(out) == 1 {
			return out[0]
		}
		return out
	}
	panic(fmt.Sprintf("domain: unsupported expression %T", e))
}

// Fields returns the sorted set of field names referenced by e.
func Fields(e Expr) []string {
	seen := map[string]struct{}{}
	walk(e, func(c Cond) { seen[c.Field] = struct{}{} })
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Mentions reports whether e has a condition on field.
func Mentions(e Expr, field string) bool {
	found := false
	walk(e, func(c Cond) {
		if c.Field == field {
			found = true
		}
	})
	return found
}

func walk(e Expr, fn func(Cond)) {
	switch v := e.(type) {
	case Cond:
		fn(v)
	case And:
		for _, m := range v {
			walk(m, fn)
		}
	case Or:
		for _, m := range v {
			walk(m, fn)
		}
	}
}

func isTrue(e Expr) bool {
	a, ok := e.(And)
	return ok && len(a) == 0
}

// String renders e with inline values, for logs and error messages.
func String(e Expr) string {
	switch v := e.(type) {
	case nil:
		return "TRUE"
	case Cond:
		return v.String()
	case And:
		if len(v) == 0 {
			return "TRUE"
		}
		return joinExprs(v, " AND ")
	case Or:
		if len(v) == 0 {
			return "FALSE"
		}
		return joinExprs(v, " OR ")
	}
	return fmt.Sprintf("<%T>", e)
}

func joinExprs(exprs []Expr, sep string) string {
	parts := make([]string, len(exprs))
	for i, m := range exprs {
		parts[i] = String(m)
	}
	return "(" + strings.Join(parts, sep) + ")"
}

func (c Cond) String() string {
	return fmt.Sprintf("%s %s %s", c.Field, c.Op, formatValue(c.Value))
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return fmt.Sprintf("%q", x)
	case []any:
		parts := make([]string, len(x))
		for i, m := range x {
			parts[i] = formatValue(m)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return fmt.Sprint(v)
}
