package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// sqlBuilder accumulates positional arguments while a domain is rendered.
type sqlBuilder struct {
	args []any
}

// SQL renders e as a WHERE clause with ? placeholders and returns the
// arguments in placeholder order. A nil or empty expression renders as
// "TRUE". Field names must be plain identifiers; anything else panics, as
// field names come from code, never from user input.
func SQL(e Expr) (string, []any) {
	b := &sqlBuilder{}
	return b.build(e), b.args
}

func (b *sqlBuilder) build(e Expr) string {
	switch v := e.(type) {
	case nil:
		return "TRUE"
	case Cond:
		return b.cond(v)
	case And:
		if len(v) == 0 {
			return "TRUE"
		}
		return b.join(v, " AND ")
	case Or:
		if len(v) == 0 {
			return "FALSE"
		}
		return b.join(v, " OR ")
	}
	panic(fmt.Sprintf("domain: unsupported expression %T", e))
}

func (b *sqlBuilder) join(exprs []Expr, sep string) string {
	parts := make([]string, len(exprs))
	for i, m := range exprs {
		parts[i] = b.build(m)
	}
	return "(" + strings.Join(parts, sep) + ")"
}

func (b *sqlBuilder) cond(c Cond) string {
	col := escapeIdent(c.Field)
	switch c.Op {
	case OpEq:
		if c.Value == nil {
			return col + " IS NULL"
		}
		b.args = append(b.args, c.Value)
		return col + " = ?"
	case OpNe:
		if c.Value == nil {
			return col + " IS NOT NULL"
		}
		b.args = append(b.args, c.Value)
		return fmt.Sprintf("(%s IS NULL OR %s <> ?)", col, col)
	case OpIn, OpNotIn:
		values, _ := c.Value.([]any)
		withNull := false
		var concrete []any
		for _, v := range values {
			if v == nil {
				withNull = true
				continue
			}
			concrete = append(concrete, v)
		}
		in := b.in(col, concrete, withNull)
		if c.Op == OpNotIn {
			return "NOT " + in
		}
		return in
	}
	panic(fmt.Sprintf("domain: unsupported operator %q", c.Op))
}

func (b *sqlBuilder) in(col string, values []any, withNull bool) string {
	var parts []string
	if withNull {
		parts = append(parts, col+" IS NULL")
	}
	if len(values) > 0 {
		b.args = append(b.args, values)
		parts = append(parts, col+" IN (?)")
	}
	switch len(parts) {
	case 0:
		return "FALSE"
	case 1:
		if !withNull {
			return parts[0]
		}
		return "(" + parts[0] + ")"
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func escapeIdent(field string) string {
	if !identRe.MatchString(field) {
		panic(fmt.Sprintf("domain: invalid field name %q", field))
	}
	return `"` + field + `"`
}
