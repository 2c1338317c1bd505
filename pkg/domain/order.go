package domain

import "strings"

// OrderBy sorts on one field. Unset values sort last unless NullsFirst is
// set, matching the ascending behaviour of PostgreSQL.
type OrderBy struct {
	Field      string
	Desc       bool
	NullsFirst bool
}

// Order is a list of sort keys, most significant first.
type Order []OrderBy

// Asc sorts ascending on field with unset values last.
func Asc(field string) OrderBy { return OrderBy{Field: field} }

// Desc sorts descending on field with unset values last.
func Desc(field string) OrderBy { return OrderBy{Field: field, Desc: true} }

// Compare orders two records. It returns a negative number when a sorts
// before b.
func (o Order) Compare(a, b Record) int {
	for _, by := range o {
		va, _ := a.Field(by.Field)
		vb, _ := b.Field(by.Field)
		va, vb = normalize(va), normalize(vb)
		if va == nil || vb == nil {
			if va == nil && vb == nil {
				continue
			}
			aFirst := va == nil
			if !by.NullsFirst {
				aFirst = !aFirst
			}
			if aFirst {
				return -1
			}
			return 1
		}
		c := Compare(va, vb)
		if by.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// SQL renders the ORDER BY clause body, e.g. `"website_id" ASC NULLS LAST`.
func (o Order) SQL() string {
	parts := make([]string, len(o))
	for i, by := range o {
		s := escapeIdent(by.Field)
		if by.Desc {
			s += " DESC"
		} else {
			s += " ASC"
		}
		if by.NullsFirst {
			s += " NULLS FIRST"
		} else {
			s += " NULLS LAST"
		}
		parts[i] = s
	}
	return strings.Join(parts, ", ")
}
