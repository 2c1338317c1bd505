package domain

import (
	"fmt"
	"reflect"
)

// Match evaluates e against r. A nil expression matches everything. Fields
// unknown to r compare as unset.
func Match(e Expr, r Record) bool {
	switch v := e.(type) {
	case nil:
		return true
	case Cond:
		return v.match(r)
	case And:
		for _, m := range v {
			if !Match(m, r) {
				return false
			}
		}
		return true
	case Or:
		for _, m := range v {
			if Match(m, r) {
				return true
			}
		}
		return false
	}
	panic(fmt.Sprintf("domain: unsupported expression %T", e))
}

func (c Cond) match(r Record) bool {
	got, _ := r.Field(c.Field)
	got = normalize(got)
	switch c.Op {
	case OpEq:
		return equal(got, c.Value)
	case OpNe:
		return !equal(got, c.Value)
	case OpIn:
		return contains(c.Value, got)
	case OpNotIn:
		return !contains(c.Value, got)
	}
	panic(fmt.Sprintf("domain: unsupported operator %q", c.Op))
}

func contains(list any, v any) bool {
	values, _ := list.([]any)
	for _, m := range values {
		if equal(v, m) {
			return true
		}
	}
	return false
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Compare(a, b) == 0
}

// Compare orders two normalized field values: nil sorts first, then
// booleans (false before true), numbers and strings. Values of different
// kinds order by kind.
func Compare(a, b any) int {
	a, b = normalize(a), normalize(b)
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmpInt(int64(ra), int64(rb))
	}
	switch x := a.(type) {
	case nil:
		return 0
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case int64:
		return cmpInt(x, b.(int64))
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case string:
		y := b.(string)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return 0
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case int64:
		return 2
	case float64:
		return 3
	case string:
		return 4
	}
	return 5
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// normalize folds every integer kind, including named id types, to int64
// and every float kind to float64.
func normalize(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	}
	return v
}

func normalizeAll(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = normalize(v)
	}
	return out
}
