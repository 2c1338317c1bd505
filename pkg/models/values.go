package models

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownField = errors.New("unknown template field")
	ErrFieldType    = errors.New("invalid value type for template field")
	ErrReadOnly     = errors.New("template field is read-only")
)

// Values is a partial update of a template, keyed by field name.
type Values map[string]any

// Clone returns a shallow copy of v.
func (v Values) Clone() Values {
	c := make(Values, len(v))
	for k, val := range v {
		c[k] = val
	}
	return c
}

// With returns a copy of v with key set to val.
func (v Values) With(key string, val any) Values {
	c := v.Clone()
	c[key] = val
	return c
}

// Keys returns the field names in sorted order.
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks every field name and value type without touching a template.
func (v Values) Validate() error {
	var scratch Template
	return v.Apply(&scratch)
}

// Apply writes the values onto t. The id field cannot be written.
func (v Values) Apply(t *Template) error {
	for _, name := range v.Keys() {
		if err := applyField(t, name, v[name]); err != nil {
			return err
		}
	}
	return nil
}

func applyField(t *Template, name string, val any) error {
	var err error
	switch name {
	case FieldID:
		return fmt.Errorf("%w: %s", ErrReadOnly, name)
	case FieldKey:
		t.Key, err = asString(name, val)
	case FieldName:
		t.Name, err = asString(name, val)
	case FieldModel:
		t.Model, err = asString(name, val)
	case FieldMode:
		t.Mode, err = asString(name, val)
	case FieldArch:
		t.Arch, err = asString(name, val)
	case FieldActive:
		t.Active, err = asBool(name, val)
	case FieldCustomizeShow:
		t.CustomizeShow, err = asBool(name, val)
	case FieldPriority:
		var n int64
		n, err = asInt(name, val)
		t.Priority = int(n)
	case FieldWebsiteID:
		var n int64
		n, err = asRef(name, val)
		t.WebsiteID = WebsiteID(n)
	case FieldThemeID:
		var n int64
		n, err = asRef(name, val)
		t.ThemeID = ModuleID(n)
	case FieldInheritID:
		var n int64
		n, err = asRef(name, val)
		t.InheritID = ViewID(n)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return err
}

func asString(name string, val any) (string, error) {
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s expects a string, got %T", ErrFieldType, name, val)
	}
	return s, nil
}

func asBool(name string, val any) (bool, error) {
	b, ok := val.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s expects a bool, got %T", ErrFieldType, name, val)
	}
	return b, nil
}

func asInt(name string, val any) (int64, error) {
	n, ok := ToInt64(val)
	if !ok {
		return 0, fmt.Errorf("%w: %s expects an integer, got %T", ErrFieldType, name, val)
	}
	return n, nil
}

// asRef accepts an id, nil or false (the "unset" spelling used by callers
// that mirror relational write payloads).
func asRef(name string, val any) (int64, error) {
	if val == nil || val == false {
		return 0, nil
	}
	n, err := asInt(name, val)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", ErrFieldType, name)
	}
	return n, nil
}

// ToInt64 converts any integer kind, including the typed ids of this
// package, to int64.
func ToInt64(val any) (int64, bool) {
	switch n := val.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case ViewID:
		return int64(n), true
	case WebsiteID:
		return int64(n), true
	case ModuleID:
		return int64(n), true
	case PageID:
		return int64(n), true
	case MenuID:
		return int64(n), true
	}
	return 0, false
}
