package models

import "fmt"

// ViewRefKind tells which alternative a ViewRef holds.
type ViewRefKind int

const (
	// RefInvalid is the zero ViewRef. Resolving it is an error.
	RefInvalid ViewRefKind = iota
	RefKey
	RefID
	RefResolved
)

// ViewRef designates a template either by logical key, by record id, or by
// an already loaded record.
type ViewRef struct {
	kind     ViewRefKind
	key      string
	id       ViewID
	resolved *Template
}

// KeyRef refers to a template by its logical key (or an external id such as
// "website.layout" when no website is in scope).
func KeyRef(key string) ViewRef {
	return ViewRef{kind: RefKey, key: key}
}

// IDRef refers to a template record directly.
func IDRef(id ViewID) ViewRef {
	return ViewRef{kind: RefID, id: id}
}

// ResolvedRef wraps a template that was already looked up.
func ResolvedRef(t *Template) ViewRef {
	return ViewRef{kind: RefResolved, resolved: t}
}

func (r ViewRef) Kind() ViewRefKind { return r.kind }
func (r ViewRef) Key() string { return r.key }
func (r ViewRef) ID() ViewID { return r.id }
func (r ViewRef) Resolved() *Template { return r.resolved }

func (r ViewRef) String() string {
	switch r.kind {
	case RefKey:
		return fmt.Sprintf("key(%s)", r.key)
	case RefID:
		return fmt.Sprintf("id(%d)", r.id)
	case RefResolved:
		if r.resolved == nil {
			return "resolved(<nil>)"
		}
		return fmt.Sprintf("resolved(%d)", r.resolved.ID)
	default:
		return "invalid"
	}
}
