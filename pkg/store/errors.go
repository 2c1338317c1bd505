package store

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrConstraint     = errors.New("constraint violation")
)

// NotFound returns an error wrapping ErrRecordNotFound for a model and id.
func NotFound(model string, id any) error {
	return fmt.Errorf("%w: %s(%v)", ErrRecordNotFound, model, id)
}

// ConstraintError reports a violated integrity rule.
type ConstraintError struct {
	Constraint string
	Detail     string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConstraint, e.Constraint, e.Detail)
}

func (e *ConstraintError) Unwrap() error {
	return ErrConstraint
}

// Constraint names reported by the bundled engines.
const (
	ConstraintUniqueScope     = "view_key_scope_unique"
	ConstraintInheritRestrict = "view_inherit_id_restrict"
)
