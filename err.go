package viewscope

import (
	"errors"
	"fmt"

	"github.com/sitekit/viewscope/pkg/models"
)

var (
	ErrNotFound         = errors.New("view not found")
	ErrInheritanceCycle = errors.New("view inheritance cycle")
	ErrInvalidViewRef   = errors.New("invalid view reference")
)

// NotFoundError reports a key that resolved to no template.
type NotFoundError struct {
	Key       string
	WebsiteID models.WebsiteID
	// Cause is the storage error behind the miss, if any.
	Cause error
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("view %q not found", e.Key)
	if e.WebsiteID != 0 {
		msg = fmt.Sprintf("view %q in website %d not found", e.Key, e.WebsiteID)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *NotFoundError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrNotFound}
	}
	return []error{ErrNotFound, e.Cause}
}

// CycleError reports the propagation path that came back to a template.
type CycleError struct {
	Path []models.ViewID
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %v", ErrInheritanceCycle, e.Path)
}

func (e *CycleError) Unwrap() error {
	return ErrInheritanceCycle
}
