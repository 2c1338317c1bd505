package models

import (
	"fmt"
	"strconv"
)

// ViewID identifies a physical template record. Zero means "no record".
type ViewID int64

// WebsiteID identifies a website. Zero means "generic", i.e. shared by all websites.
type WebsiteID int64

// ModuleID identifies an installed module (themes are modules). Zero means "none".
type ModuleID int64

// PageID identifies a website page.
type PageID int64

// MenuID identifies a website menu entry.
type MenuID int64

func (id ViewID) IsZero() bool { return id == 0 }
func (id WebsiteID) IsZero() bool { return id == 0 }
func (id ModuleID) IsZero() bool { return id == 0 }

func (id ViewID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id WebsiteID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseViewID parses the decimal form produced by ViewID.String.
func ParseViewID(s string) (ViewID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid view id %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid view id %q: must be positive", s)
	}
	return ViewID(n), nil
}

// ParseWebsiteID parses a website id. The empty string parses as the generic website 0.
func ParseWebsiteID(s string) (WebsiteID, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid website id %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid website id %q: must not be negative", s)
	}
	return WebsiteID(n), nil
}

// nullable maps a zero reference to nil so that domain conditions can
// compare it against NULL the way a relational engine would.
func nullable[T ~int64](id T) any {
	if id == 0 {
		return nil
	}
	return int64(id)
}
