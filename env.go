package viewscope

import (
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"

	"github.com/sitekit/viewscope/pkg/models"
)

// Env is the explicit scope every operation runs in. The zero Env is a
// generic, non-website context.
type Env struct {
	// WebsiteID is the current website. Zero means no website in context.
	WebsiteID models.WebsiteID
	// UID is the acting user. It partitions the key cache.
	UID int64
	// Lang is the language of the current request.
	Lang string
	// InstallModule is the module currently being installed or updated.
	InstallModule string
	// BypassCOW turns writes and deletes into plain in-place operations.
	BypassCOW bool
	// RenderingBundle is set while an asset bundle is rendered.
	RenderingBundle bool
	// RequestID correlates log lines of one request.
	RequestID uuid.UUID
	// Values are extra context values exposed to templates.
	Values map[string]any
}

// NewEnv returns an Env for websiteID with a fresh request id.
func NewEnv(websiteID models.WebsiteID) Env {
	return Env{WebsiteID: websiteID, RequestID: uuid.Must(uuid.NewV4())}
}

// WithWebsite returns a copy of e scoped to another website.
func (e Env) WithWebsite(id models.WebsiteID) Env {
	e.WebsiteID = id
	return e
}

// WithoutCOW returns a copy of e that writes in place.
func (e Env) WithoutCOW() Env {
	e.BypassCOW = true
	return e
}

// ThemeUpdate returns the module being installed when it is a theme, i.e.
// when its name contains marker. It returns "" otherwise.
func (e Env) ThemeUpdate(marker string) string {
	if marker != "" && strings.Contains(e.InstallModule, marker) {
		return e.InstallModule
	}
	return ""
}

// Context returns the values templates see as the rendering context.
func (e Env) Context() map[string]any {
	ctx := make(map[string]any, len(e.Values)+3)
	for k, v := range e.Values {
		ctx[k] = v
	}
	if e.Lang != "" {
		ctx["lang"] = e.Lang
	}
	if e.WebsiteID != 0 {
		ctx["website_id"] = int64(e.WebsiteID)
	}
	ctx["uid"] = e.UID
	return ctx
}

// logger decorates l with the request id and website of e.
func (e Env) logger(l zerolog.Logger) zerolog.Logger {
	c := l.With()
	if e.RequestID != uuid.Nil {
		c = c.Str("request_id", e.RequestID.String())
	}
	if e.WebsiteID != 0 {
		c = c.Int64("website_id", int64(e.WebsiteID))
	}
	return c.Logger()
}
