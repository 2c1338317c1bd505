package viewscope

import (
	"context"
	"fmt"

	"github.com/sitekit/viewscope/pkg/models"
	"github.com/sitekit/viewscope/pkg/render"
)

// Request is what the HTTP layer knows about the request being served.
type Request struct {
	// Frontend is set for requests served by the website frontend.
	Frontend bool
	// Website serving the request.
	Website *models.Website
	// Publisher is set when the user may edit the website.
	Publisher bool
	// PublisherGroup is set when the user belongs to the website publisher
	// group, whether or not they may edit this website.
	PublisherGroup bool
	// InternalUser is set for backend users. Only they get menu data.
	InternalUser bool
	// ForceWebsiteID is the website pinned in the session, if any.
	ForceWebsiteID models.WebsiteID
	// Languages are the codes of the installed languages.
	Languages []string
	// URLFor builds a localized URL.
	URLFor func(path string) string
	// MenuData is the backend menu tree handed to internal users.
	MenuData any
}

func (r *Request) frontend() bool {
	return r != nil && r.Frontend && r.Website != nil
}

// WebsiteOption is one entry of the multi-website selector. A zero
// WebsiteID stands for domain based selection.
type WebsiteOption struct {
	WebsiteID models.WebsiteID `json:"website_id"`
	Name      string           `json:"name"`
}

var domainBased = WebsiteOption{Name: "Domain Based"}

// URLAction is a client action opening a URL.
type URLAction struct {
	Type   string `json:"type"`
	URL    string `json:"url"`
	Target string `json:"target"`
}

// RedirectToPageManager returns the action opening the website page manager.
func RedirectToPageManager() URLAction {
	return URLAction{Type: "ir.actions.act_url", URL: "/website/pages", Target: "self"}
}

// editMode returns the editable and translatable flags of a frontend
// request: a publisher edits in the website default language and
// translates in any other.
func editMode(env Env, req *Request, defaultLang string) (editable, translatable bool) {
	editable = req.Publisher
	translatable = editable && env.Lang != defaultLang
	editable = !translatable && editable
	return editable, translatable
}

// Render renders the template ref designates. On frontend requests the
// output is branded for editing when the user may edit the website.
func (v *Views) Render(ctx context.Context, env Env, req *Request, ref models.ViewRef, values map[string]any) ([]byte, error) {
	id, err := v.ViewID(ctx, env, ref)
	if err != nil {
		return nil, err
	}
	views, err := v.store.Browse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load view %d: %w", id, err)
	}
	view := views[0]

	opts := render.Options{Context: env.Context()}
	if req.frontend() {
		editable, translatable := editMode(env, req, req.Website.DefaultLangCode)
		if !translatable && !env.RenderingBundle {
			switch {
			case editable:
				opts.InheritBranding = true
			case req.PublisherGroup:
				opts.InheritBrandingAuto = true
			}
		}
	}

	qcontext, err := v.PrepareQContext(ctx, env, req, view)
	if err != nil {
		return nil, err
	}
	for k, val := range values {
		qcontext[k] = val
	}
	out, err := v.engine.Render(ctx, view, qcontext, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to render view %d (%s): %w", view.ID, view.Key, err)
	}
	return out, nil
}

// PrepareQContext returns the rendering context of view. Frontend requests
// get the website values the website layout needs.
func (v *Views) PrepareQContext(ctx context.Context, env Env, req *Request, view *models.Template) (map[string]any, error) {
	qcontext := env.Context()
	if !req.frontend() {
		return qcontext, nil
	}

	defaultLang, err := v.DefaultLangCode(ctx, env.WithWebsite(req.Website.ID))
	if err != nil {
		return nil, err
	}
	editable, translatable := editMode(env, req, defaultLang)

	if _, ok := qcontext["main_object"]; !ok {
		qcontext["main_object"] = view
	}

	selected := domainBased
	if req.ForceWebsiteID != 0 {
		forced, err := v.store.Website(ctx, req.ForceWebsiteID)
		if err != nil {
			return nil, fmt.Errorf("failed to load forced website %d: %w", req.ForceWebsiteID, err)
		}
		selected = WebsiteOption{WebsiteID: forced.ID, Name: forced.Name}
	}
	qcontext["multi_website_selected_website"] = selected

	websites, err := v.store.Websites(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list websites: %w", err)
	}
	options := make([]WebsiteOption, 0, len(websites)+1)
	for _, w := range websites {
		options = append(options, WebsiteOption{WebsiteID: w.ID, Name: w.Name})
	}
	qcontext["multi_website_websites"] = append(options, domainBased)

	qcontext["website"] = req.Website
	qcontext["res_company"] = req.Website.CompanyID
	qcontext["default_lang_code"] = defaultLang
	qcontext["languages"] = req.Languages
	qcontext["translatable"] = translatable
	qcontext["editable"] = editable
	if req.URLFor != nil {
		qcontext["url_for"] = req.URLFor
	}
	var menuData any
	if req.InternalUser {
		menuData = req.MenuData
	}
	qcontext["menu_data"] = menuData
	return qcontext, nil
}

// DefaultLangCode returns the default language of the website of env, or
// the configured default outside a website.
func (v *Views) DefaultLangCode(ctx context.Context, env Env) (string, error) {
	if env.WebsiteID == 0 {
		return v.cfg.DefaultLangCode, nil
	}
	website, err := v.store.Website(ctx, env.WebsiteID)
	if err != nil {
		return "", fmt.Errorf("failed to load website %d: %w", env.WebsiteID, err)
	}
	if website.DefaultLangCode == "" {
		return v.cfg.DefaultLangCode, nil
	}
	return website.DefaultLangCode, nil
}
