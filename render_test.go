package viewscope_test

import (
	"context"

	"github.com/sitekit/viewscope"
	"github.com/sitekit/viewscope/pkg/models"
	"github.com/sitekit/viewscope/pkg/render"
)

func (suite *ViewsTestSuite) website(id models.WebsiteID) *models.Website {
	w, err := suite.store.Website(suite.ctx, id)
	suite.Require().NoError(err)
	return w
}

func (suite *ViewsTestSuite) TestRenderWithArchEngine() {
	suite.create(&models.Template{Key: "website.hello", Arch: `<h1>{{.title}} {{.website_id}}</h1>`, Active: true})

	out, err := suite.views.Render(suite.ctx, env(5), nil, models.KeyRef("website.hello"), map[string]any{"title": "Hi"})
	suite.Require().NoError(err)
	suite.Equal("<h1>Hi 5</h1>", string(out))

	_, err = suite.views.Render(suite.ctx, env(5), nil, models.KeyRef("website.nothing"), nil)
	suite.ErrorIs(err, viewscope.ErrNotFound)
}

func (suite *ViewsTestSuite) TestRenderBranding() {
	suite.create(&models.Template{Key: "website.hello", Active: true})
	var got render.Options
	views := suite.newViews(viewscope.WithRenderer(render.EngineFunc(
		func(ctx context.Context, view *models.Template, values map[string]any, opts render.Options) ([]byte, error) {
			got = opts
			return nil, nil
		})))
	five := suite.website(5)

	tests := []struct {
		name      string
		env       viewscope.Env
		req       *viewscope.Request
		branding  bool
		brandAuto bool
	}{
		{name: "publisher in default language", env: viewscope.Env{WebsiteID: 5, Lang: "en_US"}, req: &viewscope.Request{Frontend: true, Website: five, Publisher: true}, branding: true},
		{name: "publisher translating", env: viewscope.Env{WebsiteID: 5, Lang: "fr_FR"}, req: &viewscope.Request{Frontend: true, Website: five, Publisher: true}},
		{name: "publisher group member", env: viewscope.Env{WebsiteID: 5, Lang: "en_US"}, req: &viewscope.Request{Frontend: true, Website: five, PublisherGroup: true}, brandAuto: true},
		{name: "rendering a bundle", env: viewscope.Env{WebsiteID: 5, Lang: "en_US", RenderingBundle: true}, req: &viewscope.Request{Frontend: true, Website: five, Publisher: true}},
		{name: "backend request", env: viewscope.Env{WebsiteID: 5, Lang: "en_US"}, req: &viewscope.Request{Website: five, Publisher: true}},
		{name: "no request", env: viewscope.Env{WebsiteID: 5, Lang: "en_US"}},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			got = render.Options{}
			_, err := views.Render(suite.ctx, tt.env, tt.req, models.KeyRef("website.hello"), nil)
			suite.Require().NoError(err)
			suite.Equal(tt.branding, got.InheritBranding)
			suite.Equal(tt.brandAuto, got.InheritBrandingAuto)
			suite.Equal(tt.env.Lang, got.Context["lang"])
		})
	}
}

func (suite *ViewsTestSuite) TestPrepareQContext() {
	view := suite.create(&models.Template{Key: "website.hello", Active: true})
	req := &viewscope.Request{
		Frontend:       true,
		Website:        suite.website(5),
		Publisher:      true,
		ForceWebsiteID: 7,
		Languages:      []string{"en_US", "fr_FR"},
		MenuData:       "menus",
	}
	e := viewscope.Env{WebsiteID: 5, Lang: "en_US"}

	qcontext, err := suite.views.PrepareQContext(suite.ctx, e, req, view)
	suite.Require().NoError(err)
	suite.Same(view, qcontext["main_object"])
	suite.Equal(viewscope.WebsiteOption{WebsiteID: 7, Name: "Seven"}, qcontext["multi_website_selected_website"])
	suite.Equal([]viewscope.WebsiteOption{
		{WebsiteID: 1, Name: "Default"},
		{WebsiteID: 5, Name: "Five"},
		{WebsiteID: 7, Name: "Seven"},
		{Name: "Domain Based"},
	}, qcontext["multi_website_websites"])
	suite.Same(req.Website, qcontext["website"])
	suite.Equal(int64(1), qcontext["res_company"])
	suite.Equal("en_US", qcontext["default_lang_code"])
	suite.Equal([]string{"en_US", "fr_FR"}, qcontext["languages"])
	suite.Equal(true, qcontext["editable"])
	suite.Equal(false, qcontext["translatable"])
	suite.Nil(qcontext["menu_data"])
	suite.Equal("en_US", qcontext["lang"])

	req.InternalUser = true
	req.ForceWebsiteID = 0
	e.Lang = "fr_FR"
	e.Values = map[string]any{"main_object": "custom"}
	qcontext, err = suite.views.PrepareQContext(suite.ctx, e, req, view)
	suite.Require().NoError(err)
	suite.Equal("custom", qcontext["main_object"])
	suite.Equal(viewscope.WebsiteOption{Name: "Domain Based"}, qcontext["multi_website_selected_website"])
	suite.Equal("menus", qcontext["menu_data"])
	suite.Equal(false, qcontext["editable"])
	suite.Equal(true, qcontext["translatable"])

	e.Values = nil
	qcontext, err = suite.views.PrepareQContext(suite.ctx, e, nil, view)
	suite.Require().NoError(err)
	suite.NotContains(qcontext, "website")
	suite.NotContains(qcontext, "main_object")
}

func (suite *ViewsTestSuite) TestRedirectToPageManager() {
	suite.Equal(viewscope.URLAction{Type: "ir.actions.act_url", URL: "/website/pages", Target: "self"}, viewscope.RedirectToPageManager())
}
