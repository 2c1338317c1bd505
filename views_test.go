package viewscope_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"github.com/sitekit/viewscope"
	"github.com/sitekit/viewscope/pkg/domain"
	"github.com/sitekit/viewscope/pkg/logger"
	"github.com/sitekit/viewscope/pkg/models"
	"github.com/sitekit/viewscope/pkg/store"
	"github.com/sitekit/viewscope/pkg/store/memory"
)

type ViewsTestSuite struct {
	suite.Suite
	ctx   context.Context
	store *memory.Store
	views *viewscope.Views
	logs  *bytes.Buffer
	theme *models.Module
}

func TestViewsSuite(t *testing.T) {
	suite.Run(t, new(ViewsTestSuite))
}

func (suite *ViewsTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = memory.New()
	suite.logs = &bytes.Buffer{}
	suite.views = suite.newViews()

	_, err := suite.store.CreateModule(suite.ctx, &models.Module{Name: "website"})
	suite.Require().NoError(err)
	suite.theme, err = suite.store.CreateModule(suite.ctx, &models.Module{Name: "theme_clean"})
	suite.Require().NoError(err)

	for _, w := range []*models.Website{
		{ID: 1, Name: "Default", DefaultLangCode: "en_US", CompanyID: 1},
		{ID: 5, Name: "Five", DefaultLangCode: "en_US", CompanyID: 1},
		{ID: 7, Name: "Seven", DefaultLangCode: "fr_FR", CompanyID: 2},
	} {
		_, err := suite.store.CreateWebsite(suite.ctx, w)
		suite.Require().NoError(err)
	}
}

func (suite *ViewsTestSuite) newViews(opts ...viewscope.Option) *viewscope.Views {
	logData, err := logger.New().FromBuffer(suite.logs).WithLevel(zerolog.DebugLevel).Make()
	suite.Require().NoError(err)
	opts = append([]viewscope.Option{
		viewscope.WithLogger(logData.Logger),
		viewscope.WithRegisterer(prometheus.NewRegistry()),
	}, opts...)
	views, err := viewscope.New(suite.store, opts...)
	suite.Require().NoError(err)
	return views
}

func (suite *ViewsTestSuite) create(t *models.Template) *models.Template {
	if t.Model == "" {
		t.Model = "ir.ui.view"
	}
	created, err := suite.views.Create(suite.ctx, t)
	suite.Require().NoError(err)
	return created
}

func (suite *ViewsTestSuite) xmlID(module, name string, id models.ViewID) {
	err := suite.store.SetExternalID(suite.ctx, models.ExternalID{Module: module, Name: name, ResID: int64(id)})
	suite.Require().NoError(err)
}

// byKey returns every template carrying key, inactive ones included, by id.
func (suite *ViewsTestSuite) byKey(key string) []*models.Template {
	views, err := suite.store.Search(suite.ctx, store.Query{
		Domain:       domain.Eq(models.FieldKey, key),
		Order:        domain.Order{domain.Asc(models.FieldID)},
		WithInactive: true,
	})
	suite.Require().NoError(err)
	return views
}

func (suite *ViewsTestSuite) browse(id models.ViewID) *models.Template {
	views, err := suite.store.Browse(suite.ctx, id)
	suite.Require().NoError(err)
	return views[0]
}

func (suite *ViewsTestSuite) viewID(env viewscope.Env, key string) models.ViewID {
	id, err := suite.views.ViewID(suite.ctx, env, models.KeyRef(key))
	suite.Require().NoError(err)
	return id
}

func env(websiteID models.WebsiteID) viewscope.Env {
	return viewscope.NewEnv(websiteID)
}

func (suite *ViewsTestSuite) TestWriteForksGenericViewForWebsite() {
	t := suite.create(&models.Template{Key: "page", Name: "T", Active: true})
	suite.Equal(t.ID, suite.viewID(env(5), "page"))

	err := suite.views.Write(suite.ctx, env(5), []models.ViewID{t.ID}, models.Values{models.FieldName: "X"})
	suite.Require().NoError(err)

	all := suite.byKey("page")
	suite.Require().Len(all, 2)
	suite.Equal("T", all[0].Name)
	suite.True(all[0].IsGeneric())
	suite.Equal("X", all[1].Name)
	suite.Equal(models.WebsiteID(5), all[1].WebsiteID)

	suite.Equal(all[1].ID, suite.viewID(env(5), "page"))
	suite.Equal(t.ID, suite.viewID(env(7), "page"))
	suite.Contains(suite.logs.String(), "created website-specific view")
}

func (suite *ViewsTestSuite) TestWebsitesStayIsolated() {
	t := suite.create(&models.Template{Key: "home", Name: "Home", Active: true})

	suite.Require().NoError(suite.views.Write(suite.ctx, env(5), []models.ViewID{t.ID}, models.Values{models.FieldName: "Five"}))
	suite.Require().NoError(suite.views.Write(suite.ctx, env(7), []models.ViewID{t.ID}, models.Values{models.FieldName: "Seven"}))
	// the second write for website 5 reuses its copy
	suite.Require().NoError(suite.views.Write(suite.ctx, env(5), []models.ViewID{t.ID}, models.Values{models.FieldName: "Five again"}))

	suite.Len(suite.byKey("home"), 3)
	for _, tc := range []struct {
		website models.WebsiteID
		name    string
	}{
		{website: 1, name: "Home"},
		{website: 5, name: "Five again"},
		{website: 7, name: "Seven"},
	} {
		views, err := suite.views.ViewObj(suite.ctx, env(tc.website), models.KeyRef("home"))
		suite.Require().NoError(err)
		suite.Require().Len(views, 1)
		suite.Equal(tc.name, views[0].Name, "website %d", tc.website)
	}
	suite.Contains(suite.logs.String(), "diverting write to existing website-specific view")
}

func (suite *ViewsTestSuite) TestThemeForkIsIdempotent() {
	layout := suite.create(&models.Template{Key: "website.layout", Name: "Main layout", Arch: "<main/>", Active: true})
	suite.xmlID("website", "layout", layout.ID)
	install := viewscope.Env{InstallModule: "theme_clean", WebsiteID: 5}

	suite.Require().NoError(suite.views.Write(suite.ctx, install, []models.ViewID{layout.ID}, models.Values{models.FieldArch: "<main class='clean'/>"}))
	suite.Require().NoError(suite.views.Write(suite.ctx, install, []models.ViewID{layout.ID}, models.Values{models.FieldArch: "<main class='cleaner'/>"}))

	all := suite.byKey("website.layout")
	suite.Require().Len(all, 2)
	suite.Equal("<main/>", all[0].Arch)
	suite.Equal(suite.theme.ID, all[1].ThemeID)
	suite.True(all[1].IsGeneric(), "theme updates ignore the website in context")
	suite.Equal("<main class='cleaner'/>", all[1].Arch)

	logs := suite.logs.String()
	suite.Contains(logs, "created new theme-specific view")
	suite.Contains(logs, "diverting write")
}

func (suite *ViewsTestSuite) TestThemeWritesOwnViewsInPlace() {
	own := suite.create(&models.Template{Key: "theme_clean.header", Active: true})
	suite.xmlID("theme_clean", "header", own.ID)
	custom := suite.create(&models.Template{Key: "website.custom", Active: true})
	install := viewscope.Env{InstallModule: "theme_clean"}

	err := suite.views.Write(suite.ctx, install, []models.ViewID{own.ID, custom.ID}, models.Values{models.FieldName: "Updated"})
	suite.Require().NoError(err)

	suite.Len(suite.byKey("theme_clean.header"), 1)
	suite.Len(suite.byKey("website.custom"), 1)
	suite.Equal("Updated", suite.browse(own.ID).Name)
	suite.Equal("Updated", suite.browse(custom.ID).Name)
}

func (suite *ViewsTestSuite) TestNonThemeInstallIsNotDiverted() {
	layout := suite.create(&models.Template{Key: "website.layout", Active: true})
	suite.xmlID("website", "layout", layout.ID)

	err := suite.views.Write(suite.ctx, viewscope.Env{InstallModule: "website_blog"}, []models.ViewID{layout.ID}, models.Values{models.FieldName: "Blog"})
	suite.Require().NoError(err)
	suite.Len(suite.byKey("website.layout"), 1)
}

func (suite *ViewsTestSuite) TestUnlinkKeepsOtherWebsitesCopies() {
	t := suite.create(&models.Template{Key: "website.contactus", Name: "Contact", Active: true})
	_, err := suite.store.CreatePage(suite.ctx, &models.Page{ViewID: t.ID, URL: "/contactus"})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.views.Unlink(suite.ctx, env(5), []models.ViewID{t.ID}))

	suite.Empty(suite.byKey("website.contactus"))
	for _, w := range []models.WebsiteID{1, 7} {
		copies := suite.byKey("website.contactus [website " + w.String() + "]")
		suite.Require().Len(copies, 1)
		suite.Equal(w, copies[0].WebsiteID)
		suite.Equal("Contact", copies[0].Name)

		pages, err := suite.store.PagesByWebsite(suite.ctx, w)
		suite.Require().NoError(err)
		suite.Require().Len(pages, 1)
		suite.Equal(copies[0].ID, pages[0].ViewID)
	}
	generic, err := suite.store.PagesByWebsite(suite.ctx, 0)
	suite.Require().NoError(err)
	suite.Empty(generic)

	_, err = suite.views.ViewID(suite.ctx, env(5), models.KeyRef("website.contactus"))
	suite.ErrorIs(err, viewscope.ErrNotFound)
	var nf *viewscope.NotFoundError
	suite.Require().ErrorAs(err, &nf)
	suite.Equal(models.WebsiteID(5), nf.WebsiteID)
	suite.Contains(suite.logs.String(), "could not find view object")

	_, err = suite.views.ViewID(suite.ctx, env(5), models.KeyRef("website.contactus [website 7]"))
	suite.ErrorIs(err, viewscope.ErrNotFound)

	// round trip: the renamed copy resolves to a record of the website
	id := suite.viewID(env(7), "website.contactus [website 7]")
	got := suite.browse(id)
	suite.Equal("website.contactus [website 7]", got.Key)
	suite.Equal(models.WebsiteID(7), got.WebsiteID)
}

func (suite *ViewsTestSuite) TestUnlinkRenamesExistingCopy() {
	t := suite.create(&models.Template{Key: "k", Name: "Generic", Active: true})
	suite.Require().NoError(suite.views.Write(suite.ctx, env(7), []models.ViewID{t.ID}, models.Values{models.FieldName: "Seven"}))
	fork := suite.byKey("k")[1]

	suite.Require().NoError(suite.views.Unlink(suite.ctx, env(5), []models.ViewID{t.ID}))

	seven := suite.byKey("k [website 7]")
	suite.Require().Len(seven, 1)
	suite.Equal(fork.ID, seven[0].ID)
	suite.Equal("Seven", seven[0].Name)
	suite.Len(suite.byKey("k [website 1]"), 1)
	suite.Empty(suite.byKey("k"))
}

func (suite *ViewsTestSuite) TestUnlinkWithoutWebsiteDeletesAllScopes() {
	t := suite.create(&models.Template{Key: "k", Active: true})
	suite.create(&models.Template{Key: "k", WebsiteID: 5, Active: false})

	suite.Require().NoError(suite.views.Unlink(suite.ctx, viewscope.Env{}, []models.ViewID{t.ID}))
	suite.Empty(suite.byKey("k"))
	suite.Empty(suite.byKey("k [website 7]"))
}

func (suite *ViewsTestSuite) TestUnlinkRollsBackOnConstraint() {
	parent := suite.create(&models.Template{Key: "p", Active: true})
	suite.create(&models.Template{Key: "c", InheritID: parent.ID, Active: true})
	before := suite.store.Snapshot()

	err := suite.views.Unlink(suite.ctx, env(5), []models.ViewID{parent.ID})
	suite.Require().ErrorIs(err, store.ErrConstraint)
	var cerr *store.ConstraintError
	suite.Require().ErrorAs(err, &cerr)
	suite.Equal(store.ConstraintInheritRestrict, cerr.Constraint)

	suite.Equal(before, suite.store.Snapshot(), "copies kept for other websites are rolled back")
}

func (suite *ViewsTestSuite) TestWriteCopiesPagesAndMenus() {
	t := suite.create(&models.Template{Key: "website.contactus", Active: true})
	page, err := suite.store.CreatePage(suite.ctx, &models.Page{ViewID: t.ID, URL: "/contactus", Name: "Contact", IsPublished: true})
	suite.Require().NoError(err)
	_, err = suite.store.CreateMenu(suite.ctx, &models.Menu{PageID: page.ID, Name: "Contact us", URL: "/contactus", Sequence: 10})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.views.Write(suite.ctx, env(5), []models.ViewID{t.ID}, models.Values{models.FieldArch: "<form/>"}))
	fork := suite.byKey("website.contactus")[1]

	pages, err := suite.store.Pages(suite.ctx, fork.ID)
	suite.Require().NoError(err)
	suite.Require().Len(pages, 1)
	suite.Equal(models.WebsiteID(5), pages[0].WebsiteID)
	suite.Equal("/contactus", pages[0].URL)
	suite.True(pages[0].IsPublished)

	menus, err := suite.store.Menus(suite.ctx, pages[0].ID)
	suite.Require().NoError(err)
	suite.Require().Len(menus, 1)
	suite.Equal(models.WebsiteID(5), menus[0].WebsiteID)
	suite.Equal("Contact us", menus[0].Name)

	orig, err := suite.store.Pages(suite.ctx, t.ID)
	suite.Require().NoError(err)
	suite.Require().Len(orig, 1)
	suite.Equal(page.ID, orig[0].ID)
	suite.True(orig[0].WebsiteID.IsZero())
	origMenus, err := suite.store.Menus(suite.ctx, page.ID)
	suite.Require().NoError(err)
	suite.Len(origMenus, 1)

	first, err := suite.views.FirstPage(suite.ctx, fork.ID)
	suite.Require().NoError(err)
	suite.Equal(pages[0].ID, first.ID)

	other := suite.create(&models.Template{Key: "bare", Active: true})
	first, err = suite.views.FirstPage(suite.ctx, other.ID)
	suite.Require().NoError(err)
	suite.Nil(first)
}

func (suite *ViewsTestSuite) TestWritePropagatesToChildren() {
	parent := suite.create(&models.Template{Key: "p", Active: true})
	generic := suite.create(&models.Template{Key: "c", InheritID: parent.ID, Active: false})
	seven := suite.create(&models.Template{Key: "d", InheritID: parent.ID, WebsiteID: 7, Active: true})
	five := suite.create(&models.Template{Key: "e", InheritID: parent.ID, WebsiteID: 5, Active: true})

	suite.Require().NoError(suite.views.Write(suite.ctx, env(5), []models.ViewID{parent.ID}, models.Values{models.FieldName: "P5"}))
	fork := suite.byKey("p")[1]
	suite.Equal("P5", fork.Name)

	cs := suite.byKey("c")
	suite.Require().Len(cs, 2)
	suite.Equal(parent.ID, cs[0].InheritID)
	suite.Equal(generic.ID, cs[0].ID)
	suite.Equal(fork.ID, cs[1].InheritID)
	suite.Equal(models.WebsiteID(5), cs[1].WebsiteID)
	suite.False(cs[1].Active, "inactive children are copied as they are")

	suite.Equal(parent.ID, suite.browse(seven.ID).InheritID, "other websites keep the generic parent")
	suite.Equal(fork.ID, suite.browse(five.ID).InheritID)
	suite.Len(suite.byKey("e"), 1)
}

func (suite *ViewsTestSuite) TestWriteDetectsInheritanceCycle() {
	a := suite.create(&models.Template{Key: "a", Active: true})
	b := suite.create(&models.Template{Key: "b", InheritID: a.ID, Active: true})
	suite.Require().NoError(suite.views.Write(suite.ctx, viewscope.Env{BypassCOW: true}, []models.ViewID{a.ID}, models.Values{models.FieldInheritID: b.ID}))
	before := suite.store.Snapshot()

	err := suite.views.Write(suite.ctx, env(5), []models.ViewID{a.ID}, models.Values{models.FieldName: "x"})
	suite.Require().ErrorIs(err, viewscope.ErrInheritanceCycle)
	var cycle *viewscope.CycleError
	suite.Require().ErrorAs(err, &cycle)
	suite.Equal([]models.ViewID{a.ID, b.ID, a.ID}, cycle.Path)
	suite.Equal(before, suite.store.Snapshot())
}

func (suite *ViewsTestSuite) TestBypassWritesInPlace() {
	t := suite.create(&models.Template{Key: "k", Name: "before", Active: true})

	suite.Require().NoError(suite.views.Write(suite.ctx, env(5).WithoutCOW(), []models.ViewID{t.ID}, models.Values{models.FieldName: "after"}))
	all := suite.byKey("k")
	suite.Require().Len(all, 1)
	suite.Equal("after", all[0].Name)
}

func (suite *ViewsTestSuite) TestWriteSpecificViewInPlace() {
	t := suite.create(&models.Template{Key: "k", WebsiteID: 5, Active: true})

	suite.Require().NoError(suite.views.Write(suite.ctx, env(5), []models.ViewID{t.ID}, models.Values{models.FieldPriority: 3}))
	suite.Require().NoError(suite.views.Write(suite.ctx, env(7), []models.ViewID{t.ID}, models.Values{models.FieldActive: false}))
	all := suite.byKey("k")
	suite.Require().Len(all, 1)
	suite.Equal(3, all[0].Priority)
	suite.False(all[0].Active)
}

func (suite *ViewsTestSuite) TestWriteRejectsUnknownField() {
	t := suite.create(&models.Template{Key: "k", Active: true})
	err := suite.views.Write(suite.ctx, env(5), []models.ViewID{t.ID}, models.Values{"colour": "red"})
	suite.ErrorIs(err, models.ErrUnknownField)
	suite.Len(suite.byKey("k"), 1)
}

func (suite *ViewsTestSuite) TestInactiveSpecificBeatsActiveGeneric() {
	base := suite.create(&models.Template{Key: "website.layout", Active: true})
	generic := suite.create(&models.Template{Key: "website.ext", InheritID: base.ID, Priority: 16, Arch: "<gen/>", Active: true})
	suite.create(&models.Template{Key: "website.ext", InheritID: base.ID, WebsiteID: 1, Arch: "<off/>", Active: false})
	other := suite.create(&models.Template{Key: "website.ext2", InheritID: base.ID, Priority: 5, Arch: "<two/>", Active: true})
	suite.create(&models.Template{Key: "website.ext3", InheritID: base.ID, Model: "website.page", Active: true})

	arch, err := suite.views.InheritingViewsArch(suite.ctx, env(1), base.ID, "ir.ui.view")
	suite.Require().NoError(err)
	suite.Equal([]viewscope.ArchEntry{{Arch: "<two/>", ID: other.ID}}, arch)

	want := []viewscope.ArchEntry{{Arch: "<two/>", ID: other.ID}, {Arch: "<gen/>", ID: generic.ID}}
	arch, err = suite.views.InheritingViewsArch(suite.ctx, env(7), base.ID, "ir.ui.view")
	suite.Require().NoError(err)
	suite.Equal(want, arch)

	arch, err = suite.views.InheritingViewsArch(suite.ctx, viewscope.Env{}, base.ID, "ir.ui.view")
	suite.Require().NoError(err)
	suite.Equal(want, arch)
}

func (suite *ViewsTestSuite) TestThemeViewsResolveOnThemedWebsite() {
	_, err := suite.store.CreateWebsite(suite.ctx, &models.Website{ID: 9, Name: "Themed", ThemeIDs: []models.ModuleID{suite.theme.ID}})
	suite.Require().NoError(err)
	themed := suite.create(&models.Template{Key: "theme_clean.banner", ThemeID: suite.theme.ID, WebsiteID: 7, Active: true})

	suite.Equal(themed.ID, suite.viewID(env(9), "theme_clean.banner"))
	_, err = suite.views.ViewID(suite.ctx, env(5), models.KeyRef("theme_clean.banner"))
	suite.ErrorIs(err, viewscope.ErrNotFound)
}

func (suite *ViewsTestSuite) TestViewIDPrefersWebsiteSpecific() {
	generic := suite.create(&models.Template{Key: "k", Active: true})
	suite.Equal(generic.ID, suite.viewID(env(5), "k"))

	// Create drops the cached resolution
	specific := suite.create(&models.Template{Key: "k", WebsiteID: 5, Active: true})
	suite.Equal(specific.ID, suite.viewID(env(5), "k"))
	suite.Equal(generic.ID, suite.viewID(env(7), "k"))
}

func (suite *ViewsTestSuite) TestViewIDWithoutWebsite() {
	layout := suite.create(&models.Template{Key: "website.layout", Active: true})
	suite.xmlID("website", "layout", layout.ID)

	suite.Equal(layout.ID, suite.viewID(viewscope.Env{}, "website.layout"))

	_, err := suite.views.ViewID(suite.ctx, viewscope.Env{}, models.KeyRef("website.missing"))
	suite.ErrorIs(err, viewscope.ErrNotFound)
	suite.ErrorIs(err, store.ErrRecordNotFound)
	var nf *viewscope.NotFoundError
	suite.Require().ErrorAs(err, &nf)
	suite.Equal("website.missing", nf.Key)
}

func (suite *ViewsTestSuite) TestViewRefShapes() {
	t := suite.create(&models.Template{Key: "k", Active: true})

	id, err := suite.views.ViewID(suite.ctx, env(5), models.IDRef(t.ID))
	suite.Require().NoError(err)
	suite.Equal(t.ID, id)

	id, err = suite.views.ViewID(suite.ctx, env(5), models.ResolvedRef(t))
	suite.Require().NoError(err)
	suite.Equal(t.ID, id)

	views, err := suite.views.ViewObj(suite.ctx, env(5), models.ResolvedRef(t))
	suite.Require().NoError(err)
	suite.Same(t, views[0], "pre-resolved templates are returned unchanged")

	for _, ref := range []models.ViewRef{{}, models.ResolvedRef(nil), models.KeyRef(""), models.IDRef(0)} {
		_, err := suite.views.ViewID(suite.ctx, env(5), ref)
		suite.ErrorIs(err, viewscope.ErrInvalidViewRef, ref.String())
	}
	_, err = suite.views.ViewObj(suite.ctx, env(5), models.ViewRef{})
	suite.ErrorIs(err, viewscope.ErrInvalidViewRef)
}

func (suite *ViewsTestSuite) TestViewObjFallsBackToExternalID() {
	snippet := suite.create(&models.Template{Name: "snippet", Active: true})
	suite.xmlID("website", "snippet", snippet.ID)

	views, err := suite.views.ViewObj(suite.ctx, env(5), models.KeyRef("website.snippet"))
	suite.Require().NoError(err)
	suite.Require().Len(views, 1)
	suite.Equal(snippet.ID, views[0].ID)

	_, err = suite.views.ViewObj(suite.ctx, env(5), models.KeyRef("website.nothing"))
	suite.ErrorIs(err, viewscope.ErrNotFound)
}

func (suite *ViewsTestSuite) TestRelatedViews() {
	root := suite.create(&models.Template{Key: "r", Active: true})
	c := suite.create(&models.Template{Key: "c", InheritID: root.ID, Active: true})
	c5 := suite.create(&models.Template{Key: "c", InheritID: root.ID, WebsiteID: 5, Active: true})
	g := suite.create(&models.Template{Key: "g", InheritID: c.ID, Active: false})

	ids := func(views []*models.Template) []models.ViewID {
		out := make([]models.ViewID, len(views))
		for i, v := range views {
			out[i] = v.ID
		}
		return out
	}

	views, err := suite.views.RelatedViews(suite.ctx, viewscope.Env{}, nil, "r")
	suite.Require().NoError(err)
	suite.Equal([]models.ViewID{root.ID, c.ID, c5.ID, g.ID}, ids(views))

	views, err = suite.views.RelatedViews(suite.ctx, env(5), nil, "r")
	suite.Require().NoError(err)
	suite.Equal([]models.ViewID{root.ID, c5.ID, g.ID}, ids(views))

	website, err := suite.store.Website(suite.ctx, 5)
	suite.Require().NoError(err)
	views, err = suite.views.RelatedViews(suite.ctx, viewscope.Env{}, &viewscope.Request{Website: website}, "r")
	suite.Require().NoError(err)
	suite.Equal([]models.ViewID{root.ID, c5.ID, g.ID}, ids(views))
}

func (suite *ViewsTestSuite) TestFilterDuplicateDefaultsToDefaultWebsite() {
	generic := &models.Template{ID: 1, Key: "k"}
	one := &models.Template{ID: 2, Key: "k", WebsiteID: 1}
	suite.Equal([]*models.Template{one}, suite.views.FilterDuplicate(viewscope.Env{}, []*models.Template{generic, one}))
	suite.Equal([]*models.Template{generic}, suite.views.FilterDuplicate(env(5), []*models.Template{generic, one}))
}

func (suite *ViewsTestSuite) TestDefaultLangCode() {
	lang, err := suite.views.DefaultLangCode(suite.ctx, viewscope.Env{})
	suite.Require().NoError(err)
	suite.Equal("en_US", lang)

	lang, err = suite.views.DefaultLangCode(suite.ctx, env(7))
	suite.Require().NoError(err)
	suite.Equal("fr_FR", lang)

	_, err = suite.store.CreateWebsite(suite.ctx, &models.Website{ID: 8, Name: "No language"})
	suite.Require().NoError(err)
	lang, err = suite.views.DefaultLangCode(suite.ctx, env(8))
	suite.Require().NoError(err)
	suite.Equal("en_US", lang)

	_, err = suite.views.DefaultLangCode(suite.ctx, env(42))
	suite.ErrorIs(err, store.ErrRecordNotFound)
}

func (suite *ViewsTestSuite) TestConcurrentResolution() {
	t := suite.create(&models.Template{Key: "k", Active: true})
	errs := make(chan error, 16)
	for i := 0; i < cap(errs); i++ {
		go func() {
			id, err := suite.views.ViewID(suite.ctx, env(5), models.KeyRef("k"))
			if err == nil && id != t.ID {
				err = errors.New("unexpected view id " + id.String())
			}
			errs <- err
		}()
	}
	for i := 0; i < cap(errs); i++ {
		suite.NoError(<-errs)
	}
}
