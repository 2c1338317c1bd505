package memory

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitekit/viewscope/pkg/domain"
	"github.com/sitekit/viewscope/pkg/models"
	"github.com/sitekit/viewscope/pkg/store"
)

func mustCreate(t *testing.T, s *Store, tpl *models.Template) *models.Template {
	t.Helper()
	out, err := s.Create(context.Background(), tpl)
	require.NoError(t, err)
	return out
}

func TestSearchActiveFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := mustCreate(t, s, &models.Template{Key: "a", Name: "a", Priority: 16, Active: true})
	b := mustCreate(t, s, &models.Template{Key: "b", Name: "b", Priority: 1, Active: true})
	c := mustCreate(t, s, &models.Template{Key: "c", Name: "c", Priority: 1, Active: false})

	got, err := s.Search(ctx, store.Query{})
	require.NoError(t, err)
	assert.Equal(t, []models.ViewID{b.ID, a.ID}, ids(got))

	got, err = s.Search(ctx, store.Query{WithInactive: true})
	require.NoError(t, err)
	assert.Equal(t, []models.ViewID{b.ID, c.ID, a.ID}, ids(got))

	got, err = s.Search(ctx, store.Query{Domain: domain.Eq(models.FieldActive, false)})
	require.NoError(t, err)
	assert.Equal(t, []models.ViewID{c.ID}, ids(got))

	got, err = s.Search(ctx, store.Query{Order: domain.Order{domain.Desc(models.FieldID)}, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []models.ViewID{b.ID}, ids(got))
}

func TestCreateDefaultsMode(t *testing.T) {
	s := New()
	base := mustCreate(t, s, &models.Template{Key: "base", Active: true})
	ext := mustCreate(t, s, &models.Template{Key: "ext", InheritID: base.ID, Active: true})

	assert.Equal(t, models.ModePrimary, base.Mode)
	assert.Equal(t, models.ModeExtension, ext.Mode)
}

func TestUniqueScope(t *testing.T) {
	ctx := context.Background()
	s := New()
	generic := mustCreate(t, s, &models.Template{Key: "k", Active: true})

	fork, err := s.Copy(ctx, generic.ID, models.Values{models.FieldWebsiteID: 1})
	require.NoError(t, err)
	assert.Equal(t, models.WebsiteID(1), fork.WebsiteID)
	assert.Equal(t, "k", fork.Key)

	_, err = s.Copy(ctx, generic.ID, models.Values{models.FieldWebsiteID: 1})
	var cerr *store.ConstraintError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, store.ConstraintUniqueScope, cerr.Constraint)
	assert.ErrorIs(t, err, store.ErrConstraint)

	err = s.Write(ctx, []models.ViewID{fork.ID}, models.Values{models.FieldWebsiteID: nil})
	assert.ErrorIs(t, err, store.ErrConstraint)

	got, err := s.Browse(ctx, fork.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WebsiteID(1), got[0].WebsiteID, "failed write must not apply")
}

func TestKeySharedAcrossScopes(t *testing.T) {
	ctx := context.Background()
	s := New()
	mustCreate(t, s, &models.Template{Key: "k", Active: true})
	mustCreate(t, s, &models.Template{Key: "k", WebsiteID: 1, Active: true})
	mustCreate(t, s, &models.Template{Key: "k", WebsiteID: 2, Active: true})
	mustCreate(t, s, &models.Template{Key: "k", ThemeID: 3, Active: true})

	got, err := s.Search(ctx, store.Query{Domain: domain.Eq(models.FieldKey, "k")})
	require.NoError(t, err)
	assert.Len(t, got, 4)

	_, err = s.Create(ctx, &models.Template{Key: "k", Active: true})
	assert.ErrorIs(t, err, store.ErrConstraint)
}

func TestBrowseMissing(t *testing.T) {
	_, err := New().Browse(context.Background(), 99)
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestUnlinkCascadesAndRestricts(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := mustCreate(t, s, &models.Template{Key: "base", Active: true})
	child := mustCreate(t, s, &models.Template{Key: "child", InheritID: base.ID, Active: true})
	page, err := s.CreatePage(ctx, &models.Page{ViewID: base.ID, URL: "/"})
	require.NoError(t, err)
	_, err = s.CreateMenu(ctx, &models.Menu{PageID: page.ID, Name: "Home"})
	require.NoError(t, err)

	err = s.Unlink(ctx, []models.ViewID{base.ID})
	var cerr *store.ConstraintError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, store.ConstraintInheritRestrict, cerr.Constraint)

	require.NoError(t, s.Unlink(ctx, []models.ViewID{base.ID, child.ID}))

	pages, err := s.Pages(ctx, base.ID)
	require.NoError(t, err)
	assert.Empty(t, pages)
	menus, err := s.Menus(ctx, page.ID)
	require.NoError(t, err)
	assert.Empty(t, menus)
}

func TestTransactionRollback(t *testing.T) {
	ctx := context.Background()
	s := New()
	v := mustCreate(t, s, &models.Template{Key: "k", Name: "before", Active: true})

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.Write(ctx, []models.ViewID{v.ID}, models.Values{models.FieldName: "after"}); err != nil {
			return err
		}
		if _, err := tx.Copy(ctx, v.ID, models.Values{models.FieldWebsiteID: 3}); err != nil {
			return err
		}
		// nested transactions join the outer one
		return tx.Transaction(ctx, func(ctx context.Context, tx store.Store) error {
			return boom
		})
	})
	require.ErrorIs(t, err, boom)

	all, err := s.Search(ctx, store.Query{WithInactive: true})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "before", all[0].Name)
}

func TestRef(t *testing.T) {
	ctx := context.Background()
	s := New()
	v := mustCreate(t, s, &models.Template{Key: "website.layout", Active: true})
	require.NoError(t, s.SetExternalID(ctx, models.ExternalID{Module: "website", Name: "layout", ResID: int64(v.ID)}))

	id, err := s.Ref(ctx, "website.layout")
	require.NoError(t, err)
	assert.Equal(t, v.ID, id)

	_, err = s.Ref(ctx, "website.missing")
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
	_, err = s.Ref(ctx, "nodot")
	assert.ErrorIs(t, err, store.ErrRecordNotFound)

	x, err := s.ExternalID(ctx, v.ID)
	require.NoError(t, err)
	require.NotNil(t, x)
	assert.Equal(t, "website.layout", x.CompleteName())
}

func TestDumpLoad(t *testing.T) {
	ctx := context.Background()
	s := New()
	theme, err := s.CreateModule(ctx, &models.Module{Name: "theme_clean"})
	require.NoError(t, err)
	_, err = s.CreateWebsite(ctx, &models.Website{Name: "One", DefaultLangCode: "en_US", ThemeIDs: []models.ModuleID{theme.ID}})
	require.NoError(t, err)
	v := mustCreate(t, s, &models.Template{Key: "website.homepage", Arch: "<t t-name='home'/>", Active: true})
	_, err = s.CreatePage(ctx, &models.Page{ViewID: v.ID, URL: "/", Name: "Home"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.Dump(&buf))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, s.Snapshot(), loaded.Snapshot())

	// sequences survive, so new records do not reuse ids
	next := mustCreate(t, loaded, &models.Template{Key: "other", Active: true})
	assert.Equal(t, v.ID+1, next.ID)
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	_, err := FromSnapshot(&Snapshot{Format: "OTHER"})
	assert.Error(t, err)
}

func ids(views []*models.Template) []models.ViewID {
	out := make([]models.ViewID, len(views))
	for i, v := range views {
		out[i] = v.ID
	}
	return out
}
