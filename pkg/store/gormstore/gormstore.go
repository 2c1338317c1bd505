// Package gormstore provides a PostgreSQL implementation of the
// [github.com/sitekit/viewscope/pkg/store.Store] interface using GORM.
//
// # Data Model Mapping
//
// Records map onto the tables of the content-management schema:
//   - [github.com/sitekit/viewscope/pkg/models.Template] → ir_ui_view
//   - [github.com/sitekit/viewscope/pkg/models.Page] → website_page
//   - [github.com/sitekit/viewscope/pkg/models.Menu] → website_menu
//   - [github.com/sitekit/viewscope/pkg/models.Website] → website, with its
//     themes in website_theme
//   - [github.com/sitekit/viewscope/pkg/models.Module] → ir_module_module
//   - [github.com/sitekit/viewscope/pkg/models.ExternalID] → ir_model_data
//
// Unset references are stored as NULL. Search renders the query domain with
// [github.com/sitekit/viewscope/pkg/domain.SQL], so the filters used by the
// policy layer run unchanged against the database.
//
// # Constraints
//
// The key scope uniqueness and the inherit restriction are checked inside
// the calling transaction before any row is changed, and reported as
// [*store.ConstraintError] like the in-memory engine does. The store package
// documentation on key scope describes why the uniqueness check is safe.
// Every mutating call runs in its own transaction unless it is already
// inside one.
//
// # Schema Migration
//
// [Store.Migrate] uses GORM's AutoMigrate. It only adds tables, columns and
// indexes and never drops data.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/sitekit/viewscope/pkg/domain"
	"github.com/sitekit/viewscope/pkg/models"
	"github.com/sitekit/viewscope/pkg/store"
)

// modelView is the model name external ids of templates are registered under.
const modelView = "ir.ui.view"

// Store is a PostgreSQL storage engine.
type Store struct {
	db   *gorm.DB
	inTx bool
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Seeder = (*Store)(nil)
)

// NewStore connects to the database identified by dsn.
func NewStore(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Store{db: db}, nil
}

// Open wraps an existing GORM connection.
func Open(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(tables...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// DropAll removes every table owned by the store.
func (s *Store) DropAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Migrator().DropTable(tables...)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) getDB(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// atomic runs fn in a transaction. Inside a running transaction GORM uses
// a savepoint, so a failed call never leaves a partial update behind.
func (s *Store) atomic(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.getDB(ctx).Transaction(fn)
}

// Transaction runs fn in a database transaction. Nested calls join it.
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return s.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &Store{db: tx, inTx: true})
	})
}

func (s *Store) Browse(ctx context.Context, ids ...models.ViewID) ([]*models.Template, error) {
	if len(ids) == 0 {
		return []*models.Template{}, nil
	}
	var rows []viewRow
	if err := s.getDB(ctx).Where("id IN ?", int64s(ids)).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[models.ViewID]*viewRow, len(rows))
	for i := range rows {
		byID[models.ViewID(rows[i].ID)] = &rows[i]
	}
	out := make([]*models.Template, 0, len(ids))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			return nil, store.NotFound("template", id)
		}
		out = append(out, r.template())
	}
	return out, nil
}

func (s *Store) Search(ctx context.Context, q store.Query) ([]*models.Template, error) {
	filter := q.Domain
	if !q.WithInactive && !domain.Mentions(filter, models.FieldActive) {
		filter = domain.AND(filter, domain.Eq(models.FieldActive, true))
	}
	order := q.Order
	if len(order) == 0 {
		order = store.DefaultOrder
	}
	where, args := domain.SQL(filter)

	db := s.getDB(ctx).Where(where, args...).Order(order.SQL()).Order("id ASC")
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	var rows []viewRow
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*models.Template, len(rows))
	for i := range rows {
		out[i] = rows[i].template()
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, t *models.Template) (*models.Template, error) {
	v := t.Clone()
	v.ID = 0
	if v.Mode == "" {
		v.Mode = models.ModePrimary
		if v.InheritID != 0 {
			v.Mode = models.ModeExtension
		}
	}
	var out *models.Template
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		var err error
		out, err = insertView(tx, v)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Copy(ctx context.Context, id models.ViewID, overrides models.Values) (*models.Template, error) {
	var out *models.Template
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		orig, err := loadView(tx, id)
		if err != nil {
			return err
		}
		v := orig.template()
		if err := overrides.Apply(v); err != nil {
			return err
		}
		v.ID = 0
		out, err = insertView(tx, v)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Write(ctx context.Context, ids []models.ViewID, vals models.Values) error {
	if err := vals.Validate(); err != nil {
		return err
	}
	return s.atomic(ctx, func(tx *gorm.DB) error {
		updated := make([]viewRow, 0, len(ids))
		for _, id := range ids {
			orig, err := loadView(tx, id)
			if err != nil {
				return err
			}
			v := orig.template()
			if err := vals.Apply(v); err != nil {
				return err
			}
			row := toViewRow(v)
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
			updated = append(updated, row)
		}
		// Checked once every row is saved so that a batch moving several
		// templates between scopes is judged on its final state.
		for i := range updated {
			if err := checkView(tx, &updated[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Unlink(ctx context.Context, ids []models.ViewID) error {
	if len(ids) == 0 {
		return nil
	}
	doomed := int64s(ids)
	return s.atomic(ctx, func(tx *gorm.DB) error {
		var found int64
		if err := tx.Model(&viewRow{}).Where("id IN ?", doomed).Count(&found).Error; err != nil {
			return err
		}
		if int(found) != len(uniq(doomed)) {
			missing, err := firstMissing(tx, doomed)
			if err != nil {
				return err
			}
			return store.NotFound("template", missing)
		}

		var child viewRow
		err := tx.Where("inherit_id IN ? AND id NOT IN ?", doomed, doomed).Order("id ASC").First(&child).Error
		switch {
		case err == nil:
			return &store.ConstraintError{
				Constraint: store.ConstraintInheritRestrict,
				Detail:     fmt.Sprintf("template %d is still inherited by template %d", deref(child.InheritID), child.ID),
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		var pageIDs []int64
		if err := tx.Model(&pageRow{}).Where("view_id IN ?", doomed).Pluck("id", &pageIDs).Error; err != nil {
			return err
		}
		if len(pageIDs) > 0 {
			if err := tx.Where("page_id IN ?", pageIDs).Delete(&menuRow{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", pageIDs).Delete(&pageRow{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("model = ? AND res_id IN ?", modelView, doomed).Delete(&externalIDRow{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", doomed).Delete(&viewRow{}).Error
	})
}

func (s *Store) Pages(ctx context.Context, viewID models.ViewID) ([]*models.Page, error) {
	var rows []pageRow
	if err := s.getDB(ctx).Where("view_id = ?", int64(viewID)).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*models.Page, len(rows))
	for i := range rows {
		out[i] = rows[i].page()
	}
	return out, nil
}

func (s *Store) CopyPage(ctx context.Context, id models.PageID, viewID models.ViewID, websiteID models.WebsiteID) (*models.Page, error) {
	var out *models.Page
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		var orig pageRow
		if err := tx.First(&orig, "id = ?", int64(id)).Error; err != nil {
			return notFound(err, "page", id)
		}
		if _, err := loadView(tx, viewID); err != nil {
			return err
		}
		row := orig
		row.ID = 0
		row.ViewID = int64(viewID)
		row.WebsiteID = ref(websiteID)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		out = row.page()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Menus(ctx context.Context, pageID models.PageID) ([]*models.Menu, error) {
	var rows []menuRow
	if err := s.getDB(ctx).Where("page_id = ?", int64(pageID)).Order("sequence ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*models.Menu, len(rows))
	for i := range rows {
		out[i] = rows[i].menu()
	}
	return out, nil
}

func (s *Store) CopyMenu(ctx context.Context, id models.MenuID, pageID models.PageID, websiteID models.WebsiteID) (*models.Menu, error) {
	var out *models.Menu
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		var orig menuRow
		if err := tx.First(&orig, "id = ?", int64(id)).Error; err != nil {
			return notFound(err, "menu", id)
		}
		var page pageRow
		if err := tx.First(&page, "id = ?", int64(pageID)).Error; err != nil {
			return notFound(err, "page", pageID)
		}
		row := orig
		row.ID = 0
		row.PageID = ref(pageID)
		row.WebsiteID = ref(websiteID)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		out = row.menu()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Websites(ctx context.Context) ([]*models.Website, error) {
	db := s.getDB(ctx)
	var rows []websiteRow
	if err := db.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	themes, err := loadThemes(db)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Website, len(rows))
	for i := range rows {
		out[i] = toWebsite(&rows[i], themes[rows[i].ID])
	}
	return out, nil
}

func (s *Store) Website(ctx context.Context, id models.WebsiteID) (*models.Website, error) {
	db := s.getDB(ctx)
	var row websiteRow
	if err := db.First(&row, "id = ?", int64(id)).Error; err != nil {
		return nil, notFound(err, "website", id)
	}
	themes, err := loadThemes(db.Where("website_id = ?", row.ID))
	if err != nil {
		return nil, err
	}
	return toWebsite(&row, themes[row.ID]), nil
}

func (s *Store) ModuleByName(ctx context.Context, name string) (*models.Module, error) {
	var row moduleRow
	if err := s.getDB(ctx).First(&row, "name = ?", name).Error; err != nil {
		return nil, notFound(err, "module", name)
	}
	return &models.Module{ID: models.ModuleID(row.ID), Name: row.Name}, nil
}

func (s *Store) ExternalID(ctx context.Context, id models.ViewID) (*models.ExternalID, error) {
	var row externalIDRow
	err := s.getDB(ctx).
		Where("model = ? AND res_id = ?", modelView, int64(id)).
		Order("module ASC, name ASC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.ExternalID{Module: row.Module, Name: row.Name, Model: row.Model, ResID: row.ResID}, nil
}

func (s *Store) Ref(ctx context.Context, xmlID string) (models.ViewID, error) {
	module, name, ok := splitXMLID(xmlID)
	if !ok {
		return 0, fmt.Errorf("%w: external id %q must be of the form module.name", store.ErrRecordNotFound, xmlID)
	}
	var row externalIDRow
	err := s.getDB(ctx).Where("module = ? AND name = ? AND model = ?", module, name, modelView).First(&row).Error
	if err != nil {
		return 0, notFound(err, "external id", xmlID)
	}
	return models.ViewID(row.ResID), nil
}

func loadView(tx *gorm.DB, id models.ViewID) (*viewRow, error) {
	var row viewRow
	if err := tx.First(&row, "id = ?", int64(id)).Error; err != nil {
		return nil, notFound(err, "template", id)
	}
	return &row, nil
}

func insertView(tx *gorm.DB, t *models.Template) (*models.Template, error) {
	row := toViewRow(t)
	if err := checkView(tx, &row); err != nil {
		return nil, err
	}
	if err := tx.Create(&row).Error; err != nil {
		return nil, err
	}
	return row.template(), nil
}

// checkView enforces that the parent exists and that no other template
// shares the key within the same website and theme scope.
func checkView(tx *gorm.DB, row *viewRow) error {
	if row.InheritID != nil {
		if _, err := loadView(tx, models.ViewID(*row.InheritID)); err != nil {
			return err
		}
	}
	if row.Key == "" {
		return nil
	}
	var other viewRow
	err := tx.
		Where(`"key" = ? AND website_id IS NOT DISTINCT FROM ? AND theme_id IS NOT DISTINCT FROM ? AND id <> ?`,
			row.Key, row.WebsiteID, row.ThemeID, row.ID).
		First(&other).Error
	switch {
	case err == nil:
		return &store.ConstraintError{
			Constraint: store.ConstraintUniqueScope,
			Detail: fmt.Sprintf("key %q already exists for website %d and theme %d (template %d)",
				row.Key, deref(row.WebsiteID), deref(row.ThemeID), other.ID),
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	}
	return err
}

func firstMissing(tx *gorm.DB, ids []int64) (int64, error) {
	var present []int64
	if err := tx.Model(&viewRow{}).Where("id IN ?", ids).Pluck("id", &present).Error; err != nil {
		return 0, err
	}
	seen := make(map[int64]bool, len(present))
	for _, id := range present {
		seen[id] = true
	}
	for _, id := range ids {
		if !seen[id] {
			return id, nil
		}
	}
	return 0, nil
}

func loadThemes(db *gorm.DB) (map[int64][]models.ModuleID, error) {
	var links []websiteThemeRow
	if err := db.Model(&websiteThemeRow{}).Order("website_id ASC, module_id ASC").Find(&links).Error; err != nil {
		return nil, err
	}
	out := make(map[int64][]models.ModuleID)
	for _, l := range links {
		out[l.WebsiteID] = append(out[l.WebsiteID], models.ModuleID(l.ModuleID))
	}
	return out, nil
}

func toWebsite(r *websiteRow, themes []models.ModuleID) *models.Website {
	return &models.Website{
		ID:              models.WebsiteID(r.ID),
		Name:            r.Name,
		DefaultLangCode: r.DefaultLangCode,
		CompanyID:       deref(r.CompanyID),
		ThemeIDs:        themes,
	}
}

// notFound maps GORM's missing-row error onto the store's.
func notFound(err error, model string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.NotFound(model, id)
	}
	return err
}

func splitXMLID(xmlID string) (module, name string, ok bool) {
	module, name, ok = strings.Cut(xmlID, ".")
	return module, name, ok && module != "" && name != ""
}

func int64s[T ~int64](ids []T) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

func uniq(ids []int64) map[int64]struct{} {
	out := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
