package gormstore

import (
	"github.com/sitekit/viewscope/pkg/models"
)

// viewRow maps a template onto the ir_ui_view table. Unset references are
// stored as NULL so that domain conditions on them behave like the
// in-memory engine's.
type viewRow struct {
	ID            int64  `gorm:"primaryKey"`
	Key           string `gorm:"column:key;index"`
	Name          string `gorm:"not null"`
	Model         string
	Mode          string `gorm:"not null"`
	WebsiteID     *int64 `gorm:"index"`
	ThemeID       *int64 `gorm:"index"`
	Active        bool   `gorm:"not null"`
	Priority      int    `gorm:"not null"`
	InheritID     *int64 `gorm:"index"`
	CustomizeShow bool   `gorm:"not null"`
	Arch          string `gorm:"type:text"`
}

func (viewRow) TableName() string { return "ir_ui_view" }

type pageRow struct {
	ID          int64  `gorm:"primaryKey"`
	ViewID      int64  `gorm:"not null;index"`
	WebsiteID   *int64 `gorm:"index"`
	Name        string
	URL         string `gorm:"column:url"`
	IsPublished bool   `gorm:"not null"`
}

func (pageRow) TableName() string { return "website_page" }

type menuRow struct {
	ID        int64  `gorm:"primaryKey"`
	PageID    *int64 `gorm:"index"`
	WebsiteID *int64 `gorm:"index"`
	ParentID  *int64
	Name      string
	URL       string `gorm:"column:url"`
	Sequence  int    `gorm:"not null"`
}

func (menuRow) TableName() string { return "website_menu" }

type websiteRow struct {
	ID              int64 `gorm:"primaryKey"`
	Name            string
	DefaultLangCode string
	CompanyID       *int64
}

func (websiteRow) TableName() string { return "website" }

// websiteThemeRow links a website to one of its installed themes.
type websiteThemeRow struct {
	WebsiteID int64 `gorm:"primaryKey;autoIncrement:false"`
	ModuleID  int64 `gorm:"primaryKey;autoIncrement:false"`
}

func (websiteThemeRow) TableName() string { return "website_theme" }

type moduleRow struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

func (moduleRow) TableName() string { return "ir_module_module" }

type externalIDRow struct {
	Module string `gorm:"primaryKey"`
	Name   string `gorm:"primaryKey"`
	Model  string `gorm:"not null;index:idx_model_data_res"`
	ResID  int64  `gorm:"not null;index:idx_model_data_res"`
}

func (externalIDRow) TableName() string { return "ir_model_data" }

// tables lists every row type in creation order.
var tables = []any{
	&moduleRow{},
	&websiteRow{},
	&websiteThemeRow{},
	&viewRow{},
	&pageRow{},
	&menuRow{},
	&externalIDRow{},
}

func ref[T ~int64](id T) *int64 {
	if id == 0 {
		return nil
	}
	n := int64(id)
	return &n
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

func toViewRow(t *models.Template) viewRow {
	return viewRow{
		ID:            int64(t.ID),
		Key:           t.Key,
		Name:          t.Name,
		Model:         t.Model,
		Mode:          t.Mode,
		WebsiteID:     ref(t.WebsiteID),
		ThemeID:       ref(t.ThemeID),
		Active:        t.Active,
		Priority:      t.Priority,
		InheritID:     ref(t.InheritID),
		CustomizeShow: t.CustomizeShow,
		Arch:          t.Arch,
	}
}

func (r *viewRow) template() *models.Template {
	return &models.Template{
		ID:            models.ViewID(r.ID),
		Key:           r.Key,
		Name:          r.Name,
		Model:         r.Model,
		Mode:          r.Mode,
		WebsiteID:     models.WebsiteID(deref(r.WebsiteID)),
		ThemeID:       models.ModuleID(deref(r.ThemeID)),
		Active:        r.Active,
		Priority:      r.Priority,
		InheritID:     models.ViewID(deref(r.InheritID)),
		CustomizeShow: r.CustomizeShow,
		Arch:          r.Arch,
	}
}

func toPageRow(p *models.Page) pageRow {
	return pageRow{
		ID:          int64(p.ID),
		ViewID:      int64(p.ViewID),
		WebsiteID:   ref(p.WebsiteID),
		Name:        p.Name,
		URL:         p.URL,
		IsPublished: p.IsPublished,
	}
}

func (r *pageRow) page() *models.Page {
	return &models.Page{
		ID:          models.PageID(r.ID),
		ViewID:      models.ViewID(r.ViewID),
		WebsiteID:   models.WebsiteID(deref(r.WebsiteID)),
		Name:        r.Name,
		URL:         r.URL,
		IsPublished: r.IsPublished,
	}
}

func toMenuRow(m *models.Menu) menuRow {
	return menuRow{
		ID:        int64(m.ID),
		PageID:    ref(m.PageID),
		WebsiteID: ref(m.WebsiteID),
		ParentID:  ref(m.ParentID),
		Name:      m.Name,
		URL:       m.URL,
		Sequence:  m.Sequence,
	}
}

func (r *menuRow) menu() *models.Menu {
	return &models.Menu{
		ID:        models.MenuID(r.ID),
		PageID:    models.PageID(deref(r.PageID)),
		WebsiteID: models.WebsiteID(deref(r.WebsiteID)),
		ParentID:  models.MenuID(deref(r.ParentID)),
		Name:      r.Name,
		URL:       r.URL,
		Sequence:  r.Sequence,
	}
}
