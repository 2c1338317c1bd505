package models

// Template modes. Extension templates patch their InheritID parent; primary
// templates stand on their own.
const (
	ModePrimary   = "primary"
	ModeExtension = "extension"
)

// Field names understood by Template.Field and Values.
const (
	FieldID            = "id"
	FieldKey           = "key"
	FieldName          = "name"
	FieldModel         = "model"
	FieldMode          = "mode"
	FieldWebsiteID     = "website_id"
	FieldThemeID       = "theme_id"
	FieldActive        = "active"
	FieldPriority      = "priority"
	FieldInheritID     = "inherit_id"
	FieldCustomizeShow = "customize_show"
	FieldArch          = "arch"
)

// Template is one physical view record. Several templates may share a Key:
// the generic one (WebsiteID and ThemeID zero) and its website or theme
// specific forks.
type Template struct {
	ID            ViewID    `cbor:"id" json:"id"`
	Key           string    `cbor:"key" json:"key"`
	Name          string    `cbor:"name" json:"name"`
	Model         string    `cbor:"model" json:"model"`
	Mode          string    `cbor:"mode" json:"mode"`
	WebsiteID     WebsiteID `cbor:"website_id,omitempty" json:"website_id,omitempty"`
	ThemeID       ModuleID  `cbor:"theme_id,omitempty" json:"theme_id,omitempty"`
	Active        bool      `cbor:"active" json:"active"`
	Priority      int       `cbor:"priority" json:"priority"`
	InheritID     ViewID    `cbor:"inherit_id,omitempty" json:"inherit_id,omitempty"`
	CustomizeShow bool      `cbor:"customize_show,omitempty" json:"customize_show,omitempty"`
	Arch          string    `cbor:"arch" json:"arch"`
}

// IsGeneric reports whether the template is shared by every website.
func (t *Template) IsGeneric() bool {
	return t.WebsiteID == 0
}

// Clone returns a copy that shares no state with t.
func (t *Template) Clone() *Template {
	c := *t
	return &c
}

// Field returns the value stored under a field name. References that are
// unset are returned as nil; integers are returned as int64.
func (t *Template) Field(name string) (any, bool) {
	switch name {
	case FieldID:
		return int64(t.ID), true
	case FieldKey:
		return t.Key, true
	case FieldName:
		return t.Name, true
	case FieldModel:
		return t.Model, true
	case FieldMode:
		return t.Mode, true
	case FieldWebsiteID:
		return nullable(t.WebsiteID), true
	case FieldThemeID:
		return nullable(t.ThemeID), true
	case FieldActive:
		return t.Active, true
	case FieldPriority:
		return int64(t.Priority), true
	case FieldInheritID:
		return nullable(t.InheritID), true
	case FieldCustomizeShow:
		return t.CustomizeShow, true
	case FieldArch:
		return t.Arch, true
	}
	return nil, false
}

// Page is a website page whose content is the arch of its owning template.
type Page struct {
	ID          PageID    `cbor:"id" json:"id"`
	ViewID      ViewID    `cbor:"view_id" json:"view_id"`
	WebsiteID   WebsiteID `cbor:"website_id,omitempty" json:"website_id,omitempty"`
	Name        string    `cbor:"name" json:"name"`
	URL         string    `cbor:"url" json:"url"`
	IsPublished bool      `cbor:"is_published" json:"is_published"`
}

// Menu is a website menu entry pointing at a page.
type Menu struct {
	ID        MenuID    `cbor:"id" json:"id"`
	PageID    PageID    `cbor:"page_id,omitempty" json:"page_id,omitempty"`
	WebsiteID WebsiteID `cbor:"website_id,omitempty" json:"website_id,omitempty"`
	ParentID  MenuID    `cbor:"parent_id,omitempty" json:"parent_id,omitempty"`
	Name      string    `cbor:"name" json:"name"`
	URL       string    `cbor:"url" json:"url"`
	Sequence  int       `cbor:"sequence" json:"sequence"`
}

// Website is a tenant of the content-management system.
type Website struct {
	ID              WebsiteID  `cbor:"id" json:"id"`
	Name            string     `cbor:"name" json:"name"`
	DefaultLangCode string     `cbor:"default_lang_code" json:"default_lang_code"`
	CompanyID       int64      `cbor:"company_id,omitempty" json:"company_id,omitempty"`
	ThemeIDs        []ModuleID `cbor:"theme_ids,omitempty" json:"theme_ids,omitempty"`
}

// Module is an installable module. Themes are modules whose name carries
// the theme marker (theme_*).
type Module struct {
	ID   ModuleID `cbor:"id" json:"id"`
	Name string   `cbor:"name" json:"name"`
}

// ExternalID is the stable module.name identifier of a record, assigned by
// the module that declared it.
type ExternalID struct {
	Module string `cbor:"module" json:"module"`
	Name   string `cbor:"name" json:"name"`
	Model  string `cbor:"model" json:"model"`
	ResID  int64  `cbor:"res_id" json:"res_id"`
}

// CompleteName returns module.name.
func (x ExternalID) CompleteName() string {
	return x.Module + "." + x.Name
}
