package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sitekit/viewscope/pkg/models"
	"github.com/sitekit/viewscope/pkg/store"
)

// Fixture is the YAML description of the records to seed a store with.
//
//	modules: [website, theme_clean]
//	websites:
//	  - {id: 1, name: Default, default_lang_code: en_US, themes: [theme_clean]}
//	views:
//	  - xml_id: website.layout
//	    key: website.layout
//	    name: Layout
//	    arch: "<main>{{.website.Name}}</main>"
//	    pages:
//	      - {url: /, name: Home, menus: [{name: Home, sequence: 10}]}
type Fixture struct {
	Modules  []string         `yaml:"modules"`
	Websites []WebsiteFixture `yaml:"websites"`
	Views    []ViewFixture    `yaml:"views"`
}

type WebsiteFixture struct {
	ID              int64    `yaml:"id"`
	Name            string   `yaml:"name"`
	DefaultLangCode string   `yaml:"default_lang_code"`
	CompanyID       int64    `yaml:"company_id"`
	Themes          []string `yaml:"themes"`
}

type ViewFixture struct {
	XMLID         string        `yaml:"xml_id"`
	Key           string        `yaml:"key"`
	Name          string        `yaml:"name"`
	Model         string        `yaml:"model"`
	Mode          string        `yaml:"mode"`
	WebsiteID     int64         `yaml:"website_id"`
	Theme         string        `yaml:"theme"`
	Active        *bool         `yaml:"active"`
	Priority      *int          `yaml:"priority"`
	Inherit       string        `yaml:"inherit"`
	CustomizeShow bool          `yaml:"customize_show"`
	Arch          string        `yaml:"arch"`
	Pages         []PageFixture `yaml:"pages"`
}

type PageFixture struct {
	Name      string        `yaml:"name"`
	URL       string        `yaml:"url"`
	WebsiteID int64         `yaml:"website_id"`
	Published bool          `yaml:"published"`
	Menus     []MenuFixture `yaml:"menus"`
}

type MenuFixture struct {
	Name      string `yaml:"name"`
	URL       string `yaml:"url"`
	WebsiteID int64  `yaml:"website_id"`
	Sequence  int    `yaml:"sequence"`
}

const defaultPriority = 16

// ReadFixture decodes the fixture file at path. Unknown fields are errors.
func ReadFixture(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var fx Fixture
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("failed to decode fixture %s: %w", path, err)
	}
	return &fx, nil
}

type seedTarget interface {
	store.Store
	store.Seeder
}

// Seed creates the records of fx in st. Views may only inherit from views
// declared before them.
func (fx *Fixture) Seed(ctx context.Context, st seedTarget) error {
	modules := make(map[string]models.ModuleID, len(fx.Modules))
	for _, name := range fx.Modules {
		m, err := st.CreateModule(ctx, &models.Module{Name: name})
		if err != nil {
			return fmt.Errorf("module %s: %w", name, err)
		}
		modules[name] = m.ID
	}
	module := func(name string) (models.ModuleID, error) {
		id, ok := modules[name]
		if !ok {
			return 0, fmt.Errorf("module %q is not declared", name)
		}
		return id, nil
	}

	for _, w := range fx.Websites {
		website := &models.Website{
			ID:              models.WebsiteID(w.ID),
			Name:            w.Name,
			DefaultLangCode: w.DefaultLangCode,
			CompanyID:       w.CompanyID,
		}
		for _, theme := range w.Themes {
			id, err := module(theme)
			if err != nil {
				return fmt.Errorf("website %s: %w", w.Name, err)
			}
			website.ThemeIDs = append(website.ThemeIDs, id)
		}
		if _, err := st.CreateWebsite(ctx, website); err != nil {
			return fmt.Errorf("website %s: %w", w.Name, err)
		}
	}

	for _, v := range fx.Views {
		if err := seedView(ctx, st, v, module); err != nil {
			return fmt.Errorf("view %s: %w", v.Key, err)
		}
	}
	return nil
}

func seedView(ctx context.Context, st seedTarget, v ViewFixture, module func(string) (models.ModuleID, error)) error {
	t := &models.Template{
		Key:           v.Key,
		Name:          v.Name,
		Model:         v.Model,
		Mode:          v.Mode,
		WebsiteID:     models.WebsiteID(v.WebsiteID),
		Active:        true,
		Priority:      defaultPriority,
		CustomizeShow: v.CustomizeShow,
		Arch:          v.Arch,
	}
	if t.Name == "" {
		t.Name = v.Key
	}
	if t.Model == "" {
		t.Model = "ir.ui.view"
	}
	if v.Active != nil {
		t.Active = *v.Active
	}
	if v.Priority != nil {
		t.Priority = *v.Priority
	}
	if v.Theme != "" {
		id, err := module(v.Theme)
		if err != nil {
			return err
		}
		t.ThemeID = id
	}
	if v.Inherit != "" {
		parent, err := st.Ref(ctx, v.Inherit)
		if err != nil {
			return fmt.Errorf("parent %s: %w", v.Inherit, err)
		}
		t.InheritID = parent
	}

	created, err := st.Create(ctx, t)
	if err != nil {
		return err
	}
	if v.XMLID != "" {
		moduleName, name, ok := strings.Cut(v.XMLID, ".")
		if !ok {
			return fmt.Errorf("xml id %q must be of the form module.name", v.XMLID)
		}
		if err := st.SetExternalID(ctx, models.ExternalID{Module: moduleName, Name: name, ResID: int64(created.ID)}); err != nil {
			return err
		}
	}

	for _, p := range v.Pages {
		page, err := st.CreatePage(ctx, &models.Page{
			ViewID:      created.ID,
			WebsiteID:   models.WebsiteID(p.WebsiteID),
			Name:        p.Name,
			URL:         p.URL,
			IsPublished: p.Published,
		})
		if err != nil {
			return fmt.Errorf("page %s: %w", p.URL, err)
		}
		for _, m := range p.Menus {
			url := m.URL
			if url == "" {
				url = p.URL
			}
			if _, err := st.CreateMenu(ctx, &models.Menu{
				PageID:    page.ID,
				WebsiteID: models.WebsiteID(m.WebsiteID),
				Name:      m.Name,
				URL:       url,
				Sequence:  m.Sequence,
			}); err != nil {
				return fmt.Errorf("menu %s: %w", m.Name, err)
			}
		}
	}
	return nil
}
