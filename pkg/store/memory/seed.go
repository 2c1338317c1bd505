package memory

import (
	"context"
	"fmt"

	"github.com/sitekit/viewscope/pkg/models"
	"github.com/sitekit/viewscope/pkg/store"
)

func (s *Store) CreateWebsite(ctx context.Context, w *models.Website) (*models.Website, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := cloneWebsite(w)
	for _, theme := range c.ThemeIDs {
		if _, ok := s.st.modules[theme]; !ok {
			return nil, store.NotFound("module", theme)
		}
	}
	if c.ID == 0 {
		s.st.seq.Website++
		c.ID = models.WebsiteID(s.st.seq.Website)
	} else if _, exists := s.st.websites[c.ID]; exists {
		return nil, &store.ConstraintError{Constraint: "website_pkey", Detail: fmt.Sprintf("website %d already exists", c.ID)}
	} else if int64(c.ID) > s.st.seq.Website {
		s.st.seq.Website = int64(c.ID)
	}
	s.st.websites[c.ID] = c
	return cloneWebsite(c), nil
}

func (s *Store) CreateModule(ctx context.Context, m *models.Module) (*models.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.st.modules {
		if other.Name == m.Name {
			return nil, &store.ConstraintError{Constraint: "module_name_unique", Detail: fmt.Sprintf("module %q already exists", m.Name)}
		}
	}
	c := *m
	s.st.seq.Module++
	c.ID = models.ModuleID(s.st.seq.Module)
	s.st.modules[c.ID] = &c
	out := c
	return &out, nil
}

func (s *Store) CreatePage(ctx context.Context, p *models.Page) (*models.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.views[p.ViewID]; !ok {
		return nil, store.NotFound("template", p.ViewID)
	}
	c := *p
	s.st.seq.Page++
	c.ID = models.PageID(s.st.seq.Page)
	s.st.pages[c.ID] = &c
	out := c
	return &out, nil
}

func (s *Store) CreateMenu(ctx context.Context, m *models.Menu) (*models.Menu, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.PageID != 0 {
		if _, ok := s.st.pages[m.PageID]; !ok {
			return nil, store.NotFound("page", m.PageID)
		}
	}
	c := *m
	s.st.seq.Menu++
	c.ID = models.MenuID(s.st.seq.Menu)
	s.st.menus[c.ID] = &c
	out := c
	return &out, nil
}

func (s *Store) SetExternalID(ctx context.Context, x models.ExternalID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if x.Module == "" || x.Name == "" {
		return fmt.Errorf("external id needs both a module and a name, got %q", x.CompleteName())
	}
	if x.Model == "" {
		x.Model = modelView
	}
	if x.Model == modelView {
		if _, ok := s.st.views[models.ViewID(x.ResID)]; !ok {
			return store.NotFound("template", x.ResID)
		}
	}
	s.st.xmlIDs[x.CompleteName()] = x
	return nil
}

// MenusByWebsite returns every menu entry scoped to a website (0 for the
// generic entries), ordered by sequence then id.
func (s *Store) MenusByWebsite(ctx context.Context, websiteID models.WebsiteID) ([]*models.Menu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Menu
	for _, m := range s.st.menus {
		if m.WebsiteID == websiteID {
			cm := *m
			out = append(out, &cm)
		}
	}
	sortMenus(out)
	return out, nil
}

// PagesByWebsite returns every page scoped to a website (0 for the generic
// pages), ordered by id.
func (s *Store) PagesByWebsite(ctx context.Context, websiteID models.WebsiteID) ([]*models.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Page
	for _, p := range s.st.pages {
		if p.WebsiteID == websiteID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sortPages(out)
	return out, nil
}
