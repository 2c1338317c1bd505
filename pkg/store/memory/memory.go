// Package memory is an in-process implementation of [store.Store].
//
// All records live in maps guarded by a mutex. Transactions are serialized
// and implemented with copy-on-begin snapshots: a failed transaction
// restores the state it started from. Writes issued outside a transaction
// are applied immediately and are not isolated from a concurrent
// transaction's rollback.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sitekit/viewscope/pkg/domain"
	"github.com/sitekit/viewscope/pkg/models"
	"github.com/sitekit/viewscope/pkg/store"
)

type Sequences struct {
	View    int64
	Page    int64
	Menu    int64
	Website int64
	Module  int64
}

type state struct {
	views    map[models.ViewID]*models.Template
	pages    map[models.PageID]*models.Page
	menus    map[models.MenuID]*models.Menu
	websites map[models.WebsiteID]*models.Website
	modules  map[models.ModuleID]*models.Module
	xmlIDs   map[string]models.ExternalID
	seq      Sequences
}

func newState() *state {
	return &state{
		views:    make(map[models.ViewID]*models.Template),
		pages:    make(map[models.PageID]*models.Page),
		menus:    make(map[models.MenuID]*models.Menu),
		websites: make(map[models.WebsiteID]*models.Website),
		modules:  make(map[models.ModuleID]*models.Module),
		xmlIDs:   make(map[string]models.ExternalID),
	}
}

func (st *state) clone() *state {
	c := newState()
	c.seq = st.seq
	for id, v := range st.views {
		c.views[id] = v.Clone()
	}
	for id, p := range st.pages {
		cp := *p
		c.pages[id] = &cp
	}
	for id, m := range st.menus {
		cm := *m
		c.menus[id] = &cm
	}
	for id, w := range st.websites {
		c.websites[id] = cloneWebsite(w)
	}
	for id, m := range st.modules {
		cm := *m
		c.modules[id] = &cm
	}
	for k, x := range st.xmlIDs {
		c.xmlIDs[k] = x
	}
	return c
}

func cloneWebsite(w *models.Website) *models.Website {
	c := *w
	c.ThemeIDs = append([]models.ModuleID(nil), w.ThemeIDs...)
	return &c
}

// Store is an in-memory storage engine. The zero value is not usable; call New.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   *state
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Seeder = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{st: newState()}
}

// Transaction runs fn against a snapshot-protected view of the store.
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	if err := fn(ctx, &txStore{Store: s}); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// txStore is the handle given to a transaction body. Nested transactions
// join the running one.
type txStore struct {
	*Store
}

func (t *txStore) Transaction(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	return fn(ctx, t)
}

func (s *Store) Browse(ctx context.Context, ids ...models.ViewID) ([]*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Template, 0, len(ids))
	for _, id := range ids {
		v, ok := s.st.views[id]
		if !ok {
			return nil, store.NotFound("template", id)
		}
		out = append(out, v.Clone())
	}
	return out, nil
}

func (s *Store) Search(ctx context.Context, q store.Query) ([]*models.Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filter := q.Domain
	if !q.WithInactive && !domain.Mentions(filter, models.FieldActive) {
		filter = domain.AND(filter, domain.Eq(models.FieldActive, true))
	}
	order := q.Order
	if len(order) == 0 {
		order = store.DefaultOrder
	}

	s.mu.RLock()
	var out []*models.Template
	for _, v := range s.st.views {
		if domain.Match(filter, v) {
			out = append(out, v.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if c := order.Compare(out[i], out[j]); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, t *models.Template) (*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := t.Clone()
	if v.Mode == "" {
		v.Mode = models.ModePrimary
		if v.InheritID != 0 {
			v.Mode = models.ModeExtension
		}
	}
	if err := s.st.checkTemplate(v); err != nil {
		return nil, err
	}
	s.st.seq.View++
	v.ID = models.ViewID(s.st.seq.View)
	s.st.views[v.ID] = v
	return v.Clone(), nil
}

func (s *Store) Copy(ctx context.Context, id models.ViewID, overrides models.Values) (*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orig, ok := s.st.views[id]
	if !ok {
		return nil, store.NotFound("template", id)
	}
	v := orig.Clone()
	if err := overrides.Apply(v); err != nil {
		return nil, err
	}
	if err := s.st.checkTemplate(v); err != nil {
		return nil, err
	}
	s.st.seq.View++
	v.ID = models.ViewID(s.st.seq.View)
	s.st.views[v.ID] = v
	return v.Clone(), nil
}

func (s *Store) Write(ctx context.Context, ids []models.ViewID, vals models.Values) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make([]*models.Template, 0, len(ids))
	for _, id := range ids {
		orig, ok := s.st.views[id]
		if !ok {
			return store.NotFound("template", id)
		}
		v := orig.Clone()
		if err := vals.Apply(v); err != nil {
			return err
		}
		updated = append(updated, v)
	}
	// Validate everything before touching the maps so a failed call leaves
	// no partial update behind.
	pending := make(map[models.ViewID]*models.Template, len(updated))
	for _, v := range updated {
		pending[v.ID] = v
	}
	for _, v := range updated {
		if err := s.st.checkTemplateAgainst(v, pending); err != nil {
			return err
		}
	}
	for _, v := range updated {
		s.st.views[v.ID] = v
	}
	return nil
}

func (s *Store) Unlink(ctx context.Context, ids []models.ViewID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doomed := make(map[models.ViewID]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.st.views[id]; !ok {
			return store.NotFound("template", id)
		}
		doomed[id] = true
	}
	for _, v := range s.st.views {
		if v.InheritID != 0 && doomed[v.InheritID] && !doomed[v.ID] {
			return &store.ConstraintError{
				Constraint: store.ConstraintInheritRestrict,
				Detail:     fmt.Sprintf("template %d is still inherited by template %d", v.InheritID, v.ID),
			}
		}
	}

	for id := range doomed {
		delete(s.st.views, id)
		for k, x := range s.st.xmlIDs {
			if x.ResID == int64(id) {
				delete(s.st.xmlIDs, k)
			}
		}
	}
	for pid, p := range s.st.pages {
		if !doomed[p.ViewID] {
			continue
		}
		delete(s.st.pages, pid)
		for mid, m := range s.st.menus {
			if m.PageID == pid {
				delete(s.st.menus, mid)
			}
		}
	}
	return nil
}

func (s *Store) Pages(ctx context.Context, viewID models.ViewID) ([]*models.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Page
	for _, p := range s.st.pages {
		if p.ViewID == viewID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sortPages(out)
	return out, nil
}

func (s *Store) CopyPage(ctx context.Context, id models.PageID, viewID models.ViewID, websiteID models.WebsiteID) (*models.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orig, ok := s.st.pages[id]
	if !ok {
		return nil, store.NotFound("page", id)
	}
	if _, ok := s.st.views[viewID]; !ok {
		return nil, store.NotFound("template", viewID)
	}
	p := *orig
	s.st.seq.Page++
	p.ID = models.PageID(s.st.seq.Page)
	p.ViewID = viewID
	p.WebsiteID = websiteID
	s.st.pages[p.ID] = &p
	cp := p
	return &cp, nil
}

func (s *Store) Menus(ctx context.Context, pageID models.PageID) ([]*models.Menu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Menu
	for _, m := range s.st.menus {
		if m.PageID == pageID {
			cm := *m
			out = append(out, &cm)
		}
	}
	sortMenus(out)
	return out, nil
}

func (s *Store) CopyMenu(ctx context.Context, id models.MenuID, pageID models.PageID, websiteID models.WebsiteID) (*models.Menu, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orig, ok := s.st.menus[id]
	if !ok {
		return nil, store.NotFound("menu", id)
	}
	if _, ok := s.st.pages[pageID]; !ok {
		return nil, store.NotFound("page", pageID)
	}
	m := *orig
	s.st.seq.Menu++
	m.ID = models.MenuID(s.st.seq.Menu)
	m.PageID = pageID
	m.WebsiteID = websiteID
	s.st.menus[m.ID] = &m
	cm := m
	return &cm, nil
}

func (s *Store) Websites(ctx context.Context) ([]*models.Website, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Website, 0, len(s.st.websites))
	for _, w := range s.st.websites {
		out = append(out, cloneWebsite(w))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Website(ctx context.Context, id models.WebsiteID) (*models.Website, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.st.websites[id]
	if !ok {
		return nil, store.NotFound("website", id)
	}
	return cloneWebsite(w), nil
}

func (s *Store) ModuleByName(ctx context.Context, name string) (*models.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.st.modules {
		if m.Name == name {
			cm := *m
			return &cm, nil
		}
	}
	return nil, store.NotFound("module", name)
}

func (s *Store) ExternalID(ctx context.Context, id models.ViewID) (*models.ExternalID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []models.ExternalID
	for _, x := range s.st.xmlIDs {
		if x.Model == modelView && x.ResID == int64(id) {
			found = append(found, x)
		}
	}
	if len(found) == 0 {
		return nil, nil
	}
	sort.Slice(found, func(i, j int) bool { return found[i].CompleteName() < found[j].CompleteName() })
	return &found[0], nil
}

func (s *Store) Ref(ctx context.Context, xmlID string) (models.ViewID, error) {
	if !strings.Contains(xmlID, ".") {
		return 0, fmt.Errorf("%w: external id %q must be of the form module.name", store.ErrRecordNotFound, xmlID)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	x, ok := s.st.xmlIDs[xmlID]
	if !ok || x.Model != modelView {
		return 0, store.NotFound("external id", xmlID)
	}
	return models.ViewID(x.ResID), nil
}

func sortPages(pages []*models.Page) {
	sort.Slice(pages, func(i, j int) bool { return pages[i].ID < pages[j].ID })
}

func sortMenus(menus []*models.Menu) {
	sort.Slice(menus, func(i, j int) bool {
		if menus[i].Sequence != menus[j].Sequence {
			return menus[i].Sequence < menus[j].Sequence
		}
		return menus[i].ID < menus[j].ID
	})
}

// modelView is the model name external ids of templates are registered under.
const modelView = "ir.ui.view"

func (st *state) checkTemplate(v *models.Template) error {
	return st.checkTemplateAgainst(v, nil)
}

// checkTemplateAgainst enforces that no two templates share a key within the
// same website and theme scope. pending overrides stored records that are
// being updated in the same call.
func (st *state) checkTemplateAgainst(v *models.Template, pending map[models.ViewID]*models.Template) error {
	if v.InheritID != 0 {
		if _, ok := st.views[v.InheritID]; !ok {
			return store.NotFound("template", v.InheritID)
		}
	}
	if v.Key == "" {
		return nil
	}
	check := func(other *models.Template) error {
		if other.ID == v.ID {
			return nil
		}
		if other.Key == v.Key && other.WebsiteID == v.WebsiteID && other.ThemeID == v.ThemeID {
			return &store.ConstraintError{
				Constraint: store.ConstraintUniqueScope,
				Detail:     fmt.Sprintf("key %q already exists for website %d and theme %d (template %d)", v.Key, v.WebsiteID, v.ThemeID, other.ID),
			}
		}
		return nil
	}
	for id, other := range st.views {
		if p, ok := pending[id]; ok {
			other = p
		}
		if err := check(other); err != nil {
			return err
		}
	}
	return nil
}
