// Package store defines the record-storage engine the view policy layer runs
// on top of.
//
// The engine owns persistence, querying and referential integrity. The
// policy layer (package viewscope) never touches storage directly: it reads
// candidates with [Store.Search], forks records with [Store.Copy],
// [Store.CopyPage] and [Store.CopyMenu], and mutates through [Store.Write] and
// [Store.Unlink].
//
// Two engines ship with the module:
//
//   - [github.com/sitekit/viewscope/pkg/store/memory.Store]: an in-process
//     engine with snapshot-based transactions, used by tests and the viewctl
//     tool.
//   - [github.com/sitekit/viewscope/pkg/store/gormstore.Store]: a PostgreSQL
//     engine on GORM.
//
// # Active filtering
//
// Search hides inactive templates unless [Query.WithInactive] is set or the
// query domain itself mentions the "active" field, the way relational ORMs
// apply an implicit active test.
//
// # Key scope
//
// A template key is not unique on its own: several templates share a key,
// and the policy layer picks the one a website uses with
// viewscope.FilterDuplicate. Both engines do reject a second template with
// the same key, website and theme with [ConstraintUniqueScope]. The policy
// layer only creates such records through forks, which reuse an existing
// record of the scope instead of creating a new one, so the constraint
// never fires on its own operations. Engines without it remain valid.
//
// # Errors
//
// Lookups of missing records fail with an error wrapping [ErrRecordNotFound].
// Integrity violations fail with a [*ConstraintError], which wraps
// [ErrConstraint]. Engines must not partially apply a failed call.
package store

import (
	"context"

	"github.com/sitekit/viewscope/pkg/domain"
	"github.com/sitekit/viewscope/pkg/models"
)

// DefaultOrder is the order applied when a Query names none.
var DefaultOrder = domain.Order{domain.Asc(models.FieldPriority), domain.Asc(models.FieldName), domain.Asc(models.FieldID)}

// Query selects templates.
type Query struct {
	// Domain filters the templates. Nil selects all.
	Domain domain.Expr
	// Order sorts the result. Nil means DefaultOrder.
	Order domain.Order
	// Limit caps the number of results when positive.
	Limit int
	// WithInactive disables the implicit active filter.
	WithInactive bool
}

// Store is the storage engine consumed by the view policy layer.
type Store interface {
	// Browse loads templates by id, in the order given.
	Browse(ctx context.Context, ids ...models.ViewID) ([]*models.Template, error)
	// Search returns the templates selected by q.
	Search(ctx context.Context, q Query) ([]*models.Template, error)
	// Create stores a new template and returns it with its id assigned.
	Create(ctx context.Context, t *models.Template) (*models.Template, error)
	// Copy duplicates a template, applies overrides to the duplicate and
	// returns it. Pages and menus are not duplicated.
	Copy(ctx context.Context, id models.ViewID, overrides models.Values) (*models.Template, error)
	// Write applies vals to every template in ids.
	Write(ctx context.Context, ids []models.ViewID, vals models.Values) error
	// Unlink deletes the templates in ids together with the pages they own
	// and the menus of those pages. It refuses to delete a template that is
	// still inherited by a template outside ids.
	Unlink(ctx context.Context, ids []models.ViewID) error

	// Pages returns the pages owned by a template, ordered by id.
	Pages(ctx context.Context, viewID models.ViewID) ([]*models.Page, error)
	// CopyPage duplicates a page onto another template and website.
	CopyPage(ctx context.Context, id models.PageID, viewID models.ViewID, websiteID models.WebsiteID) (*models.Page, error)
	// Menus returns the menu entries pointing at a page, ordered by sequence then id.
	Menus(ctx context.Context, pageID models.PageID) ([]*models.Menu, error)
	// CopyMenu duplicates a menu entry onto another page and website.
	CopyMenu(ctx context.Context, id models.MenuID, pageID models.PageID, websiteID models.WebsiteID) (*models.Menu, error)

	// Websites returns every website ordered by id.
	Websites(ctx context.Context) ([]*models.Website, error)
	// Website loads one website.
	Website(ctx context.Context, id models.WebsiteID) (*models.Website, error)
	// ModuleByName loads an installed module by technical name.
	ModuleByName(ctx context.Context, name string) (*models.Module, error)
	// ExternalID returns the external id of a template, or nil when it has none.
	ExternalID(ctx context.Context, id models.ViewID) (*models.ExternalID, error)
	// Ref resolves a module.name external id to a template id.
	Ref(ctx context.Context, xmlID string) (models.ViewID, error)

	// Transaction runs fn atomically. The Store handed to fn must be used for
	// every call inside the transaction; nested calls join the outer one.
	Transaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// Seeder creates the records that live outside the policy layer: websites,
// modules, pages, menus and external ids. Install-time tooling and tests use
// it to populate an engine.
type Seeder interface {
	CreateWebsite(ctx context.Context, w *models.Website) (*models.Website, error)
	CreateModule(ctx context.Context, m *models.Module) (*models.Module, error)
	CreatePage(ctx context.Context, p *models.Page) (*models.Page, error)
	CreateMenu(ctx context.Context, m *models.Menu) (*models.Menu, error)
	SetExternalID(ctx context.Context, x models.ExternalID) error
}
