package viewscope

import (
	"context"
	"errors"
	"fmt"

	"github.com/sitekit/viewscope/pkg/cache"
	"github.com/sitekit/viewscope/pkg/domain"
	"github.com/sitekit/viewscope/pkg/models"
	"github.com/sitekit/viewscope/pkg/store"
)

// ViewID resolves ref to a template id.
//
// A key is resolved within the website of env: the installed themes'
// templates and the website's own and generic ones, website-specific first.
// Without a website, a key is an external id (module.name). Resolutions of
// keys are cached until the next mutation.
func (v *Views) ViewID(ctx context.Context, env Env, ref models.ViewRef) (models.ViewID, error) {
	switch ref.Kind() {
	case models.RefID:
		if ref.ID() == 0 {
			return 0, fmt.Errorf("%w: zero id", ErrInvalidViewRef)
		}
		return ref.ID(), nil
	case models.RefResolved:
		if ref.Resolved() == nil {
			return 0, fmt.Errorf("%w: nil template", ErrInvalidViewRef)
		}
		return ref.Resolved().ID, nil
	case models.RefKey:
		if ref.Key() == "" {
			return 0, fmt.Errorf("%w: empty key", ErrInvalidViewRef)
		}
		k := cache.Key{UID: env.UID, Key: ref.Key(), WebsiteID: env.WebsiteID}
		return v.cache.GetOrLoad(ctx, k, func(ctx context.Context) (models.ViewID, error) {
			return v.resolveKey(ctx, env, ref.Key())
		})
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidViewRef, ref)
	}
}

func (v *Views) resolveKey(ctx context.Context, env Env, key string) (models.ViewID, error) {
	log := env.logger(v.log)
	if env.WebsiteID == 0 {
		id, err := v.store.Ref(ctx, key)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				v.metrics.NotFound()
				log.Warn().Str("key", key).Msg("could not find view object with xml_id")
				return 0, &NotFoundError{Key: key, Cause: err}
			}
			return 0, err
		}
		log.Debug().Str("key", key).Int64("view_id", int64(id)).Msg("resolved external id")
		return id, nil
	}

	website, err := v.store.Website(ctx, env.WebsiteID)
	if err != nil {
		return 0, fmt.Errorf("failed to load website %d: %w", env.WebsiteID, err)
	}
	filter := domain.AND(
		domain.OR(
			ThemeDomain(website),
			domain.AND(domain.IsNull(models.FieldThemeID), WebsiteDomain(env.WebsiteID)),
		),
		domain.Eq(models.FieldKey, key),
	)
	views, err := v.store.Search(ctx, store.Query{Domain: filter, Order: ScopeOrder, Limit: 1})
	if err != nil {
		return 0, fmt.Errorf("failed to search view %q: %w", key, err)
	}
	if len(views) == 0 {
		v.metrics.NotFound()
		log.Warn().Str("key", key).Msg("could not find view object with xml_id")
		return 0, &NotFoundError{Key: key, WebsiteID: env.WebsiteID}
	}
	log.Debug().Str("key", key).Int64("view_id", int64(views[0].ID)).Msg("resolved view key")
	return views[0].ID, nil
}

// ViewObj loads the templates ref designates. A key yields the most
// suitable template per key for the website of env, or the template of the
// external id of the same name when no template carries the key.
func (v *Views) ViewObj(ctx context.Context, env Env, ref models.ViewRef) ([]*models.Template, error) {
	switch ref.Kind() {
	case models.RefID:
		return v.store.Browse(ctx, ref.ID())
	case models.RefResolved:
		if ref.Resolved() == nil {
			return nil, fmt.Errorf("%w: nil template", ErrInvalidViewRef)
		}
		return []*models.Template{ref.Resolved()}, nil
	case models.RefKey:
		if ref.Key() == "" {
			return nil, fmt.Errorf("%w: empty key", ErrInvalidViewRef)
		}
		q := store.Query{Domain: domain.Eq(models.FieldKey, ref.Key())}
		if env.WebsiteID != 0 {
			q.Domain = domain.AND(q.Domain, WebsiteDomain(env.WebsiteID))
			q.Order = ScopeOrder
		}
		views, err := v.store.Search(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("failed to search view %q: %w", ref.Key(), err)
		}
		if len(views) > 0 {
			return v.FilterDuplicate(env, views), nil
		}
		id, err := v.store.Ref(ctx, ref.Key())
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return nil, &NotFoundError{Key: ref.Key(), WebsiteID: env.WebsiteID, Cause: err}
			}
			return nil, err
		}
		return v.store.Browse(ctx, id)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidViewRef, ref)
	}
}

// RelatedViews returns the template designated by key and every template
// inheriting from it, directly or not, inactive ones included. When a
// website is in scope, a generic template is left out if the website has
// its own template for the same key. A nil req is allowed; when env has no
// website, the website of req is used.
func (v *Views) RelatedViews(ctx context.Context, env Env, req *Request, key string) ([]*models.Template, error) {
	if env.WebsiteID == 0 && req != nil && req.Website != nil {
		env = env.WithWebsite(req.Website.ID)
	}
	roots, err := v.ViewObj(ctx, env, models.KeyRef(key))
	if err != nil {
		return nil, err
	}

	var views []*models.Template
	seen := make(map[models.ViewID]bool)
	queue := roots
	for len(queue) > 0 {
		view := queue[0]
		queue = queue[1:]
		if seen[view.ID] {
			continue
		}
		seen[view.ID] = true
		views = append(views, view)

		children, err := v.store.Search(ctx, store.Query{
			Domain:       domain.Eq(models.FieldInheritID, view.ID),
			Order:        InheritOrder,
			WithInactive: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to search children of view %d: %w", view.ID, err)
		}
		queue = append(queue, children...)
	}

	if env.WebsiteID == 0 {
		return views, nil
	}
	specific := make(map[string]bool)
	for _, view := range views {
		if view.WebsiteID == env.WebsiteID {
			specific[view.Key] = true
		}
	}
	var out []*models.Template
	for _, view := range views {
		switch {
		case view.WebsiteID == env.WebsiteID:
			out = append(out, view)
		case view.IsGeneric() && !specific[view.Key]:
			out = append(out, view)
		}
	}
	return out, nil
}

// FirstPage returns the first page owned by a template, or nil.
func (v *Views) FirstPage(ctx context.Context, id models.ViewID) (*models.Page, error) {
	pages, err := v.store.Pages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load pages of view %d: %w", id, err)
	}
	if len(pages) == 0 {
		return nil, nil
	}
	return pages[0], nil
}
