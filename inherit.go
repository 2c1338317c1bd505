package viewscope

import (
	"context"
	"fmt"

	"github.com/sitekit/viewscope/pkg/domain"
	"github.com/sitekit/viewscope/pkg/models"
	"github.com/sitekit/viewscope/pkg/store"
)

// ArchEntry is one extension to apply on top of a base template.
type ArchEntry struct {
	Arch string        `json:"arch"`
	ID   models.ViewID `json:"id"`
}

// InheritOrder is the order extensions are applied in.
var InheritOrder = domain.Order{domain.Asc(models.FieldPriority), domain.Asc(models.FieldID)}

func inheritingDomain(baseID models.ViewID, model string) domain.Expr {
	return domain.AND(
		domain.Eq(models.FieldInheritID, baseID),
		domain.Eq(models.FieldModel, model),
		domain.Eq(models.FieldMode, models.ModeExtension),
		domain.Eq(models.FieldActive, true),
	)
}

// InheritingViewsArch returns the active extension templates of baseID for
// model, in application order.
//
// Under a website, only the website's own, generic and installed theme
// extensions are considered, and one extension survives per key. An
// inactive website-specific extension beats an active generic one and is
// then dropped, which is how a website disables a shared extension.
func (v *Views) InheritingViewsArch(ctx context.Context, env Env, baseID models.ViewID, model string) ([]ArchEntry, error) {
	base := inheritingDomain(baseID, model)
	if env.WebsiteID == 0 {
		views, err := v.store.Search(ctx, store.Query{Domain: base, Order: InheritOrder})
		if err != nil {
			return nil, fmt.Errorf("failed to search extensions of view %d: %w", baseID, err)
		}
		return archEntries(views), nil
	}

	website, err := v.store.Website(ctx, env.WebsiteID)
	if err != nil {
		return nil, fmt.Errorf("failed to load website %d: %w", env.WebsiteID, err)
	}
	filter := domain.AND(
		domain.OR(WebsiteDomain(env.WebsiteID), ThemeDomain(website)),
		domain.StripField(base, models.FieldActive),
	)
	candidates, err := v.store.Search(ctx, store.Query{Domain: filter, Order: InheritOrder, WithInactive: true})
	if err != nil {
		return nil, fmt.Errorf("failed to search extensions of view %d: %w", baseID, err)
	}
	var active []*models.Template
	for _, view := range v.FilterDuplicate(env, candidates) {
		if view.Active {
			active = append(active, view)
		}
	}
	return archEntries(active), nil
}

func archEntries(views []*models.Template) []ArchEntry {
	out := make([]ArchEntry, len(views))
	for i, view := range views {
		out[i] = ArchEntry{Arch: view.Arch, ID: view.ID}
	}
	return out
}
