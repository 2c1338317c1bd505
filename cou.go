package viewscope

import (
	"context"
	"fmt"
	"sort"

	"github.com/sitekit/viewscope/pkg/domain"
	"github.com/sitekit/viewscope/pkg/metrics"
	"github.com/sitekit/viewscope/pkg/models"
	"github.com/sitekit/viewscope/pkg/store"
)

// Unlink deletes the templates in ids together with every template sharing
// their keys.
//
// Under a website, deleting a generic template first makes sure every other
// website keeps a copy of it under a renamed key (see config COUKeyFormat),
// so only the current website loses the view.
func (v *Views) Unlink(ctx context.Context, env Env, ids []models.ViewID) error {
	defer v.cache.Invalidate()
	return v.store.Transaction(ctx, func(ctx context.Context, tx store.Store) error {
		return v.unlink(ctx, tx, env, ids)
	})
}

func (v *Views) unlink(ctx context.Context, tx store.Store, env Env, ids []models.ViewID) error {
	views, err := tx.Browse(ctx, ids...)
	if err != nil {
		return fmt.Errorf("failed to load views %v: %w", ids, err)
	}
	log := env.logger(v.log)

	if env.WebsiteID != 0 && !env.BypassCOW {
		websites, err := tx.Websites(ctx)
		if err != nil {
			return fmt.Errorf("failed to list websites: %w", err)
		}
		for _, view := range views {
			if !view.IsGeneric() {
				continue
			}
			for _, website := range websites {
				if website.ID == env.WebsiteID {
					continue
				}
				if err := v.keepCopy(ctx, tx, env.WithWebsite(website.ID), view); err != nil {
					return err
				}
			}
		}
	}

	doomed := make(map[models.ViewID]bool, len(views))
	var keys []any
	seenKey := make(map[string]bool)
	for _, view := range views {
		doomed[view.ID] = true
		if view.Key != "" && !seenKey[view.Key] {
			seenKey[view.Key] = true
			keys = append(keys, view.Key)
		}
	}
	if len(keys) > 0 {
		same, err := tx.Search(ctx, store.Query{Domain: domain.In(models.FieldKey, keys...), WithInactive: true})
		if err != nil {
			return fmt.Errorf("failed to search views sharing keys %v: %w", keys, err)
		}
		for _, s := range same {
			doomed[s.ID] = true
		}
	}

	all := make([]models.ViewID, 0, len(doomed))
	for id := range doomed {
		all = append(all, id)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	if err := tx.Unlink(ctx, all); err != nil {
		return fmt.Errorf("failed to unlink views %v: %w", all, err)
	}
	log.Info().Interface("view_ids", all).Msg("unlinked views")
	return nil
}

// keepCopy gives the website of env its own renamed copy of a generic
// template that is about to be deleted. A copy the website already has is
// renamed instead.
func (v *Views) keepCopy(ctx context.Context, tx store.Store, env Env, view *models.Template) error {
	newKey := v.cfg.COUKey(view.Key, int64(env.WebsiteID))
	log := env.logger(v.log).With().Str("key", view.Key).Str("new_key", newKey).Logger()

	var existing []*models.Template
	if view.Key != "" {
		var err error
		existing, err = tx.Search(ctx, store.Query{
			Domain: domain.AND(
				domain.Eq(models.FieldKey, view.Key),
				domain.Eq(models.FieldWebsiteID, env.WebsiteID),
			),
			Order:        domain.Order{domain.Asc(models.FieldID)},
			WithInactive: true,
		})
		if err != nil {
			return fmt.Errorf("failed to search views of %q for website %d: %w", view.Key, env.WebsiteID, err)
		}
	}
	if len(existing) > 0 {
		ids := make([]models.ViewID, len(existing))
		for i, e := range existing {
			ids[i] = e.ID
		}
		if err := tx.Write(ctx, ids, models.Values{models.FieldKey: newKey}); err != nil {
			return fmt.Errorf("failed to rename views %v: %w", ids, err)
		}
		v.metrics.COUCopy(metrics.COURenamed)
		log.Info().Interface("view_ids", ids).Msg("renamed website-specific views")
		return nil
	}

	if err := v.write(ctx, tx, env, []models.ViewID{view.ID}, models.Values{models.FieldKey: newKey}); err != nil {
		return err
	}
	v.metrics.COUCopy(metrics.COUForked)
	log.Info().Int64("view_id", int64(view.ID)).Msg("kept website copy of deleted view")
	return nil
}
