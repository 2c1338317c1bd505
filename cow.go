package viewscope

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sitekit/viewscope/pkg/domain"
	"github.com/sitekit/viewscope/pkg/metrics"
	"github.com/sitekit/viewscope/pkg/models"
	"github.com/sitekit/viewscope/pkg/store"
)

// Write applies vals to the templates in ids.
//
// Under a website, a generic template is not modified: it is copied for
// that website (with its pages, their menus and its inheriting children)
// and vals land on the copy. While a theme module is being installed,
// writes to templates declared by other modules land on a theme-specific
// copy instead. Env.BypassCOW writes in place.
//
// The call is atomic: any error rolls back every copy made so far.
func (v *Views) Write(ctx context.Context, env Env, ids []models.ViewID, vals models.Values) error {
	if err := vals.Validate(); err != nil {
		return err
	}
	defer v.cache.Invalidate()
	return v.store.Transaction(ctx, func(ctx context.Context, tx store.Store) error {
		return v.write(ctx, tx, env, ids, vals)
	})
}

func (v *Views) write(ctx context.Context, tx store.Store, env Env, ids []models.ViewID, vals models.Values) error {
	if env.BypassCOW {
		if err := tx.Write(ctx, ids, vals); err != nil {
			return fmt.Errorf("failed to write views %v: %w", ids, err)
		}
		return nil
	}
	w := &cowWriter{
		Views:  v,
		tx:     tx,
		env:    env,
		log:    env.logger(v.log),
		forked: make(map[models.ViewID]models.ViewID),
	}
	for _, id := range ids {
		w.queue = append(w.queue, cowTask{id: id, vals: vals})
	}
	return w.run(ctx)
}

// cowTask is one pending write. path lists the templates whose
// specialization led to it, oldest first.
type cowTask struct {
	id   models.ViewID
	vals models.Values
	path []models.ViewID
}

type cowWriter struct {
	*Views
	tx  store.Store
	env Env
	log zerolog.Logger

	queue []cowTask
	// forked maps a template to the website copy made for it in this call.
	forked map[models.ViewID]models.ViewID
}

func (w *cowWriter) run(ctx context.Context) error {
	theme := w.env.ThemeUpdate(w.cfg.ThemeMarker)
	for len(w.queue) > 0 {
		task := w.queue[0]
		w.queue = w.queue[1:]

		for _, seen := range task.path {
			if seen == task.id {
				return &CycleError{Path: append(append([]models.ViewID(nil), task.path...), task.id)}
			}
		}
		if fork, ok := w.forked[task.id]; ok {
			w.log.Debug().Int64("view_id", int64(task.id)).Int64("fork_id", int64(fork)).Msg("write already diverted to fork")
			w.metrics.Diversion(metrics.DivertSameCall)
			task.id = fork
		}

		views, err := w.tx.Browse(ctx, task.id)
		if err != nil {
			return fmt.Errorf("failed to load view %d: %w", task.id, err)
		}
		view := views[0]

		websiteID := w.env.WebsiteID
		if theme != "" {
			websiteID = 0
			if view, err = w.themeSpecificView(ctx, view, theme); err != nil {
				return err
			}
		}

		if websiteID == 0 || !view.IsGeneric() {
			if err := w.tx.Write(ctx, []models.ViewID{view.ID}, task.vals); err != nil {
				return fmt.Errorf("failed to write view %d: %w", view.ID, err)
			}
			continue
		}

		fork, err := w.websiteSpecificView(ctx, view, websiteID, task.path)
		if err != nil {
			return err
		}
		if err := w.tx.Write(ctx, []models.ViewID{fork.ID}, task.vals); err != nil {
			return fmt.Errorf("failed to write view %d: %w", fork.ID, err)
		}
	}
	return nil
}

// themeSpecificView returns the template a theme update should write to.
// Templates declared by the theme itself are written in place.
func (w *cowWriter) themeSpecificView(ctx context.Context, view *models.Template, theme string) (*models.Template, error) {
	xmlID, err := w.tx.ExternalID(ctx, view.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load external id of view %d: %w", view.ID, err)
	}
	if xmlID == nil || xmlID.Module == theme {
		return view, nil
	}
	module, err := w.tx.ModuleByName(ctx, theme)
	if err != nil {
		return nil, fmt.Errorf("failed to load theme %s: %w", theme, err)
	}
	log := w.log.With().Str("theme", theme).Str("key", view.Key).Logger()
	log.Info().Str("xml_id", xmlID.CompleteName()).Int64("view_id", int64(view.ID)).Msg("theme is updating view")

	existing, err := w.tx.Search(ctx, store.Query{
		Domain:       domain.AND(domain.Eq(models.FieldKey, view.Key), domain.Eq(models.FieldThemeID, module.ID)),
		Order:        domain.Order{domain.Asc(models.FieldID)},
		Limit:        1,
		WithInactive: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search theme views of %q: %w", view.Key, err)
	}
	if len(existing) > 0 {
		log.Info().Str("name", existing[0].Name).Int64("view_id", int64(existing[0].ID)).Msg("diverting write")
		w.metrics.Diversion(metrics.DivertThemeFork)
		return existing[0], nil
	}

	fork, err := w.tx.Copy(ctx, view.ID, models.Values{models.FieldThemeID: module.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to copy view %d for theme %s: %w", view.ID, theme, err)
	}
	log.Info().Str("name", fork.Name).Int64("view_id", int64(fork.ID)).Msg("created new theme-specific view")
	w.metrics.Fork(metrics.KindTheme)
	return fork, nil
}

// websiteSpecificView returns the copy of a generic template for a website,
// creating it together with its pages, menus and inheriting children when
// the website has none yet.
func (w *cowWriter) websiteSpecificView(ctx context.Context, view *models.Template, websiteID models.WebsiteID, path []models.ViewID) (*models.Template, error) {
	log := w.log.With().Str("key", view.Key).Int64("view_id", int64(view.ID)).Int64("target_website_id", int64(websiteID)).Logger()

	if view.Key != "" {
		existing, err := w.tx.Search(ctx, store.Query{
			Domain:       sameScope(view.Key, websiteID, view.ThemeID),
			Order:        domain.Order{domain.Asc(models.FieldID)},
			Limit:        1,
			WithInactive: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to search website views of %q: %w", view.Key, err)
		}
		if len(existing) > 0 {
			log.Info().Int64("fork_id", int64(existing[0].ID)).Msg("diverting write to existing website-specific view")
			w.metrics.Diversion(metrics.DivertWebsiteFork)
			w.forked[view.ID] = existing[0].ID
			return existing[0], nil
		}
	}

	fork, err := w.tx.Copy(ctx, view.ID, models.Values{models.FieldWebsiteID: websiteID})
	if err != nil {
		return nil, fmt.Errorf("failed to copy view %d for website %d: %w", view.ID, websiteID, err)
	}
	w.forked[view.ID] = fork.ID
	w.metrics.Fork(metrics.KindWebsite)
	log.Info().Int64("fork_id", int64(fork.ID)).Msg("created website-specific view")

	if err := w.copyPages(ctx, view, fork, websiteID); err != nil {
		return nil, err
	}

	children, err := w.tx.Search(ctx, store.Query{
		Domain:       domain.Eq(models.FieldInheritID, view.ID),
		Order:        domain.Order{domain.Asc(models.FieldID)},
		WithInactive: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search children of view %d: %w", view.ID, err)
	}
	childPath := append(append([]models.ViewID(nil), path...), view.ID)
	for _, child := range children {
		// Other websites keep inheriting from the generic template.
		if !child.IsGeneric() && child.WebsiteID != websiteID {
			continue
		}
		w.queue = append(w.queue, cowTask{
			id:   child.ID,
			vals: models.Values{models.FieldInheritID: fork.ID},
			path: childPath,
		})
	}
	return fork, nil
}

func (w *cowWriter) copyPages(ctx context.Context, view, fork *models.Template, websiteID models.WebsiteID) error {
	pages, err := w.tx.Pages(ctx, view.ID)
	if err != nil {
		return fmt.Errorf("failed to load pages of view %d: %w", view.ID, err)
	}
	for _, page := range pages {
		newPage, err := w.tx.CopyPage(ctx, page.ID, fork.ID, websiteID)
		if err != nil {
			return fmt.Errorf("failed to copy page %d: %w", page.ID, err)
		}
		w.metrics.Fork(metrics.KindPage)
		w.log.Debug().Int64("page_id", int64(page.ID)).Int64("new_page_id", int64(newPage.ID)).Str("url", page.URL).Msg("copied page")

		menus, err := w.tx.Menus(ctx, page.ID)
		if err != nil {
			return fmt.Errorf("failed to load menus of page %d: %w", page.ID, err)
		}
		for _, menu := range menus {
			if _, err := w.tx.CopyMenu(ctx, menu.ID, newPage.ID, websiteID); err != nil {
				return fmt.Errorf("failed to copy menu %d: %w", menu.ID, err)
			}
			w.metrics.Fork(metrics.KindMenu)
		}
	}
	return nil
}
