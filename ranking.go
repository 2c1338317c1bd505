package viewscope

import (
	"sort"

	"github.com/sitekit/viewscope/pkg/models"
)

// suitability ranks a template for a website, lower first: templates of
// the context website first, then by website id, then by record id.
type suitability struct {
	otherWebsite bool
	websiteID    models.WebsiteID
	id           models.ViewID
}

func suitabilityKey(t *models.Template, contextWebsite models.WebsiteID) suitability {
	return suitability{
		otherWebsite: t.WebsiteID != contextWebsite,
		websiteID:    t.WebsiteID,
		id:           t.ID,
	}
}

func (s suitability) less(o suitability) bool {
	if s.otherWebsite != o.otherWebsite {
		return !s.otherWebsite
	}
	if s.websiteID != o.websiteID {
		return s.websiteID < o.websiteID
	}
	return s.id < o.id
}

// FilterDuplicate keeps the most suitable template per key for
// contextWebsite and returns the survivors ordered by priority then id.
func FilterDuplicate(views []*models.Template, contextWebsite models.WebsiteID) []*models.Template {
	best := make(map[string]*models.Template, len(views))
	for _, v := range views {
		cur, ok := best[v.Key]
		if !ok || suitabilityKey(v, contextWebsite).less(suitabilityKey(cur, contextWebsite)) {
			best[v.Key] = v
		}
	}
	out := make([]*models.Template, 0, len(best))
	for _, v := range best {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FilterDuplicate collapses views for the website of env, falling back to
// the configured default website.
func (v *Views) FilterDuplicate(env Env, views []*models.Template) []*models.Template {
	return FilterDuplicate(views, v.contextWebsite(env))
}

func (v *Views) contextWebsite(env Env) models.WebsiteID {
	if env.WebsiteID != 0 {
		return env.WebsiteID
	}
	return models.WebsiteID(v.cfg.DefaultWebsiteID)
}
