package viewscope

import (
	"github.com/sitekit/viewscope/pkg/domain"
	"github.com/sitekit/viewscope/pkg/models"
)

// ScopeOrder sorts website-specific templates before generic ones.
var ScopeOrder = domain.Order{domain.Asc(models.FieldWebsiteID), domain.Asc(models.FieldID)}

// WebsiteDomain selects the templates visible to a website: its own and
// the generic ones. A zero website selects everything.
func WebsiteDomain(websiteID models.WebsiteID) domain.Expr {
	if websiteID == 0 {
		return nil
	}
	return domain.In(models.FieldWebsiteID, nil, websiteID)
}

// ThemeDomain selects the templates of the themes installed on a website.
// It is nil when the website has none.
func ThemeDomain(website *models.Website) domain.Expr {
	if website == nil || len(website.ThemeIDs) == 0 {
		return nil
	}
	ids := make([]any, len(website.ThemeIDs))
	for i, id := range website.ThemeIDs {
		ids[i] = id
	}
	return domain.In(models.FieldThemeID, ids...)
}

// refEq matches a reference field, zero meaning unset.
func refEq[T ~int64](field string, id T) domain.Cond {
	if id == 0 {
		return domain.IsNull(field)
	}
	return domain.Eq(field, id)
}

// sameScope selects the templates sharing key, website and theme with t.
func sameScope(key string, websiteID models.WebsiteID, themeID models.ModuleID) domain.Expr {
	return domain.AND(
		domain.Eq(models.FieldKey, key),
		refEq(models.FieldWebsiteID, websiteID),
		refEq(models.FieldThemeID, themeID),
	)
}
