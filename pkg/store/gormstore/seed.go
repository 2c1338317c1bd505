package gormstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sitekit/viewscope/pkg/models"
	"github.com/sitekit/viewscope/pkg/store"
)

func (s *Store) CreateWebsite(ctx context.Context, w *models.Website) (*models.Website, error) {
	row := websiteRow{
		ID:              int64(w.ID),
		Name:            w.Name,
		DefaultLangCode: w.DefaultLangCode,
		CompanyID:       ref(w.CompanyID),
	}
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		if row.ID != 0 {
			var existing int64
			if err := tx.Model(&websiteRow{}).Where("id = ?", row.ID).Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				return &store.ConstraintError{Constraint: "website_pkey", Detail: fmt.Sprintf("website %d already exists", row.ID)}
			}
		}
		explicit := row.ID != 0
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if explicit {
			// Keep the serial ahead of ids chosen by the caller.
			if err := tx.Exec(`SELECT setval(pg_get_serial_sequence('website', 'id'), (SELECT MAX(id) FROM website))`).Error; err != nil {
				return err
			}
		}
		for _, theme := range w.ThemeIDs {
			var m moduleRow
			if err := tx.First(&m, "id = ?", int64(theme)).Error; err != nil {
				return notFound(err, "module", theme)
			}
			if err := tx.Create(&websiteThemeRow{WebsiteID: row.ID, ModuleID: m.ID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toWebsite(&row, append([]models.ModuleID(nil), w.ThemeIDs...)), nil
}

func (s *Store) CreateModule(ctx context.Context, m *models.Module) (*models.Module, error) {
	row := moduleRow{Name: m.Name}
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		var other moduleRow
		err := tx.First(&other, "name = ?", m.Name).Error
		if err == nil {
			return &store.ConstraintError{Constraint: "module_name_unique", Detail: fmt.Sprintf("module %q already exists", m.Name)}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &models.Module{ID: models.ModuleID(row.ID), Name: row.Name}, nil
}

func (s *Store) CreatePage(ctx context.Context, p *models.Page) (*models.Page, error) {
	row := toPageRow(p)
	row.ID = 0
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		if _, err := loadView(tx, p.ViewID); err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return row.page(), nil
}

func (s *Store) CreateMenu(ctx context.Context, m *models.Menu) (*models.Menu, error) {
	row := toMenuRow(m)
	row.ID = 0
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		if row.PageID != nil {
			var page pageRow
			if err := tx.First(&page, "id = ?", *row.PageID).Error; err != nil {
				return notFound(err, "page", m.PageID)
			}
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return row.menu(), nil
}

// SetExternalID registers or moves an external id.
func (s *Store) SetExternalID(ctx context.Context, x models.ExternalID) error {
	if x.Module == "" || x.Name == "" {
		return fmt.Errorf("external id needs both a module and a name, got %q", x.CompleteName())
	}
	if x.Model == "" {
		x.Model = modelView
	}
	return s.atomic(ctx, func(tx *gorm.DB) error {
		if x.Model == modelView {
			if _, err := loadView(tx, models.ViewID(x.ResID)); err != nil {
				return err
			}
		}
		row := externalIDRow{Module: x.Module, Name: x.Name, Model: x.Model, ResID: x.ResID}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "module"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"model", "res_id"}),
		}).Create(&row).Error
	})
}
