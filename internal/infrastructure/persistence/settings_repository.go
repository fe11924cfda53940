package persistence

import (
	"context"
	"errors"

	"github.com/clubledger/backend/internal/domain/billing"
	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/clubledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSettingsRepository implements billing.SettingsRepository using GORM
type GormSettingsRepository struct {
	db *gorm.DB
}

// NewGormSettingsRepository creates a new GormSettingsRepository
func NewGormSettingsRepository(db *gorm.DB) *GormSettingsRepository {
	return &GormSettingsRepository{db: db}
}

// FindByTenant returns the tenant's settings or shared.ErrNotFound
func (r *GormSettingsRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*billing.ClubBillingSettings, error) {
	var model models.ClubBillingSettingsModel
	if err := r.db.WithContext(ctx).Scopes(tenantScope(tenantID)).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NotFoundf("billing settings for tenant %s not found", tenantID)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts the tenant's settings. A second row for the same tenant is
// ALREADY_EXISTS.
func (r *GormSettingsRepository) Create(ctx context.Context, settings *billing.ClubBillingSettings) error {
	if err := r.db.WithContext(ctx).Create(models.ClubBillingSettingsModelFromDomain(settings)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Save overwrites every policy column of the tenant's settings row
func (r *GormSettingsRepository) Save(ctx context.Context, settings *billing.ClubBillingSettings) error {
	model := models.ClubBillingSettingsModelFromDomain(settings)
	result := r.db.WithContext(ctx).
		Scopes(tenantScope(settings.TenantID)).
		Select("*").
		Omit("id", "tenant_id", "created_at").
		Where("id = ?", settings.ID).
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NotFoundf("billing settings for tenant %s not found", settings.TenantID)
	}
	return nil
}

var _ billing.SettingsRepository = (*GormSettingsRepository)(nil)
