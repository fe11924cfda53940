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

// GormProfileRepository implements billing.ProfileRepository using GORM
type GormProfileRepository struct {
	db *gorm.DB
}

// NewGormProfileRepository creates a new GormProfileRepository
func NewGormProfileRepository(db *gorm.DB) *GormProfileRepository {
	return &GormProfileRepository{db: db}
}

// FindByMember returns the member's profile or shared.ErrNotFound
func (r *GormProfileRepository) FindByMember(ctx context.Context, tenantID, memberID uuid.UUID) (*billing.MemberBillingProfile, error) {
	var model models.MemberBillingProfileModel
	err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("member_id = ?", memberID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NotFoundf("billing profile for member %s not found", memberID)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a profile; the unique (tenant_id, member_id) index turns a
// second profile into shared.ErrAlreadyExists
func (r *GormProfileRepository) Create(ctx context.Context, profile *billing.MemberBillingProfile) error {
	if err := r.db.WithContext(ctx).Create(models.MemberBillingProfileModelFromDomain(profile)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

var _ billing.ProfileRepository = (*GormProfileRepository)(nil)
