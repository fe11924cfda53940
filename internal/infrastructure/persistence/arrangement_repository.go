package persistence

import (
	"context"
	"errors"

	"github.com/clubledger/backend/internal/domain/billing"
	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/clubledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormArrangementRepository implements billing.ArrangementRepository. The
// arrangement row carries the version; installments and covered invoices are
// child rows written with it.
type GormArrangementRepository struct {
	db *gorm.DB
}

// NewGormArrangementRepository creates a new GormArrangementRepository
func NewGormArrangementRepository(db *gorm.DB) *GormArrangementRepository {
	return &GormArrangementRepository{db: db}
}

// Create inserts the arrangement with its installments and invoice links
func (r *GormArrangementRepository) Create(ctx context.Context, arrangement *billing.PaymentArrangement) error {
	model := models.PaymentArrangementModelFromDomain(arrangement)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError(shared.CodeAlreadyExists,
				"arrangement number "+arrangement.ArrangementNumber+" already exists")
		}
		return err
	}
	return nil
}

// FindByID loads an arrangement with installments in number order
func (r *GormArrangementRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.PaymentArrangement, error) {
	var model models.PaymentArrangementModel
	err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Preload("Installments", func(db *gorm.DB) *gorm.DB { return db.Order("installment_no ASC") }).
		Preload("Invoices", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NotFoundf("payment arrangement %s not found", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Update saves the arrangement only if the stored version still equals
// expectedVersion, then rewrites its installment rows
func (r *GormArrangementRepository) Update(ctx context.Context, arrangement *billing.PaymentArrangement, expectedVersion int) error {
	db := r.db.WithContext(ctx)

	result := db.Model(&models.PaymentArrangementModel{}).
		Scopes(tenantScope(arrangement.TenantID)).
		Where("id = ? AND version = ?", arrangement.ID, expectedVersion).
		Updates(map[string]any{
			"paid_amount":      arrangement.PaidAmount,
			"remaining_amount": arrangement.RemainingAmount,
			"status":           arrangement.Status,
			"approved_by":      arrangement.ApprovedBy,
			"approved_at":      arrangement.ApprovedAt,
			"cancelled_at":     arrangement.CancelledAt,
			"cancel_reason":    arrangement.CancelReason,
			"version":          arrangement.Version,
			"updated_at":       arrangement.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}

	for _, inst := range models.InstallmentModelsFromDomain(arrangement) {
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"paid_amount", "status", "payment_id", "paid_at", "waived_reason",
			}),
		}).Create(&inst).Error
		if err != nil {
			return err
		}
	}
	return nil
}

var _ billing.ArrangementRepository = (*GormArrangementRepository)(nil)
