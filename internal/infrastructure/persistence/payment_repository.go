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

// GormPaymentRepository implements billing.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Create inserts a payment. A reused receipt number is ALREADY_EXISTS.
func (r *GormPaymentRepository) Create(ctx context.Context, payment *billing.Payment) error {
	if err := r.db.WithContext(ctx).Create(models.PaymentModelFromDomain(payment)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError(shared.CodeAlreadyExists, "receipt number "+payment.ReceiptNumber+" already exists")
		}
		return err
	}
	return nil
}

// CreateAllocation inserts one allocation row
func (r *GormPaymentRepository) CreateAllocation(ctx context.Context, allocation *billing.PaymentAllocation) error {
	return r.db.WithContext(ctx).Create(models.PaymentAllocationModelFromDomain(allocation)).Error
}

// FindAllocations returns the allocations of a payment in creation order
func (r *GormPaymentRepository) FindAllocations(ctx context.Context, tenantID, paymentID uuid.UUID) ([]billing.PaymentAllocation, error) {
	var rows []models.PaymentAllocationModel
	err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("payment_id = ?", paymentID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]billing.PaymentAllocation, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

var _ billing.PaymentRepository = (*GormPaymentRepository)(nil)
