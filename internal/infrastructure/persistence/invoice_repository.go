package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/clubledger/backend/internal/domain/billing"
	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/clubledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements billing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindOutstanding returns the account's open invoices in settlement order
func (r *GormInvoiceRepository) FindOutstanding(ctx context.Context, tenantID uuid.UUID, account billing.AccountRef) ([]billing.Invoice, error) {
	var rows []models.InvoiceModel
	err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID), accountScope(account)).
		Where("status IN ? AND balance_due > 0", billing.OutstandingStatuses()).
		Order("due_date ASC, invoice_number ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return invoicesToDomain(rows), nil
}

// FindByIDForAccount finds one invoice owned by the account
func (r *GormInvoiceRepository) FindByIDForAccount(ctx context.Context, tenantID uuid.UUID, account billing.AccountRef, id uuid.UUID) (*billing.Invoice, error) {
	var row models.InvoiceModel
	err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID), accountScope(account)).
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NotFoundf("invoice %s not found", id)
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// FindByIDsForAccount finds the invoices among ids owned by the account.
// Missing or foreign ids are simply absent from the result.
func (r *GormInvoiceRepository) FindByIDsForAccount(ctx context.Context, tenantID uuid.UUID, account billing.AccountRef, ids []uuid.UUID) ([]billing.Invoice, error) {
	if len(ids) == 0 {
		return []billing.Invoice{}, nil
	}
	var rows []models.InvoiceModel
	err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID), accountScope(account)).
		Where("id IN ?", ids).
		Order("due_date ASC, invoice_number ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return invoicesToDomain(rows), nil
}

// ApplyPaymentDelta increments paid_amount and decrements balance_due in a
// single guarded UPDATE, so concurrent settlements can never take the
// balance below zero. The status is re-derived from the stored row.
func (r *GormInvoiceRepository) ApplyPaymentDelta(ctx context.Context, tenantID, id uuid.UUID, amount decimal.Decimal, at time.Time) (*billing.Invoice, error) {
	if !amount.IsPositive() {
		return nil, shared.InvalidAllocationf("allocation amount must be positive")
	}
	db := r.db.WithContext(ctx)

	result := db.Model(&models.InvoiceModel{}).
		Scopes(tenantScope(tenantID)).
		Where("id = ? AND status IN ? AND balance_due >= ?", id, billing.OutstandingStatuses(), amount).
		Updates(map[string]any{
			"paid_amount": gorm.Expr("paid_amount + ?", amount),
			"balance_due": gorm.Expr("balance_due - ?", amount),
			"version":     gorm.Expr("version + 1"),
			"updated_at":  at,
		})
	if result.Error != nil {
		return nil, result.Error
	}

	var row models.InvoiceModel
	if err := db.Scopes(tenantScope(tenantID)).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NotFoundf("invoice %s not found", id)
		}
		return nil, err
	}
	if result.RowsAffected == 0 {
		return nil, shared.InvalidAllocationf("allocation %s exceeds balance %s on invoice %s",
			amount.StringFixed(billing.MoneyScale), row.BalanceDue.StringFixed(billing.MoneyScale), row.InvoiceNumber)
	}

	status, paidDate := billing.DeriveStatus(row.Status, row.PaidAmount, row.BalanceDue, row.PaidDate, at)
	if status != row.Status || paidDate != row.PaidDate {
		err := db.Model(&models.InvoiceModel{}).
			Scopes(tenantScope(tenantID)).
			Where("id = ?", id).
			Updates(map[string]any{"status": status, "paid_date": paidDate}).Error
		if err != nil {
			return nil, err
		}
		row.Status = status
		row.PaidDate = paidDate
	}
	return row.ToDomain(), nil
}

// Create inserts an invoice. Invoice issuance lives outside the ledger
// engine; this is used for seeding and tests.
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *billing.Invoice) error {
	return r.db.WithContext(ctx).Create(models.InvoiceModelFromDomain(invoice)).Error
}

func invoicesToDomain(rows []models.InvoiceModel) []billing.Invoice {
	out := make([]billing.Invoice, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
