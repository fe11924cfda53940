package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceRepository reads invoices and applies payment deltas to them.
// Writes are field-level increments; callers never save a whole invoice.
type InvoiceRepository interface {
	// FindOutstanding returns SENT, PARTIALLY_PAID and OVERDUE invoices with a
	// positive balance, oldest due date first, invoice number as tie-break
	FindOutstanding(ctx context.Context, tenantID uuid.UUID, account AccountRef) ([]Invoice, error)

	// FindByIDForAccount returns a non-deleted invoice owned by the account
	FindByIDForAccount(ctx context.Context, tenantID uuid.UUID, account AccountRef, id uuid.UUID) (*Invoice, error)

	// FindByIDsForAccount returns the non-deleted invoices among ids owned by the account
	FindByIDsForAccount(ctx context.Context, tenantID uuid.UUID, account AccountRef, ids []uuid.UUID) ([]Invoice, error)

	// ApplyPaymentDelta adds amount to paid_amount, subtracts it from
	// balance_due, re-derives the status and returns the updated invoice
	ApplyPaymentDelta(ctx context.Context, tenantID, id uuid.UUID, amount decimal.Decimal, at time.Time) (*Invoice, error)
}

// AccountRepository resolves accounts of either kind behind the Account capability
type AccountRepository interface {
	// Find returns the account referenced by ref
	Find(ctx context.Context, tenantID uuid.UUID, ref AccountRef) (Account, error)

	// FindMember returns a member account
	FindMember(ctx context.Context, tenantID, memberID uuid.UUID) (*Member, error)

	// ApplyBalanceDelta adds the deltas to outstanding and credit balances
	ApplyBalanceDelta(ctx context.Context, tenantID uuid.UUID, ref AccountRef, outstandingDelta, creditDelta decimal.Decimal) error
}

// PaymentRepository persists payments and their allocations
type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	CreateAllocation(ctx context.Context, allocation *PaymentAllocation) error
	FindAllocations(ctx context.Context, tenantID, paymentID uuid.UUID) ([]PaymentAllocation, error)
}

// ArrangementRepository persists payment arrangements with their installments
type ArrangementRepository interface {
	Create(ctx context.Context, arrangement *PaymentArrangement) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*PaymentArrangement, error)

	// Update saves the arrangement and its installments if the stored version
	// is expectedVersion; otherwise shared.ErrConcurrencyConflict
	Update(ctx context.Context, arrangement *PaymentArrangement, expectedVersion int) error
}

// SettingsRepository persists tenant billing settings
type SettingsRepository interface {
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*ClubBillingSettings, error)
	Create(ctx context.Context, settings *ClubBillingSettings) error
	Save(ctx context.Context, settings *ClubBillingSettings) error
}

// ProfileRepository persists member billing profiles
type ProfileRepository interface {
	FindByMember(ctx context.Context, tenantID, memberID uuid.UUID) (*MemberBillingProfile, error)

	// Create fails with shared.ErrAlreadyExists if the member has a profile
	Create(ctx context.Context, profile *MemberBillingProfile) error
}

// SequenceGenerator hands out per tenant, per kind, per year document numbers.
// Next is atomic and participates in the caller's transaction.
type SequenceGenerator interface {
	Next(ctx context.Context, tenantID uuid.UUID, kind DocumentKind, year int) (int64, error)
}
