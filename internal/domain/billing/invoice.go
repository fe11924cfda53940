package billing

import (
	"time"

	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "DRAFT"
	InvoiceStatusSent          InvoiceStatus = "SENT"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
	InvoiceStatusOverdue       InvoiceStatus = "OVERDUE"
	InvoiceStatusVoid          InvoiceStatus = "VOID"
)

// IsValid checks if the status is known
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPartiallyPaid,
		InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusVoid:
		return true
	}
	return false
}

// IsOutstanding returns true for statuses that can still receive payments
func (s InvoiceStatus) IsOutstanding() bool {
	return s == InvoiceStatusSent || s == InvoiceStatusPartiallyPaid || s == InvoiceStatusOverdue
}

// OutstandingStatuses lists the statuses eligible for FIFO allocation
func OutstandingStatuses() []InvoiceStatus {
	return []InvoiceStatus{InvoiceStatusSent, InvoiceStatusPartiallyPaid, InvoiceStatusOverdue}
}

// Invoice is a billed amount owed by one account.
// Invoices are created by invoice generation and only mutated here through
// payment allocation; BalanceDue always equals TotalAmount - PaidAmount.
type Invoice struct {
	shared.TenantAggregateRoot
	Account       AccountRef
	InvoiceNumber string
	TotalAmount   decimal.Decimal
	PaidAmount    decimal.Decimal
	BalanceDue    decimal.Decimal
	DueDate       time.Time
	PaidDate      *time.Time
	Status        InvoiceStatus
	DeletedAt     *time.Time
}

// NewInvoice creates a SENT invoice with the full amount outstanding
func NewInvoice(tenantID uuid.UUID, account AccountRef, number string, total decimal.Decimal, dueDate time.Time) (*Invoice, error) {
	if number == "" {
		return nil, shared.InvalidInputf("invoice number cannot be empty")
	}
	if !total.IsPositive() {
		return nil, shared.InvalidInputf("invoice total must be positive")
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}
	return &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Account:             account,
		InvoiceNumber:       number,
		TotalAmount:         RoundMoney(total),
		PaidAmount:          decimal.Zero,
		BalanceDue:          RoundMoney(total),
		DueDate:             StartOfDay(dueDate),
		Status:              InvoiceStatusSent,
	}, nil
}

// IsDeleted reports whether the invoice has been soft-deleted
func (i *Invoice) IsDeleted() bool {
	return i.DeletedAt != nil
}

// ApplyPayment records amount against the invoice in memory. The stored row
// is changed by a delta update; this mirrors the result for callers holding
// the entity.
func (i *Invoice) ApplyPayment(amount decimal.Decimal, at time.Time) error {
	if !amount.IsPositive() {
		return shared.InvalidAllocationf("allocation amount must be positive")
	}
	if amount.GreaterThan(i.BalanceDue) {
		return shared.InvalidAllocationf("allocation %s exceeds balance %s on invoice %s",
			amount.StringFixed(MoneyScale), i.BalanceDue.StringFixed(MoneyScale), i.InvoiceNumber)
	}
	i.PaidAmount = i.PaidAmount.Add(amount)
	i.BalanceDue = i.BalanceDue.Sub(amount)
	i.Status, i.PaidDate = DeriveStatus(i.Status, i.PaidAmount, i.BalanceDue, i.PaidDate, at)
	i.IncrementVersion()
	i.Touch()
	return nil
}

// Void marks the invoice VOID. Forbidden once any payment has been applied.
func (i *Invoice) Void() error {
	if i.Status == InvoiceStatusVoid {
		return shared.InvalidStatef("invoice %s is already void", i.InvoiceNumber)
	}
	if i.PaidAmount.IsPositive() {
		return shared.InvalidStatef("invoice %s has payments applied and cannot be voided", i.InvoiceNumber)
	}
	i.Status = InvoiceStatusVoid
	i.IncrementVersion()
	i.Touch()
	return nil
}

// DeriveStatus computes the status after a payment: a cleared balance is PAID
// (stamping paidDate when unset), a partly paid balance is PARTIALLY_PAID and
// anything else keeps its current status.
func DeriveStatus(current InvoiceStatus, paid, balance decimal.Decimal, paidDate *time.Time, at time.Time) (InvoiceStatus, *time.Time) {
	switch {
	case !balance.IsPositive():
		if paidDate == nil {
			t := at
			paidDate = &t
		}
		return InvoiceStatusPaid, paidDate
	case paid.IsPositive():
		return InvoiceStatusPartiallyPaid, paidDate
	default:
		return current, paidDate
	}
}
