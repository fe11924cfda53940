package billing

import (
	"time"

	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how a payment was tendered
type PaymentMethod string

const (
	PaymentMethodCash          PaymentMethod = "CASH"
	PaymentMethodCheck         PaymentMethod = "CHECK"
	PaymentMethodCard          PaymentMethod = "CARD"
	PaymentMethodBankTransfer  PaymentMethod = "BANK_TRANSFER"
	PaymentMethodAccountCredit PaymentMethod = "ACCOUNT_CREDIT"
	PaymentMethodOther         PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is known
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCheck, PaymentMethodCard,
		PaymentMethodBankTransfer, PaymentMethodAccountCredit, PaymentMethodOther:
		return true
	}
	return false
}

// Payment is money received from an account. Immutable once recorded.
type Payment struct {
	shared.BaseEntity
	TenantID        uuid.UUID
	Account         AccountRef
	Amount          decimal.Decimal
	Method          PaymentMethod
	ReceiptNumber   string
	ReferenceNumber string
	Notes           string
	ReceivedAt      time.Time
	CreatedBy       *uuid.UUID
}

// NewPayment builds a payment ready to be inserted
func NewPayment(tenantID uuid.UUID, account AccountRef, amount decimal.Decimal, method PaymentMethod, receiptNumber string, receivedAt time.Time) (*Payment, error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, shared.InvalidInputf("payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.InvalidInputf("unknown payment method %q", method)
	}
	if receiptNumber == "" {
		return nil, shared.InvalidInputf("receipt number is required")
	}
	return &Payment{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      tenantID,
		Account:       account,
		Amount:        RoundMoney(amount),
		Method:        method,
		ReceiptNumber: receiptNumber,
		ReceivedAt:    receivedAt,
	}, nil
}

// PaymentAllocation links part of a payment to one invoice. Immutable.
type PaymentAllocation struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	PaymentID uuid.UUID
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// NewPaymentAllocation builds an allocation row for a payment
func NewPaymentAllocation(p *Payment, invoiceID uuid.UUID, amount decimal.Decimal) *PaymentAllocation {
	return &PaymentAllocation{
		ID:        uuid.New(),
		TenantID:  p.TenantID,
		PaymentID: p.ID,
		InvoiceID: invoiceID,
		Amount:    amount,
		CreatedAt: time.Now(),
	}
}
