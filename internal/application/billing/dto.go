package billing

import (
	"time"

	"github.com/clubledger/backend/internal/domain/billing"
	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Options holds the service-level knobs read from configuration
type Options struct {
	ReceiptPrefix     string
	ArrangementPrefix string
	IdempotencyTTL    time.Duration
}

// DefaultOptions returns prefixes matching the document kinds and a 24h idempotency window
func DefaultOptions() Options {
	return Options{
		ReceiptPrefix:     string(billing.DocumentReceipt),
		ArrangementPrefix: string(billing.DocumentArrangement),
		IdempotencyTTL:    24 * time.Hour,
	}
}

// InvoiceResponse represents an outstanding invoice in API responses
type InvoiceResponse struct {
	ID            uuid.UUID             `json:"id"`
	InvoiceNumber string                `json:"invoice_number"`
	AccountID     uuid.UUID             `json:"account_id"`
	AccountType   billing.AccountType   `json:"account_type"`
	TotalAmount   decimal.Decimal       `json:"total_amount"`
	PaidAmount    decimal.Decimal       `json:"paid_amount"`
	BalanceDue    decimal.Decimal       `json:"balance_due"`
	DueDate       time.Time             `json:"due_date"`
	PaidDate      *time.Time            `json:"paid_date,omitempty"`
	Status        billing.InvoiceStatus `json:"status"`
}

// ToInvoiceResponse converts a domain invoice
func ToInvoiceResponse(inv *billing.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		AccountID:     inv.Account.ID,
		AccountType:   inv.Account.Type,
		TotalAmount:   inv.TotalAmount,
		PaidAmount:    inv.PaidAmount,
		BalanceDue:    inv.BalanceDue,
		DueDate:       inv.DueDate,
		PaidDate:      inv.PaidDate,
		Status:        inv.Status,
	}
}

// ApplyAllocationsRequest records a payment and applies an explicit plan to it
type ApplyAllocationsRequest struct {
	TenantID        uuid.UUID
	Account         billing.AccountRef
	Amount          decimal.Decimal
	Method          billing.PaymentMethod
	ReferenceNumber string
	Notes           string
	ReceivedAt      time.Time
	Lines           []billing.AllocationLine
	Actor           shared.Actor
}

// SettlePaymentRequest records a payment allocated FIFO across outstanding invoices.
// A non-empty IdempotencyKey makes retries of the same request fail with
// DUPLICATE_REQUEST instead of settling twice.
type SettlePaymentRequest struct {
	TenantID        uuid.UUID
	Account         billing.AccountRef
	Amount          decimal.Decimal
	Method          billing.PaymentMethod
	ReferenceNumber string
	Notes           string
	ReceivedAt      time.Time
	IdempotencyKey  string
	Actor           shared.Actor
}

// AppliedInvoice is the post-allocation state of one invoice
type AppliedInvoice struct {
	InvoiceID     uuid.UUID             `json:"invoice_id"`
	InvoiceNumber string                `json:"invoice_number"`
	Amount        decimal.Decimal       `json:"amount"`
	BalanceDue    decimal.Decimal       `json:"balance_due"`
	Status        billing.InvoiceStatus `json:"status"`
}

// SettlementResult describes a committed payment
type SettlementResult struct {
	PaymentID      uuid.UUID           `json:"payment_id"`
	ReceiptNumber  string              `json:"receipt_number"`
	AccountID      uuid.UUID           `json:"account_id"`
	AccountType    billing.AccountType `json:"account_type"`
	Amount         decimal.Decimal     `json:"amount"`
	TotalAllocated decimal.Decimal     `json:"total_allocated"`
	CreditAdded    decimal.Decimal     `json:"credit_added"`
	Allocations    []AppliedInvoice    `json:"allocations"`
}

// CreateArrangementRequest groups invoices into an installment plan
type CreateArrangementRequest struct {
	TenantID         uuid.UUID
	Account          billing.AccountRef
	InvoiceIDs       []uuid.UUID
	InstallmentCount int
	Frequency        billing.InstallmentFrequency
	StartDate        time.Time
	Notes            string
	Actor            shared.Actor
}

// InstallmentPaymentRequest records a payment against one installment
type InstallmentPaymentRequest struct {
	TenantID      uuid.UUID
	ArrangementID uuid.UUID
	InstallmentNo int
	PaymentID     uuid.UUID
	Amount        decimal.Decimal
	Actor         shared.Actor
}

// InstallmentResponse represents one installment in API responses
type InstallmentResponse struct {
	InstallmentNo int                       `json:"installment_no"`
	DueDate       time.Time                 `json:"due_date"`
	Amount        decimal.Decimal           `json:"amount"`
	PaidAmount    decimal.Decimal           `json:"paid_amount"`
	Status        billing.InstallmentStatus `json:"status"`
	PaymentID     *uuid.UUID                `json:"payment_id,omitempty"`
	PaidAt        *time.Time                `json:"paid_at,omitempty"`
	WaivedReason  string                    `json:"waived_reason,omitempty"`
}

// ArrangementResponse represents a payment arrangement in API responses
type ArrangementResponse struct {
	ID                uuid.UUID                    `json:"id"`
	ArrangementNumber string                       `json:"arrangement_number"`
	AccountID         uuid.UUID                    `json:"account_id"`
	AccountType       billing.AccountType          `json:"account_type"`
	InvoiceIDs        []uuid.UUID                  `json:"invoice_ids"`
	Frequency         billing.InstallmentFrequency `json:"frequency"`
	TotalAmount       decimal.Decimal              `json:"total_amount"`
	PaidAmount        decimal.Decimal              `json:"paid_amount"`
	RemainingAmount   decimal.Decimal              `json:"remaining_amount"`
	StartDate         time.Time                    `json:"start_date"`
	EndDate           time.Time                    `json:"end_date"`
	Status            billing.ArrangementStatus    `json:"status"`
	Notes             string                       `json:"notes,omitempty"`
	ApprovedBy        *uuid.UUID                   `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time                   `json:"approved_at,omitempty"`
	CancelledAt       *time.Time                   `json:"cancelled_at,omitempty"`
	CancelReason      string                       `json:"cancel_reason,omitempty"`
	Installments      []InstallmentResponse        `json:"installments"`
	Version           int                          `json:"version"`
}

// ToArrangementResponse converts a domain arrangement
func ToArrangementResponse(a *billing.PaymentArrangement) *ArrangementResponse {
	items := make([]InstallmentResponse, len(a.Installments))
	for i, in := range a.Installments {
		items[i] = InstallmentResponse{
			InstallmentNo: in.InstallmentNo,
			DueDate:       in.DueDate,
			Amount:        in.Amount,
			PaidAmount:    in.PaidAmount,
			Status:        in.Status,
			PaymentID:     in.PaymentID,
			PaidAt:        in.PaidAt,
			WaivedReason:  in.WaivedReason,
		}
	}
	return &ArrangementResponse{
		ID:                a.ID,
		ArrangementNumber: a.ArrangementNumber,
		AccountID:         a.Account.ID,
		AccountType:       a.Account.Type,
		InvoiceIDs:        a.InvoiceIDs,
		Frequency:         a.Frequency,
		TotalAmount:       a.TotalAmount,
		PaidAmount:        a.PaidAmount,
		RemainingAmount:   a.RemainingAmount,
		StartDate:         a.StartDate,
		EndDate:           a.EndDate,
		Status:            a.Status,
		Notes:             a.Notes,
		ApprovedBy:        a.ApprovedBy,
		ApprovedAt:        a.ApprovedAt,
		CancelledAt:       a.CancelledAt,
		CancelReason:      a.CancelReason,
		Installments:      items,
		Version:           a.Version,
	}
}

// SettingsResponse represents tenant billing settings in API responses
type SettingsResponse struct {
	TenantID          uuid.UUID                `json:"tenant_id"`
	Frequency         billing.BillingFrequency `json:"frequency"`
	Timing            billing.BillingTiming    `json:"timing"`
	Alignment         billing.CycleAlignment   `json:"alignment"`
	BillingDay        int                      `json:"billing_day"`
	InvoiceLeadDays   int                      `json:"invoice_lead_days"`
	InvoiceDueDays    int                      `json:"invoice_due_days"`
	GracePeriodDays   int                      `json:"grace_period_days"`
	LateFeeType       billing.LateFeeType      `json:"late_fee_type"`
	LateFeeAmount     decimal.Decimal          `json:"late_fee_amount"`
	LateFeePercentage decimal.Decimal          `json:"late_fee_percentage"`
	MaxLateFee        decimal.Decimal          `json:"max_late_fee"`
	AutoApplyLateFees bool                     `json:"auto_apply_late_fees"`
	ProrateNewMembers bool                     `json:"prorate_new_members"`
	ProrateChanges    bool                     `json:"prorate_changes"`
	ProrationMethod   billing.ProrationMethod  `json:"proration_method"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

// ToSettingsResponse converts domain settings
func ToSettingsResponse(s *billing.ClubBillingSettings) *SettingsResponse {
	return &SettingsResponse{
		TenantID:          s.TenantID,
		Frequency:         s.Frequency,
		Timing:            s.Timing,
		Alignment:         s.Alignment,
		BillingDay:        s.BillingDay,
		InvoiceLeadDays:   s.InvoiceLeadDays,
		InvoiceDueDays:    s.InvoiceDueDays,
		GracePeriodDays:   s.GracePeriodDays,
		LateFeeType:       s.LateFeeType,
		LateFeeAmount:     s.LateFeeAmount,
		LateFeePercentage: s.LateFeePercentage,
		MaxLateFee:        s.MaxLateFee,
		AutoApplyLateFees: s.AutoApplyLateFees,
		ProrateNewMembers: s.ProrateNewMembers,
		ProrateChanges:    s.ProrateChanges,
		ProrationMethod:   s.ProrationMethod,
		UpdatedAt:         s.UpdatedAt,
	}
}

// MemberProfileRequest carries member overrides. Nil fields inherit the tenant policy.
type MemberProfileRequest struct {
	Frequency         *billing.BillingFrequency
	Timing            *billing.BillingTiming
	Alignment         *billing.CycleAlignment
	BillingDay        *int
	ProrationMethod   *billing.ProrationMethod
	LateFeeExempt     bool
	CustomGraceDays   *int
	BillingHold       bool
	BillingHoldReason string
	BillingHoldUntil  *time.Time
	Notes             string
}

// MemberProfileResponse represents a member billing profile in API responses
type MemberProfileResponse struct {
	ID                uuid.UUID                 `json:"id"`
	MemberID          uuid.UUID                 `json:"member_id"`
	Frequency         *billing.BillingFrequency `json:"frequency,omitempty"`
	Timing            *billing.BillingTiming    `json:"timing,omitempty"`
	Alignment         *billing.CycleAlignment   `json:"alignment,omitempty"`
	BillingDay        *int                      `json:"billing_day,omitempty"`
	ProrationMethod   *billing.ProrationMethod  `json:"proration_method,omitempty"`
	LateFeeExempt     bool                      `json:"late_fee_exempt"`
	CustomGraceDays   *int                      `json:"custom_grace_days,omitempty"`
	BillingHold       bool                      `json:"billing_hold"`
	BillingHoldReason string                    `json:"billing_hold_reason,omitempty"`
	BillingHoldUntil  *time.Time                `json:"billing_hold_until,omitempty"`
	Notes             string                    `json:"notes,omitempty"`
}

// ToMemberProfileResponse converts a domain profile
func ToMemberProfileResponse(p *billing.MemberBillingProfile) *MemberProfileResponse {
	return &MemberProfileResponse{
		ID:                p.ID,
		MemberID:          p.MemberID,
		Frequency:         p.Frequency,
		Timing:            p.Timing,
		Alignment:         p.Alignment,
		BillingDay:        p.BillingDay,
		ProrationMethod:   p.ProrationMethod,
		LateFeeExempt:     p.LateFeeExempt,
		CustomGraceDays:   p.CustomGraceDays,
		BillingHold:       p.BillingHold,
		BillingHoldReason: p.BillingHoldReason,
		BillingHoldUntil:  p.BillingHoldUntil,
		Notes:             p.Notes,
	}
}
