package handler

import (
	"strings"
	"time"

	billingapp "github.com/clubledger/backend/internal/application/billing"
	"github.com/clubledger/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountURI addresses a billable account: /accounts/:type/:id
type AccountURI struct {
	Type string `uri:"type" binding:"required"`
	ID   string `uri:"id" binding:"required,uuid"`
}

// Ref converts the path into an account reference. The type is matched
// case-insensitively so /accounts/member/... works.
func (u AccountURI) Ref() billing.AccountRef {
	return billing.AccountRef{
		ID:   uuid.MustParse(u.ID),
		Type: billing.AccountType(strings.ToUpper(u.Type)),
	}
}

// IDURI carries a single :id path parameter
type IDURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// InstallmentURI addresses one installment of an arrangement
type InstallmentURI struct {
	ID string `uri:"id" binding:"required,uuid"`
	No int    `uri:"no" binding:"required,min=1"`
}

// AllocationPlanRequest previews a FIFO settlement of amount
type AllocationPlanRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// PaymentRequest is the common body of settle and apply
type PaymentRequest struct {
	AccountType     string          `json:"account_type" binding:"required"`
	AccountID       string          `json:"account_id" binding:"required,uuid"`
	Amount          decimal.Decimal `json:"amount"`
	Method          string          `json:"method" binding:"required,oneof=CASH CHECK CARD BANK_TRANSFER ACCOUNT_CREDIT OTHER"`
	ReferenceNumber string          `json:"reference_number" binding:"max=100"`
	Notes           string          `json:"notes" binding:"max=1000"`
	ReceivedAt      *time.Time      `json:"received_at"`
}

func (r PaymentRequest) account() billing.AccountRef {
	return billing.AccountRef{
		ID:   uuid.MustParse(r.AccountID),
		Type: billing.AccountType(strings.ToUpper(r.AccountType)),
	}
}

func (r PaymentRequest) receivedAt() time.Time {
	if r.ReceivedAt == nil {
		return time.Time{}
	}
	return *r.ReceivedAt
}

// SettlePaymentRequest records a payment settled FIFO
type SettlePaymentRequest struct {
	PaymentRequest
}

// AllocationLineRequest is one line of an explicit allocation plan
type AllocationLineRequest struct {
	InvoiceID string          `json:"invoice_id" binding:"required,uuid"`
	Amount    decimal.Decimal `json:"amount"`
}

// ApplyAllocationsRequest records a payment against an explicit plan
type ApplyAllocationsRequest struct {
	PaymentRequest
	Lines []AllocationLineRequest `json:"lines" binding:"dive"`
}

func (r ApplyAllocationsRequest) lines() []billing.AllocationLine {
	out := make([]billing.AllocationLine, len(r.Lines))
	for i, l := range r.Lines {
		out[i] = billing.AllocationLine{InvoiceID: uuid.MustParse(l.InvoiceID), Amount: l.Amount}
	}
	return out
}

// CreateArrangementRequest groups invoices into an installment plan
type CreateArrangementRequest struct {
	AccountType      string   `json:"account_type" binding:"required"`
	AccountID        string   `json:"account_id" binding:"required,uuid"`
	InvoiceIDs       []string `json:"invoice_ids" binding:"required,min=1,dive,uuid"`
	InstallmentCount int      `json:"installment_count" binding:"required,min=1,max=120"`
	Frequency        string   `json:"frequency" binding:"required,oneof=WEEKLY BIWEEKLY MONTHLY"`
	StartDate        string   `json:"start_date" binding:"required,datetime=2006-01-02"`
	Notes            string   `json:"notes" binding:"max=1000"`
}

// CancelArrangementRequest carries the cancellation reason
type CancelArrangementRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// InstallmentPaymentRequest links a recorded payment to an installment
type InstallmentPaymentRequest struct {
	PaymentID string          `json:"payment_id" binding:"required,uuid"`
	Amount    decimal.Decimal `json:"amount"`
}

// WaiveInstallmentRequest carries the waiver reason
type WaiveInstallmentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// UpdateSettingsRequest is a partial settings update. Omitted fields are kept.
type UpdateSettingsRequest struct {
	Frequency         *billing.BillingFrequency `json:"frequency" binding:"omitempty,oneof=MONTHLY QUARTERLY SEMI_ANNUAL ANNUAL"`
	Timing            *billing.BillingTiming    `json:"timing" binding:"omitempty,oneof=ADVANCE ARREARS"`
	Alignment         *billing.CycleAlignment   `json:"alignment" binding:"omitempty,oneof=CALENDAR ANNIVERSARY"`
	BillingDay        *int                      `json:"billing_day" binding:"omitempty,min=1,max=31"`
	InvoiceLeadDays   *int                      `json:"invoice_lead_days" binding:"omitempty,min=0"`
	InvoiceDueDays    *int                      `json:"invoice_due_days" binding:"omitempty,min=0"`
	GracePeriodDays   *int                      `json:"grace_period_days" binding:"omitempty,min=0"`
	LateFeeType       *billing.LateFeeType      `json:"late_fee_type" binding:"omitempty,oneof=FIXED PERCENTAGE TIERED"`
	LateFeeAmount     *decimal.Decimal          `json:"late_fee_amount"`
	LateFeePercentage *decimal.Decimal          `json:"late_fee_percentage"`
	MaxLateFee        *decimal.Decimal          `json:"max_late_fee"`
	AutoApplyLateFees *bool                     `json:"auto_apply_late_fees"`
	ProrateNewMembers *bool                     `json:"prorate_new_members"`
	ProrateChanges    *bool                     `json:"prorate_changes"`
	ProrationMethod   *billing.ProrationMethod  `json:"proration_method" binding:"omitempty,oneof=NONE DAILY MONTHLY"`
}

func (r UpdateSettingsRequest) patch() billing.SettingsPatch {
	return billing.SettingsPatch{
		Frequency:         r.Frequency,
		Timing:            r.Timing,
		Alignment:         r.Alignment,
		BillingDay:        r.BillingDay,
		InvoiceLeadDays:   r.InvoiceLeadDays,
		InvoiceDueDays:    r.InvoiceDueDays,
		GracePeriodDays:   r.GracePeriodDays,
		LateFeeType:       r.LateFeeType,
		LateFeeAmount:     r.LateFeeAmount,
		LateFeePercentage: r.LateFeePercentage,
		MaxLateFee:        r.MaxLateFee,
		AutoApplyLateFees: r.AutoApplyLateFees,
		ProrateNewMembers: r.ProrateNewMembers,
		ProrateChanges:    r.ProrateChanges,
		ProrationMethod:   r.ProrationMethod,
	}
}

// MemberProfileRequest creates a member's billing overrides
type MemberProfileRequest struct {
	Frequency         *billing.BillingFrequency `json:"frequency" binding:"omitempty,oneof=MONTHLY QUARTERLY SEMI_ANNUAL ANNUAL"`
	Timing            *billing.BillingTiming    `json:"timing" binding:"omitempty,oneof=ADVANCE ARREARS"`
	Alignment         *billing.CycleAlignment   `json:"alignment" binding:"omitempty,oneof=CALENDAR ANNIVERSARY"`
	BillingDay        *int                      `json:"billing_day" binding:"omitempty,min=1,max=31"`
	ProrationMethod   *billing.ProrationMethod  `json:"proration_method" binding:"omitempty,oneof=NONE DAILY MONTHLY"`
	LateFeeExempt     bool                      `json:"late_fee_exempt"`
	CustomGraceDays   *int                      `json:"custom_grace_days" binding:"omitempty,min=0"`
	BillingHold       bool                      `json:"billing_hold"`
	BillingHoldReason string                    `json:"billing_hold_reason" binding:"max=500"`
	BillingHoldUntil  string                    `json:"billing_hold_until" binding:"omitempty,datetime=2006-01-02"`
	Notes             string                    `json:"notes" binding:"max=1000"`
}

func (r MemberProfileRequest) toApp() (billingapp.MemberProfileRequest, error) {
	holdUntil, err := parseOptionalDate(r.BillingHoldUntil)
	if err != nil {
		return billingapp.MemberProfileRequest{}, err
	}
	return billingapp.MemberProfileRequest{
		Frequency:         r.Frequency,
		Timing:            r.Timing,
		Alignment:         r.Alignment,
		BillingDay:        r.BillingDay,
		ProrationMethod:   r.ProrationMethod,
		LateFeeExempt:     r.LateFeeExempt,
		CustomGraceDays:   r.CustomGraceDays,
		BillingHold:       r.BillingHold,
		BillingHoldReason: r.BillingHoldReason,
		BillingHoldUntil:  holdUntil,
		Notes:             r.Notes,
	}, nil
}

// NextPeriodQuery selects the reference date; today when omitted
type NextPeriodQuery struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// BillingPeriodRequest runs the billing cycle calculator
type BillingPeriodRequest struct {
	Frequency      string `json:"frequency" binding:"required"`
	Timing         string `json:"timing" binding:"required"`
	Alignment      string `json:"alignment" binding:"required"`
	BillingDay     int    `json:"billing_day"`
	JoinDate       string `json:"join_date" binding:"omitempty,datetime=2006-01-02"`
	ReferenceDate  string `json:"reference_date" binding:"required,datetime=2006-01-02"`
	InvoiceDueDays int    `json:"invoice_due_days" binding:"min=0"`
	Count          int    `json:"count" binding:"omitempty,min=1,max=36"`
}

// ProrationRequest runs the proration calculator
type ProrationRequest struct {
	Method           string          `json:"method" binding:"required"`
	PeriodStart      string          `json:"period_start" binding:"required,datetime=2006-01-02"`
	PeriodEnd        string          `json:"period_end" binding:"required,datetime=2006-01-02"`
	EffectiveDate    string          `json:"effective_date" binding:"required,datetime=2006-01-02"`
	FullPeriodAmount decimal.Decimal `json:"full_period_amount"`
}

// LateFeeRequest runs the late fee calculator
type LateFeeRequest struct {
	InvoiceBalance  decimal.Decimal `json:"invoice_balance"`
	DueDate         string          `json:"due_date" binding:"required,datetime=2006-01-02"`
	CalculationDate string          `json:"calculation_date" binding:"omitempty,datetime=2006-01-02"`
	Type            string          `json:"type" binding:"required"`
	Amount          decimal.Decimal `json:"amount"`
	Percentage      decimal.Decimal `json:"percentage"`
	MaxFee          decimal.Decimal `json:"max_fee"`
	GracePeriodDays int             `json:"grace_period_days" binding:"min=0"`
}

// LateFeeResponse is the calculator result plus whether a fee applies at all
type LateFeeResponse struct {
	billing.LateFeeResult
	ShouldApply bool `json:"should_apply"`
}
