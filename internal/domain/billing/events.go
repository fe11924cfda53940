package billing

import (
	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types published after a ledger transaction commits
const (
	EventTypePaymentSettled         = "billing.payment.settled"
	EventTypeArrangementCreated     = "billing.arrangement.created"
	EventTypeArrangementActivated   = "billing.arrangement.activated"
	EventTypeArrangementCancelled   = "billing.arrangement.cancelled"
	EventTypeInstallmentPaid        = "billing.arrangement.installment_paid"
	EventTypeInstallmentWaived      = "billing.arrangement.installment_waived"
	EventTypeSettingsInitialized    = "billing.settings.initialized"
	AggregateTypePayment            = "Payment"
	AggregateTypePaymentArrangement = "PaymentArrangement"
	AggregateTypeBillingSettings    = "ClubBillingSettings"
)

// PaymentSettledEvent is raised once a payment and its allocations are committed
type PaymentSettledEvent struct {
	shared.BaseDomainEvent
	PaymentID      uuid.UUID        `json:"payment_id"`
	ReceiptNumber  string           `json:"receipt_number"`
	Account        AccountRef       `json:"account"`
	Amount         decimal.Decimal  `json:"amount"`
	Method         PaymentMethod    `json:"method"`
	TotalAllocated decimal.Decimal  `json:"total_allocated"`
	CreditAdded    decimal.Decimal  `json:"credit_added"`
	Allocations    []AllocationLine `json:"allocations"`
}

// NewPaymentSettledEvent creates a PaymentSettledEvent
func NewPaymentSettledEvent(p *Payment, lines []AllocationLine, totalAllocated, credit decimal.Decimal, actor shared.Actor) *PaymentSettledEvent {
	return &PaymentSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentSettled, AggregateTypePayment, p.ID, p.TenantID, actor),
		PaymentID:       p.ID,
		ReceiptNumber:   p.ReceiptNumber,
		Account:         p.Account,
		Amount:          p.Amount,
		Method:          p.Method,
		TotalAllocated:  totalAllocated,
		CreditAdded:     credit,
		Allocations:     lines,
	}
}

// EventData returns the audit payload
func (e *PaymentSettledEvent) EventData() map[string]any {
	return map[string]any{
		"receipt_number":   e.ReceiptNumber,
		"account_id":       e.Account.ID.String(),
		"account_type":     string(e.Account.Type),
		"amount":           e.Amount.StringFixed(MoneyScale),
		"method":           string(e.Method),
		"total_allocated":  e.TotalAllocated.StringFixed(MoneyScale),
		"credit_added":     e.CreditAdded.StringFixed(MoneyScale),
		"allocation_count": len(e.Allocations),
	}
}

// ArrangementEvent covers every arrangement lifecycle change.
// InstallmentNo is set only for installment events.
type ArrangementEvent struct {
	shared.BaseDomainEvent
	ArrangementNumber string            `json:"arrangement_number"`
	Account           AccountRef        `json:"account"`
	Status            ArrangementStatus `json:"status"`
	TotalAmount       decimal.Decimal   `json:"total_amount"`
	PaidAmount        decimal.Decimal   `json:"paid_amount"`
	RemainingAmount   decimal.Decimal   `json:"remaining_amount"`
	InstallmentNo     int               `json:"installment_no,omitempty"`
	Reason            string            `json:"reason,omitempty"`
}

// NewArrangementEvent snapshots the arrangement into an event of eventType
func NewArrangementEvent(eventType string, a *PaymentArrangement, installmentNo int, reason string, actor shared.Actor) *ArrangementEvent {
	return &ArrangementEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(eventType, AggregateTypePaymentArrangement, a.ID, a.TenantID, actor),
		ArrangementNumber: a.ArrangementNumber,
		Account:           a.Account,
		Status:            a.Status,
		TotalAmount:       a.TotalAmount,
		PaidAmount:        a.PaidAmount,
		RemainingAmount:   a.RemainingAmount,
		InstallmentNo:     installmentNo,
		Reason:            reason,
	}
}

// EventData returns the audit payload
func (e *ArrangementEvent) EventData() map[string]any {
	data := map[string]any{
		"arrangement_number": e.ArrangementNumber,
		"account_id":         e.Account.ID.String(),
		"account_type":       string(e.Account.Type),
		"status":             string(e.Status),
		"total_amount":       e.TotalAmount.StringFixed(MoneyScale),
		"paid_amount":        e.PaidAmount.StringFixed(MoneyScale),
		"remaining_amount":   e.RemainingAmount.StringFixed(MoneyScale),
	}
	if e.InstallmentNo > 0 {
		data["installment_no"] = e.InstallmentNo
	}
	if e.Reason != "" {
		data["reason"] = e.Reason
	}
	return data
}

// SettingsInitializedEvent is raised when a tenant's billing policy is provisioned
type SettingsInitializedEvent struct {
	shared.BaseDomainEvent
	Frequency BillingFrequency `json:"frequency"`
	Alignment CycleAlignment   `json:"alignment"`
}

// NewSettingsInitializedEvent creates a SettingsInitializedEvent
func NewSettingsInitializedEvent(s *ClubBillingSettings, actor shared.Actor) *SettingsInitializedEvent {
	return &SettingsInitializedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSettingsInitialized, AggregateTypeBillingSettings, s.ID, s.TenantID, actor),
		Frequency:       s.Frequency,
		Alignment:       s.Alignment,
	}
}

// EventData returns the audit payload
func (e *SettingsInitializedEvent) EventData() map[string]any {
	return map[string]any{
		"frequency": string(e.Frequency),
		"alignment": string(e.Alignment),
	}
}

var (
	_ shared.AuditableEvent = (*PaymentSettledEvent)(nil)
	_ shared.AuditableEvent = (*ArrangementEvent)(nil)
	_ shared.AuditableEvent = (*SettingsInitializedEvent)(nil)
)
