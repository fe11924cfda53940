package billing

import (
	"time"

	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ArrangementStatus is the lifecycle state of a payment arrangement.
// DRAFT -> ACTIVE -> COMPLETED, with DRAFT|ACTIVE -> CANCELLED.
type ArrangementStatus string

const (
	ArrangementStatusDraft     ArrangementStatus = "DRAFT"
	ArrangementStatusActive    ArrangementStatus = "ACTIVE"
	ArrangementStatusCompleted ArrangementStatus = "COMPLETED"
	ArrangementStatusCancelled ArrangementStatus = "CANCELLED"
)

// IsTerminal returns true for COMPLETED and CANCELLED
func (s ArrangementStatus) IsTerminal() bool {
	return s == ArrangementStatusCompleted || s == ArrangementStatusCancelled
}

// InstallmentFrequency is the spacing between installment due dates
type InstallmentFrequency string

const (
	InstallmentWeekly   InstallmentFrequency = "WEEKLY"
	InstallmentBiweekly InstallmentFrequency = "BIWEEKLY"
	InstallmentMonthly  InstallmentFrequency = "MONTHLY"
)

// IsValid checks if the frequency is known
func (f InstallmentFrequency) IsValid() bool {
	switch f {
	case InstallmentWeekly, InstallmentBiweekly, InstallmentMonthly:
		return true
	}
	return false
}

// step returns the due date of installment n (0-based) counted from start
func (f InstallmentFrequency) step(start time.Time, n int) time.Time {
	switch f {
	case InstallmentWeekly:
		return AddDays(start, 7*n)
	case InstallmentBiweekly:
		return AddDays(start, 14*n)
	default:
		return AddMonths(start, n)
	}
}

// InstallmentStatus is the state of one installment
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "PENDING"
	InstallmentPaid    InstallmentStatus = "PAID"
	InstallmentWaived  InstallmentStatus = "WAIVED"
)

// ArrangementInstallment is one scheduled repayment
type ArrangementInstallment struct {
	ID            uuid.UUID
	InstallmentNo int
	DueDate       time.Time
	Amount        decimal.Decimal
	PaidAmount    decimal.Decimal
	Status        InstallmentStatus
	PaymentID     *uuid.UUID
	PaidAt        *time.Time
	WaivedReason  string
}

// IsSettled returns true once the installment no longer needs a payment
func (i *ArrangementInstallment) IsSettled() bool {
	return i.Status == InstallmentPaid || i.Status == InstallmentWaived
}

// PaymentArrangement replaces lump-sum invoice balances with a schedule of
// installments. All installments are materialized at creation.
type PaymentArrangement struct {
	shared.TenantAggregateRoot
	ArrangementNumber string
	Account           AccountRef
	InvoiceIDs        []uuid.UUID
	InstallmentCount  int
	Frequency         InstallmentFrequency
	TotalAmount       decimal.Decimal
	PaidAmount        decimal.Decimal
	RemainingAmount   decimal.Decimal
	StartDate         time.Time
	EndDate           time.Time
	Status            ArrangementStatus
	Notes             string
	ApprovedBy        *uuid.UUID
	ApprovedAt        *time.Time
	CancelledAt       *time.Time
	CancelReason      string
	Installments      []ArrangementInstallment
}

// NewArrangementInput carries what is needed to build an arrangement
type NewArrangementInput struct {
	TenantID          uuid.UUID
	ArrangementNumber string
	Account           AccountRef
	Invoices          []Invoice
	InstallmentCount  int
	Frequency         InstallmentFrequency
	StartDate         time.Time
	Notes             string
	CreatedBy         *uuid.UUID
}

// SplitInstallments divides total into count amounts: each is total/count
// truncated to the cent and the last absorbs the remainder.
func SplitInstallments(total decimal.Decimal, count int) ([]decimal.Decimal, error) {
	if count < 1 {
		return nil, shared.InvalidInputf("installment count must be at least 1")
	}
	n := decimal.NewFromInt(int64(count))
	base := total.Div(n).Truncate(MoneyScale)
	out := make([]decimal.Decimal, count)
	for i := 0; i < count-1; i++ {
		out[i] = base
	}
	out[count-1] = total.Sub(base.Mul(decimal.NewFromInt(int64(count - 1))))
	return out, nil
}

// NewPaymentArrangement builds a DRAFT arrangement over the given invoices.
// Invoices must already be scoped to the tenant and account by the caller.
func NewPaymentArrangement(in NewArrangementInput) (*PaymentArrangement, error) {
	if err := in.Account.Validate(); err != nil {
		return nil, err
	}
	if len(in.Invoices) == 0 {
		return nil, shared.InvalidInputf("at least one invoice is required")
	}
	if !in.Frequency.IsValid() {
		return nil, shared.InvalidInputf("unknown installment frequency %q", in.Frequency)
	}
	if in.ArrangementNumber == "" {
		return nil, shared.InvalidInputf("arrangement number is required")
	}

	total := decimal.Zero
	ids := make([]uuid.UUID, 0, len(in.Invoices))
	for _, inv := range in.Invoices {
		if inv.TenantID != in.TenantID || inv.Account != in.Account || inv.IsDeleted() {
			return nil, shared.NotFoundf("invoice %s not found for account", inv.ID)
		}
		if !inv.BalanceDue.IsPositive() {
			return nil, shared.InvalidStatef("invoice %s has no outstanding balance", inv.InvoiceNumber)
		}
		total = total.Add(inv.BalanceDue)
		ids = append(ids, inv.ID)
	}

	amounts, err := SplitInstallments(total, in.InstallmentCount)
	if err != nil {
		return nil, err
	}

	start := StartOfDay(in.StartDate)
	installments := make([]ArrangementInstallment, len(amounts))
	for i, amt := range amounts {
		installments[i] = ArrangementInstallment{
			ID:            uuid.New(),
			InstallmentNo: i + 1,
			DueDate:       in.Frequency.step(start, i),
			Amount:        amt,
			PaidAmount:    decimal.Zero,
			Status:        InstallmentPending,
		}
	}

	pa := &PaymentArrangement{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(in.TenantID),
		ArrangementNumber:   in.ArrangementNumber,
		Account:             in.Account,
		InvoiceIDs:          ids,
		InstallmentCount:    in.InstallmentCount,
		Frequency:           in.Frequency,
		TotalAmount:         total,
		PaidAmount:          decimal.Zero,
		RemainingAmount:     total,
		StartDate:           start,
		EndDate:             installments[len(installments)-1].DueDate,
		Status:              ArrangementStatusDraft,
		Notes:               in.Notes,
		Installments:        installments,
	}
	if in.CreatedBy != nil {
		pa.SetCreatedBy(*in.CreatedBy)
	}
	return pa, nil
}

// Installment returns the installment with the given number
func (a *PaymentArrangement) Installment(no int) (*ArrangementInstallment, error) {
	for i := range a.Installments {
		if a.Installments[i].InstallmentNo == no {
			return &a.Installments[i], nil
		}
	}
	return nil, shared.NotFoundf("installment %d not found on arrangement %s", no, a.ArrangementNumber)
}

// Activate moves a DRAFT arrangement to ACTIVE
func (a *PaymentArrangement) Activate(approverID uuid.UUID, at time.Time) error {
	if a.Status != ArrangementStatusDraft {
		return shared.InvalidStatef("only draft arrangements can be activated, current status is %s", a.Status)
	}
	a.Status = ArrangementStatusActive
	a.ApprovedBy = &approverID
	a.ApprovedAt = &at
	a.bump()
	return nil
}

// Cancel ends the arrangement. Not allowed once COMPLETED or CANCELLED.
func (a *PaymentArrangement) Cancel(reason string, at time.Time) error {
	if a.Status.IsTerminal() {
		return shared.InvalidStatef("arrangement %s is %s and cannot be cancelled", a.ArrangementNumber, a.Status)
	}
	a.Status = ArrangementStatusCancelled
	a.CancelReason = reason
	a.CancelledAt = &at
	a.bump()
	return nil
}

// RecordInstallmentPayment marks an installment PAID and re-derives the
// arrangement totals and status. Paying an installment twice is rejected.
func (a *PaymentArrangement) RecordInstallmentPayment(no int, paymentID uuid.UUID, amount decimal.Decimal, at time.Time) error {
	if a.Status.IsTerminal() {
		return shared.InvalidStatef("arrangement %s is %s", a.ArrangementNumber, a.Status)
	}
	if !amount.IsPositive() {
		return shared.InvalidInputf("installment payment must be positive")
	}
	if err := CheckMoneyScale("installment payment", amount); err != nil {
		return shared.InvalidInputf("%s", err.Error())
	}
	inst, err := a.Installment(no)
	if err != nil {
		return err
	}
	if inst.Status == InstallmentPaid {
		return shared.InvalidStatef("installment %d is already paid", no)
	}
	if inst.Status == InstallmentWaived {
		return shared.InvalidStatef("installment %d has been waived", no)
	}
	inst.PaidAmount = inst.PaidAmount.Add(amount)
	inst.Status = InstallmentPaid
	inst.PaymentID = &paymentID
	inst.PaidAt = &at

	a.recompute()
	a.bump()
	return nil
}

// WaiveInstallment forgives a pending installment
func (a *PaymentArrangement) WaiveInstallment(no int, reason string) error {
	if a.Status.IsTerminal() {
		return shared.InvalidStatef("arrangement %s is %s", a.ArrangementNumber, a.Status)
	}
	inst, err := a.Installment(no)
	if err != nil {
		return err
	}
	if inst.Status != InstallmentPending {
		return shared.InvalidStatef("installment %d is %s and cannot be waived", no, inst.Status)
	}
	inst.Status = InstallmentWaived
	inst.WaivedReason = reason

	a.recompute()
	a.bump()
	return nil
}

// recompute derives paid/remaining totals and the status from installments.
// Waived amounts stay in RemainingAmount; they are forgiven, not paid.
func (a *PaymentArrangement) recompute() {
	paid := decimal.Zero
	allSettled := true
	for i := range a.Installments {
		paid = paid.Add(a.Installments[i].PaidAmount)
		if !a.Installments[i].IsSettled() {
			allSettled = false
		}
	}
	a.PaidAmount = paid
	a.RemainingAmount = a.TotalAmount.Sub(paid)
	if a.RemainingAmount.IsNegative() {
		a.RemainingAmount = decimal.Zero
	}
	if allSettled {
		a.Status = ArrangementStatusCompleted
	} else {
		a.Status = ArrangementStatusActive
	}
}

func (a *PaymentArrangement) bump() {
	a.IncrementVersion()
	a.Touch()
}
