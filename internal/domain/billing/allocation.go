package billing

import (
	"time"

	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OutstandingInvoice is the planner's view of an invoice
type OutstandingInvoice struct {
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	DueDate       time.Time       `json:"due_date"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
}

// ToOutstanding converts invoices into planner input, preserving order
func ToOutstanding(invoices []Invoice) []OutstandingInvoice {
	out := make([]OutstandingInvoice, len(invoices))
	for i, inv := range invoices {
		out[i] = OutstandingInvoice{
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			DueDate:       inv.DueDate,
			BalanceDue:    inv.BalanceDue,
		}
	}
	return out
}

// AllocationLine is the amount of a payment applied to one invoice
type AllocationLine struct {
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
}

// AllocationPlan is the result of FIFO planning
type AllocationPlan struct {
	PaymentAmount    decimal.Decimal  `json:"payment_amount"`
	Lines            []AllocationLine `json:"lines"`
	TotalAllocated   decimal.Decimal  `json:"total_allocated"`
	RemainingPayment decimal.Decimal  `json:"remaining_payment"`
	CreditToAdd      decimal.Decimal  `json:"credit_to_add"`
}

// CalculateFIFOAllocation walks invoices in the given order, applying as much
// of paymentAmount to each as its balance allows. The slice is not re-sorted:
// callers pass invoices oldest first with a deterministic tie-break.
func CalculateFIFOAllocation(invoices []OutstandingInvoice, paymentAmount decimal.Decimal) (AllocationPlan, error) {
	if paymentAmount.IsNegative() {
		return AllocationPlan{}, shared.InvalidAllocationf("payment amount cannot be negative")
	}

	remaining := paymentAmount
	total := decimal.Zero
	lines := make([]AllocationLine, 0, len(invoices))

	for _, inv := range invoices {
		if !remaining.IsPositive() {
			break
		}
		if !inv.BalanceDue.IsPositive() {
			continue
		}
		amount := decimal.Min(remaining, inv.BalanceDue)
		lines = append(lines, AllocationLine{
			InvoiceID:     inv.InvoiceID,
			InvoiceNumber: inv.InvoiceNumber,
			Amount:        amount,
		})
		total = total.Add(amount)
		remaining = remaining.Sub(amount)
	}

	credit := decimal.Zero
	if remaining.IsPositive() {
		credit = remaining
	}

	return AllocationPlan{
		PaymentAmount:    paymentAmount,
		Lines:            lines,
		TotalAllocated:   total,
		RemainingPayment: remaining,
		CreditToAdd:      credit,
	}, nil
}

// TotalOfLines sums allocation line amounts
func TotalOfLines(lines []AllocationLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}
	return total
}

// ValidateLines checks a caller-supplied allocation against the payment
// before any store access: positive whole-cent amounts, no duplicate invoices
// and a sum within the payment amount.
func ValidateLines(lines []AllocationLine, paymentAmount decimal.Decimal) error {
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, l := range lines {
		if !l.Amount.IsPositive() {
			return shared.InvalidAllocationf("allocation to invoice %s must be positive", l.InvoiceID)
		}
		if !HasMinorPrecision(l.Amount) {
			return shared.InvalidAllocationf("allocation %s to invoice %s has more than %d decimal places",
				l.Amount.String(), l.InvoiceID, MoneyScale)
		}
		if _, dup := seen[l.InvoiceID]; dup {
			return shared.InvalidAllocationf("invoice %s is allocated more than once", l.InvoiceID)
		}
		seen[l.InvoiceID] = struct{}{}
	}
	if total := TotalOfLines(lines); total.GreaterThan(paymentAmount) {
		return shared.InvalidAllocationf("allocations total %s exceeds payment amount %s",
			total.StringFixed(MoneyScale), paymentAmount.StringFixed(MoneyScale))
	}
	return nil
}
