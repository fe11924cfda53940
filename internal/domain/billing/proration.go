package billing

import (
	"fmt"
	"time"

	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProrationMethod selects how a partial period is charged
type ProrationMethod string

const (
	ProrationNone    ProrationMethod = "NONE"
	ProrationDaily   ProrationMethod = "DAILY"
	ProrationMonthly ProrationMethod = "MONTHLY"
)

// IsValid checks if the proration method is known
func (m ProrationMethod) IsValid() bool {
	switch m {
	case ProrationNone, ProrationDaily, ProrationMonthly:
		return true
	}
	return false
}

// ProrationInput describes a charge that starts part-way through a period
type ProrationInput struct {
	Method           ProrationMethod
	PeriodStart      time.Time
	PeriodEnd        time.Time
	EffectiveDate    time.Time
	FullPeriodAmount decimal.Decimal
}

// ProrationResult is the prorated charge and how it was derived
type ProrationResult struct {
	ProratedAmount  decimal.Decimal `json:"prorated_amount"`
	DaysInPeriod    int             `json:"days_in_period"`
	DaysProrated    int             `json:"days_prorated"`
	ProrationFactor decimal.Decimal `json:"proration_factor"`
	Description     string          `json:"description"`
}

// factorPlaces is the precision the factor is reported at; amounts are
// computed from the exact ratio.
const factorPlaces int32 = 4

// CalculateProration computes the charge for the part of the period from
// EffectiveDate to PeriodEnd. Boundaries are checked before the method:
// on or before the start charges in full, on or after the end charges nothing.
func CalculateProration(in ProrationInput) (ProrationResult, error) {
	if !in.Method.IsValid() {
		return ProrationResult{}, shared.InvalidInputf("unknown proration method %q", in.Method)
	}
	if in.FullPeriodAmount.IsNegative() {
		return ProrationResult{}, shared.InvalidInputf("full period amount cannot be negative")
	}
	start := StartOfDay(in.PeriodStart)
	end := StartOfDay(in.PeriodEnd)
	effective := StartOfDay(in.EffectiveDate)
	if !end.After(start) {
		return ProrationResult{}, shared.InvalidInputf("period end must be after period start")
	}

	totalDays := DaysBetween(start, end)
	full := RoundMoney(in.FullPeriodAmount)

	if !effective.After(start) {
		return ProrationResult{
			ProratedAmount:  full,
			DaysInPeriod:    totalDays,
			DaysProrated:    totalDays,
			ProrationFactor: decimal.NewFromInt(1),
			Description:     "Effective from period start, full charge",
		}, nil
	}
	if !effective.Before(end) {
		return ProrationResult{
			ProratedAmount:  decimal.Zero,
			DaysInPeriod:    totalDays,
			DaysProrated:    0,
			ProrationFactor: decimal.Zero,
			Description:     "Effective after period end, no charge",
		}, nil
	}

	remainingDays := DaysBetween(effective, end)

	switch in.Method {
	case ProrationDaily:
		num := decimal.NewFromInt(int64(remainingDays))
		den := decimal.NewFromInt(int64(totalDays))
		return ProrationResult{
			ProratedAmount:  RoundMoney(full.Mul(num).Div(den)),
			DaysInPeriod:    totalDays,
			DaysProrated:    remainingDays,
			ProrationFactor: num.DivRound(den, factorPlaces),
			Description:     fmt.Sprintf("%s proration: %d of %d days", humanize(string(in.Method)), remainingDays, totalDays),
		}, nil

	case ProrationMonthly:
		totalMonths := wholeMonthsCeil(start, end)
		remainingMonths := wholeMonthsCeil(effective, end)
		if remainingMonths > totalMonths {
			remainingMonths = totalMonths
		}
		num := decimal.NewFromInt(int64(remainingMonths))
		den := decimal.NewFromInt(int64(totalMonths))
		return ProrationResult{
			ProratedAmount:  RoundMoney(full.Mul(num).Div(den)),
			DaysInPeriod:    totalDays,
			DaysProrated:    remainingDays,
			ProrationFactor: num.DivRound(den, factorPlaces),
			Description:     fmt.Sprintf("%s proration: %d of %d months", humanize(string(in.Method)), remainingMonths, totalMonths),
		}, nil

	default:
		return ProrationResult{
			ProratedAmount:  full,
			DaysInPeriod:    totalDays,
			DaysProrated:    remainingDays,
			ProrationFactor: decimal.NewFromInt(1),
			Description:     "Proration disabled, full charge",
		}, nil
	}
}

// wholeMonthsCeil counts calendar months from a to b, rounding a partial
// trailing month up. Never less than one for a non-empty range.
func wholeMonthsCeil(a, b time.Time) int {
	n := MonthsBetween(a, b)
	if b.Day() > a.Day() {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}
