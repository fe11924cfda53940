package billing

import (
	"fmt"
	"time"

	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LateFeeType selects the late fee formula
type LateFeeType string

const (
	LateFeeFixed      LateFeeType = "FIXED"
	LateFeePercentage LateFeeType = "PERCENTAGE"
	LateFeeTiered     LateFeeType = "TIERED"
)

// IsValid checks if the late fee type is known
func (t LateFeeType) IsValid() bool {
	switch t {
	case LateFeeFixed, LateFeePercentage, LateFeeTiered:
		return true
	}
	return false
}

// LateFeeConfig is the late fee policy applied to an overdue balance.
// Percentage is expressed in percent (1.5 means 1.5%). A zero or negative
// MaxFee means uncapped.
type LateFeeConfig struct {
	Type            LateFeeType
	Amount          decimal.Decimal
	Percentage      decimal.Decimal
	MaxFee          decimal.Decimal
	GracePeriodDays int
}

// Validate checks the policy values
func (c LateFeeConfig) Validate() error {
	if !c.Type.IsValid() {
		return shared.Configurationf("unknown late fee type %q", c.Type)
	}
	if c.GracePeriodDays < 0 {
		return shared.Configurationf("grace period cannot be negative")
	}
	if c.Amount.IsNegative() || c.Percentage.IsNegative() {
		return shared.Configurationf("late fee amount and percentage cannot be negative")
	}
	return nil
}

// LateFeeResult is the outcome of a late fee calculation
type LateFeeResult struct {
	FeeAmount           decimal.Decimal `json:"fee_amount"`
	DaysOverdue         int             `json:"days_overdue"`
	AppliedDate         time.Time       `json:"applied_date"`
	Description         string          `json:"description"`
	IsWithinGracePeriod bool            `json:"is_within_grace_period"`
}

// tier is one step of the TIERED multiplier schedule
type tier struct {
	upTo       int // inclusive upper bound of effective days overdue, 0 = unbounded
	multiplier decimal.Decimal
}

var lateFeeTiers = []tier{
	{upTo: 30, multiplier: decimal.NewFromInt(1)},
	{upTo: 60, multiplier: decimal.RequireFromString("1.5")},
	{upTo: 90, multiplier: decimal.NewFromInt(2)},
	{upTo: 0, multiplier: decimal.RequireFromString("2.5")},
}

// TierMultiplier returns the TIERED multiplier for the days past the grace period.
func TierMultiplier(effectiveDaysOverdue int) decimal.Decimal {
	for _, t := range lateFeeTiers {
		if t.upTo == 0 || effectiveDaysOverdue <= t.upTo {
			return t.multiplier
		}
	}
	return lateFeeTiers[len(lateFeeTiers)-1].multiplier
}

// DaysOverdue is the number of whole days from dueDate to calculationDate.
// Zero or negative while the invoice is not yet due.
func DaysOverdue(dueDate, calculationDate time.Time) int {
	return DaysBetween(dueDate, calculationDate)
}

// ShouldApplyLateFee reports whether a fee accrues on calculationDate.
// Callers selecting invoices for a dunning run use this without computing fees.
func ShouldApplyLateFee(dueDate time.Time, gracePeriodDays int, calculationDate time.Time) bool {
	return DaysOverdue(dueDate, calculationDate) > gracePeriodDays
}

// CalculateLateFee computes the fee owed on invoiceBalance as of calculationDate.
func CalculateLateFee(invoiceBalance decimal.Decimal, dueDate time.Time, cfg LateFeeConfig, calculationDate time.Time) (LateFeeResult, error) {
	if err := cfg.Validate(); err != nil {
		return LateFeeResult{}, err
	}
	applied := StartOfDay(calculationDate)
	days := DaysOverdue(dueDate, calculationDate)

	if days <= cfg.GracePeriodDays {
		desc := fmt.Sprintf("Within grace period (%d of %d days)", max(days, 0), cfg.GracePeriodDays)
		if days <= 0 {
			desc = "Not yet due"
		}
		return LateFeeResult{
			FeeAmount:           decimal.Zero,
			DaysOverdue:         days,
			AppliedDate:         applied,
			Description:         desc,
			IsWithinGracePeriod: true,
		}, nil
	}

	effective := days - cfg.GracePeriodDays

	var fee decimal.Decimal
	var desc string
	switch cfg.Type {
	case LateFeeFixed:
		fee = cfg.Amount
		desc = fmt.Sprintf("flat %s", RoundMoney(cfg.Amount).StringFixed(MoneyScale))
	case LateFeePercentage:
		fee = invoiceBalance.Mul(cfg.Percentage).Div(hundred)
		desc = fmt.Sprintf("%s%% of %s", cfg.Percentage.String(), RoundMoney(invoiceBalance).StringFixed(MoneyScale))
	case LateFeeTiered:
		m := TierMultiplier(effective)
		fee = invoiceBalance.Mul(cfg.Percentage).Div(hundred).Mul(m)
		desc = fmt.Sprintf("%s%% of %s at %sx for %d days past grace",
			cfg.Percentage.String(), RoundMoney(invoiceBalance).StringFixed(MoneyScale), m.String(), effective)
	}

	if cfg.MaxFee.IsPositive() && fee.GreaterThan(cfg.MaxFee) {
		fee = cfg.MaxFee
		desc += fmt.Sprintf(", capped at %s", RoundMoney(cfg.MaxFee).StringFixed(MoneyScale))
	}

	return LateFeeResult{
		FeeAmount:           RoundMoney(fee),
		DaysOverdue:         days,
		AppliedDate:         applied,
		Description:         humanize(string(cfg.Type)) + ": " + desc,
		IsWithinGracePeriod: false,
	}, nil
}
