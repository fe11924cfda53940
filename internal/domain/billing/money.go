package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places money is held at (minor units).
const MoneyScale int32 = 2

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds half away from zero to the minor unit.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// TruncateMoney drops anything below the minor unit.
func TruncateMoney(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(MoneyScale)
}

// HasMinorPrecision reports whether d fits in whole minor units.
func HasMinorPrecision(d decimal.Decimal) bool {
	return d.Equal(TruncateMoney(d))
}

// CheckMoneyScale rejects amounts finer than the minor unit. The stored
// columns hold two places, so a sub-cent amount would be rounded on write.
func CheckMoneyScale(field string, d decimal.Decimal) error {
	if !HasMinorPrecision(d) {
		return fmt.Errorf("%s %s has more than %d decimal places", field, d.String(), MoneyScale)
	}
	return nil
}

// ToMinorUnits converts an amount to integer cents.
func ToMinorUnits(d decimal.Decimal) int64 {
	return RoundMoney(d).Mul(hundred).IntPart()
}

// SumAmounts adds amounts exactly.
func SumAmounts(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
