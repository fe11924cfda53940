package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCheckMoneyScale(t *testing.T) {
	assert.NoError(t, CheckMoneyScale("amount", dec("10.01")))
	assert.NoError(t, CheckMoneyScale("amount", dec("10.010")))
	assert.Error(t, CheckMoneyScale("amount", dec("10.005")))
	assert.True(t, HasMinorPrecision(dec("7")))
	assert.False(t, HasMinorPrecision(dec("0.001")))
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(12345), ToMinorUnits(dec("123.45")))
	assert.Equal(t, int64(4975), ToMinorUnits(dec("49.75")))
	assert.Equal(t, int64(0), ToMinorUnits(decimal.Zero))
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, "0.13", RoundMoney(dec("0.125")).StringFixed(2))
	assert.Equal(t, "-0.13", RoundMoney(dec("-0.125")).StringFixed(2))
	assert.Equal(t, "0.12", TruncateMoney(dec("0.129")).StringFixed(2))
}

func TestSumAmounts(t *testing.T) {
	// 0.1 + 0.2 is exact in decimal
	assert.True(t, SumAmounts(dec("0.1"), dec("0.2")).Equal(dec("0.3")))
	assert.True(t, SumAmounts().IsZero())
}

func TestFormatDocumentNumber(t *testing.T) {
	assert.Equal(t, "RCP-2024-00001", FormatDocumentNumber(string(DocumentReceipt), 2024, 1))
	assert.Equal(t, "PA-2025-00123", FormatDocumentNumber(string(DocumentArrangement), 2025, 123))
	assert.Equal(t, "RCP-2024-100000", FormatDocumentNumber("RCP", 2024, 100000))
}
