package billing

import (
	"testing"
	"time"

	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prorationInput(method ProrationMethod, effective time.Time, amount string) ProrationInput {
	return ProrationInput{
		Method:           method,
		PeriodStart:      date(2024, time.April, 1),
		PeriodEnd:        date(2024, time.May, 1),
		EffectiveDate:    effective,
		FullPeriodAmount: decimal.RequireFromString(amount),
	}
}

func TestCalculateProration_Boundaries(t *testing.T) {
	t.Run("effective on period start charges in full", func(t *testing.T) {
		res, err := CalculateProration(prorationInput(ProrationDaily, date(2024, time.April, 1), "300"))
		require.NoError(t, err)
		assert.True(t, res.ProratedAmount.Equal(decimal.NewFromInt(300)))
		assert.True(t, res.ProrationFactor.Equal(decimal.NewFromInt(1)))
	})

	t.Run("effective before period start charges in full", func(t *testing.T) {
		res, err := CalculateProration(prorationInput(ProrationMonthly, date(2024, time.March, 20), "300"))
		require.NoError(t, err)
		assert.True(t, res.ProratedAmount.Equal(decimal.NewFromInt(300)))
	})

	t.Run("effective on period end charges nothing", func(t *testing.T) {
		res, err := CalculateProration(prorationInput(ProrationDaily, date(2024, time.May, 1), "300"))
		require.NoError(t, err)
		assert.True(t, res.ProratedAmount.IsZero())
		assert.True(t, res.ProrationFactor.IsZero())
		assert.Equal(t, 0, res.DaysProrated)
	})

	t.Run("time of day is ignored", func(t *testing.T) {
		in := prorationInput(ProrationDaily, time.Date(2024, time.April, 1, 18, 0, 0, 0, time.UTC), "300")
		res, err := CalculateProration(in)
		require.NoError(t, err)
		assert.True(t, res.ProratedAmount.Equal(decimal.NewFromInt(300)))
	})
}

func TestCalculateProration_Daily(t *testing.T) {
	res, err := CalculateProration(prorationInput(ProrationDaily, date(2024, time.April, 16), "300"))
	require.NoError(t, err)
	assert.Equal(t, 30, res.DaysInPeriod)
	assert.Equal(t, 15, res.DaysProrated)
	assert.Equal(t, "0.5", res.ProrationFactor.String())
	assert.Equal(t, "150.00", res.ProratedAmount.StringFixed(2))
	assert.Equal(t, "Daily proration: 15 of 30 days", res.Description)
}

func TestCalculateProration_DailyRounding(t *testing.T) {
	in := ProrationInput{
		Method:           ProrationDaily,
		PeriodStart:      date(2024, time.January, 1),
		PeriodEnd:        date(2024, time.February, 1),
		EffectiveDate:    date(2024, time.January, 22),
		FullPeriodAmount: decimal.NewFromInt(100),
	}
	res, err := CalculateProration(in)
	require.NoError(t, err)
	assert.Equal(t, 10, res.DaysProrated)
	assert.Equal(t, "32.26", res.ProratedAmount.StringFixed(2))
	assert.Equal(t, "0.3226", res.ProrationFactor.String())
}

func TestCalculateProration_Monthly(t *testing.T) {
	tests := []struct {
		name       string
		end        time.Time
		effective  time.Time
		wantAmount string
	}{
		{"partial month rounds up", date(2024, time.April, 1), date(2024, time.February, 15), "600.00"},
		{"whole months", date(2024, time.April, 1), date(2024, time.February, 1), "600.00"},
		{"one partial month left", date(2024, time.April, 1), date(2024, time.March, 20), "300.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := CalculateProration(ProrationInput{
				Method:           ProrationMonthly,
				PeriodStart:      date(2024, time.January, 1),
				PeriodEnd:        tt.end,
				EffectiveDate:    tt.effective,
				FullPeriodAmount: decimal.NewFromInt(900),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantAmount, res.ProratedAmount.StringFixed(2))
		})
	}
}

func TestCalculateProration_None(t *testing.T) {
	res, err := CalculateProration(prorationInput(ProrationNone, date(2024, time.April, 16), "300"))
	require.NoError(t, err)
	assert.True(t, res.ProratedAmount.Equal(decimal.NewFromInt(300)))
	assert.True(t, res.ProrationFactor.Equal(decimal.NewFromInt(1)))
}

func TestCalculateProration_InvalidInput(t *testing.T) {
	in := prorationInput(ProrationDaily, date(2024, time.April, 16), "300")
	in.PeriodEnd = in.PeriodStart
	_, err := CalculateProration(in)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	in = prorationInput(ProrationMethod("WEEKLY"), date(2024, time.April, 16), "300")
	_, err = CalculateProration(in)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	in = prorationInput(ProrationDaily, date(2024, time.April, 16), "-1")
	_, err = CalculateProration(in)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
