package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/clubledger/backend/internal/domain/billing"
	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/clubledger/backend/internal/interfaces/http/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculatorHandler_BillingPeriod(t *testing.T) {
	env := newTestEnv(t)
	req := handler.BillingPeriodRequest{
		Frequency:      "MONTHLY",
		Timing:         "ADVANCE",
		Alignment:      "CALENDAR",
		BillingDay:     1,
		ReferenceDate:  "2024-01-15",
		InvoiceDueDays: 30,
	}

	t.Run("single period", func(t *testing.T) {
		code, resp := env.do(http.MethodPost, "/calculators/billing-period", req)
		assertStatus(t, http.StatusOK, code, resp)
		period := decodeData[billing.BillingPeriod](t, resp)
		assert.True(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).Equal(period.PeriodStart))
		assert.True(t, time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC).Equal(period.PeriodEnd))
		assert.Equal(t, "January 2024", period.Description)
	})

	t.Run("consecutive periods", func(t *testing.T) {
		multi := req
		multi.Count = 3
		code, resp := env.do(http.MethodPost, "/calculators/billing-period", multi)
		assertStatus(t, http.StatusOK, code, resp)
		periods := decodeData[[]billing.BillingPeriod](t, resp)
		require.Len(t, periods, 3)
		assert.Equal(t, "March 2024", periods[2].Description)
		for i := 1; i < len(periods); i++ {
			assert.True(t, billing.AddDays(periods[i-1].PeriodEnd, 1).Equal(periods[i].PeriodStart))
		}
	})

	t.Run("anniversary without join date", func(t *testing.T) {
		bad := req
		bad.Alignment = "ANNIVERSARY"
		code, resp := env.do(http.MethodPost, "/calculators/billing-period", bad)
		assertStatus(t, http.StatusBadRequest, code, resp)
		assert.Equal(t, shared.CodeConfiguration, resp.Error.Code)
	})

	t.Run("unknown frequency", func(t *testing.T) {
		bad := req
		bad.Frequency = "FORTNIGHTLY"
		code, resp := env.do(http.MethodPost, "/calculators/billing-period", bad)
		assertStatus(t, http.StatusBadRequest, code, resp)
		assert.Equal(t, shared.CodeConfiguration, resp.Error.Code)
	})
}

func TestCalculatorHandler_Proration(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(http.MethodPost, "/calculators/proration", handler.ProrationRequest{
		Method:           "DAILY",
		PeriodStart:      "2024-04-01",
		PeriodEnd:        "2024-05-01",
		EffectiveDate:    "2024-04-16",
		FullPeriodAmount: mustDecimal("300"),
	})
	assertStatus(t, http.StatusOK, code, resp)
	result := decodeData[billing.ProrationResult](t, resp)
	assert.Equal(t, 30, result.DaysInPeriod)
	assert.Equal(t, 15, result.DaysProrated)
	assert.Equal(t, "150.00", result.ProratedAmount.StringFixed(2))

	t.Run("missing dates", func(t *testing.T) {
		code, resp := env.do(http.MethodPost, "/calculators/proration", handler.ProrationRequest{Method: "DAILY"})
		assertStatus(t, http.StatusBadRequest, code, resp)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	})
}

func TestCalculatorHandler_LateFee(t *testing.T) {
	env := newTestEnv(t)
	req := handler.LateFeeRequest{
		InvoiceBalance:  mustDecimal("1000"),
		DueDate:         "2024-01-01",
		CalculationDate: "2024-02-01",
		Type:            "PERCENTAGE",
		Percentage:      mustDecimal("1.5"),
	}

	code, resp := env.do(http.MethodPost, "/calculators/late-fee", req)
	assertStatus(t, http.StatusOK, code, resp)
	result := decodeData[handler.LateFeeResponse](t, resp)
	assert.Equal(t, "15.00", result.FeeAmount.StringFixed(2))
	assert.Equal(t, 31, result.DaysOverdue)
	assert.True(t, result.ShouldApply)

	t.Run("within grace", func(t *testing.T) {
		grace := req
		grace.GracePeriodDays = 31
		code, resp := env.do(http.MethodPost, "/calculators/late-fee", grace)
		assertStatus(t, http.StatusOK, code, resp)
		result := decodeData[handler.LateFeeResponse](t, resp)
		assert.True(t, result.FeeAmount.IsZero())
		assert.True(t, result.IsWithinGracePeriod)
		assert.False(t, result.ShouldApply)
	})

	t.Run("unknown fee type", func(t *testing.T) {
		bad := req
		bad.Type = "COMPOUND"
		code, resp := env.do(http.MethodPost, "/calculators/late-fee", bad)
		assertStatus(t, http.StatusBadRequest, code, resp)
		assert.Equal(t, shared.CodeConfiguration, resp.Error.Code)
	})
}
