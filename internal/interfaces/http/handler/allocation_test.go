package handler_test

import (
	"net/http"
	"testing"
	"time"

	billingapp "github.com/clubledger/backend/internal/application/billing"
	"github.com/clubledger/backend/internal/domain/billing"
	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/clubledger/backend/internal/interfaces/http/handler"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocationHandler_OutstandingInvoices(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember("300.00")
	feb := env.seedInvoice(member.Ref(), "INV-002", "200.00", time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))
	jan := env.seedInvoice(member.Ref(), "INV-001", "100.00", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))

	code, resp := env.do(http.MethodGet, "/accounts/member/"+member.ID.String()+"/outstanding-invoices", nil)
	assertStatus(t, http.StatusOK, code, resp)
	invoices := decodeData[[]billingapp.InvoiceResponse](t, resp)
	require.Len(t, invoices, 2)
	assert.Equal(t, jan.ID, invoices[0].ID)
	assert.Equal(t, feb.ID, invoices[1].ID)

	t.Run("unknown account type", func(t *testing.T) {
		code, resp := env.do(http.MethodGet, "/accounts/vendor/"+member.ID.String()+"/outstanding-invoices", nil)
		assertStatus(t, http.StatusBadRequest, code, resp)
		assert.Equal(t, shared.CodeInvalidInput, resp.Error.Code)
	})

	t.Run("malformed account id", func(t *testing.T) {
		code, resp := env.do(http.MethodGet, "/accounts/member/123/outstanding-invoices", nil)
		assertStatus(t, http.StatusBadRequest, code, resp)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	})
}

func TestAllocationHandler_AllocationPlan(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember("300.00")
	env.seedInvoice(member.Ref(), "INV-001", "100.00", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	env.seedInvoice(member.Ref(), "INV-002", "200.00", time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))

	code, resp := env.do(http.MethodPost, "/accounts/MEMBER/"+member.ID.String()+"/allocation-plan",
		handler.AllocationPlanRequest{Amount: mustDecimal("150")})
	assertStatus(t, http.StatusOK, code, resp)

	plan := decodeData[billing.AllocationPlan](t, resp)
	require.Len(t, plan.Lines, 2)
	assert.True(t, mustDecimal("100").Equal(plan.Lines[0].Amount))
	assert.True(t, mustDecimal("50").Equal(plan.Lines[1].Amount))
	assert.True(t, plan.CreditToAdd.IsZero())

	// planning writes nothing
	code, resp = env.do(http.MethodGet, "/accounts/MEMBER/"+member.ID.String()+"/outstanding-invoices", nil)
	assertStatus(t, http.StatusOK, code, resp)
	invoices := decodeData[[]billingapp.InvoiceResponse](t, resp)
	assert.True(t, mustDecimal("100").Equal(invoices[0].BalanceDue))
}

func TestAllocationHandler_Settle(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember("300.00")
	env.seedInvoice(member.Ref(), "INV-001", "100.00", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	env.seedInvoice(member.Ref(), "INV-002", "200.00", time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))

	req := handler.SettlePaymentRequest{PaymentRequest: handler.PaymentRequest{
		AccountType: "MEMBER",
		AccountID:   member.ID.String(),
		Amount:      mustDecimal("350"),
		Method:      "CARD",
	}}

	code, resp := env.do(http.MethodPost, "/payments/settle", req, handler.IdempotencyKeyHeader, "settle-1")
	assertStatus(t, http.StatusCreated, code, resp)
	result := decodeData[billingapp.SettlementResult](t, resp)
	assert.NotEmpty(t, result.ReceiptNumber)
	assert.True(t, mustDecimal("300").Equal(result.TotalAllocated))
	assert.True(t, mustDecimal("50").Equal(result.CreditAdded))
	require.Len(t, result.Allocations, 2)
	assert.Equal(t, billing.InvoiceStatusPaid, result.Allocations[1].Status)

	t.Run("retry with same key is rejected", func(t *testing.T) {
		code, resp := env.do(http.MethodPost, "/payments/settle", req, handler.IdempotencyKeyHeader, "settle-1")
		assertStatus(t, http.StatusConflict, code, resp)
		assert.Equal(t, shared.CodeDuplicateRequest, resp.Error.Code)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		bad := req
		bad.Amount = mustDecimal("0")
		code, resp := env.do(http.MethodPost, "/payments/settle", bad)
		assertStatus(t, http.StatusBadRequest, code, resp)
		assert.Equal(t, shared.CodeInvalidInput, resp.Error.Code)
	})

	t.Run("unknown method fails validation", func(t *testing.T) {
		bad := req
		bad.Method = "BARTER"
		code, resp := env.do(http.MethodPost, "/payments/settle", bad)
		assertStatus(t, http.StatusBadRequest, code, resp)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	})

	t.Run("unknown account", func(t *testing.T) {
		bad := req
		bad.AccountID = uuid.NewString()
		code, resp := env.do(http.MethodPost, "/payments/settle", bad)
		assertStatus(t, http.StatusNotFound, code, resp)
	})
}

func TestAllocationHandler_Apply(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember("300.00")
	jan := env.seedInvoice(member.Ref(), "INV-001", "100.00", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	feb := env.seedInvoice(member.Ref(), "INV-002", "200.00", time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))

	payment := handler.PaymentRequest{
		AccountType: "MEMBER",
		AccountID:   member.ID.String(),
		Amount:      mustDecimal("120"),
		Method:      "CASH",
	}

	t.Run("explicit plan pays the later invoice first", func(t *testing.T) {
		code, resp := env.do(http.MethodPost, "/payments/apply", handler.ApplyAllocationsRequest{
			PaymentRequest: payment,
			Lines: []handler.AllocationLineRequest{
				{InvoiceID: feb.ID.String(), Amount: mustDecimal("120")},
			},
		})
		assertStatus(t, http.StatusCreated, code, resp)
		result := decodeData[billingapp.SettlementResult](t, resp)
		require.Len(t, result.Allocations, 1)
		assert.Equal(t, feb.ID, result.Allocations[0].InvoiceID)
		assert.True(t, mustDecimal("80").Equal(result.Allocations[0].BalanceDue))
		assert.Equal(t, billing.InvoiceStatusPartiallyPaid, result.Allocations[0].Status)
	})

	t.Run("line above the balance is rejected", func(t *testing.T) {
		code, resp := env.do(http.MethodPost, "/payments/apply", handler.ApplyAllocationsRequest{
			PaymentRequest: payment,
			Lines: []handler.AllocationLineRequest{
				{InvoiceID: jan.ID.String(), Amount: mustDecimal("120")},
			},
		})
		assertStatus(t, http.StatusBadRequest, code, resp)
		assert.Equal(t, shared.CodeInvalidAllocation, resp.Error.Code)
	})

	t.Run("sub-cent line is rejected and nothing is written", func(t *testing.T) {
		exact := payment
		exact.Amount = mustDecimal("10.01")
		code, resp := env.do(http.MethodPost, "/payments/apply", handler.ApplyAllocationsRequest{
			PaymentRequest: exact,
			Lines: []handler.AllocationLineRequest{
				{InvoiceID: jan.ID.String(), Amount: mustDecimal("10.005")},
			},
		})
		assertStatus(t, http.StatusBadRequest, code, resp)
		assert.Equal(t, shared.CodeInvalidAllocation, resp.Error.Code)

		code, resp = env.do(http.MethodGet, "/accounts/member/"+member.ID.String()+"/outstanding-invoices", nil)
		assertStatus(t, http.StatusOK, code, resp)
		invoices := decodeData[[]billingapp.InvoiceResponse](t, resp)
		require.NotEmpty(t, invoices)
		assert.Equal(t, jan.ID, invoices[0].ID)
		assert.True(t, mustDecimal("100").Equal(invoices[0].BalanceDue))
	})

	t.Run("malformed invoice id", func(t *testing.T) {
		code, resp := env.do(http.MethodPost, "/payments/apply", handler.ApplyAllocationsRequest{
			PaymentRequest: payment,
			Lines:          []handler.AllocationLineRequest{{InvoiceID: "nope", Amount: mustDecimal("1")}},
		})
		assertStatus(t, http.StatusBadRequest, code, resp)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	})
}
