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

func (e *testEnv) createArrangement(count int) *billingapp.ArrangementResponse {
	e.t.Helper()
	member := e.seedMember("300.00")
	jan := e.seedInvoice(member.Ref(), "INV-001", "100.00", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	feb := e.seedInvoice(member.Ref(), "INV-002", "200.00", time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))

	code, resp := e.do(http.MethodPost, "/arrangements", handler.CreateArrangementRequest{
		AccountType:      "member",
		AccountID:        member.ID.String(),
		InvoiceIDs:       []string{jan.ID.String(), feb.ID.String()},
		InstallmentCount: count,
		Frequency:        "MONTHLY",
		StartDate:        "2024-03-31",
	})
	assertStatus(e.t, http.StatusCreated, code, resp)
	out := decodeData[billingapp.ArrangementResponse](e.t, resp)
	return &out
}

func TestArrangementHandler_Create(t *testing.T) {
	env := newTestEnv(t)
	a := env.createArrangement(3)

	assert.Equal(t, billing.ArrangementStatusDraft, a.Status)
	assert.Equal(t, billing.AccountTypeMember, a.AccountType)
	assert.True(t, mustDecimal("300").Equal(a.TotalAmount))
	require.Len(t, a.Installments, 3)
	assert.True(t, mustDecimal("100").Equal(a.Installments[0].Amount))
	// month-end start clamps into April
	assert.True(t, time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC).Equal(a.Installments[1].DueDate))
	assert.True(t, a.Installments[2].DueDate.Equal(a.EndDate))

	t.Run("duplicate invoice ids", func(t *testing.T) {
		member := env.seedMember("50.00")
		inv := env.seedInvoice(member.Ref(), "INV-010", "50.00", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
		code, resp := env.do(http.MethodPost, "/arrangements", handler.CreateArrangementRequest{
			AccountType:      "MEMBER",
			AccountID:        member.ID.String(),
			InvoiceIDs:       []string{inv.ID.String(), inv.ID.String()},
			InstallmentCount: 2,
			Frequency:        "WEEKLY",
			StartDate:        "2024-03-01",
		})
		assertStatus(t, http.StatusBadRequest, code, resp)
		assert.Equal(t, shared.CodeInvalidInput, resp.Error.Code)
	})

	t.Run("invoice of another account", func(t *testing.T) {
		member := env.seedMember("0.00")
		ids := make([]string, len(a.InvoiceIDs))
		for i, id := range a.InvoiceIDs {
			ids[i] = id.String()
		}
		code, resp := env.do(http.MethodPost, "/arrangements", handler.CreateArrangementRequest{
			AccountType:      "MEMBER",
			AccountID:        member.ID.String(),
			InvoiceIDs:       ids,
			InstallmentCount: 2,
			Frequency:        "WEEKLY",
			StartDate:        "2024-03-01",
		})
		assertStatus(t, http.StatusNotFound, code, resp)
	})

	t.Run("bad start date", func(t *testing.T) {
		code, resp := env.do(http.MethodPost, "/arrangements", handler.CreateArrangementRequest{
			AccountType:      "MEMBER",
			AccountID:        uuid.NewString(),
			InvoiceIDs:       []string{uuid.NewString()},
			InstallmentCount: 2,
			Frequency:        "WEEKLY",
			StartDate:        "01/03/2024",
		})
		assertStatus(t, http.StatusBadRequest, code, resp)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	})
}

func TestArrangementHandler_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	a := env.createArrangement(2)
	base := "/arrangements/" + a.ID.String()

	code, resp := env.do(http.MethodPost, base+"/activate", nil)
	assertStatus(t, http.StatusOK, code, resp)
	active := decodeData[billingapp.ArrangementResponse](t, resp)
	assert.Equal(t, billing.ArrangementStatusActive, active.Status)
	require.NotNil(t, active.ApprovedBy)
	assert.Equal(t, env.userID, *active.ApprovedBy)

	code, resp = env.do(http.MethodPost, base+"/activate", nil)
	assertStatus(t, http.StatusUnprocessableEntity, code, resp)
	assert.Equal(t, shared.CodeInvalidState, resp.Error.Code)

	pay := handler.InstallmentPaymentRequest{PaymentID: uuid.NewString(), Amount: mustDecimal("150")}
	code, resp = env.do(http.MethodPost, base+"/installments/1/payments", pay)
	assertStatus(t, http.StatusOK, code, resp)
	paid := decodeData[billingapp.ArrangementResponse](t, resp)
	assert.Equal(t, billing.InstallmentPaid, paid.Installments[0].Status)
	assert.True(t, mustDecimal("150").Equal(paid.RemainingAmount))

	code, resp = env.do(http.MethodPost, base+"/installments/1/payments", pay)
	assertStatus(t, http.StatusUnprocessableEntity, code, resp)
	assert.Equal(t, shared.CodeInvalidState, resp.Error.Code)

	code, resp = env.do(http.MethodPost, base+"/installments/9/waive", handler.WaiveInstallmentRequest{Reason: "hardship"})
	assertStatus(t, http.StatusNotFound, code, resp)

	code, resp = env.do(http.MethodPost, base+"/installments/2/waive", handler.WaiveInstallmentRequest{Reason: "hardship"})
	assertStatus(t, http.StatusOK, code, resp)
	done := decodeData[billingapp.ArrangementResponse](t, resp)
	assert.Equal(t, billing.ArrangementStatusCompleted, done.Status)
	assert.Equal(t, "hardship", done.Installments[1].WaivedReason)
	assert.True(t, mustDecimal("150").Equal(done.RemainingAmount))

	code, resp = env.do(http.MethodPost, base+"/cancel", handler.CancelArrangementRequest{Reason: "too late"})
	assertStatus(t, http.StatusUnprocessableEntity, code, resp)

	code, resp = env.do(http.MethodGet, base, nil)
	assertStatus(t, http.StatusOK, code, resp)
	got := decodeData[billingapp.ArrangementResponse](t, resp)
	assert.Equal(t, billing.ArrangementStatusCompleted, got.Status)
	assert.Equal(t, a.ArrangementNumber, got.ArrangementNumber)
}

func TestArrangementHandler_Cancel(t *testing.T) {
	env := newTestEnv(t)
	a := env.createArrangement(4)

	code, resp := env.do(http.MethodPost, "/arrangements/"+a.ID.String()+"/cancel", handler.CancelArrangementRequest{Reason: "member resigned"})
	assertStatus(t, http.StatusOK, code, resp)
	cancelled := decodeData[billingapp.ArrangementResponse](t, resp)
	assert.Equal(t, billing.ArrangementStatusCancelled, cancelled.Status)
	assert.Equal(t, "member resigned", cancelled.CancelReason)
	assert.NotNil(t, cancelled.CancelledAt)

	t.Run("reason is required", func(t *testing.T) {
		code, resp := env.do(http.MethodPost, "/arrangements/"+a.ID.String()+"/cancel", handler.CancelArrangementRequest{})
		assertStatus(t, http.StatusBadRequest, code, resp)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	})
}

func TestArrangementHandler_GetUnknown(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(http.MethodGet, "/arrangements/"+uuid.NewString(), nil)
	assertStatus(t, http.StatusNotFound, code, resp)
	assert.Equal(t, shared.CodeNotFound, resp.Error.Code)

	code, resp = env.do(http.MethodGet, "/arrangements/not-a-uuid", nil)
	assertStatus(t, http.StatusBadRequest, code, resp)
}
