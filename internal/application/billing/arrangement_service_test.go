package billing

import (
	"context"
	"testing"
	"time"

	"github.com/clubledger/backend/internal/domain/billing"
	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newArrangementFixture(t *testing.T) (*ledgerMocks, *ArrangementService) {
	t.Helper()
	m := newLedgerMocks()
	svc := NewArrangementService(m.scope(), m.arrangements, zap.NewNop())
	svc.SetEventPublisher(m.publisher)
	svc.now = func() time.Time { return fixedNow }
	return m, svc
}

func draftArrangement(t *testing.T, tenant uuid.UUID, ref billing.AccountRef, total string, count int) *billing.PaymentArrangement {
	t.Helper()
	inv := newTestInvoice(tenant, ref, "INV-0100", total, fixedNow)
	a, err := billing.NewPaymentArrangement(billing.NewArrangementInput{
		TenantID:          tenant,
		ArrangementNumber: "PA-2024-00001",
		Account:           ref,
		Invoices:          []billing.Invoice{inv},
		InstallmentCount:  count,
		Frequency:         billing.InstallmentMonthly,
		StartDate:         fixedNow,
	})
	require.NoError(t, err)
	return a
}

func TestCreateArrangement(t *testing.T) {
	m, svc := newArrangementFixture(t)
	tenant := uuid.New()
	ref := billing.AccountRef{ID: uuid.New(), Type: billing.AccountTypeCityLedger}
	a := newTestInvoice(tenant, ref, "INV-0001", "60.00", fixedNow)
	b := newTestInvoice(tenant, ref, "INV-0002", "40.00", fixedNow)
	ids := []uuid.UUID{a.ID, b.ID}

	m.invoices.On("FindByIDsForAccount", mock.Anything, tenant, ref, ids).Return([]billing.Invoice{b, a}, nil)
	m.sequences.On("Next", mock.Anything, tenant, billing.DocumentArrangement, 2024).Return(int64(7), nil)
	m.arrangements.On("Create", mock.Anything, mock.AnythingOfType("*billing.PaymentArrangement")).Return(nil)
	m.publisher.On("Publish", mock.Anything, mock.AnythingOfType("*billing.ArrangementEvent")).Return(nil)

	resp, err := svc.CreateArrangement(context.Background(), CreateArrangementRequest{
		TenantID:         tenant,
		Account:          ref,
		InvoiceIDs:       ids,
		InstallmentCount: 3,
		Frequency:        billing.InstallmentWeekly,
		StartDate:        time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "PA-2024-00007", resp.ArrangementNumber)
	assert.Equal(t, billing.ArrangementStatusDraft, resp.Status)
	assert.Equal(t, ids, resp.InvoiceIDs)
	assert.True(t, resp.TotalAmount.Equal(dec("100")))
	require.Len(t, resp.Installments, 3)
	assert.True(t, resp.Installments[0].Amount.Equal(dec("33.33")))
	assert.True(t, resp.Installments[2].Amount.Equal(dec("33.34")))
	assert.Equal(t, time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC), resp.EndDate)
	m.arrangements.AssertExpectations(t)
	m.publisher.AssertExpectations(t)
}

func TestCreateArrangement_Validation(t *testing.T) {
	tenant := uuid.New()
	ref := billing.AccountRef{ID: uuid.New(), Type: billing.AccountTypeMember}
	dup := uuid.New()

	tests := []struct {
		name    string
		req     CreateArrangementRequest
		found   []billing.Invoice
		wantErr error
	}{
		{
			name:    "no invoices",
			req:     CreateArrangementRequest{TenantID: tenant, Account: ref, InstallmentCount: 2, Frequency: billing.InstallmentMonthly},
			wantErr: shared.ErrInvalidInput,
		},
		{
			name:    "duplicate invoice ids",
			req:     CreateArrangementRequest{TenantID: tenant, Account: ref, InvoiceIDs: []uuid.UUID{dup, dup}, InstallmentCount: 2, Frequency: billing.InstallmentMonthly},
			wantErr: shared.ErrInvalidInput,
		},
		{
			name:    "invoice not owned by account",
			req:     CreateArrangementRequest{TenantID: tenant, Account: ref, InvoiceIDs: []uuid.UUID{uuid.New()}, InstallmentCount: 2, Frequency: billing.InstallmentMonthly},
			found:   []billing.Invoice{},
			wantErr: shared.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, svc := newArrangementFixture(t)
			if tt.found != nil {
				m.invoices.On("FindByIDsForAccount", mock.Anything, tenant, ref, tt.req.InvoiceIDs).Return(tt.found, nil)
			}

			_, err := svc.CreateArrangement(context.Background(), tt.req)

			assert.ErrorIs(t, err, tt.wantErr)
			m.arrangements.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestRecordInstallmentPayment(t *testing.T) {
	tenant := uuid.New()
	ref := billing.AccountRef{ID: uuid.New(), Type: billing.AccountTypeMember}

	t.Run("pays and saves with the loaded version", func(t *testing.T) {
		m, svc := newArrangementFixture(t)
		a := draftArrangement(t, tenant, ref, "100.00", 2)
		loadedVersion := a.Version

		m.arrangements.On("FindByID", mock.Anything, tenant, a.ID).Return(a, nil)
		m.arrangements.On("Update", mock.Anything, a, loadedVersion).Return(nil)
		m.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

		resp, err := svc.RecordInstallmentPayment(context.Background(), InstallmentPaymentRequest{
			TenantID:      tenant,
			ArrangementID: a.ID,
			InstallmentNo: 1,
			PaymentID:     uuid.New(),
			Amount:        dec("50"),
		})
		require.NoError(t, err)

		assert.Equal(t, billing.ArrangementStatusActive, resp.Status)
		assert.True(t, resp.PaidAmount.Equal(dec("50")))
		assert.Equal(t, billing.InstallmentPaid, resp.Installments[0].Status)
		assert.Equal(t, loadedVersion+1, resp.Version)
		m.arrangements.AssertExpectations(t)
	})

	t.Run("second payment of the same installment is rejected", func(t *testing.T) {
		m, svc := newArrangementFixture(t)
		a := draftArrangement(t, tenant, ref, "100.00", 2)
		require.NoError(t, a.RecordInstallmentPayment(1, uuid.New(), dec("50"), fixedNow))

		m.arrangements.On("FindByID", mock.Anything, tenant, a.ID).Return(a, nil)

		_, err := svc.RecordInstallmentPayment(context.Background(), InstallmentPaymentRequest{
			TenantID:      tenant,
			ArrangementID: a.ID,
			InstallmentNo: 1,
			PaymentID:     uuid.New(),
			Amount:        dec("50"),
		})

		assert.ErrorIs(t, err, shared.ErrInvalidState)
		m.arrangements.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
		m.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("concurrent modification surfaces as conflict", func(t *testing.T) {
		m, svc := newArrangementFixture(t)
		a := draftArrangement(t, tenant, ref, "100.00", 2)

		m.arrangements.On("FindByID", mock.Anything, tenant, a.ID).Return(a, nil)
		m.arrangements.On("Update", mock.Anything, a, mock.Anything).Return(shared.ErrConcurrencyConflict)

		_, err := svc.RecordInstallmentPayment(context.Background(), InstallmentPaymentRequest{
			TenantID:      tenant,
			ArrangementID: a.ID,
			InstallmentNo: 2,
			PaymentID:     uuid.New(),
			Amount:        dec("50"),
		})

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestArrangementLifecycle(t *testing.T) {
	tenant := uuid.New()
	ref := billing.AccountRef{ID: uuid.New(), Type: billing.AccountTypeMember}
	approver := uuid.New()
	actor := shared.Actor{UserID: &approver, UserEmail: "treasurer@club.test"}

	t.Run("activate requires an approver", func(t *testing.T) {
		_, svc := newArrangementFixture(t)
		_, err := svc.ActivateArrangement(context.Background(), tenant, uuid.New(), shared.Actor{})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("activate draft", func(t *testing.T) {
		m, svc := newArrangementFixture(t)
		a := draftArrangement(t, tenant, ref, "90.00", 3)
		m.arrangements.On("FindByID", mock.Anything, tenant, a.ID).Return(a, nil)
		m.arrangements.On("Update", mock.Anything, a, mock.Anything).Return(nil)
		m.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

		resp, err := svc.ActivateArrangement(context.Background(), tenant, a.ID, actor)
		require.NoError(t, err)
		assert.Equal(t, billing.ArrangementStatusActive, resp.Status)
		require.NotNil(t, resp.ApprovedBy)
		assert.Equal(t, approver, *resp.ApprovedBy)
	})

	t.Run("waiving every installment completes the arrangement", func(t *testing.T) {
		m, svc := newArrangementFixture(t)
		a := draftArrangement(t, tenant, ref, "20.00", 2)
		require.NoError(t, a.RecordInstallmentPayment(1, uuid.New(), dec("10"), fixedNow))
		m.arrangements.On("FindByID", mock.Anything, tenant, a.ID).Return(a, nil)
		m.arrangements.On("Update", mock.Anything, a, mock.Anything).Return(nil)
		m.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

		resp, err := svc.WaiveInstallment(context.Background(), tenant, a.ID, 2, "hardship", actor)
		require.NoError(t, err)
		assert.Equal(t, billing.ArrangementStatusCompleted, resp.Status)
		assert.Equal(t, "hardship", resp.Installments[1].WaivedReason)
	})

	t.Run("cancel completed arrangement fails", func(t *testing.T) {
		m, svc := newArrangementFixture(t)
		a := draftArrangement(t, tenant, ref, "10.00", 1)
		require.NoError(t, a.RecordInstallmentPayment(1, uuid.New(), dec("10"), fixedNow))
		m.arrangements.On("FindByID", mock.Anything, tenant, a.ID).Return(a, nil)

		_, err := svc.CancelArrangement(context.Background(), tenant, a.ID, "member request", actor)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("get missing arrangement", func(t *testing.T) {
		m, svc := newArrangementFixture(t)
		id := uuid.New()
		m.arrangements.On("FindByID", mock.Anything, tenant, id).Return(nil, shared.ErrNotFound)

		_, err := svc.GetArrangement(context.Background(), tenant, id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
