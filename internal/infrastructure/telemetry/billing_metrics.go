package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/clubledger/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics set is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// BillingMetrics records ledger activity. Monetary counters are in minor units.
type BillingMetrics struct {
	settlementsTotal    *Counter
	allocatedMinorTotal *Counter
	creditMinorTotal    *Counter
	rejectedAllocations *Counter
	arrangementsCreated *Counter
	installmentPayments *Counter
	settlementDuration  *Histogram
}

// NewBillingMetrics creates the ledger instruments on meter.
func NewBillingMetrics(meter metric.Meter) (*BillingMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	bm := &BillingMetrics{}
	var err error

	counters := []struct {
		dst              **Counter
		name, desc, unit string
	}{
		{&bm.settlementsTotal, "billing_settlements_total", "Payments settled against invoices", "{payments}"},
		{&bm.allocatedMinorTotal, "billing_allocated_amount_total", "Amount allocated to invoices in minor units", "{cents}"},
		{&bm.creditMinorTotal, "billing_credit_created_total", "Overpayment added to account credit in minor units", "{cents}"},
		{&bm.rejectedAllocations, "billing_allocations_rejected_total", "Settlements aborted by allocation validation", "{payments}"},
		{&bm.arrangementsCreated, "billing_arrangements_created_total", "Payment arrangements created", "{arrangements}"},
		{&bm.installmentPayments, "billing_installment_payments_total", "Arrangement installments recorded as paid", "{installments}"},
	}
	for _, c := range counters {
		if *c.dst, err = NewCounter(meter, c.name, c.desc, c.unit); err != nil {
			return nil, err
		}
	}

	bm.settlementDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "billing_settlement_duration_seconds",
		Description: "Time spent applying a settlement transaction",
		Unit:        "s",
		Boundaries:  SettlementDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return bm, nil
}

// RecordSettlement records a committed settlement.
func (bm *BillingMetrics) RecordSettlement(ctx context.Context, tenantID uuid.UUID, accountType, method string, allocated, credit decimal.Decimal, elapsed time.Duration) {
	if bm == nil {
		return
	}
	tenant := AttrTenantID.String(tenantID.String())
	bm.settlementsTotal.Inc(ctx, tenant, AttrAccountType.String(accountType), AttrPaymentMethod.String(method))
	bm.allocatedMinorTotal.Add(ctx, billing.ToMinorUnits(allocated), tenant)
	if credit.IsPositive() {
		bm.creditMinorTotal.Add(ctx, billing.ToMinorUnits(credit), tenant)
	}
	bm.settlementDuration.RecordDuration(ctx, elapsed, AttrOutcome.String("committed"))
}

// RecordRejectedAllocation records a settlement aborted by validation.
func (bm *BillingMetrics) RecordRejectedAllocation(ctx context.Context, tenantID uuid.UUID, reason string) {
	if bm == nil {
		return
	}
	bm.rejectedAllocations.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrReason.String(reason))
}

// RecordArrangementCreated records a new payment arrangement.
func (bm *BillingMetrics) RecordArrangementCreated(ctx context.Context, tenantID uuid.UUID, frequency string) {
	if bm == nil {
		return
	}
	bm.arrangementsCreated.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrFrequency.String(frequency))
}

// RecordInstallmentPayment records an installment marked paid.
func (bm *BillingMetrics) RecordInstallmentPayment(ctx context.Context, tenantID uuid.UUID) {
	if bm == nil {
		return
	}
	bm.installmentPayments.Inc(ctx, AttrTenantID.String(tenantID.String()))
}
