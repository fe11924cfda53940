package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return reader, mp
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, agg metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := agg.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", agg)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), MetricsConfig{}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestNewBillingMetrics_NilMeter(t *testing.T) {
	_, err := NewBillingMetrics(nil)
	assert.ErrorIs(t, err, ErrMeterNil)
}

func TestBillingMetrics_RecordSettlement(t *testing.T) {
	reader, mp := newTestMeter(t)
	bm, err := NewBillingMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	tenant := uuid.New()
	bm.RecordSettlement(ctx, tenant, "MEMBER", "CASH", decimal.RequireFromString("300.00"), decimal.RequireFromString("49.75"), 20*time.Millisecond)
	bm.RecordSettlement(ctx, tenant, "MEMBER", "CARD", decimal.RequireFromString("10.50"), decimal.Zero, 5*time.Millisecond)

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, data["billing_settlements_total"]))
	assert.Equal(t, int64(31050), sumOf(t, data["billing_allocated_amount_total"]))
	assert.Equal(t, int64(4975), sumOf(t, data["billing_credit_created_total"]))

	hist, ok := data["billing_settlement_duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
}

func TestBillingMetrics_ArrangementCounters(t *testing.T) {
	reader, mp := newTestMeter(t)
	bm, err := NewBillingMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	tenant := uuid.New()
	bm.RecordArrangementCreated(ctx, tenant, "MONTHLY")
	bm.RecordInstallmentPayment(ctx, tenant)
	bm.RecordInstallmentPayment(ctx, tenant)
	bm.RecordRejectedAllocation(ctx, tenant, "INVALID_ALLOCATION")

	data := collect(t, reader)
	assert.Equal(t, int64(1), sumOf(t, data["billing_arrangements_created_total"]))
	assert.Equal(t, int64(2), sumOf(t, data["billing_installment_payments_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["billing_allocations_rejected_total"]))
}

func TestBillingMetrics_NilSafe(t *testing.T) {
	var bm *BillingMetrics
	assert.NotPanics(t, func() {
		bm.RecordSettlement(context.Background(), uuid.New(), "MEMBER", "CASH", decimal.NewFromInt(1), decimal.Zero, time.Second)
		bm.RecordArrangementCreated(context.Background(), uuid.New(), "WEEKLY")
	})
}

func TestBillingMetrics_NoopMeter(t *testing.T) {
	bm, err := NewBillingMetrics(noop.NewMeterProvider().Meter("noop"))
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		bm.RecordInstallmentPayment(context.Background(), uuid.New())
	})
}
