package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clubledger/backend/internal/domain/billing"
	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/clubledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const allocationSpanService = "billing_allocation"

// AllocationService records payments and applies them to outstanding invoices
type AllocationService struct {
	scope       TransactionScope
	invoiceRepo billing.InvoiceRepository
	publisher   shared.EventPublisher
	idempotency shared.IdempotencyStore
	metrics     *telemetry.BillingMetrics
	logger      *zap.Logger
	opts        Options
	now         func() time.Time
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(scope TransactionScope, invoiceRepo billing.InvoiceRepository, logger *zap.Logger) *AllocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocationService{
		scope:       scope,
		invoiceRepo: invoiceRepo,
		logger:      logger,
		opts:        DefaultOptions(),
		now:         time.Now,
	}
}

// SetEventPublisher sets the publisher used for post-commit audit events
func (s *AllocationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetIdempotencyStore enables duplicate detection for SettlePayment
func (s *AllocationService) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// SetMetrics sets the ledger metrics recorder
func (s *AllocationService) SetMetrics(metrics *telemetry.BillingMetrics) {
	s.metrics = metrics
}

// SetOptions overrides document prefixes and the idempotency window
func (s *AllocationService) SetOptions(opts Options) {
	s.opts = opts
}

// GetOutstandingInvoices lists the account's open invoices, oldest due first
func (s *AllocationService) GetOutstandingInvoices(ctx context.Context, tenantID uuid.UUID, account billing.AccountRef) ([]InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, allocationSpanService, "get_outstanding_invoices")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID,
		telemetry.SpanAttrAccountID, account.ID,
		telemetry.SpanAttrAccountType, string(account.Type),
	)

	if err := account.Validate(); err != nil {
		return nil, err
	}
	invoices, err := s.invoiceRepo.FindOutstanding(ctx, tenantID, account)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	out := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		out[i] = ToInvoiceResponse(&invoices[i])
	}
	return out, nil
}

// PlanSettlement previews the FIFO allocation of amount without writing anything
func (s *AllocationService) PlanSettlement(ctx context.Context, tenantID uuid.UUID, account billing.AccountRef, amount decimal.Decimal) (*billing.AllocationPlan, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, allocationSpanService, "plan_settlement")
	defer span.End()

	plan, err := s.plan(ctx, tenantID, account, amount)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAllocationCount, len(plan.Lines),
		telemetry.SpanAttrCreditToAdd, plan.CreditToAdd.String(),
	)
	return &plan, nil
}

func (s *AllocationService) plan(ctx context.Context, tenantID uuid.UUID, account billing.AccountRef, amount decimal.Decimal) (billing.AllocationPlan, error) {
	if err := account.Validate(); err != nil {
		return billing.AllocationPlan{}, err
	}
	if err := billing.CheckMoneyScale("payment amount", amount); err != nil {
		return billing.AllocationPlan{}, shared.InvalidInputf("%s", err.Error())
	}
	invoices, err := s.invoiceRepo.FindOutstanding(ctx, tenantID, account)
	if err != nil {
		return billing.AllocationPlan{}, err
	}
	return billing.CalculateFIFOAllocation(billing.ToOutstanding(invoices), amount)
}

// SettlePayment plans a FIFO allocation for the payment and applies it.
// The plan is re-validated against fresh balances inside the transaction.
func (s *AllocationService) SettlePayment(ctx context.Context, req SettlePaymentRequest) (*SettlementResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, allocationSpanService, "settle_payment")
	defer span.End()

	release, err := s.claim(ctx, req.TenantID, req.IdempotencyKey)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result, err := s.settle(ctx, req)
	if err != nil {
		release()
		telemetry.RecordError(span, err)
		return nil, err
	}
	return result, nil
}

func (s *AllocationService) settle(ctx context.Context, req SettlePaymentRequest) (*SettlementResult, error) {
	if !req.Amount.IsPositive() {
		return nil, shared.InvalidInputf("payment amount must be positive")
	}
	plan, err := s.plan(ctx, req.TenantID, req.Account, req.Amount)
	if err != nil {
		return nil, err
	}
	return s.ApplyAllocations(ctx, ApplyAllocationsRequest{
		TenantID:        req.TenantID,
		Account:         req.Account,
		Amount:          plan.PaymentAmount,
		Method:          req.Method,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
		ReceivedAt:      req.ReceivedAt,
		Lines:           plan.Lines,
		Actor:           req.Actor,
	})
}

// claim reserves the idempotency key. The returned func releases it so a
// failed settlement can be retried with the same key.
func (s *AllocationService) claim(ctx context.Context, tenantID uuid.UUID, key string) (func(), error) {
	noop := func() {}
	if key == "" || s.idempotency == nil {
		return noop, nil
	}

	scoped := fmt.Sprintf("billing:settle:%s:%s", tenantID, key)
	claimed, err := s.idempotency.MarkProcessed(ctx, scoped, s.opts.IdempotencyTTL)
	if err != nil {
		return noop, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	if !claimed {
		return noop, shared.NewDomainError(shared.CodeDuplicateRequest,
			fmt.Sprintf("payment with idempotency key %q has already been submitted", key))
	}
	return func() {
		if err := s.idempotency.Release(context.WithoutCancel(ctx), scoped); err != nil {
			s.logger.Warn("Failed to release idempotency key",
				zap.String("idempotency_key", key),
				zap.Error(err),
			)
		}
	}, nil
}

// ApplyAllocations records the payment and applies the given lines in one
// transaction. Each line is checked against the invoice balance read inside
// the transaction; any mismatch rolls back the whole settlement, including
// the receipt number.
func (s *AllocationService) ApplyAllocations(ctx context.Context, req ApplyAllocationsRequest) (*SettlementResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, allocationSpanService, "apply_allocations")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, req.TenantID,
		telemetry.SpanAttrAccountID, req.Account.ID,
		telemetry.SpanAttrAccountType, string(req.Account.Type),
		telemetry.SpanAttrAmount, req.Amount.String(),
		telemetry.SpanAttrPaymentMethod, string(req.Method),
		telemetry.SpanAttrAllocationCount, len(req.Lines),
	)

	result, payment, err := s.apply(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		if errors.Is(err, shared.ErrInvalidAllocation) {
			s.metrics.RecordRejectedAllocation(ctx, req.TenantID, shared.CodeInvalidAllocation)
		}
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrReceiptNumber, result.ReceiptNumber,
		telemetry.SpanAttrCreditToAdd, result.CreditAdded.String(),
	)

	lines := make([]billing.AllocationLine, len(result.Allocations))
	for i, a := range result.Allocations {
		lines[i] = billing.AllocationLine{InvoiceID: a.InvoiceID, InvoiceNumber: a.InvoiceNumber, Amount: a.Amount}
	}
	s.publish(ctx, billing.NewPaymentSettledEvent(payment, lines, result.TotalAllocated, result.CreditAdded, req.Actor))

	s.logger.Info("Payment settled",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("receipt_number", result.ReceiptNumber),
		zap.String("amount", result.Amount.StringFixed(billing.MoneyScale)),
		zap.String("total_allocated", result.TotalAllocated.StringFixed(billing.MoneyScale)),
		zap.String("credit_added", result.CreditAdded.StringFixed(billing.MoneyScale)),
		zap.Int("allocation_count", len(result.Allocations)),
	)
	return result, nil
}

func (s *AllocationService) apply(ctx context.Context, req ApplyAllocationsRequest) (*SettlementResult, *billing.Payment, error) {
	if err := req.Account.Validate(); err != nil {
		return nil, nil, err
	}
	amount := req.Amount
	if !amount.IsPositive() {
		return nil, nil, shared.InvalidInputf("payment amount must be positive")
	}
	if err := billing.CheckMoneyScale("payment amount", amount); err != nil {
		return nil, nil, shared.InvalidInputf("%s", err.Error())
	}
	if !req.Method.IsValid() {
		return nil, nil, shared.InvalidInputf("unknown payment method %q", req.Method)
	}
	if err := billing.ValidateLines(req.Lines, amount); err != nil {
		return nil, nil, err
	}

	now := s.now()
	receivedAt := req.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = now
	}
	totalAllocated := billing.TotalOfLines(req.Lines)
	credit := amount.Sub(totalAllocated)

	var (
		payment *billing.Payment
		applied = make([]AppliedInvoice, 0, len(req.Lines))
	)
	started := time.Now()

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		account, err := repos.Accounts().Find(ctx, req.TenantID, req.Account)
		if err != nil {
			return err
		}

		seq, err := repos.Sequences().Next(ctx, req.TenantID, billing.DocumentReceipt, now.Year())
		if err != nil {
			return fmt.Errorf("failed to allocate receipt number: %w", err)
		}
		receipt := billing.FormatDocumentNumber(s.opts.ReceiptPrefix, now.Year(), seq)

		payment, err = billing.NewPayment(req.TenantID, account.Ref(), amount, req.Method, receipt, receivedAt)
		if err != nil {
			return err
		}
		payment.ReferenceNumber = req.ReferenceNumber
		payment.Notes = req.Notes
		payment.CreatedBy = req.Actor.UserID
		if err := repos.Payments().Create(ctx, payment); err != nil {
			return err
		}

		for _, line := range req.Lines {
			inv, err := repos.Invoices().FindByIDForAccount(ctx, req.TenantID, account.Ref(), line.InvoiceID)
			if err != nil {
				return err
			}
			if !inv.Status.IsOutstanding() {
				return shared.InvalidAllocationf("invoice %s is %s", inv.InvoiceNumber, inv.Status)
			}
			if line.Amount.GreaterThan(inv.BalanceDue) {
				return shared.InvalidAllocationf("allocation %s exceeds balance %s on invoice %s",
					line.Amount.StringFixed(billing.MoneyScale), inv.BalanceDue.StringFixed(billing.MoneyScale), inv.InvoiceNumber)
			}
			if err := repos.Payments().CreateAllocation(ctx, billing.NewPaymentAllocation(payment, inv.ID, line.Amount)); err != nil {
				return err
			}
			updated, err := repos.Invoices().ApplyPaymentDelta(ctx, req.TenantID, inv.ID, line.Amount, now)
			if err != nil {
				return err
			}
			applied = append(applied, AppliedInvoice{
				InvoiceID:     updated.ID,
				InvoiceNumber: updated.InvoiceNumber,
				Amount:        line.Amount,
				BalanceDue:    updated.BalanceDue,
				Status:        updated.Status,
			})
		}

		return repos.Accounts().ApplyBalanceDelta(ctx, req.TenantID, account.Ref(), totalAllocated.Neg(), credit)
	})
	if err != nil {
		return nil, nil, err
	}

	s.metrics.RecordSettlement(ctx, req.TenantID, string(req.Account.Type), string(req.Method), totalAllocated, credit, time.Since(started))

	return &SettlementResult{
		PaymentID:      payment.ID,
		ReceiptNumber:  payment.ReceiptNumber,
		AccountID:      payment.Account.ID,
		AccountType:    payment.Account.Type,
		Amount:         payment.Amount,
		TotalAllocated: totalAllocated,
		CreditAdded:    credit,
		Allocations:    applied,
	}, payment, nil
}

// publish sends events after commit. The ledger is already durable at this
// point, so failures are logged and dropped.
func (s *AllocationService) publish(ctx context.Context, events ...shared.DomainEvent) {
	publishAfterCommit(ctx, s.publisher, s.logger, events...)
}

func publishAfterCommit(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, events ...shared.DomainEvent) {
	if publisher == nil || len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		for _, e := range events {
			logger.Error("Failed to publish billing event",
				zap.String("event_type", e.EventType()),
				zap.String("aggregate_id", e.AggregateID().String()),
				zap.Error(err),
			)
		}
	}
}
