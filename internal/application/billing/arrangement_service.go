package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/clubledger/backend/internal/domain/billing"
	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/clubledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const arrangementSpanService = "billing_arrangement"

// ArrangementService manages installment plans over overdue invoices
type ArrangementService struct {
	scope           TransactionScope
	arrangementRepo billing.ArrangementRepository
	publisher       shared.EventPublisher
	metrics         *telemetry.BillingMetrics
	logger          *zap.Logger
	opts            Options
	now             func() time.Time
}

// NewArrangementService creates a new ArrangementService
func NewArrangementService(scope TransactionScope, arrangementRepo billing.ArrangementRepository, logger *zap.Logger) *ArrangementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArrangementService{
		scope:           scope,
		arrangementRepo: arrangementRepo,
		logger:          logger,
		opts:            DefaultOptions(),
		now:             time.Now,
	}
}

// SetEventPublisher sets the publisher used for post-commit audit events
func (s *ArrangementService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetMetrics sets the ledger metrics recorder
func (s *ArrangementService) SetMetrics(metrics *telemetry.BillingMetrics) {
	s.metrics = metrics
}

// SetOptions overrides the arrangement number prefix
func (s *ArrangementService) SetOptions(opts Options) {
	s.opts = opts
}

// CreateArrangement builds a DRAFT arrangement over the given invoices
func (s *ArrangementService) CreateArrangement(ctx context.Context, req CreateArrangementRequest) (*ArrangementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, arrangementSpanService, "create_arrangement")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, req.TenantID,
		telemetry.SpanAttrAccountID, req.Account.ID,
		telemetry.SpanAttrAccountType, string(req.Account.Type),
	)

	if err := req.Account.Validate(); err != nil {
		return nil, err
	}
	if len(req.InvoiceIDs) == 0 {
		return nil, shared.InvalidInputf("at least one invoice is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(req.InvoiceIDs))
	for _, id := range req.InvoiceIDs {
		if _, dup := seen[id]; dup {
			return nil, shared.InvalidInputf("invoice %s is listed more than once", id)
		}
		seen[id] = struct{}{}
	}

	now := s.now()
	start := req.StartDate
	if start.IsZero() {
		start = now
	}

	var arrangement *billing.PaymentArrangement
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.Invoices().FindByIDsForAccount(ctx, req.TenantID, req.Account, req.InvoiceIDs)
		if err != nil {
			return err
		}
		invoices, err := orderInvoices(found, req.InvoiceIDs)
		if err != nil {
			return err
		}

		seq, err := repos.Sequences().Next(ctx, req.TenantID, billing.DocumentArrangement, now.Year())
		if err != nil {
			return fmt.Errorf("failed to allocate arrangement number: %w", err)
		}

		arrangement, err = billing.NewPaymentArrangement(billing.NewArrangementInput{
			TenantID:          req.TenantID,
			ArrangementNumber: billing.FormatDocumentNumber(s.opts.ArrangementPrefix, now.Year(), seq),
			Account:           req.Account,
			Invoices:          invoices,
			InstallmentCount:  req.InstallmentCount,
			Frequency:         req.Frequency,
			StartDate:         start,
			Notes:             req.Notes,
			CreatedBy:         req.Actor.UserID,
		})
		if err != nil {
			return err
		}
		return repos.Arrangements().Create(ctx, arrangement)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrArrangementID, arrangement.ID,
		telemetry.SpanAttrArrangementNumber, arrangement.ArrangementNumber,
	)
	s.metrics.RecordArrangementCreated(ctx, req.TenantID, string(arrangement.Frequency))
	publishAfterCommit(ctx, s.publisher, s.logger,
		billing.NewArrangementEvent(billing.EventTypeArrangementCreated, arrangement, 0, "", req.Actor))

	s.logger.Info("Payment arrangement created",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("arrangement_number", arrangement.ArrangementNumber),
		zap.String("total_amount", arrangement.TotalAmount.StringFixed(billing.MoneyScale)),
		zap.Int("installments", arrangement.InstallmentCount),
	)
	return ToArrangementResponse(arrangement), nil
}

// orderInvoices returns invoices in the order of ids, failing NotFound for any
// id the account does not own.
func orderInvoices(found []billing.Invoice, ids []uuid.UUID) ([]billing.Invoice, error) {
	byID := make(map[uuid.UUID]billing.Invoice, len(found))
	for _, inv := range found {
		byID[inv.ID] = inv
	}
	out := make([]billing.Invoice, 0, len(ids))
	for _, id := range ids {
		inv, ok := byID[id]
		if !ok {
			return nil, shared.NotFoundf("invoice %s not found for account", id)
		}
		out = append(out, inv)
	}
	return out, nil
}

// GetArrangement returns an arrangement with its installments
func (s *ArrangementService) GetArrangement(ctx context.Context, tenantID, id uuid.UUID) (*ArrangementResponse, error) {
	a, err := s.arrangementRepo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return ToArrangementResponse(a), nil
}

// ActivateArrangement approves a DRAFT arrangement
func (s *ArrangementService) ActivateArrangement(ctx context.Context, tenantID, id uuid.UUID, actor shared.Actor) (*ArrangementResponse, error) {
	if actor.UserID == nil {
		return nil, shared.InvalidInputf("an approver is required to activate an arrangement")
	}
	approver := *actor.UserID
	return s.mutate(ctx, "activate_arrangement", tenantID, id,
		func(a *billing.PaymentArrangement, at time.Time) (shared.DomainEvent, error) {
			if err := a.Activate(approver, at); err != nil {
				return nil, err
			}
			return billing.NewArrangementEvent(billing.EventTypeArrangementActivated, a, 0, "", actor), nil
		})
}

// CancelArrangement cancels an arrangement that is not yet COMPLETED or CANCELLED
func (s *ArrangementService) CancelArrangement(ctx context.Context, tenantID, id uuid.UUID, reason string, actor shared.Actor) (*ArrangementResponse, error) {
	return s.mutate(ctx, "cancel_arrangement", tenantID, id,
		func(a *billing.PaymentArrangement, at time.Time) (shared.DomainEvent, error) {
			if err := a.Cancel(reason, at); err != nil {
				return nil, err
			}
			return billing.NewArrangementEvent(billing.EventTypeArrangementCancelled, a, 0, reason, actor), nil
		})
}

// RecordInstallmentPayment marks an installment paid. Paying the same
// installment twice fails with INVALID_STATE.
func (s *ArrangementService) RecordInstallmentPayment(ctx context.Context, req InstallmentPaymentRequest) (*ArrangementResponse, error) {
	resp, err := s.mutate(ctx, "record_installment_payment", req.TenantID, req.ArrangementID,
		func(a *billing.PaymentArrangement, at time.Time) (shared.DomainEvent, error) {
			if err := a.RecordInstallmentPayment(req.InstallmentNo, req.PaymentID, req.Amount, at); err != nil {
				return nil, err
			}
			return billing.NewArrangementEvent(billing.EventTypeInstallmentPaid, a, req.InstallmentNo, "", req.Actor), nil
		})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordInstallmentPayment(ctx, req.TenantID)
	return resp, nil
}

// WaiveInstallment forgives a pending installment
func (s *ArrangementService) WaiveInstallment(ctx context.Context, tenantID, id uuid.UUID, installmentNo int, reason string, actor shared.Actor) (*ArrangementResponse, error) {
	return s.mutate(ctx, "waive_installment", tenantID, id,
		func(a *billing.PaymentArrangement, _ time.Time) (shared.DomainEvent, error) {
			if err := a.WaiveInstallment(installmentNo, reason); err != nil {
				return nil, err
			}
			return billing.NewArrangementEvent(billing.EventTypeInstallmentWaived, a, installmentNo, reason, actor), nil
		})
}

// mutate loads the arrangement, applies change and saves it with an
// optimistic version check, all in one transaction. The event returned by
// change is published after commit.
func (s *ArrangementService) mutate(
	ctx context.Context,
	method string,
	tenantID, id uuid.UUID,
	change func(a *billing.PaymentArrangement, at time.Time) (shared.DomainEvent, error),
) (*ArrangementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, arrangementSpanService, method)
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID,
		telemetry.SpanAttrArrangementID, id,
	)

	var (
		arrangement *billing.PaymentArrangement
		event       shared.DomainEvent
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		a, err := repos.Arrangements().FindByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		expected := a.Version
		if event, err = change(a, s.now()); err != nil {
			return err
		}
		if err := repos.Arrangements().Update(ctx, a, expected); err != nil {
			return err
		}
		arrangement = a
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, "status", string(arrangement.Status))
	publishAfterCommit(ctx, s.publisher, s.logger, event)
	return ToArrangementResponse(arrangement), nil
}
