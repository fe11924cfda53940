package billing

import (
	"context"
	"time"

	"github.com/clubledger/backend/internal/domain/billing"
	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockInvoiceRepository struct {
	mock.Mock
}

func (m *mockInvoiceRepository) FindOutstanding(ctx context.Context, tenantID uuid.UUID, account billing.AccountRef) ([]billing.Invoice, error) {
	args := m.Called(ctx, tenantID, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepository) FindByIDForAccount(ctx context.Context, tenantID uuid.UUID, account billing.AccountRef, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, account, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepository) FindByIDsForAccount(ctx context.Context, tenantID uuid.UUID, account billing.AccountRef, ids []uuid.UUID) ([]billing.Invoice, error) {
	args := m.Called(ctx, tenantID, account, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepository) ApplyPaymentDelta(ctx context.Context, tenantID, id uuid.UUID, amount decimal.Decimal, at time.Time) (*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, id, amount, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

type mockAccountRepository struct {
	mock.Mock
}

func (m *mockAccountRepository) Find(ctx context.Context, tenantID uuid.UUID, ref billing.AccountRef) (billing.Account, error) {
	args := m.Called(ctx, tenantID, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(billing.Account), args.Error(1)
}

func (m *mockAccountRepository) FindMember(ctx context.Context, tenantID, memberID uuid.UUID) (*billing.Member, error) {
	args := m.Called(ctx, tenantID, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Member), args.Error(1)
}

func (m *mockAccountRepository) ApplyBalanceDelta(ctx context.Context, tenantID uuid.UUID, ref billing.AccountRef, outstandingDelta, creditDelta decimal.Decimal) error {
	args := m.Called(ctx, tenantID, ref, outstandingDelta, creditDelta)
	return args.Error(0)
}

type mockPaymentRepository struct {
	mock.Mock
}

func (m *mockPaymentRepository) Create(ctx context.Context, payment *billing.Payment) error {
	return m.Called(ctx, payment).Error(0)
}

func (m *mockPaymentRepository) CreateAllocation(ctx context.Context, allocation *billing.PaymentAllocation) error {
	return m.Called(ctx, allocation).Error(0)
}

func (m *mockPaymentRepository) FindAllocations(ctx context.Context, tenantID, paymentID uuid.UUID) ([]billing.PaymentAllocation, error) {
	args := m.Called(ctx, tenantID, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.PaymentAllocation), args.Error(1)
}

type mockArrangementRepository struct {
	mock.Mock
}

func (m *mockArrangementRepository) Create(ctx context.Context, a *billing.PaymentArrangement) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockArrangementRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.PaymentArrangement, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PaymentArrangement), args.Error(1)
}

func (m *mockArrangementRepository) Update(ctx context.Context, a *billing.PaymentArrangement, expectedVersion int) error {
	return m.Called(ctx, a, expectedVersion).Error(0)
}

type mockSettingsRepository struct {
	mock.Mock
}

func (m *mockSettingsRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*billing.ClubBillingSettings, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ClubBillingSettings), args.Error(1)
}

func (m *mockSettingsRepository) Create(ctx context.Context, s *billing.ClubBillingSettings) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockSettingsRepository) Save(ctx context.Context, s *billing.ClubBillingSettings) error {
	return m.Called(ctx, s).Error(0)
}

type mockProfileRepository struct {
	mock.Mock
}

func (m *mockProfileRepository) FindByMember(ctx context.Context, tenantID, memberID uuid.UUID) (*billing.MemberBillingProfile, error) {
	args := m.Called(ctx, tenantID, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.MemberBillingProfile), args.Error(1)
}

func (m *mockProfileRepository) Create(ctx context.Context, p *billing.MemberBillingProfile) error {
	return m.Called(ctx, p).Error(0)
}

type mockSequenceGenerator struct {
	mock.Mock
}

func (m *mockSequenceGenerator) Next(ctx context.Context, tenantID uuid.UUID, kind billing.DocumentKind, year int) (int64, error) {
	args := m.Called(ctx, tenantID, kind, year)
	return args.Get(0).(int64), args.Error(1)
}

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := make([]any, 0, len(events)+1)
	args = append(args, ctx)
	for _, e := range events {
		args = append(args, e)
	}
	return m.Called(args...).Error(0)
}

type mockIdempotencyStore struct {
	mock.Mock
}

func (m *mockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

// ledgerMocks bundles one mock per repository behind a NoOpTransactionScope
type ledgerMocks struct {
	invoices     *mockInvoiceRepository
	accounts     *mockAccountRepository
	payments     *mockPaymentRepository
	arrangements *mockArrangementRepository
	settings     *mockSettingsRepository
	profiles     *mockProfileRepository
	sequences    *mockSequenceGenerator
	publisher    *mockEventPublisher
}

func newLedgerMocks() *ledgerMocks {
	return &ledgerMocks{
		invoices:     new(mockInvoiceRepository),
		accounts:     new(mockAccountRepository),
		payments:     new(mockPaymentRepository),
		arrangements: new(mockArrangementRepository),
		settings:     new(mockSettingsRepository),
		profiles:     new(mockProfileRepository),
		sequences:    new(mockSequenceGenerator),
		publisher:    new(mockEventPublisher),
	}
}

func (m *ledgerMocks) scope() *NoOpTransactionScope {
	return NewNoOpTransactionScope(Repositories{
		Invoices:     m.invoices,
		Accounts:     m.accounts,
		Payments:     m.payments,
		Arrangements: m.arrangements,
		Settings:     m.settings,
		Profiles:     m.profiles,
		Sequences:    m.sequences,
	})
}

var fixedNow = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decEq(want string) any {
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(dec(want)) })
}

func newTestInvoice(tenantID uuid.UUID, account billing.AccountRef, number, balance string, due time.Time) billing.Invoice {
	inv, err := billing.NewInvoice(tenantID, account, number, dec(balance), due)
	if err != nil {
		panic(err)
	}
	return *inv
}

func newTestMember(tenantID uuid.UUID, join time.Time) *billing.Member {
	return &billing.Member{
		BaseEntity:   shared.NewBaseEntity(),
		TenantID:     tenantID,
		MemberNumber: "M-0001",
		Name:         "Alex Morgan",
		JoinDate:     join,
	}
}
