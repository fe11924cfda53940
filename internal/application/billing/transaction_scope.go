package billing

import (
	"context"

	"github.com/clubledger/backend/internal/domain/billing"
)

// TransactionScope runs a unit of work against repositories that share one
// database transaction. A non-nil error from fn rolls everything back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the ledger repositories bound to the
// current transaction. Document sequences participate in the same
// transaction, so a rolled back settlement also gives back its number.
type TransactionalRepositories interface {
	Invoices() billing.InvoiceRepository
	Accounts() billing.AccountRepository
	Payments() billing.PaymentRepository
	Arrangements() billing.ArrangementRepository
	Settings() billing.SettingsRepository
	Profiles() billing.ProfileRepository
	Sequences() billing.SequenceGenerator
}

// Repositories groups the ledger repositories for construction of a NoOpTransactionScope
type Repositories struct {
	Invoices     billing.InvoiceRepository
	Accounts     billing.AccountRepository
	Payments     billing.PaymentRepository
	Arrangements billing.ArrangementRepository
	Settings     billing.SettingsRepository
	Profiles     billing.ProfileRepository
	Sequences    billing.SequenceGenerator
}

// NoOpTransactionScope calls fn with plain repositories and no transaction.
// Used by unit tests.
type NoOpTransactionScope struct {
	repos Repositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(repos Repositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs fn directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) Invoices() billing.InvoiceRepository         { return s.repos.Invoices }
func (s *NoOpTransactionScope) Accounts() billing.AccountRepository         { return s.repos.Accounts }
func (s *NoOpTransactionScope) Payments() billing.PaymentRepository         { return s.repos.Payments }
func (s *NoOpTransactionScope) Arrangements() billing.ArrangementRepository { return s.repos.Arrangements }
func (s *NoOpTransactionScope) Settings() billing.SettingsRepository        { return s.repos.Settings }
func (s *NoOpTransactionScope) Profiles() billing.ProfileRepository         { return s.repos.Profiles }
func (s *NoOpTransactionScope) Sequences() billing.SequenceGenerator        { return s.repos.Sequences }

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
