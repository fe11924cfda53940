package billing

import (
	"time"

	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType distinguishes members from city-ledger accounts
type AccountType string

const (
	AccountTypeMember     AccountType = "MEMBER"
	AccountTypeCityLedger AccountType = "CITY_LEDGER"
)

// IsValid checks if the account type is known
func (t AccountType) IsValid() bool {
	return t == AccountTypeMember || t == AccountTypeCityLedger
}

// AccountRef identifies a billable account of either kind
type AccountRef struct {
	ID   uuid.UUID   `json:"id"`
	Type AccountType `json:"type"`
}

// Validate checks the reference is complete
func (r AccountRef) Validate() error {
	if r.ID == uuid.Nil {
		return shared.InvalidInputf("account id is required")
	}
	if !r.Type.IsValid() {
		return shared.InvalidInputf("unknown account type %q", r.Type)
	}
	return nil
}

// Account is the balance-holding capability shared by every billable account.
// Ledger code depends on this, never on the concrete account kind.
type Account interface {
	Ref() AccountRef
	Tenant() uuid.UUID
	OutstandingBalance() decimal.Decimal
	CreditBalance() decimal.Decimal
}

// AccountBalances holds the two balances common to all accounts
type AccountBalances struct {
	Outstanding decimal.Decimal
	Credit      decimal.Decimal
}

// Member is a club member account
type Member struct {
	shared.BaseEntity
	TenantID     uuid.UUID
	MemberNumber string
	Name         string
	Email        string
	JoinDate     time.Time
	Balances     AccountBalances
}

func (m *Member) Ref() AccountRef                     { return AccountRef{ID: m.ID, Type: AccountTypeMember} }
func (m *Member) Tenant() uuid.UUID                   { return m.TenantID }
func (m *Member) OutstandingBalance() decimal.Decimal { return m.Balances.Outstanding }
func (m *Member) CreditBalance() decimal.Decimal      { return m.Balances.Credit }

// CityLedgerAccount is a non-member billable account (corporate, house, vendor)
type CityLedgerAccount struct {
	shared.BaseEntity
	TenantID     uuid.UUID
	AccountCode  string
	Name         string
	ContactEmail string
	Balances     AccountBalances
}

func (c *CityLedgerAccount) Ref() AccountRef {
	return AccountRef{ID: c.ID, Type: AccountTypeCityLedger}
}
func (c *CityLedgerAccount) Tenant() uuid.UUID                   { return c.TenantID }
func (c *CityLedgerAccount) OutstandingBalance() decimal.Decimal { return c.Balances.Outstanding }
func (c *CityLedgerAccount) CreditBalance() decimal.Decimal      { return c.Balances.Credit }

var (
	_ Account = (*Member)(nil)
	_ Account = (*CityLedgerAccount)(nil)
)
