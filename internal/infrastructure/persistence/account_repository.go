package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/clubledger/backend/internal/domain/billing"
	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/clubledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormAccountRepository implements billing.AccountRepository over the
// members and city_ledger_accounts tables
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// Find loads the account referenced by ref from the table of its kind
func (r *GormAccountRepository) Find(ctx context.Context, tenantID uuid.UUID, ref billing.AccountRef) (billing.Account, error) {
	switch ref.Type {
	case billing.AccountTypeMember:
		return r.FindMember(ctx, tenantID, ref.ID)
	case billing.AccountTypeCityLedger:
		var row models.CityLedgerAccountModel
		if err := r.db.WithContext(ctx).Scopes(tenantScope(tenantID)).Where("id = ?", ref.ID).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, shared.NotFoundf("city ledger account %s not found", ref.ID)
			}
			return nil, err
		}
		return row.ToDomain(), nil
	default:
		return nil, shared.InvalidInputf("unknown account type %q", ref.Type)
	}
}

// FindMember loads a member account
func (r *GormAccountRepository) FindMember(ctx context.Context, tenantID, memberID uuid.UUID) (*billing.Member, error) {
	var row models.MemberModel
	if err := r.db.WithContext(ctx).Scopes(tenantScope(tenantID)).Where("id = ?", memberID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NotFoundf("member %s not found", memberID)
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// ApplyBalanceDelta adds the deltas in place so concurrent settlements on
// the same account compose instead of overwriting each other
func (r *GormAccountRepository) ApplyBalanceDelta(ctx context.Context, tenantID uuid.UUID, ref billing.AccountRef, outstandingDelta, creditDelta decimal.Decimal) error {
	var model any
	switch ref.Type {
	case billing.AccountTypeMember:
		model = &models.MemberModel{}
	case billing.AccountTypeCityLedger:
		model = &models.CityLedgerAccountModel{}
	default:
		return shared.InvalidInputf("unknown account type %q", ref.Type)
	}

	result := r.db.WithContext(ctx).Model(model).
		Scopes(tenantScope(tenantID)).
		Where("id = ?", ref.ID).
		Updates(map[string]any{
			"outstanding_balance": gorm.Expr("outstanding_balance + ?", outstandingDelta),
			"credit_balance":      gorm.Expr("credit_balance + ?", creditDelta),
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NotFoundf("%s account %s not found", ref.Type, ref.ID)
	}
	return nil
}

// CreateMember inserts a member account. Membership management lives
// outside the ledger engine; this is used for seeding and tests.
func (r *GormAccountRepository) CreateMember(ctx context.Context, m *billing.Member) error {
	return r.db.WithContext(ctx).Create(models.MemberModelFromDomain(m)).Error
}

// CreateCityLedgerAccount inserts a city ledger account
func (r *GormAccountRepository) CreateCityLedgerAccount(ctx context.Context, c *billing.CityLedgerAccount) error {
	return r.db.WithContext(ctx).Create(models.CityLedgerAccountModelFromDomain(c)).Error
}

var _ billing.AccountRepository = (*GormAccountRepository)(nil)
