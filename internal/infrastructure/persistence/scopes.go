package persistence

import (
	"github.com/clubledger/backend/internal/domain/billing"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// tenantScope restricts a query to one tenant. Every ledger query goes
// through it; there is no unscoped read path.
func tenantScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// accountScope restricts a query to the rows owned by one account
func accountScope(ref billing.AccountRef) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("account_type = ? AND account_id = ?", ref.Type, ref.ID)
	}
}
