package persistence

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/clubledger/backend/internal/domain/billing"
	"github.com/clubledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an in-memory SQLite database with the ledger schema.
// One connection keeps every statement on the same in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// newMockDB opens GORM over sqlmock for asserting the exact SQL shape
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gormDB, mock, mockDB
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedMember(t *testing.T, db *gorm.DB, tenantID uuid.UUID, outstanding string) *billing.Member {
	t.Helper()
	m := &billing.Member{
		TenantID:     tenantID,
		MemberNumber: "M-" + uuid.NewString()[:8],
		Name:         "Ada Lovelace",
		Email:        "ada@example.com",
		JoinDate:     date(2023, time.March, 15),
		Balances:     billing.AccountBalances{Outstanding: decimal.RequireFromString(outstanding), Credit: decimal.Zero},
	}
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	require.NoError(t, NewGormAccountRepository(db).CreateMember(t.Context(), m))
	return m
}

func seedInvoice(t *testing.T, db *gorm.DB, tenantID uuid.UUID, account billing.AccountRef, number, total string, due time.Time) *billing.Invoice {
	t.Helper()
	inv, err := billing.NewInvoice(tenantID, account, number, decimal.RequireFromString(total), due)
	require.NoError(t, err)
	require.NoError(t, NewGormInvoiceRepository(db).Create(t.Context(), inv))
	return inv
}
