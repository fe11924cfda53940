package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	billingapp "github.com/clubledger/backend/internal/application/billing"
	"github.com/clubledger/backend/internal/domain/billing"
	"github.com/clubledger/backend/internal/infrastructure/cache"
	"github.com/clubledger/backend/internal/infrastructure/persistence"
	"github.com/clubledger/backend/internal/infrastructure/persistence/models"
	"github.com/clubledger/backend/internal/interfaces/http/handler"
	"github.com/clubledger/backend/internal/interfaces/http/middleware"
	"github.com/clubledger/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// testEnv is the billing API over an in-memory SQLite ledger
type testEnv struct {
	t        *testing.T
	db       *gorm.DB
	engine   *gin.Engine
	tenantID uuid.UUID
	userID   uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
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

	scope := persistence.NewGormTransactionScope(db)
	idempotency := cache.NewInMemoryIdempotencyStore(time.Minute)
	t.Cleanup(func() { _ = idempotency.Close() })

	allocation := billingapp.NewAllocationService(scope, persistence.NewGormInvoiceRepository(db), nil)
	allocation.SetIdempotencyStore(idempotency)
	arrangements := billingapp.NewArrangementService(scope, persistence.NewGormArrangementRepository(db), nil)
	settings := billingapp.NewSettingsService(scope,
		persistence.NewGormSettingsRepository(db),
		persistence.NewGormProfileRepository(db),
		persistence.NewGormAccountRepository(db),
		nil,
	)

	engine := gin.New()
	r := router.NewRouter(engine)
	r.Register(router.NewBillingGroup(router.BillingHandlers{
		Allocation:  handler.NewAllocationHandler(allocation),
		Arrangement: handler.NewArrangementHandler(arrangements),
		Settings:    handler.NewSettingsHandler(settings),
		Calculator:  handler.NewCalculatorHandler(),
	}, middleware.RequestID(), middleware.Identity(middleware.IdentityConfig{})))
	r.Setup()

	return &testEnv{t: t, db: db, engine: engine, tenantID: uuid.New(), userID: uuid.New()}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do sends a request as the env's tenant and operator
func (e *testEnv) do(method, path string, body any, headers ...string) (int, envelope) {
	e.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, "/api/v1/billing"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderTenantID, e.tenantID.String())
	req.Header.Set(middleware.HeaderUserID, e.userID.String())
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func (e *testEnv) seedMember(outstanding string) *billing.Member {
	e.t.Helper()
	m := &billing.Member{
		TenantID:     e.tenantID,
		MemberNumber: "M-" + uuid.NewString()[:8],
		Name:         "Grace Hopper",
		Email:        "grace@example.com",
		JoinDate:     time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC),
		Balances:     billing.AccountBalances{Outstanding: decimal.RequireFromString(outstanding), Credit: decimal.Zero},
	}
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	require.NoError(e.t, persistence.NewGormAccountRepository(e.db).CreateMember(e.t.Context(), m))
	return m
}

func (e *testEnv) seedInvoice(account billing.AccountRef, number, total string, due time.Time) *billing.Invoice {
	e.t.Helper()
	inv, err := billing.NewInvoice(e.tenantID, account, number, decimal.RequireFromString(total), due)
	require.NoError(e.t, err)
	require.NoError(e.t, persistence.NewGormInvoiceRepository(e.db).Create(e.t.Context(), inv))
	return inv
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertStatus(t *testing.T, want, got int, env envelope) {
	t.Helper()
	if want != got {
		msg := ""
		if env.Error != nil {
			msg = env.Error.Code + ": " + env.Error.Message
		}
		require.Equal(t, want, got, msg)
	}
}
