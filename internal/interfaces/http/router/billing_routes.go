package router

import (
	"github.com/clubledger/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// BillingHandlers are the handlers mounted under /billing
type BillingHandlers struct {
	Allocation  *handler.AllocationHandler
	Arrangement *handler.ArrangementHandler
	Settings    *handler.SettingsHandler
	Calculator  *handler.CalculatorHandler
}

// NewBillingGroup maps the billing endpoints. Middleware (identity, body
// limit) applies to every billing route.
func NewBillingGroup(h BillingHandlers, middleware ...gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("billing", "/billing").Use(middleware...)

	g.GET("/accounts/:type/:id/outstanding-invoices", h.Allocation.OutstandingInvoices)
	g.POST("/accounts/:type/:id/allocation-plan", h.Allocation.AllocationPlan)
	g.POST("/payments/settle", h.Allocation.Settle)
	g.POST("/payments/apply", h.Allocation.Apply)

	g.POST("/arrangements", h.Arrangement.Create)
	g.GET("/arrangements/:id", h.Arrangement.Get)
	g.POST("/arrangements/:id/activate", h.Arrangement.Activate)
	g.POST("/arrangements/:id/cancel", h.Arrangement.Cancel)
	g.POST("/arrangements/:id/installments/:no/payments", h.Arrangement.PayInstallment)
	g.POST("/arrangements/:id/installments/:no/waive", h.Arrangement.WaiveInstallment)

	g.POST("/settings/initialize", h.Settings.Initialize)
	g.GET("/settings", h.Settings.Get)
	g.PUT("/settings", h.Settings.Update)
	g.POST("/members/:id/profile", h.Settings.CreateMemberProfile)
	g.GET("/members/:id/next-period", h.Settings.NextPeriod)

	g.POST("/calculators/billing-period", h.Calculator.BillingPeriod)
	g.POST("/calculators/proration", h.Calculator.Proration)
	g.POST("/calculators/late-fee", h.Calculator.LateFee)

	return g
}
