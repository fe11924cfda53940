package handler

import (
	billingapp "github.com/clubledger/backend/internal/application/billing"
	"github.com/clubledger/backend/internal/domain/billing"
	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader lets clients retry a settlement safely
const IdempotencyKeyHeader = "Idempotency-Key"

// AllocationHandler exposes outstanding invoices and payment settlement
type AllocationHandler struct {
	BaseHandler
	allocationService *billingapp.AllocationService
}

// NewAllocationHandler creates a new AllocationHandler
func NewAllocationHandler(allocationService *billingapp.AllocationService) *AllocationHandler {
	return &AllocationHandler{
		allocationService: allocationService,
	}
}

// OutstandingInvoices godoc
// @Summary      List outstanding invoices
// @Description  List the account's open invoices in settlement order, oldest due date first
// @Tags         billing-allocation
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        type path string true "Account type" Enums(MEMBER, CITY_LEDGER)
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]billingapp.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/accounts/{type}/{id}/outstanding-invoices [get]
func (h *AllocationHandler) OutstandingInvoices(c *gin.Context) {
	tenantID, _, ok := caller(c)
	if !ok {
		h.Unauthorized(c, "tenant is required")
		return
	}
	var uri AccountURI
	if !h.BindURI(c, &uri) {
		return
	}

	invoices, err := h.allocationService.GetOutstandingInvoices(c.Request.Context(), tenantID, uri.Ref())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoices)
}

// AllocationPlan godoc
// @Summary      Preview a FIFO allocation
// @Description  Preview how an amount would be settled against outstanding invoices. Nothing is written
// @Tags         billing-allocation
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        type path string true "Account type" Enums(MEMBER, CITY_LEDGER)
// @Param        id path string true "Account ID" format(uuid)
// @Param        request body AllocationPlanRequest true "Request body"
// @Success      200 {object} dto.Response{data=billing.AllocationPlan}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/accounts/{type}/{id}/allocation-plan [post]
func (h *AllocationHandler) AllocationPlan(c *gin.Context) {
	tenantID, _, ok := caller(c)
	if !ok {
		h.Unauthorized(c, "tenant is required")
		return
	}
	var uri AccountURI
	if !h.BindURI(c, &uri) {
		return
	}
	var req AllocationPlanRequest
	if !h.Bind(c, &req) {
		return
	}

	plan, err := h.allocationService.PlanSettlement(c.Request.Context(), tenantID, uri.Ref(), req.Amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plan)
}

// Settle godoc
// @Summary      Settle a payment
// @Description  Record a payment and allocate it FIFO. Any excess becomes account credit
// @Tags         billing-payments
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        Idempotency-Key header string false "Client retry key"
// @Param        request body SettlePaymentRequest true "Request body"
// @Success      201 {object} dto.Response{data=billingapp.SettlementResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/payments/settle [post]
func (h *AllocationHandler) Settle(c *gin.Context) {
	tenantID, actor, ok := caller(c)
	if !ok {
		h.Unauthorized(c, "tenant is required")
		return
	}
	var req SettlePaymentRequest
	if !h.Bind(c, &req) {
		return
	}

	result, err := h.allocationService.SettlePayment(c.Request.Context(), billingapp.SettlePaymentRequest{
		TenantID:        tenantID,
		Account:         req.account(),
		Amount:          req.Amount,
		Method:          billing.PaymentMethod(req.Method),
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
		ReceivedAt:      req.receivedAt(),
		IdempotencyKey:  c.GetHeader(IdempotencyKeyHeader),
		Actor:           actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Apply godoc
// @Summary      Apply a payment to chosen invoices
// @Description  Record a payment against an explicit allocation plan
// @Tags         billing-payments
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        Idempotency-Key header string false "Client retry key"
// @Param        request body ApplyAllocationsRequest true "Request body"
// @Success      201 {object} dto.Response{data=billingapp.SettlementResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/payments/apply [post]
func (h *AllocationHandler) Apply(c *gin.Context) {
	tenantID, actor, ok := caller(c)
	if !ok {
		h.Unauthorized(c, "tenant is required")
		return
	}
	var req ApplyAllocationsRequest
	if !h.Bind(c, &req) {
		return
	}

	result, err := h.allocationService.ApplyAllocations(c.Request.Context(), billingapp.ApplyAllocationsRequest{
		TenantID:        tenantID,
		Account:         req.account(),
		Amount:          req.Amount,
		Method:          billing.PaymentMethod(req.Method),
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
		ReceivedAt:      req.receivedAt(),
		Lines:           req.lines(),
		Actor:           actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}
