package handler

import (
	"strings"

	billingapp "github.com/clubledger/backend/internal/application/billing"
	"github.com/clubledger/backend/internal/domain/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ArrangementHandler handles payment arrangement endpoints
type ArrangementHandler struct {
	BaseHandler
	arrangementService *billingapp.ArrangementService
}

// NewArrangementHandler creates a new ArrangementHandler
func NewArrangementHandler(arrangementService *billingapp.ArrangementService) *ArrangementHandler {
	return &ArrangementHandler{
		arrangementService: arrangementService,
	}
}

// Create godoc
// @Summary      Create a payment arrangement
// @Description  Group open invoices into a DRAFT installment plan
// @Tags         billing-arrangements
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        request body CreateArrangementRequest true "Request body"
// @Success      201 {object} dto.Response{data=billingapp.ArrangementResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/arrangements [post]
func (h *ArrangementHandler) Create(c *gin.Context) {
	tenantID, actor, ok := caller(c)
	if !ok {
		h.Unauthorized(c, "tenant is required")
		return
	}
	var req CreateArrangementRequest
	if !h.Bind(c, &req) {
		return
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	invoiceIDs := make([]uuid.UUID, len(req.InvoiceIDs))
	for i, id := range req.InvoiceIDs {
		invoiceIDs[i] = uuid.MustParse(id)
	}

	arrangement, err := h.arrangementService.CreateArrangement(c.Request.Context(), billingapp.CreateArrangementRequest{
		TenantID: tenantID,
		Account: billing.AccountRef{
			ID:   uuid.MustParse(req.AccountID),
			Type: billing.AccountType(strings.ToUpper(req.AccountType)),
		},
		InvoiceIDs:       invoiceIDs,
		InstallmentCount: req.InstallmentCount,
		Frequency:        billing.InstallmentFrequency(req.Frequency),
		StartDate:        startDate,
		Notes:            req.Notes,
		Actor:            actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, arrangement)
}

// Get godoc
// @Summary      Get payment arrangement by ID
// @Description  Retrieve one arrangement with its installments
// @Tags         billing-arrangements
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Arrangement ID" format(uuid)
// @Success      200 {object} dto.Response{data=billingapp.ArrangementResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/arrangements/{id} [get]
func (h *ArrangementHandler) Get(c *gin.Context) {
	tenantID, _, ok := caller(c)
	if !ok {
		h.Unauthorized(c, "tenant is required")
		return
	}
	var uri IDURI
	if !h.BindURI(c, &uri) {
		return
	}

	arrangement, err := h.arrangementService.GetArrangement(c.Request.Context(), tenantID, uuid.MustParse(uri.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, arrangement)
}

// Activate godoc
// @Summary      Activate a payment arrangement
// @Description  Approve a DRAFT arrangement. The caller is recorded as approver
// @Tags         billing-arrangements
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Arrangement ID" format(uuid)
// @Success      200 {object} dto.Response{data=billingapp.ArrangementResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/arrangements/{id}/activate [post]
func (h *ArrangementHandler) Activate(c *gin.Context) {
	tenantID, actor, ok := caller(c)
	if !ok {
		h.Unauthorized(c, "tenant is required")
		return
	}
	var uri IDURI
	if !h.BindURI(c, &uri) {
		return
	}

	arrangement, err := h.arrangementService.ActivateArrangement(c.Request.Context(), tenantID, uuid.MustParse(uri.ID), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, arrangement)
}

// Cancel godoc
// @Summary      Cancel a payment arrangement
// @Description  Cancel an arrangement that is not yet completed
// @Tags         billing-arrangements
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Arrangement ID" format(uuid)
// @Param        request body CancelArrangementRequest true "Request body"
// @Success      200 {object} dto.Response{data=billingapp.ArrangementResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/arrangements/{id}/cancel [post]
func (h *ArrangementHandler) Cancel(c *gin.Context) {
	tenantID, actor, ok := caller(c)
	if !ok {
		h.Unauthorized(c, "tenant is required")
		return
	}
	var uri IDURI
	if !h.BindURI(c, &uri) {
		return
	}
	var req CancelArrangementRequest
	if !h.Bind(c, &req) {
		return
	}

	arrangement, err := h.arrangementService.CancelArrangement(c.Request.Context(), tenantID, uuid.MustParse(uri.ID), req.Reason, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, arrangement)
}

// PayInstallment godoc
// @Summary      Pay an installment
// @Description  Record a payment against one installment
// @Tags         billing-arrangements
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Arrangement ID" format(uuid)
// @Param        no path int true "Installment number" minimum(1)
// @Param        request body InstallmentPaymentRequest true "Request body"
// @Success      200 {object} dto.Response{data=billingapp.ArrangementResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/arrangements/{id}/installments/{no}/payments [post]
func (h *ArrangementHandler) PayInstallment(c *gin.Context) {
	tenantID, actor, ok := caller(c)
	if !ok {
		h.Unauthorized(c, "tenant is required")
		return
	}
	var uri InstallmentURI
	if !h.BindURI(c, &uri) {
		return
	}
	var req InstallmentPaymentRequest
	if !h.Bind(c, &req) {
		return
	}

	arrangement, err := h.arrangementService.RecordInstallmentPayment(c.Request.Context(), billingapp.InstallmentPaymentRequest{
		TenantID:      tenantID,
		ArrangementID: uuid.MustParse(uri.ID),
		InstallmentNo: uri.No,
		PaymentID:     uuid.MustParse(req.PaymentID),
		Amount:        req.Amount,
		Actor:         actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, arrangement)
}

// WaiveInstallment godoc
// @Summary      Waive an installment
// @Description  Forgive one pending installment
// @Tags         billing-arrangements
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Arrangement ID" format(uuid)
// @Param        no path int true "Installment number" minimum(1)
// @Param        request body WaiveInstallmentRequest true "Request body"
// @Success      200 {object} dto.Response{data=billingapp.ArrangementResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/arrangements/{id}/installments/{no}/waive [post]
func (h *ArrangementHandler) WaiveInstallment(c *gin.Context) {
	tenantID, actor, ok := caller(c)
	if !ok {
		h.Unauthorized(c, "tenant is required")
		return
	}
	var uri InstallmentURI
	if !h.BindURI(c, &uri) {
		return
	}
	var req WaiveInstallmentRequest
	if !h.Bind(c, &req) {
		return
	}

	arrangement, err := h.arrangementService.WaiveInstallment(c.Request.Context(), tenantID, uuid.MustParse(uri.ID), uri.No, req.Reason, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, arrangement)
}
