package handler

import (
	"time"

	billingapp "github.com/clubledger/backend/internal/application/billing"
	"github.com/clubledger/backend/internal/domain/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SettingsHandler handles club billing policy and member override endpoints
type SettingsHandler struct {
	BaseHandler
	settingsService *billingapp.SettingsService
	now             func() time.Time
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(settingsService *billingapp.SettingsService) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
		now:             time.Now,
	}
}

// Initialize godoc
// @Summary      Initialize billing settings
// @Description  Provision the default billing policy for the caller's tenant
// @Tags         billing-settings
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Success      201 {object} dto.Response{data=billingapp.SettingsResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/settings/initialize [post]
func (h *SettingsHandler) Initialize(c *gin.Context) {
	tenantID, actor, ok := caller(c)
	if !ok {
		h.Unauthorized(c, "tenant is required")
		return
	}

	settings, err := h.settingsService.InitializeTenantSettings(c.Request.Context(), tenantID, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, settings)
}

// Get godoc
// @Summary      Get billing settings
// @Description  Retrieve the tenant billing policy
// @Tags         billing-settings
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Success      200 {object} dto.Response{data=billingapp.SettingsResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/settings [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	tenantID, _, ok := caller(c)
	if !ok {
		h.Unauthorized(c, "tenant is required")
		return
	}

	settings, err := h.settingsService.GetSettings(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}

// Update godoc
// @Summary      Update billing settings
// @Description  Apply a partial update to the tenant billing policy
// @Tags         billing-settings
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        request body UpdateSettingsRequest true "Request body"
// @Success      200 {object} dto.Response{data=billingapp.SettingsResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/settings [put]
func (h *SettingsHandler) Update(c *gin.Context) {
	tenantID, _, ok := caller(c)
	if !ok {
		h.Unauthorized(c, "tenant is required")
		return
	}
	var req UpdateSettingsRequest
	if !h.Bind(c, &req) {
		return
	}

	settings, err := h.settingsService.UpdateSettings(c.Request.Context(), tenantID, req.patch())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}

// CreateMemberProfile godoc
// @Summary      Create member billing profile
// @Description  Store a member's billing overrides
// @Tags         billing-settings
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Member ID" format(uuid)
// @Param        request body MemberProfileRequest true "Request body"
// @Success      201 {object} dto.Response{data=billingapp.MemberProfileResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/members/{id}/profile [post]
func (h *SettingsHandler) CreateMemberProfile(c *gin.Context) {
	tenantID, _, ok := caller(c)
	if !ok {
		h.Unauthorized(c, "tenant is required")
		return
	}
	var uri IDURI
	if !h.BindURI(c, &uri) {
		return
	}
	var req MemberProfileRequest
	if !h.Bind(c, &req) {
		return
	}
	appReq, err := req.toApp()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	profile, err := h.settingsService.CreateMemberProfile(c.Request.Context(), tenantID, uuid.MustParse(uri.ID), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, profile)
}

// NextPeriod godoc
// @Summary      Get member's next billing period
// @Description  Compute the member's billing period for the given date, today by default
// @Tags         billing-settings
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Member ID" format(uuid)
// @Param        date query string false "Reference date (YYYY-MM-DD)" format(date)
// @Success      200 {object} dto.Response{data=billing.BillingPeriod}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/members/{id}/next-period [get]
func (h *SettingsHandler) NextPeriod(c *gin.Context) {
	tenantID, _, ok := caller(c)
	if !ok {
		h.Unauthorized(c, "tenant is required")
		return
	}
	var uri IDURI
	if !h.BindURI(c, &uri) {
		return
	}
	var query NextPeriodQuery
	if !h.BindQuery(c, &query) {
		return
	}

	reference := billing.StartOfDay(h.now().UTC())
	if query.Date != "" {
		d, err := parseDate(query.Date)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		reference = d
	}

	period, err := h.settingsService.NextBillingPeriodForMember(c.Request.Context(), tenantID, uuid.MustParse(uri.ID), reference)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, period)
}
