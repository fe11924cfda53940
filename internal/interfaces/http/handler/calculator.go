package handler

import (
	"time"

	"github.com/clubledger/backend/internal/domain/billing"
	"github.com/gin-gonic/gin"
)

// CalculatorHandler exposes the pure billing calculators. Nothing is read or
// written; results depend only on the request body.
type CalculatorHandler struct {
	BaseHandler
	now func() time.Time
}

// NewCalculatorHandler creates a new CalculatorHandler
func NewCalculatorHandler() *CalculatorHandler {
	return &CalculatorHandler{now: time.Now}
}

// BillingPeriod godoc
// @Summary      Calculate billing periods
// @Description  Compute one billing period, or count consecutive periods
// @Tags         billing-calculators
// @Accept       json
// @Produce      json
// @Param        request body BillingPeriodRequest true "Request body"
// @Success      200 {object} dto.Response{data=billing.BillingPeriod}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/calculators/billing-period [post]
func (h *CalculatorHandler) BillingPeriod(c *gin.Context) {
	var req BillingPeriodRequest
	if !h.Bind(c, &req) {
		return
	}
	reference, err := parseDate(req.ReferenceDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	joinDate, err := parseOptionalDate(req.JoinDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	cfg := billing.CycleConfig{
		Frequency:  billing.BillingFrequency(req.Frequency),
		Timing:     billing.BillingTiming(req.Timing),
		Alignment:  billing.CycleAlignment(req.Alignment),
		BillingDay: req.BillingDay,
		JoinDate:   joinDate,
	}

	if req.Count > 1 {
		periods, err := billing.CalculateBillingPeriods(cfg, reference, req.Count, req.InvoiceDueDays)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, periods)
		return
	}

	period, err := billing.CalculateNextBillingPeriod(cfg, reference, req.InvoiceDueDays)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, period)
}

// Proration godoc
// @Summary      Calculate proration
// @Description  Compute the charge for a partial billing period
// @Tags         billing-calculators
// @Accept       json
// @Produce      json
// @Param        request body ProrationRequest true "Request body"
// @Success      200 {object} dto.Response{data=billing.ProrationResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/calculators/proration [post]
func (h *CalculatorHandler) Proration(c *gin.Context) {
	var req ProrationRequest
	if !h.Bind(c, &req) {
		return
	}
	dates := make([]time.Time, 3)
	for i, s := range []string{req.PeriodStart, req.PeriodEnd, req.EffectiveDate} {
		d, err := parseDate(s)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		dates[i] = d
	}

	result, err := billing.CalculateProration(billing.ProrationInput{
		Method:           billing.ProrationMethod(req.Method),
		PeriodStart:      dates[0],
		PeriodEnd:        dates[1],
		EffectiveDate:    dates[2],
		FullPeriodAmount: req.FullPeriodAmount,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// LateFee godoc
// @Summary      Calculate late fee
// @Description  Compute the fee owed on an overdue balance
// @Tags         billing-calculators
// @Accept       json
// @Produce      json
// @Param        request body LateFeeRequest true "Request body"
// @Success      200 {object} dto.Response{data=LateFeeResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/calculators/late-fee [post]
func (h *CalculatorHandler) LateFee(c *gin.Context) {
	var req LateFeeRequest
	if !h.Bind(c, &req) {
		return
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	calcDate := billing.StartOfDay(h.now().UTC())
	if req.CalculationDate != "" {
		if calcDate, err = parseDate(req.CalculationDate); err != nil {
			h.HandleError(c, err)
			return
		}
	}

	result, err := billing.CalculateLateFee(req.InvoiceBalance, dueDate, billing.LateFeeConfig{
		Type:            billing.LateFeeType(req.Type),
		Amount:          req.Amount,
		Percentage:      req.Percentage,
		MaxFee:          req.MaxFee,
		GracePeriodDays: req.GracePeriodDays,
	}, calcDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, LateFeeResponse{
		LateFeeResult: result,
		ShouldApply:   billing.ShouldApplyLateFee(dueDate, req.GracePeriodDays, calcDate),
	})
}
