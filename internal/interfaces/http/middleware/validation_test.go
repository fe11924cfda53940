package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestHandleValidationError(t *testing.T) {
	type payment struct {
		AccountID string `json:"account_id" binding:"required,uuid"`
		Method    string `json:"method" binding:"required,oneof=CASH CARD"`
		PaidOn    string `json:"paid_on" binding:"omitempty,datetime=2006-01-02"`
	}
	SetupValidator()

	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req payment
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	t.Run("lists failing fields by json name", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test",
			strings.NewReader(`{"account_id":"nope","method":"GOLD","paid_on":"15/01/2024"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		var body struct {
			Error struct {
				Code    string `json:"code"`
				Details []struct {
					Field   string `json:"field"`
					Message string `json:"message"`
				} `json:"details"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
		require.Len(t, body.Error.Details, 3)
		assert.Equal(t, "account_id", body.Error.Details[0].Field)
		assert.Equal(t, "Invalid UUID format", body.Error.Details[0].Message)
		assert.Equal(t, "Must be one of: CASH CARD", body.Error.Details[1].Message)
		assert.Equal(t, "paid_on", body.Error.Details[2].Field)
	})

	t.Run("malformed JSON is a bad request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"account_id":`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "BAD_REQUEST")
	})
}

func TestHTTPMetrics(t *testing.T) {
	mw, err := HTTPMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	router := gin.New()
	router.Use(mw, Tracing("club-billing", false), SpanIdentity())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
