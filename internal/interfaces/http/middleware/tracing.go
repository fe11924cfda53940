package middleware

import (
	"github.com/clubledger/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracing wraps otelgin so every request gets a server span named after its
// route pattern. When disabled it is a pass-through.
func Tracing(serviceName string, enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return otelgin.Middleware(serviceName)
}

// SpanIdentity copies the request, tenant and user IDs onto the active span.
// It runs after Identity so the tenant is known.
func SpanIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			for _, key := range []string{logger.GinRequestIDKey, logger.GinTenantIDKey, logger.GinUserIDKey} {
				if v := c.GetString(key); v != "" {
					span.SetAttributes(attribute.String(key, v))
				}
			}
		}
		c.Next()
	}
}
