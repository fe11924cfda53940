package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/clubledger/backend/internal/infrastructure/auth"
	"github.com/clubledger/backend/internal/infrastructure/logger"
	"github.com/clubledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Identity context keys
const (
	IdentityKey   = "identity"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenVerifier validates a bearer token into a caller identity
type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

// IdentityConfig holds configuration for the identity middleware
type IdentityConfig struct {
	// Verifier checks bearer tokens. When nil, the caller is taken from the
	// X-Tenant-ID and X-User-ID headers instead.
	Verifier TokenVerifier
	Logger   *zap.Logger
}

// Identity resolves the calling tenant and operator for every request and
// stores it for handlers. Requests without a tenant are rejected with 401.
func Identity(cfg IdentityConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		var (
			identity *auth.Identity
			err      error
		)
		if cfg.Verifier != nil {
			identity, err = bearerIdentity(c, cfg.Verifier)
		} else {
			identity, err = headerIdentity(c)
		}
		if err != nil {
			log.Warn("Caller identity rejected",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
			)
			abortUnauthorized(c, err)
			return
		}

		tenantID := identity.TenantID.String()
		c.Set(IdentityKey, identity)
		c.Set(logger.GinTenantIDKey, tenantID)

		ctx := logger.WithTenantID(c.Request.Context(), tenantID)
		if identity.Actor.UserID != nil {
			userID := identity.Actor.UserID.String()
			c.Set(logger.GinUserIDKey, userID)
			ctx = logger.WithUserID(ctx, userID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func bearerIdentity(c *gin.Context, verifier TokenVerifier) (*auth.Identity, error) {
	header := c.GetHeader(AuthHeaderKey)
	if header == "" || !strings.HasPrefix(header, BearerPrefix) {
		return nil, auth.ErrInvalidToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	if token == "" {
		return nil, auth.ErrInvalidToken
	}
	return verifier.Verify(token)
}

// headerIdentity trusts the gateway headers. Used only with auth disabled.
func headerIdentity(c *gin.Context) (*auth.Identity, error) {
	raw := c.GetHeader(HeaderTenantID)
	if raw == "" {
		return nil, auth.ErrMissingTenantID
	}
	tenantID, err := uuid.Parse(raw)
	if err != nil || tenantID == uuid.Nil {
		return nil, auth.ErrMissingTenantID
	}

	identity := &auth.Identity{TenantID: tenantID}
	if rawUser := c.GetHeader(HeaderUserID); rawUser != "" {
		userID, err := uuid.Parse(rawUser)
		if err != nil {
			return nil, auth.ErrInvalidClaims
		}
		identity.Actor = shared.Actor{UserID: &userID}
	}
	return identity, nil
}

func abortUnauthorized(c *gin.Context, err error) {
	code := dto.ErrCodeUnauthorized
	message := "authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code = dto.ErrCodeTokenExpired
		message = "token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		message = "token is not yet valid"
	case errors.Is(err, auth.ErrMissingTenantID):
		message = "tenant is required"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidClaims):
		message = "invalid token"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}

// GetIdentity returns the caller resolved by Identity
func GetIdentity(c *gin.Context) (*auth.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*auth.Identity)
	return identity, ok && identity != nil
}
