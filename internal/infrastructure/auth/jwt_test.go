package auth

import (
	"testing"
	"time"

	"github.com/clubledger/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestVerifier() *Verifier {
	return NewVerifier(config.AuthConfig{Enabled: true, JWTSecret: testSecret, Issuer: "clubledger"})
}

func newTestClaims(tenantID, userID uuid.UUID) *Claims {
	now := time.Now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "clubledger",
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
		TenantID: tenantID.String(),
		UserID:   userID.String(),
		Email:    "treasurer@club.test",
		Roles:    []string{"billing:write"},
	}
}

func TestVerify_Success(t *testing.T) {
	tenantID, userID := uuid.New(), uuid.New()
	token, err := Sign(testSecret, newTestClaims(tenantID, userID))
	require.NoError(t, err)

	id, err := newTestVerifier().Verify(token)
	require.NoError(t, err)
	assert.Equal(t, tenantID, id.TenantID)
	require.NotNil(t, id.Actor.UserID)
	assert.Equal(t, userID, *id.Actor.UserID)
	assert.Equal(t, "treasurer@club.test", id.Actor.UserEmail)
	assert.True(t, id.HasRole("billing:write"))
	assert.False(t, id.HasRole("admin"))
}

func TestVerify_Failures(t *testing.T) {
	tenantID, userID := uuid.New(), uuid.New()

	tests := []struct {
		name    string
		secret  string
		mutate  func(c *Claims)
		wantErr error
	}{
		{
			name:    "wrong secret",
			secret:  "another-secret-key-at-least-32-chars",
			wantErr: ErrInvalidToken,
		},
		{
			name:    "expired",
			secret:  testSecret,
			mutate:  func(c *Claims) { c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute)) },
			wantErr: ErrExpiredToken,
		},
		{
			name:    "not yet valid",
			secret:  testSecret,
			mutate:  func(c *Claims) { c.NotBefore = jwt.NewNumericDate(time.Now().Add(time.Hour)) },
			wantErr: ErrTokenNotYetValid,
		},
		{
			name:    "foreign issuer",
			secret:  testSecret,
			mutate:  func(c *Claims) { c.Issuer = "someone-else" },
			wantErr: ErrInvalidToken,
		},
		{
			name:    "missing tenant",
			secret:  testSecret,
			mutate:  func(c *Claims) { c.TenantID = "" },
			wantErr: ErrMissingTenantID,
		},
		{
			name:    "malformed tenant",
			secret:  testSecret,
			mutate:  func(c *Claims) { c.TenantID = "club-1" },
			wantErr: ErrInvalidClaims,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := newTestClaims(tenantID, userID)
			if tt.mutate != nil {
				tt.mutate(claims)
			}
			token, err := Sign(tt.secret, claims)
			require.NoError(t, err)

			_, err = newTestVerifier().Verify(token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	claims := newTestClaims(uuid.New(), uuid.New())
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestVerifier().Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClaims_Identity_ServiceAccount(t *testing.T) {
	tenantID := uuid.New()
	id, err := (&Claims{TenantID: tenantID.String()}).Identity()
	require.NoError(t, err)
	assert.Equal(t, tenantID, id.TenantID)
	assert.Nil(t, id.Actor.UserID)
}
