package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		t.Chdir(t.TempDir())

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "clubledger", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "clubledger", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, "RCP", cfg.Billing.ReceiptPrefix)
		assert.Equal(t, "PA", cfg.Billing.ArrangementPrefix)
		assert.Equal(t, 24*time.Hour, cfg.Billing.IdempotencyTTL)
		assert.Equal(t, "clubledger", cfg.Telemetry.ServiceName)
		assert.False(t, cfg.Auth.Enabled)
	})

	t.Run("loads values from environment variables with CLUB prefix", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("CLUB_APP_PORT", "9000")
		t.Setenv("CLUB_DATABASE_HOST", "ledgerdb.local")
		t.Setenv("CLUB_DATABASE_PORT", "5433")
		t.Setenv("CLUB_DATABASE_MAX_OPEN_CONNS", "50")
		t.Setenv("CLUB_DATABASE_MAX_IDLE_CONNS", "10")
		t.Setenv("CLUB_BILLING_RECEIPT_PREFIX", "REC")
		t.Setenv("CLUB_BILLING_IDEMPOTENCY_TTL", "2h")
		t.Setenv("CLUB_REDIS_ENABLED", "true")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "ledgerdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, "REC", cfg.Billing.ReceiptPrefix)
		assert.Equal(t, 2*time.Hour, cfg.Billing.IdempotencyTTL)
		assert.True(t, cfg.Redis.Enabled)
	})

	t.Run("rejects short jwt secret when auth is enabled", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("CLUB_AUTH_ENABLED", "true")
		t.Setenv("CLUB_AUTH_JWT_SECRET", "short")

		_, err := Load()
		assert.ErrorContains(t, err, "jwt_secret")
	})
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "idle exceeds open",
			mutate:  func(c *Config) { c.Database.MaxIdleConns = c.Database.MaxOpenConns + 1 },
			wantErr: "max_idle_conns",
		},
		{
			name:    "idempotency ttl too short",
			mutate:  func(c *Config) { c.Billing.IdempotencyTTL = time.Second },
			wantErr: "idempotency_ttl",
		},
		{
			name:    "prefix with dash",
			mutate:  func(c *Config) { c.Billing.ReceiptPrefix = "R-C" },
			wantErr: "prefixes",
		},
		{
			name:    "sampling ratio out of range",
			mutate:  func(c *Config) { c.Telemetry.SamplingRatio = 1.5 },
			wantErr: "sampling_ratio",
		},
		{
			name:    "production requires auth",
			mutate:  func(c *Config) { c.App.Env = "production" },
			wantErr: "auth.enabled",
		},
		{
			name: "production rejects wildcard cors",
			mutate: func(c *Config) {
				c.App.Env = "production"
				c.Auth.Enabled = true
				c.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
				c.Database.Password = "secret"
				c.Database.SSLMode = "require"
				c.HTTP.CORSAllowOrigins = []string{"*"}
			},
			wantErr: "cors_allow_origins",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "ledger",
		Password: "p@ss/word",
		DBName:   "clubledger",
		SSLMode:  "require",
	}

	assert.Equal(t, "postgres://ledger:p%40ss%2Fword@db:5432/clubledger?sslmode=require", d.DSN())
}
