package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_defaults(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,https://app.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 7*24*time.Hour, cfg.InvitationTTL)
	assert.True(t, cfg.InvitationResendTerminal)
	assert.Equal(t, "noop", cfg.Email.Provider)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"http://localhost:5173", "https://app.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoad_overrides(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_EXPIRY", "1h")
	t.Setenv("INVITATION_RESEND_TERMINAL", "false")
	t.Setenv("EMAIL_PROVIDER", "ses")
	t.Setenv("EMAIL_FROM_ADDRESS", "chores@example.com")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("RATE_LIMIT_STRICT_REQUESTS", "10")
	t.Setenv("RATE_LIMIT_STRICT_WINDOW", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, time.Hour, cfg.JWTExpiry)
	assert.False(t, cfg.InvitationResendTerminal)
	assert.Equal(t, "eu-west-1", cfg.Email.Region)
	assert.Equal(t, RateLimitConfig{Requests: 10, Window: 30 * time.Second}, cfg.StrictRateLimit)
	assert.Equal(t, RateLimitConfig{}, cfg.PublicRateLimit)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Environment:         "development",
			JWTSecret:           "secret",
			JWTExpiry:           time.Hour,
			InvitationTTL:       time.Hour,
			InvitationAcceptURL: "http://x/{token}",
			Email:               EmailConfig{Provider: "noop"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET is required"},
		{"short production secret", func(c *Config) { c.Environment = "production" }, "at least 32 bytes"},
		{"accept url without placeholder", func(c *Config) { c.InvitationAcceptURL = "http://x/" }, "{token}"},
		{"ses without sender", func(c *Config) { c.Email.Provider = "ses" }, "EMAIL_FROM_ADDRESS"},
		{"zero ttl", func(c *Config) { c.InvitationTTL = 0 }, "INVITATION_TTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
