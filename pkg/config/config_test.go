package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	require.NotNil(t, cfg)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, DefaultTimezone, cfg.Timezone)
	assert.Equal(t, 48*time.Hour, cfg.FollowUp.TAT)
	assert.Equal(t, 3, cfg.FollowUp.MaxEscalations)
	assert.Equal(t, 3, cfg.Referral.ReminderCount)
	assert.Equal(t, "admissions.notifications", cfg.Notifications.Topic)
	assert.False(t, cfg.IsProduction())
	assert.Empty(t, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "admissions", cfg.Redis.Namespace)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("ENV", EnvProduction)
	v.Set("FINANCE_BASE_URL", "https://finance.internal/")
	v.Set("INTEGRATION_TIMEOUT", "not-a-duration")
	v.Set("FOLLOW_UP_TAT", "2h")
	v.Set("CORS_ALLOWED_ORIGINS", "https://crm.example.com, ,https://ops.example.com")

	cfg := fromViper(v)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "https://finance.internal", cfg.Integrations.FinanceBaseURL)
	assert.Equal(t, 10*time.Second, cfg.Integrations.Timeout)
	assert.Equal(t, 2*time.Hour, cfg.FollowUp.TAT)
	assert.Equal(t, []string{"https://crm.example.com", "https://ops.example.com"}, cfg.CORS.AllowedOrigins)
}
