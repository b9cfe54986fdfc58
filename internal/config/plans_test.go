package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPlans_MissingFileUsesDefaults(t *testing.T) {
	plans, err := LoadPlans(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, int64(1000), plans.FreeMessageLimit)
	assert.Equal(t, 2.0, plans.FreeRPS)
	assert.Equal(t, 10.0, plans.PrivilegedRPS)
}

func TestLoadPlans_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.yaml")
	content := `
free_message_limit: 250
free_rps: 1.5
privileged_rps: 8
vip_price_egp: 150
vip_price_usd: 5
payment_methods:
  vodafone_cash: "01000000000"
support_username: support_user
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	plans, err := LoadPlans(path)
	require.NoError(t, err)

	assert.Equal(t, int64(250), plans.FreeMessageLimit)
	assert.Equal(t, 1.5, plans.FreeRPS)
	assert.Equal(t, 150, plans.VIPPriceEGP)
	assert.Equal(t, "01000000000", plans.PaymentMethods["vodafone_cash"])
	assert.Equal(t, "support_user", plans.SupportUsername)
}

func TestLoadPlans_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero limit", "free_message_limit: 0"},
		{"negative rps", "free_rps: -1"},
		{"not yaml", "{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "plans.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := LoadPlans(path)
			assert.Error(t, err)
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	os.Unsetenv("DATABASE_PATH")
	os.Unsetenv("SESSIONS_FILE")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "./bot.db", cfg.DatabasePath)
	assert.Equal(t, "./user_sessions.json", cfg.SessionsFile)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestConfig_FromEnv(t *testing.T) {
	os.Setenv("DATABASE_PATH", "/data/bot.db")
	os.Setenv("OWNER_ID", "123456")
	defer func() {
		os.Unsetenv("DATABASE_PATH")
		os.Unsetenv("OWNER_ID")
	}()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/bot.db", cfg.DatabasePath)
	assert.Equal(t, int64(123456), cfg.OwnerID)
}
