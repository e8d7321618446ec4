package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDefaults(t *testing.T) {
	cfg, err := Build("", nil)
	require.NoError(t, err)

	assert.Equal(t, "Sheet1", cfg.MasterTab)
	assert.Equal(t, "JOBS CONTROL", cfg.ControlTab)
	assert.Equal(t, "Sample - ", cfg.TemplatePrefix)
	assert.Equal(t, "https://quickbooks.api.intuit.com", cfg.QBO.BaseURL)
	assert.Equal(t, "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer", cfg.QBO.TokenURL)
	assert.Equal(t, "65", cfg.QBO.MinorVersion)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestBuildEnvOverride(t *testing.T) {
	t.Setenv("QBO_MINOR_VERSION", "70")
	t.Setenv("MASTER_SHEET_ID", "abc123")
	t.Setenv("WEBHOOK_TOKEN", "hush")

	cfg, err := Build("", nil)
	require.NoError(t, err)
	assert.Equal(t, "70", cfg.QBO.MinorVersion)
	assert.Equal(t, "abc123", cfg.MasterSheetID)
	assert.Equal(t, "hush", cfg.Server.WebhookToken)
}

func TestBuildFlagOverride(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("control_tab_name", "", "")
	require.NoError(t, flags.Set("control_tab_name", "BOARD"))

	cfg, err := Build("", flags)
	require.NoError(t, err)
	assert.Equal(t, "BOARD", cfg.ControlTab)
}

func TestValidate(t *testing.T) {
	cfg, err := Build("", nil)
	require.NoError(t, err)

	cfg.QBO.ClientID = "id"
	cfg.QBO.ClientSecret = "secret"
	assert.NoError(t, cfg.Validate())

	cfg.MasterSheetID = ""
	assert.Error(t, cfg.Validate())
}

func TestBuildMissingExplicitFile(t *testing.T) {
	_, err := Build("does-not-exist.yaml", nil)
	assert.Error(t, err)
}
