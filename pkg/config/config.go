// Package config assembles runtime configuration from, in order of
// precedence: command-line flags, environment variables (secrets come
// from config/secrets.env) and an optional YAML config file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// SecretsFile is loaded into the environment before viper reads it.
const SecretsFile = "config/secrets.env"

// QBO holds app-level QuickBooks credentials and endpoints.
type QBO struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	BaseURL      string
	TokenURL     string
	MinorVersion string
}

// Server holds the webhook listener settings.
type Server struct {
	Addr         string
	WebhookToken string
}

// Config is the full runtime configuration.
type Config struct {
	MasterSheetID     string
	MasterTab         string
	ControlTab        string
	GoogleCredentials string
	RulesFile         string
	TemplatePrefix    string
	QBO               QBO
	Server            Server
}

// Build loads configuration. flags may be nil; a missing config file is
// fine, a malformed one is not.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	_ = gotenv.Load(SecretsFile)

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("master_sheet_id", "1fVAVZXosAIz-Je-04vJe80Ggr1iAYNqBxMM84-FVWlU")
	v.SetDefault("master_tab_name", "Sheet1")
	v.SetDefault("control_tab_name", "JOBS CONTROL")
	v.SetDefault("google_credentials_path", "config/service_account.json")
	v.SetDefault("rules_file", "config/rules.yaml")
	v.SetDefault("template_prefix", "Sample - ")
	v.SetDefault("qbo_base_url", "https://quickbooks.api.intuit.com")
	v.SetDefault("qbo_token_url", "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer")
	v.SetDefault("qbo_minor_version", "65")
	v.SetDefault("server_addr", ":8080")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	cfg := &Config{
		MasterSheetID:     v.GetString("master_sheet_id"),
		MasterTab:         v.GetString("master_tab_name"),
		ControlTab:        v.GetString("control_tab_name"),
		GoogleCredentials: v.GetString("google_credentials_path"),
		RulesFile:         v.GetString("rules_file"),
		TemplatePrefix:    v.GetString("template_prefix"),
		QBO: QBO{
			ClientID:     v.GetString("qbo_client_id"),
			ClientSecret: v.GetString("qbo_client_secret"),
			RedirectURI:  v.GetString("qbo_redirect_uri"),
			BaseURL:      v.GetString("qbo_base_url"),
			TokenURL:     v.GetString("qbo_token_url"),
			MinorVersion: v.GetString("qbo_minor_version"),
		},
		Server: Server{
			Addr:         v.GetString("server_addr"),
			WebhookToken: v.GetString("webhook_token"),
		},
	}
	return cfg, nil
}

// Validate checks the fields every online command needs.
func (c *Config) Validate() error {
	if c.MasterSheetID == "" {
		return fmt.Errorf("master_sheet_id is required")
	}
	if c.QBO.ClientID == "" || c.QBO.ClientSecret == "" {
		return fmt.Errorf("qbo_client_id and qbo_client_secret are required")
	}
	return nil
}
