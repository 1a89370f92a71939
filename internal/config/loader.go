package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var defaults = map[string]interface{}{
	"app.environment":             "development",
	"completion.base_url":         "https://api.openai.com/v1",
	"completion.model":            "gpt-5",
	"completion.reasoning_effort": "low",
	"completion.timeout":          60 * time.Second,
	"toolbroker.server_label":     "zapier",
	"toolbroker.phase_one_tools": []string{
		"google_sheets_create_spreadsheet_row",
		"gmail_send_email",
		"google_calendar_quick_add_event",
	},
	"toolbroker.phase_two_tools": []string{
		"google_sheets_update_spreadsheet_row",
	},
	"storage.reports_prefix": "reports",
	"firestore.collection":   "bookings",
	"handoff.location":       "us-central1",
	"logging.level":          "info",
	"logging.format":         "json",
}

var envAliases = map[string][]string{
	"app.project_id":      {"APP_PROJECT_ID", "PROJECT_ID", "GOOGLE_CLOUD_PROJECT"},
	"handoff.workflow_id": {"HANDOFF_WORKFLOW_ID", "WORKFLOW_ID"},
	"handoff.location":    {"HANDOFF_LOCATION", "WORKFLOW_LOCATION"},
}

// Keys that must be known to viper so AutomaticEnv can fill them during Unmarshal.
var envOnlyKeys = []string{
	"completion.api_key",
	"toolbroker.server_url",
	"toolbroker.token",
	"storage.reports_bucket",
	"handoff.workflow_id",
}

// Load reads an optional .env file, an optional config.yaml and the process
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load() // a missing .env is normal outside local development

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range envOnlyKeys {
		v.SetDefault(key, "")
	}
	// Cloud Functions and older deployments use these unprefixed names.
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ToolBroker.PhaseOneTools = splitList(cfg.ToolBroker.PhaseOneTools)
	cfg.ToolBroker.PhaseTwoTools = splitList(cfg.ToolBroker.PhaseTwoTools)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings without which no run can succeed.
func (c *Config) Validate() error {
	var missing []string
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	require("app.project_id", c.App.ProjectID)
	require("completion.api_key", c.Completion.APIKey)
	require("completion.base_url", c.Completion.BaseURL)
	require("toolbroker.server_url", c.ToolBroker.ServerURL)
	require("toolbroker.token", c.ToolBroker.Token)
	require("storage.reports_bucket", c.Storage.ReportsBucket)
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	if c.Completion.Timeout <= 0 {
		return fmt.Errorf("completion.timeout must be positive, got %s", c.Completion.Timeout)
	}
	if len(c.ToolBroker.PhaseOneTools) == 0 || len(c.ToolBroker.PhaseTwoTools) == 0 {
		return fmt.Errorf("toolbroker phase tool lists must not be empty")
	}
	return nil
}

// splitList normalises tool lists that arrive as one comma-separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
