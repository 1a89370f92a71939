package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PROJECT_ID", "booking-prod")
	t.Setenv("COMPLETION_API_KEY", "sk-test")
	t.Setenv("TOOLBROKER_SERVER_URL", "https://broker.example.com/mcp")
	t.Setenv("TOOLBROKER_TOKEN", "broker-token")
	t.Setenv("STORAGE_REPORTS_BUCKET", "booking-reports")
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "booking-prod", cfg.App.ProjectID)
	assert.Equal(t, "sk-test", cfg.Completion.APIKey)
	assert.Equal(t, 60*time.Second, cfg.Completion.Timeout)
	assert.Equal(t, "bookings", cfg.Firestore.Collection)
	assert.Equal(t, "reports", cfg.Storage.ReportsPrefix)
	assert.NotEmpty(t, cfg.ToolBroker.PhaseOneTools)
	assert.Equal(t, []string{"google_sheets_update_spreadsheet_row"}, cfg.ToolBroker.PhaseTwoTools)
	assert.Empty(t, cfg.Handoff.WorkflowID)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("COMPLETION_TIMEOUT", "45s")
	t.Setenv("TOOLBROKER_PHASE_TWO_TOOLS", "google_sheets_update_spreadsheet_row, slack_send_channel_message")
	t.Setenv("HANDOFF_WORKFLOW_ID", "booking-followup")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Completion.Timeout)
	assert.Equal(t, []string{"google_sheets_update_spreadsheet_row", "slack_send_channel_message"}, cfg.ToolBroker.PhaseTwoTools)
	assert.Equal(t, "booking-followup", cfg.Handoff.WorkflowID)
}

func TestLoad_UnprefixedWorkflowEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WORKFLOW_ID", "mapping-dispatch")
	t.Setenv("WORKFLOW_LOCATION", "europe-west1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mapping-dispatch", cfg.Handoff.WorkflowID)
	assert.Equal(t, "europe-west1", cfg.Handoff.Location)
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("COMPLETION_API_KEY", "")
	t.Setenv("STORAGE_REPORTS_BUCKET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "completion.api_key")
	assert.Contains(t, err.Error(), "storage.reports_bucket")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a, b", " c ", ""}))
	assert.Nil(t, splitList(nil))
}
