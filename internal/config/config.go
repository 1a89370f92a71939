package config

import "time"

// Config is the configuration of the mapping-confirmation and booking-event functions.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Completion CompletionConfig `mapstructure:"completion"`
	ToolBroker ToolBrokerConfig `mapstructure:"toolbroker"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Firestore  FirestoreConfig  `mapstructure:"firestore"`
	Handoff    HandoffConfig    `mapstructure:"handoff"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type AppConfig struct {
	ProjectID   string `mapstructure:"project_id"`
	Environment string `mapstructure:"environment"`
}

// CompletionConfig configures the completion-service gateway.
type CompletionConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"`
	ReasoningEffort string        `mapstructure:"reasoning_effort"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// ToolBrokerConfig declares the remote tool-broker the completion service
// may call, and which actions each phase is allowed to use.
type ToolBrokerConfig struct {
	ServerLabel   string   `mapstructure:"server_label"`
	ServerURL     string   `mapstructure:"server_url"`
	Token         string   `mapstructure:"token"`
	PhaseOneTools []string `mapstructure:"phase_one_tools"`
	PhaseTwoTools []string `mapstructure:"phase_two_tools"`
}

type StorageConfig struct {
	ReportsBucket string `mapstructure:"reports_bucket"`
	ReportsPrefix string `mapstructure:"reports_prefix"`
}

type FirestoreConfig struct {
	Collection string `mapstructure:"collection"`
}

// HandoffConfig enables the optional Cloud Workflows hand-off. An empty
// WorkflowID disables it.
type HandoffConfig struct {
	WorkflowID string `mapstructure:"workflow_id"`
	Location   string `mapstructure:"location"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
