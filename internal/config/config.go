package config

import "time"

// Config is the root configuration document for sentryctl.
type Config struct {
	Environment string               `yaml:"environment"`
	LogLevel    string               `yaml:"log_level"`
	Providers   map[string]Provider  `yaml:"providers"`
	Budgets     Budgets              `yaml:"budgets"`
	Sanitizer   SanitizerConfig      `yaml:"sanitizer"`
	EmergencyStop EmergencyStopConfig `yaml:"emergency_stop"`
	Governance  GovernanceConfig     `yaml:"governance"`
	FactLedger  FactLedgerConfig     `yaml:"fact_ledger"`
	MCP         []MCPServer          `yaml:"mcp_servers"`
	Identities  map[string]Identity  `yaml:"identities"`
}

// Identity configures one credential-detection pattern for the Auth
// Broker. Exactly one of the three fields groups is meaningful,
// selected by Kind.
type Identity struct {
	Kind string `yaml:"kind"` // "host_inherited", "env_vault", or "oauth_file"

	// host_inherited
	CredentialFile string   `yaml:"credential_file,omitempty"`
	ProbeCmd       []string `yaml:"probe_cmd,omitempty"`

	// env_vault
	EnvVar string `yaml:"env_var,omitempty"`
	Hint   string `yaml:"hint,omitempty"`

	// oauth_file
	TokenFile string `yaml:"token_file,omitempty"`
	AuthURL   string `yaml:"auth_url,omitempty"`
}

// Provider configures one LLM backend.
type Provider struct {
	Kind    string  `yaml:"kind"` // "anthropic" or "openai"
	APIKey  string  `yaml:"api_key"`
	Model   string  `yaml:"model"`
	BaseURL string  `yaml:"base_url,omitempty"`
	Input   float64 `yaml:"price_input_per_million"`
	Output  float64 `yaml:"price_output_per_million"`
}

// Budgets configures per-task runtime ceilings.
type Budgets struct {
	MaxIterations   int           `yaml:"max_iterations"`
	MaxWallClock    time.Duration `yaml:"max_wall_clock"`
	LLMTimeout      time.Duration `yaml:"llm_timeout"`
	ToolTimeout     time.Duration `yaml:"tool_timeout"`
	MaxCostUSD      float64       `yaml:"max_cost_usd"`
	HourlyCeiling   float64       `yaml:"hourly_ceiling_usd"`
	CostHistoryPath string        `yaml:"cost_history_path"`
}

// SanitizerConfig configures the output sanitizer.
type SanitizerConfig struct {
	RedactIPs bool `yaml:"redact_ips"`
	MaxBytes  int  `yaml:"max_bytes"`
}

// EmergencyStopConfig configures the sentinel-file stop switch.
type EmergencyStopConfig struct {
	SentinelPath string `yaml:"sentinel_path"`
}

// GovernanceConfig configures the approval ledger and its TTL.
type GovernanceConfig struct {
	Backend           string        `yaml:"backend"` // "file" (default) or "sqlite"
	ApprovalStorePath string        `yaml:"approval_store_path"`
	ApprovalTTL       time.Duration `yaml:"approval_ttl"`
}

// FactLedgerConfig configures the append-only fact ledger.
type FactLedgerConfig struct {
	Path        string `yaml:"path"`
	MaxFileSize int64  `yaml:"max_file_size_bytes"`
}

// MCPServer declares one externally-bridged tool source.
type MCPServer struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
}

// Default returns the baseline configuration applied before a document
// is decoded over it.
func Default() *Config {
	return &Config{
		Environment: "dev",
		LogLevel:    "info",
		Budgets: Budgets{
			MaxIterations:   5,
			MaxWallClock:    10 * time.Minute,
			LLMTimeout:      60 * time.Second,
			ToolTimeout:     5 * time.Minute,
			CostHistoryPath: "./data/cost_history.json",
		},
		Sanitizer: SanitizerConfig{MaxBytes: 5 * 1024},
		EmergencyStop: EmergencyStopConfig{SentinelPath: ".emergency_stop"},
		Governance: GovernanceConfig{
			ApprovalStorePath: "./data/approvals.json",
			ApprovalTTL:       24 * time.Hour,
		},
		FactLedger: FactLedgerConfig{
			Path:        "./data/facts.json",
			MaxFileSize: 10 * 1024 * 1024,
		},
	}
}
