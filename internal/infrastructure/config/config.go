package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the root application configuration, assembled from layered
// viper sources (see Load).
type Config struct {
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Log      LogConfig      `mapstructure:"log"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// GatewayConfig configures the HTTP control plane and websocket Wire bridge.
type GatewayConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // local, production
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig configures the TodoItem/Session persistence seam.
type StorageConfig struct {
	Type string `mapstructure:"type"` // sqlite, postgres
	DSN  string `mapstructure:"dsn"`
}

// AgentConfig is the Engine's own configuration tree.
type AgentConfig struct {
	DefaultModel    string              `mapstructure:"default_model"`
	DefaultProvider string              `mapstructure:"default_provider"`
	Workspace       string              `mapstructure:"workspace"`
	Models          []ModelConfig       `mapstructure:"models"`
	FallbackModels  []string            `mapstructure:"fallback_models"`
	Providers       []LLMProviderConfig `mapstructure:"providers"`

	// Per-model policy overrides (model family key → overrides).
	ModelPolicies map[string]ModelPolicyConfig `mapstructure:"model_policies"`

	Runtime    RuntimeConfig    `mapstructure:"runtime"`
	Guardrails GuardrailsConfig `mapstructure:"guardrails"`
	Tools      ToolsConfig      `mapstructure:"tools"`
	Security   SecurityConfig   `mapstructure:"security"`
	Compaction CompactionConfig `mapstructure:"compaction"`
	MCP        MCPConfig        `mapstructure:"mcp"`
	Hooks      HooksConfig      `mapstructure:"hooks"`
}

// ModelPolicyConfig holds YAML-configurable per-model policy overrides.
// All fields are pointers so nil = "don't override, use auto-detected value".
type ModelPolicyConfig struct {
	RepairToolPairing   *bool   `mapstructure:"repair_tool_pairing"`
	EnforceTurnOrdering *bool   `mapstructure:"enforce_turn_ordering"`
	ReasoningFormat     *string `mapstructure:"reasoning_format"`
	ProgressInterval    *int    `mapstructure:"progress_interval"`
	ProgressEscalation  *bool   `mapstructure:"progress_escalation"`
	PromptStyle         *string `mapstructure:"prompt_style"`
	SystemRoleSupport   *bool   `mapstructure:"system_role_support"`
	ThinkingTagHint     *bool   `mapstructure:"thinking_tag_hint"`
}

// LLMProviderConfig configures an upstream LLM provider endpoint.
type LLMProviderConfig struct {
	Name     string   `mapstructure:"name"`
	BaseURL  string   `mapstructure:"base_url"`
	APIKey   string   `mapstructure:"api_key"`
	Models   []string `mapstructure:"models"`
	Priority int      `mapstructure:"priority"`
}

// ModelConfig describes one selectable model.
type ModelConfig struct {
	ID          string `mapstructure:"id"`
	Alias       string `mapstructure:"alias"`
	Provider    string `mapstructure:"provider"`
	Description string `mapstructure:"description"`
}

// RuntimeConfig holds the Engine's step-loop tunables.
type RuntimeConfig struct {
	ToolTimeout      time.Duration `mapstructure:"tool_timeout"`
	MaxSteps         int           `mapstructure:"max_steps"`
	SubAgentTimeout  time.Duration `mapstructure:"sub_agent_timeout"`
	SubAgentMaxSteps int           `mapstructure:"sub_agent_max_steps"`
	SubAgentMaxDepth int           `mapstructure:"sub_agent_max_depth"`
	MaxTokenBudget   int64         `mapstructure:"max_token_budget"`
	ConcurrentTools  bool          `mapstructure:"concurrent_tools"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryBaseWait    time.Duration `mapstructure:"retry_base_wait"`
}

// GuardrailsConfig configures the context/loop/cost guards.
type GuardrailsConfig struct {
	ContextMaxTokens    int     `mapstructure:"context_max_tokens"`
	ContextWarnRatio    float64 `mapstructure:"context_warn_ratio"`
	ContextHardRatio    float64 `mapstructure:"context_hard_ratio"`
	LoopDetectWindow    int     `mapstructure:"loop_detect_window"`
	LoopDetectThreshold int     `mapstructure:"loop_detect_threshold"`
	LoopNameThreshold   int     `mapstructure:"loop_name_threshold"`
	CostGuardEnabled    bool    `mapstructure:"cost_guard_enabled"`
}

// SecurityConfig configures the Approval Arbiter's starting mode.
type SecurityConfig struct {
	// ApprovalMode: "interactive" | "yolo" | "read_only"
	ApprovalMode    string        `mapstructure:"approval_mode"`
	ApprovalTimeout time.Duration `mapstructure:"approval_timeout"`
}

// ToolsConfig configures the tool registry.
type ToolsConfig struct {
	Registry []ToolRegConfig `mapstructure:"registry"`
}

// ToolRegConfig describes one registered tool.
type ToolRegConfig struct {
	Name    string        `mapstructure:"name"`
	Backend string        `mapstructure:"backend"` // go | command | mcp
	Command string        `mapstructure:"command"`
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CompactionConfig configures context compaction.
type CompactionConfig struct {
	MessageThreshold int `mapstructure:"message_threshold"`
	TokenThreshold   int `mapstructure:"token_threshold"`
	KeepRecent       int `mapstructure:"keep_recent"`
	SummaryMaxTokens int `mapstructure:"summary_max_tokens"`
}

// MCPConfig configures MCP stdio bridges.
type MCPConfig struct {
	Servers []MCPServerConfig `mapstructure:"servers"`
}

// MCPServerConfig is one MCP server entry.
type MCPServerConfig struct {
	Name    string `mapstructure:"name"`
	Command string `mapstructure:"command"`
	Enabled bool   `mapstructure:"enabled"`
}

// HooksConfig configures the declarative Hook Dispatcher's project scope.
type HooksConfig struct {
	ProjectDir string `mapstructure:"project_dir"`
}

// Load assembles Config from layered sources, lowest to highest priority:
// built-in defaults → ~/.jimi/config.yaml → ./config/config.yaml, or
// ./config.yaml when that is absent (project) → JIMI_-prefixed environment
// variables.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	globalDir := filepath.Join(os.Getenv("HOME"), ".jimi")
	v.AddConfigPath(globalDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read global config: %w", err)
		}
	}

	for _, localDir := range []string{"./config", "."} {
		localPath := filepath.Join(localDir, "config.yaml")
		if _, err := os.Stat(localPath); err == nil {
			v2 := viper.New()
			v2.SetConfigFile(localPath)
			if err := v2.ReadInConfig(); err == nil {
				_ = v.MergeConfigMap(v2.AllSettings())
			}
			break
		}
	}

	v.SetEnvPrefix("JIMI")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gateway.host", "0.0.0.0")
	v.SetDefault("gateway.port", 18789)
	v.SetDefault("gateway.mode", "local")

	v.SetDefault("storage.type", "sqlite")
	v.SetDefault("storage.dsn", "jimi.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("agent.runtime.tool_timeout", "30s")
	v.SetDefault("agent.runtime.max_steps", 100)
	v.SetDefault("agent.runtime.sub_agent_timeout", "5m")
	v.SetDefault("agent.runtime.sub_agent_max_steps", 40)
	v.SetDefault("agent.runtime.sub_agent_max_depth", 5)
	v.SetDefault("agent.runtime.max_token_budget", 100000)
	v.SetDefault("agent.runtime.concurrent_tools", true)
	v.SetDefault("agent.runtime.max_retries", 3)
	v.SetDefault("agent.runtime.retry_base_wait", "2s")

	v.SetDefault("agent.guardrails.context_max_tokens", 128000)
	v.SetDefault("agent.guardrails.context_warn_ratio", 0.7)
	v.SetDefault("agent.guardrails.context_hard_ratio", 0.85)
	v.SetDefault("agent.guardrails.loop_detect_window", 10)
	v.SetDefault("agent.guardrails.loop_detect_threshold", 5)
	v.SetDefault("agent.guardrails.loop_name_threshold", 8)
	v.SetDefault("agent.guardrails.cost_guard_enabled", true)

	v.SetDefault("agent.compaction.message_threshold", 30)
	v.SetDefault("agent.compaction.token_threshold", 30000)
	v.SetDefault("agent.compaction.keep_recent", 10)
	v.SetDefault("agent.compaction.summary_max_tokens", 1000)

	v.SetDefault("agent.security.approval_mode", "interactive")
	v.SetDefault("agent.security.approval_timeout", "5m")

	v.SetDefault("agent.hooks.project_dir", ".")
}
