// Package config loads and holds the gateway's runtime configuration.
package config

// Config is the root configuration for the gearclaw gateway.
type Config struct {
	Agent     AgentConfig     `mapstructure:"agent"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Channels  ChannelsConfig  `mapstructure:"channels"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Tools     ToolsConfig     `mapstructure:"tools"`
	Sessions  SessionsConfig  `mapstructure:"sessions"`
	Skills    SkillsConfig    `mapstructure:"skills"`
	Memory    MemoryConfig    `mapstructure:"memory"`
}

// AgentConfig configures the orchestrator's default behavior.
type AgentConfig struct {
	Workspace           string  `mapstructure:"workspace"`
	RestrictToWorkspace bool    `mapstructure:"restrict_to_workspace"`
	Provider            string  `mapstructure:"provider"`
	Model               string  `mapstructure:"model"`
	MaxTokens           int     `mapstructure:"max_tokens"`
	Temperature         float64 `mapstructure:"temperature"`
	MaxToolIterations   int     `mapstructure:"max_tool_iterations"`
	ContextWindow       int     `mapstructure:"context_window"`
	SystemPrompt        string  `mapstructure:"system_prompt"`
}

// ProvidersConfig holds per-provider credentials.
type ProvidersConfig struct {
	OpenAI ProviderCreds `mapstructure:"openai"`
}

// ProviderCreds is the API key/base URL pair for one LLM provider.
type ProviderCreds struct {
	APIKey  string `mapstructure:"api_key"`
	APIBase string `mapstructure:"api_base"`
}

// ChannelsConfig holds per-platform channel settings.
type ChannelsConfig struct {
	Discord  DiscordConfig      `mapstructure:"discord"`
	Telegram TelegramConfig     `mapstructure:"telegram"`
	Trigger  AgentTriggerConfig `mapstructure:"trigger"`
}

// DiscordConfig configures the Discord channel adapter.
type DiscordConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Token          string   `mapstructure:"token"`
	DMPolicy       string   `mapstructure:"dm_policy"`
	GroupPolicy    string   `mapstructure:"group_policy"`
	AllowFrom      []string `mapstructure:"allow_from"`
	RequireMention *bool    `mapstructure:"require_mention"`
}

// TelegramConfig configures the Telegram channel adapter.
type TelegramConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Token          string   `mapstructure:"token"`
	DMPolicy       string   `mapstructure:"dm_policy"`
	GroupPolicy    string   `mapstructure:"group_policy"`
	AllowFrom      []string `mapstructure:"allow_from"`
	RequireMention *bool    `mapstructure:"require_mention"`
}

// TriggerMode is one of always, mention, keyword.
type TriggerMode string

const (
	TriggerAlways  TriggerMode = "always"
	TriggerMention TriggerMode = "mention"
	TriggerKeyword TriggerMode = "keyword"
)

// AgentTriggerConfig controls when a channel-sourced message invokes the orchestrator.
type AgentTriggerConfig struct {
	Mode             TriggerMode `mapstructure:"mode"`
	MentionPatterns  []string    `mapstructure:"mention_patterns"`
	Keywords         []string    `mapstructure:"keywords"`
	EnabledChannels  []string    `mapstructure:"enabled_channels"`
	DisabledChannels []string    `mapstructure:"disabled_channels"`
}

// GatewayConfig configures the protocol server.
type GatewayConfig struct {
	Host                 string   `mapstructure:"host"`
	Port                 int      `mapstructure:"port"`
	Token                string   `mapstructure:"token"`
	AllowUnauthenticated bool     `mapstructure:"allow_unauthenticated"`
	RateLimitRPM         int      `mapstructure:"rate_limit_rpm"`
	OwnerIDs             []string `mapstructure:"owner_ids"`
	MaxMessageChars      int      `mapstructure:"max_message_chars"`
	AllowedOrigins       []string `mapstructure:"allowed_origins"`
}

// ExecSecurity is one of deny, allowlist, full.
type ExecSecurity string

const (
	ExecDeny      ExecSecurity = "deny"
	ExecAllowlist ExecSecurity = "allowlist"
	ExecFull      ExecSecurity = "full"
)

// ToolsConfig configures the tool executor.
type ToolsConfig struct {
	ExecSecurity  ExecSecurity      `mapstructure:"exec_security"`
	ExecAllowlist []string          `mapstructure:"exec_allowlist"`
	RemoteEnabled bool              `mapstructure:"remote_enabled"`
	WebSearch     WebSearchConfig   `mapstructure:"web_search"`
	MCPServers    []MCPServerConfig `mapstructure:"mcp_servers"`
}

// MCPServerConfig names one remote MCP tool server (spec.md §4.2 "Remote
// tool namespace", §6 Remote Tool Registry).
type MCPServerConfig struct {
	Name       string            `mapstructure:"name"`
	Enabled    bool              `mapstructure:"enabled"`
	Transport  string            `mapstructure:"transport"` // stdio, sse, streamable-http
	Command    string            `mapstructure:"command"`
	Args       []string          `mapstructure:"args"`
	Env        map[string]string `mapstructure:"env"`
	URL        string            `mapstructure:"url"`
	Headers    map[string]string `mapstructure:"headers"`
	ToolPrefix string            `mapstructure:"tool_prefix"`
	TimeoutSec int               `mapstructure:"timeout_sec"`
}

// WebSearchConfig configures the web_search tool's upstream providers.
type WebSearchConfig struct {
	BraveAPIKey  string `mapstructure:"brave_api_key"`
	BraveEnabled bool   `mapstructure:"brave_enabled"`
	DDGEnabled   bool   `mapstructure:"ddg_enabled"`
}

// SessionsConfig configures the session store.
type SessionsConfig struct {
	Storage string `mapstructure:"storage"`
}

// SkillSourceConfig names one skill source (local directory or git repo).
type SkillSourceConfig struct {
	Name            string `mapstructure:"name"`
	Kind            string `mapstructure:"kind"` // "local_dir" or "git_repo"
	Location        string `mapstructure:"location"`
	Revision        string `mapstructure:"revision"`
	Enabled         bool   `mapstructure:"enabled"`
	Trusted         bool   `mapstructure:"trusted"`
	RequireSigned   bool   `mapstructure:"require_signed"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
}

// TrustPolicy is one of local-only, trusted-only, allow-untrusted.
type TrustPolicy string

const (
	TrustLocalOnly      TrustPolicy = "local-only"
	TrustTrustedOnly    TrustPolicy = "trusted-only"
	TrustAllowUntrusted TrustPolicy = "allow-untrusted"
)

// SkillsConfig configures the skill loader and installer.
type SkillsConfig struct {
	Dir         string              `mapstructure:"dir"`
	Sources     []SkillSourceConfig `mapstructure:"sources"`
	TrustPolicy TrustPolicy         `mapstructure:"trust_policy"`
}

// MemoryConfig configures the memory search/sync collaborator.
type MemoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
	TopK    int    `mapstructure:"top_k"`
}

// Default returns a Config populated with sensible defaults, matching
// what Load falls back to when no config file is found.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Workspace:           "~/.gearclaw/workspace",
			RestrictToWorkspace: true,
			Provider:            "openai",
			Model:               "gpt-4o-mini",
			MaxTokens:           4096,
			Temperature:         0.7,
			MaxToolIterations:   15,
			ContextWindow:       128000,
		},
		Channels: ChannelsConfig{
			Trigger: AgentTriggerConfig{
				Mode:            TriggerMention,
				MentionPatterns: []string{"@agent", "@bot"},
			},
		},
		Gateway: GatewayConfig{
			Host:            "0.0.0.0",
			Port:            18790,
			RateLimitRPM:    20,
			MaxMessageChars: 32000,
		},
		Tools: ToolsConfig{
			ExecSecurity:  ExecAllowlist,
			ExecAllowlist: []string{"ls", "cat", "grep", "find", "git", "docker", "echo", "pwd", "wc", "head", "tail"},
		},
		Sessions: SessionsConfig{
			Storage: "~/.gearclaw/sessions",
		},
		Skills: SkillsConfig{
			Dir:         "~/.gearclaw/skills",
			TrustPolicy: TrustTrustedOnly,
		},
		Memory: MemoryConfig{
			Enabled: true,
			Dir:     "~/.gearclaw/memory",
			TopK:    5,
		},
	}
}
