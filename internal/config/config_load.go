package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load resolves the config file search order from spec.md §6 — explicit
// path, $HOME/.gearclaw/config.toml, the OS user-config directory, then
// ./gearclaw.toml — parses whichever is found first as TOML, and layers
// GEARCLAW_* environment variables on top. A config file is optional; if
// none exists, Default() is returned with env overrides applied.
func Load(explicitPath string) (*Config, error) {
	cfg := Default()

	path := resolvePath(explicitPath)
	v := viper.New()
	v.SetConfigType("toml")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// resolvePath walks the search order and returns the first file that
// exists, or "" if none do (and none was explicitly requested).
func resolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	candidates := []string{}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".gearclaw", "config.toml"))
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "gearclaw", "config.toml"))
	}
	candidates = append(candidates, "gearclaw.toml")

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func applyEnvOverrides(cfg *Config) {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	envStr("GEARCLAW_OPENAI_API_KEY", &cfg.Providers.OpenAI.APIKey)
	envStr("OPENAI_API_KEY", &cfg.Providers.OpenAI.APIKey)
	envStr("GEARCLAW_OPENAI_API_BASE", &cfg.Providers.OpenAI.APIBase)
	envStr("OPENAI_BASE_URL", &cfg.Providers.OpenAI.APIBase)

	envStr("GEARCLAW_DISCORD_TOKEN", &cfg.Channels.Discord.Token)
	envStr("DISCORD_BOT_TOKEN", &cfg.Channels.Discord.Token)
	if cfg.Channels.Discord.Token != "" {
		cfg.Channels.Discord.Enabled = true
	}

	envStr("GEARCLAW_TELEGRAM_TOKEN", &cfg.Channels.Telegram.Token)
	if cfg.Channels.Telegram.Token != "" {
		cfg.Channels.Telegram.Enabled = true
	}

	envStr("GEARCLAW_GATEWAY_TOKEN", &cfg.Gateway.Token)
	envStr("GEARCLAW_WORKSPACE", &cfg.Agent.Workspace)
	envStr("GEARCLAW_SESSIONS_STORAGE", &cfg.Sessions.Storage)
	envStr("GEARCLAW_SKILLS_DIR", &cfg.Skills.Dir)
	envStr("GEARCLAW_MEMORY_DIR", &cfg.Memory.Dir)

	if v := os.Getenv("GEARCLAW_OWNER_IDS"); v != "" {
		cfg.Gateway.OwnerIDs = strings.Split(v, ",")
	}
}

// Save writes cfg to path as TOML using viper's marshaling support.
func Save(path string, cfg *Config) error {
	v := viper.New()
	v.SetConfigType("toml")

	values := map[string]interface{}{
		"agent":     cfg.Agent,
		"providers": cfg.Providers,
		"channels":  cfg.Channels,
		"gateway":   cfg.Gateway,
		"tools":     cfg.Tools,
		"sessions":  cfg.Sessions,
		"skills":    cfg.Skills,
		"memory":    cfg.Memory,
	}
	for k, val := range values {
		v.Set(k, val)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return v.WriteConfigAs(path)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if len(path) > 1 && path[1] == '/' {
		return filepath.Join(home, path[1:])
	}
	return home
}
