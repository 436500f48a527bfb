package agent

import (
	"fmt"
	"strings"

	"github.com/gearclaw/gearclaw/internal/bus"
	"github.com/gearclaw/gearclaw/internal/config"
)

// ShouldTrigger decides whether an inbound channel message should invoke
// the orchestrator. Ported from the original gateway's
// should_trigger_agent: disabled_channels blacklist first, then an
// enabled_channels whitelist (if configured), then mode dispatch
// (always/mention/keyword).
func ShouldTrigger(msg bus.InboundMessage, cfg config.AgentTriggerConfig) bool {
	channelKey := fmt.Sprintf("%s:%s", msg.Channel, msg.ChatID)

	for _, disabled := range cfg.DisabledChannels {
		if disabled == channelKey {
			return false
		}
	}

	if len(cfg.EnabledChannels) > 0 {
		allowed := false
		for _, enabled := range cfg.EnabledChannels {
			if enabled == channelKey {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	switch cfg.Mode {
	case config.TriggerAlways:
		return true
	case config.TriggerKeyword:
		lower := strings.ToLower(msg.Content)
		for _, kw := range cfg.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return true
			}
		}
		return false
	case config.TriggerMention:
		fallthrough
	default:
		if msg.IsMention {
			return true
		}
		for _, pattern := range cfg.MentionPatterns {
			if strings.Contains(msg.Content, pattern) {
				return true
			}
			if strings.HasPrefix(msg.Content, strings.ReplaceAll(pattern, "@", "")) {
				return true
			}
		}
		return false
	}
}

// ExtractMentionPrefix strips a leading/embedded mention pattern from
// content when the trigger is in mention mode, returning the remainder
// the agent should actually act on. Returns ok=false when mode isn't
// mention or no pattern matched.
func ExtractMentionPrefix(content string, cfg config.AgentTriggerConfig) (string, bool) {
	if cfg.Mode != config.TriggerMention {
		return "", false
	}

	for _, pattern := range cfg.MentionPatterns {
		if strings.HasPrefix(content, pattern) {
			return strings.TrimSpace(content[len(pattern):]), true
		}
		if idx := strings.Index(content, pattern); idx >= 0 {
			return strings.TrimSpace(content[idx+len(pattern):]), true
		}
	}
	return "", false
}
