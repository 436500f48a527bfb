package agent

import (
	"testing"

	"github.com/gearclaw/gearclaw/internal/bus"
	"github.com/gearclaw/gearclaw/internal/config"
)

func TestShouldTrigger_DisabledChannelWins(t *testing.T) {
	cfg := config.AgentTriggerConfig{
		Mode:             config.TriggerAlways,
		DisabledChannels: []string{"discord:123"},
	}
	msg := bus.InboundMessage{Channel: "discord", ChatID: "123", Content: "hi"}
	if ShouldTrigger(msg, cfg) {
		t.Error("expected disabled channel to block triggering regardless of mode")
	}
}

func TestShouldTrigger_EnabledChannelsWhitelist(t *testing.T) {
	cfg := config.AgentTriggerConfig{
		Mode:            config.TriggerAlways,
		EnabledChannels: []string{"discord:123"},
	}

	allowed := bus.InboundMessage{Channel: "discord", ChatID: "123", Content: "hi"}
	if !ShouldTrigger(allowed, cfg) {
		t.Error("expected whitelisted channel to trigger")
	}

	blocked := bus.InboundMessage{Channel: "discord", ChatID: "999", Content: "hi"}
	if ShouldTrigger(blocked, cfg) {
		t.Error("expected non-whitelisted channel to be blocked")
	}
}

func TestShouldTrigger_Always(t *testing.T) {
	cfg := config.AgentTriggerConfig{Mode: config.TriggerAlways}
	msg := bus.InboundMessage{Channel: "telegram", ChatID: "1", Content: "anything"}
	if !ShouldTrigger(msg, cfg) {
		t.Error("always mode should trigger unconditionally")
	}
}

func TestShouldTrigger_Keyword(t *testing.T) {
	cfg := config.AgentTriggerConfig{Mode: config.TriggerKeyword, Keywords: []string{"help", "deploy"}}

	match := bus.InboundMessage{Content: "can you HELP me with this"}
	if !ShouldTrigger(match, cfg) {
		t.Error("expected case-insensitive keyword match to trigger")
	}

	noMatch := bus.InboundMessage{Content: "just chatting"}
	if ShouldTrigger(noMatch, cfg) {
		t.Error("expected no keyword match to not trigger")
	}
}

func TestShouldTrigger_MentionMode(t *testing.T) {
	cfg := config.AgentTriggerConfig{Mode: config.TriggerMention, MentionPatterns: []string{"@bot"}}

	byFlag := bus.InboundMessage{IsMention: true, Content: "no pattern here"}
	if !ShouldTrigger(byFlag, cfg) {
		t.Error("expected IsMention=true to trigger regardless of pattern match")
	}

	byPattern := bus.InboundMessage{Content: "hey @bot can you help"}
	if !ShouldTrigger(byPattern, cfg) {
		t.Error("expected embedded mention pattern to trigger")
	}

	none := bus.InboundMessage{Content: "no mention at all"}
	if ShouldTrigger(none, cfg) {
		t.Error("expected no mention to not trigger")
	}
}

func TestShouldTrigger_DefaultModeIsMention(t *testing.T) {
	cfg := config.AgentTriggerConfig{MentionPatterns: []string{"@bot"}}
	msg := bus.InboundMessage{Content: "@bot status?"}
	if !ShouldTrigger(msg, cfg) {
		t.Error("expected zero-value Mode to behave like mention mode")
	}
}

func TestExtractMentionPrefix(t *testing.T) {
	cfg := config.AgentTriggerConfig{Mode: config.TriggerMention, MentionPatterns: []string{"@bot"}}

	rest, ok := ExtractMentionPrefix("@bot deploy the service", cfg)
	if !ok || rest != "deploy the service" {
		t.Errorf("got (%q, %v), want (%q, true)", rest, ok, "deploy the service")
	}

	rest, ok = ExtractMentionPrefix("hey @bot what's up", cfg)
	if !ok || rest != "what's up" {
		t.Errorf("got (%q, %v), want (%q, true)", rest, ok, "what's up")
	}

	_, ok = ExtractMentionPrefix("no mention", cfg)
	if ok {
		t.Error("expected no match when pattern absent")
	}
}

func TestExtractMentionPrefix_NonMentionModeAlwaysFails(t *testing.T) {
	cfg := config.AgentTriggerConfig{Mode: config.TriggerAlways, MentionPatterns: []string{"@bot"}}
	_, ok := ExtractMentionPrefix("@bot hi", cfg)
	if ok {
		t.Error("expected ExtractMentionPrefix to no-op outside mention mode")
	}
}
