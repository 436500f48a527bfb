// Package telegram adapts the Telegram Bot API (long polling) to the
// channels.Channel interface. Trimmed from the teacher's adapter to the
// adapter contract spec.md §4.6 actually names: start, send-message
// (with chunking), inbound publish, resolve-target, health-check. The
// teacher's STT transcription, voice-agent routing, slash commands and
// forum-topic handling have no corresponding spec component and were
// dropped rather than adapted (see DESIGN.md).
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mymmrac/telego"

	"github.com/gearclaw/gearclaw/internal/bus"
	"github.com/gearclaw/gearclaw/internal/channels"
	"github.com/gearclaw/gearclaw/internal/config"
)

// Channel connects to Telegram via the Bot API using long polling.
type Channel struct {
	*channels.BaseChannel
	bot            *telego.Bot
	config         config.TelegramConfig
	botUsername    string
	placeholders   sync.Map // chatID string → messageID int
	requireMention bool
	pollCancel     context.CancelFunc
	pollDone       chan struct{}
}

// New creates a new Telegram channel from config.
func New(cfg config.TelegramConfig, msgBus *bus.MessageBus) (*Channel, error) {
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	base := channels.NewBaseChannel("telegram", msgBus, cfg.AllowFrom)

	requireMention := true
	if cfg.RequireMention != nil {
		requireMention = *cfg.RequireMention
	}

	return &Channel{
		BaseChannel:    base,
		bot:            bot,
		config:         cfg,
		requireMention: requireMention,
	}, nil
}

// Start begins long polling for Telegram updates.
func (c *Channel) Start(ctx context.Context) error {
	slog.Info("starting telegram bot (polling mode)")

	pollCtx, cancel := context.WithCancel(ctx)
	c.pollCancel = cancel
	c.pollDone = make(chan struct{})

	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}

	c.botUsername = c.bot.Username()
	c.SetRunning(true)
	slog.Info("telegram bot connected", "username", c.botUsername)

	go func() {
		defer close(c.pollDone)
		for {
			select {
			case <-pollCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					slog.Info("telegram updates channel closed")
					return
				}
				if update.Message != nil {
					c.handleMessage(update.Message)
				}
			}
		}
	}()

	return nil
}

// Stop cancels the long-polling context and waits for it to exit.
func (c *Channel) Stop(_ context.Context) error {
	slog.Info("stopping telegram bot")
	c.SetRunning(false)

	if c.pollCancel != nil {
		c.pollCancel()
	}
	if c.pollDone != nil {
		<-c.pollDone
	}
	return nil
}

// Send delivers an outbound message to a Telegram chat, chunking at the
// platform's 4096-char limit on line boundaries where possible.
func (c *Channel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("telegram bot not running")
	}

	chatID, err := parseChatID(msg.ChatID)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", msg.ChatID, err)
	}

	if msg.Content == "" {
		if pID, ok := c.placeholders.LoadAndDelete(msg.ChatID); ok {
			_, _ = c.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
				ChatID:    telego.ChatID{ID: chatID},
				MessageID: pID.(int),
			})
		}
		return nil
	}

	if pID, ok := c.placeholders.LoadAndDelete(msg.ChatID); ok {
		_, editErr := c.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
			ChatID:    telego.ChatID{ID: chatID},
			MessageID: pID.(int),
			Text:      firstChunk(msg.Content),
		})
		if editErr == nil {
			return c.sendChunked(ctx, chatID, remainderAfterFirstChunk(msg.Content))
		}
	}

	return c.sendChunked(ctx, chatID, msg.Content)
}

const maxTelegramLen = 4096

func firstChunk(content string) string {
	if len(content) <= maxTelegramLen {
		return content
	}
	cut := maxTelegramLen
	if idx := strings.LastIndexByte(content[:maxTelegramLen], '\n'); idx > maxTelegramLen/2 {
		cut = idx + 1
	}
	return content[:cut]
}

func remainderAfterFirstChunk(content string) string {
	first := firstChunk(content)
	return content[len(first):]
}

func (c *Channel) sendChunked(ctx context.Context, chatID int64, content string) error {
	for len(content) > 0 {
		chunk := firstChunk(content)
		content = content[len(chunk):]
		if chunk == "" {
			break
		}
		if _, err := c.bot.SendMessage(ctx, &telego.SendMessageParams{
			ChatID: telego.ChatID{ID: chatID},
			Text:   chunk,
		}); err != nil {
			return fmt.Errorf("send telegram message: %w", err)
		}
	}
	return nil
}

func parseChatID(chatIDStr string) (int64, error) {
	var id int64
	_, err := fmt.Sscanf(chatIDStr, "%d", &id)
	return id, err
}

// handleMessage processes incoming Telegram messages.
func (c *Channel) handleMessage(m *telego.Message) {
	if m.From == nil || m.From.IsBot {
		return
	}

	senderID := fmt.Sprintf("%d", m.From.ID)
	senderName := resolveDisplayName(m)
	chatIDStr := fmt.Sprintf("%d", m.Chat.ID)

	isDM := m.Chat.Type == "private"
	peerKind := "group"
	if isDM {
		peerKind = "direct"
	}

	if !c.CheckPolicy(peerKind, c.config.DMPolicy, c.config.GroupPolicy, senderID) {
		slog.Debug("telegram message rejected by policy", "user_id", senderID, "peer_kind", peerKind)
		return
	}
	if !c.IsAllowed(senderID) {
		slog.Debug("telegram message rejected by allowlist", "user_id", senderID)
		return
	}

	content := m.Text
	if content == "" {
		content = "[empty message]"
	}

	mentioned := !c.requireMention
	if c.botUsername != "" && strings.Contains(content, "@"+c.botUsername) {
		mentioned = true
	}

	slog.Debug("telegram message received",
		"sender_id", senderID,
		"chat_id", chatIDStr,
		"is_dm", isDM,
		"preview", channels.Truncate(content, 50),
	)

	metadata := map[string]string{
		"message_id":   fmt.Sprintf("%d", m.MessageID),
		"user_id":      senderID,
		"display_name": senderName,
		"chat_id":      chatIDStr,
		"is_dm":        fmt.Sprintf("%t", isDM),
	}

	annotated := content
	if peerKind == "group" {
		annotated = fmt.Sprintf("[From: %s]\n%s", senderName, content)
	}

	msg := bus.InboundMessage{
		Channel:   c.Name(),
		SenderID:  senderID,
		ChatID:    chatIDStr,
		Content:   annotated,
		PeerKind:  peerKind,
		IsMention: mentioned,
		Metadata:  metadata,
	}
	c.Bus().PublishInbound(msg)
}

// resolveDisplayName returns the best available display name for a Telegram message sender.
func resolveDisplayName(m *telego.Message) string {
	if m.From == nil {
		return "unknown"
	}
	if m.From.Username != "" {
		return m.From.Username
	}
	name := m.From.FirstName
	if m.From.LastName != "" {
		name += " " + m.From.LastName
	}
	return name
}
