package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"certwatch/internal/domain"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

// TelegramSender sends events to the Telegram Bot API.
// Params: bot client and destination chat id.
// Returns: Telegram channel sender.
type TelegramSender struct {
	client  *tgbot.Bot
	chatID  any
	initErr error
}

// NewTelegramSender creates a Telegram sender.
// Params: resolved bot token, chat id, and optional API base URL override.
// Returns: initialized sender; init failures surface on first Send.
func NewTelegramSender(botToken, chatID, apiBase string) *TelegramSender {
	sender := &TelegramSender{chatID: normalizeChatID(chatID)}

	if strings.TrimSpace(botToken) == "" {
		sender.initErr = errors.New("telegram bot token is required")
		return sender
	}
	if strings.TrimSpace(chatID) == "" {
		sender.initErr = errors.New("telegram chat id is required")
		return sender
	}

	options := []tgbot.Option{tgbot.WithSkipGetMe()}
	if strings.TrimSpace(apiBase) != "" {
		options = append(options, tgbot.WithServerURL(strings.TrimRight(apiBase, "/")))
	}
	client, err := tgbot.New(botToken, options...)
	if err != nil {
		sender.initErr = fmt.Errorf("init telegram bot: %w", err)
		return sender
	}
	sender.client = client
	return sender
}

// Channel returns the sender channel name.
// Params: none.
// Returns: static channel key.
func (s *TelegramSender) Channel() string {
	return "telegram"
}

// Send posts one Markdown message to the configured chat.
// Params: context and event payload.
// Returns: init, transport, or API error.
func (s *TelegramSender) Send(ctx context.Context, event domain.Event) error {
	if s.initErr != nil {
		return s.initErr
	}
	if s.client == nil {
		return errors.New("telegram client is not initialized")
	}

	sent, err := s.client.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:    s.chatID,
		Text:      event.Message,
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if sent == nil || sent.ID <= 0 {
		return errors.New("telegram send returned empty message id")
	}
	return nil
}

// normalizeChatID converts numeric chat IDs to int64 and keeps others as string.
// Params: configured chat ID value.
// Returns: Telegram API chat id union value.
func normalizeChatID(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if numeric, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return numeric
	}
	return trimmed
}
