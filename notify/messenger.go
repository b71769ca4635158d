// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Messenger delivers one outbound message.
type Messenger interface {
	Send(ctx context.Context, text string) error
}

// TelegramMessenger posts to a single Telegram chat via sendMessage.
type TelegramMessenger struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramMessenger connects to the Bot API. endpoint is a format string
// like tgbotapi.APIEndpoint; empty uses the public API. The token is
// verified with getMe before returning.
func NewTelegramMessenger(token, endpoint string, chatID int64, client *http.Client) (*TelegramMessenger, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = &http.Client{}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	return &TelegramMessenger{bot: bot, chatID: chatID}, nil
}

// Send returns when the Bot API answers or ctx is done, whichever comes
// first. The Bot API client takes no context, so an abandoned request keeps
// running until the http.Client timeout.
func (m *TelegramMessenger) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(m.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	done := make(chan error, 1)
	go func() {
		_, err := m.bot.Send(msg)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram sendMessage: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("telegram sendMessage: %w", ctx.Err())
	}
}

// NopMessenger drops messages.
type NopMessenger struct{}

func (NopMessenger) Send(context.Context, string) error { return nil }

// LogMessenger writes messages to the log instead of sending them.
type LogMessenger struct {
	Logger *slog.Logger
}

func (m LogMessenger) Send(_ context.Context, text string) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("outbound message (no messenger configured)", "text", text)
	return nil
}
