package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const telegramAPIURL = "https://api.telegram.org"

// TelegramSender отправляет алерты в чат staff через Telegram Bot API
type TelegramSender struct {
	logger *zap.Logger
	chatID string
	apiURL string
	client *http.Client
}

// TelegramOption настраивает TelegramSender
type TelegramOption func(*TelegramSender)

// WithTelegramAPIURL подменяет адрес Bot API (тесты)
func WithTelegramAPIURL(url string) TelegramOption {
	return func(s *TelegramSender) { s.apiURL = strings.TrimRight(url, "/") }
}

// WithTelegramHTTPClient задаёт http клиент
func WithTelegramHTTPClient(c *http.Client) TelegramOption {
	return func(s *TelegramSender) { s.client = c }
}

// NewTelegramSender создаёт Telegram sender
func NewTelegramSender(logger *zap.Logger, botToken, chatID string, opts ...TelegramOption) *TelegramSender {
	s := &TelegramSender{
		logger: logger,
		chatID: chatID,
		apiURL: telegramAPIURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.apiURL += "/bot" + botToken
	return s
}

type telegramRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// Телеграм отвечает {"ok": true, "result": {...}} или {"ok": false, "description": "Bad Request: chat not found"}
type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send отправляет алерт простым текстом
func (s *TelegramSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(telegramRequest{
		ChatID:                s.chatID,
		Text:                  msg.Plain(),
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	// При не-200 читаем тело ответа для диагностики и не декодируем JSON
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("telegram API status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var result telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("telegram API error: %s", result.Description)
	}

	s.logger.Debug("telegram alert sent successfully", zap.String("chat_id", s.chatID))
	return nil
}
