package chat

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/samber/lo"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// SlackSender отправляет алерты через Slack incoming webhook
type SlackSender struct {
	logger     *zap.Logger
	webhookURL string
	client     *http.Client
}

// NewSlackSender создаёт Slack sender. client == nil означает клиент с таймаутом 10s.
func NewSlackSender(logger *zap.Logger, webhookURL string, client *http.Client) *SlackSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SlackSender{
		logger:     logger,
		webhookURL: webhookURL,
		client:     client,
	}
}

// Send отправляет алерт: текст и секция с полями в mrkdwn
func (s *SlackSender) Send(ctx context.Context, msg Message) error {
	fields := lo.Map(msg.Fields, func(f Field, _ int) *slack.TextBlockObject {
		return slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*%s:*\n%s", f.Title, f.Value), false, false)
	})

	blocks := []slack.Block{
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, "*"+msg.Text+"*", false, false), nil, nil),
	}
	if len(fields) > 0 {
		blocks = append(blocks, slack.NewSectionBlock(nil, fields, nil))
	}

	payload := &slack.WebhookMessage{
		Text:   msg.Text,
		Blocks: &slack.Blocks{BlockSet: blocks},
	}

	if err := slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.client, payload); err != nil {
		return fmt.Errorf("failed to post slack webhook: %w", err)
	}

	s.logger.Debug("slack alert sent successfully")
	return nil
}
