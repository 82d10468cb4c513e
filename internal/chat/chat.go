package chat

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Field пара "название: значение" в алерте
type Field struct {
	Title string
	Value string
}

// Message алерт для команды
type Message struct {
	// Text заголовок алерта, он же fallback для клиентов без блоков
	Text   string
	Fields []Field
}

// Plain текстовое представление для каналов без разметки
func (m Message) Plain() string {
	var b strings.Builder
	b.WriteString(m.Text)
	for _, f := range m.Fields {
		b.WriteString("\n")
		b.WriteString(f.Title)
		b.WriteString(": ")
		b.WriteString(f.Value)
	}
	return b.String()
}

// Sender определяет интерфейс для отправки алертов в чат
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NoOpSender - no-op реализация Sender (когда ни один чат не настроен)
type NoOpSender struct {
	logger *zap.Logger
}

// NewNoOpSender создаёт no-op sender
func NewNoOpSender(logger *zap.Logger) *NoOpSender {
	return &NoOpSender{logger: logger}
}

// Send ничего не делает, только логирует
func (s *NoOpSender) Send(ctx context.Context, msg Message) error {
	s.logger.Debug("no-op sender: chat alert not sent",
		zap.String("text_preview", truncate(msg.Text, 50)),
	)
	return nil
}

// truncate обрезает строку до указанной длины
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// MultiSender рассылает алерт во все настроенные чаты.
// Ошибки отдельных чатов объединяются, остальные чаты всё равно получают алерт.
type MultiSender []Sender

// Send отправляет во все чаты по очереди
func (m MultiSender) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
