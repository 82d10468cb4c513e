package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Message письмо для отправки
type Message struct {
	// From адрес в формате "Name <addr>" или просто addr
	From    string
	To      string
	ReplyTo string
	Subject string
	HTML    string
}

// Sender определяет интерфейс для отправки писем
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig параметры SMTP сервера
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// smtpsPort порт неявного TLS; на остальных портах STARTTLS, если сервер его умеет
const smtpsPort = 465

// SMTPSender отправляет письма через SMTP
type SMTPSender struct {
	logger *zap.Logger
	client *mail.Client
}

// NewSMTPSender создаёт SMTP sender. Соединение открывается на каждую отправку.
func NewSMTPSender(logger *zap.Logger, cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	opts := []mail.Option{mail.WithTimeout(cfg.Timeout)}
	if cfg.Port == smtpsPort {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}
	// порт после политики: WithTLSPortPolicy подменяет только дефолтный
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return &SMTPSender{
		logger: logger,
		client: client,
	}, nil
}

// Send отправляет одно письмо
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := buildMessage(msg)
	if err != nil {
		return err
	}

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Debug("email sent successfully",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

func buildMessage(msg Message) (*mail.Msg, error) {
	if msg.To == "" {
		return nil, errors.New("email recipient is empty")
	}

	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", msg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			return nil, fmt.Errorf("invalid reply-to address: %w", err)
		}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	return m, nil
}

// NoOpSender - no-op реализация Sender (для тестов или когда SMTP не настроен)
type NoOpSender struct {
	logger *zap.Logger
}

// NewNoOpSender создаёт no-op sender
func NewNoOpSender(logger *zap.Logger) *NoOpSender {
	return &NoOpSender{logger: logger}
}

// Send ничего не делает, только логирует
func (s *NoOpSender) Send(ctx context.Context, msg Message) error {
	s.logger.Debug("no-op sender: email not sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
