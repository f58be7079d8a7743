package mail

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Host        string
	Port        int
	User        string
	Pass        string
	FromAddress string
	FromName    string
	Timeout     time.Duration // dial and command timeout; 0 means 15s
}

// SMTPSender sends HTML email through an SMTP relay using go-mail.
type SMTPSender struct {
	cfg  SMTPConfig
	send func(ctx context.Context, msg *gomail.Msg) error
}

// NewSMTPSender creates an SMTP sender. PLAIN auth is used only when a user
// is configured; STARTTLS is used when the relay offers it.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTimeout(cfg.Timeout),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.User != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.User),
			gomail.WithPassword(cfg.Pass),
		)
	}
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPSender{
		cfg: cfg,
		send: func(ctx context.Context, msg *gomail.Msg) error {
			return client.DialAndSendWithContext(ctx, msg)
		},
	}, nil
}

// Send delivers msg. The dial and the SMTP exchange honor ctx.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := s.build(msg)
	if err != nil {
		return err
	}
	if err := s.send(ctx, m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func (s *SMTPSender) build(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if s.cfg.FromName != "" {
		if err := m.FromFormat(s.cfg.FromName, s.cfg.FromAddress); err != nil {
			return nil, fmt.Errorf("from address: %w", err)
		}
	} else if err := m.From(s.cfg.FromAddress); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("recipient %s: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextHTML, msg.HTML)
	return m, nil
}

// LogSender logs messages instead of sending them (no SMTP host configured).
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the recipient and subject.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email (log only; configure SMTP_HOST for real delivery)",
		zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// NewSender returns an SMTPSender, or a LogSender when no host is configured.
func NewSender(cfg SMTPConfig, logger *zap.Logger) (Sender, error) {
	if cfg.Host == "" {
		return NewLogSender(logger), nil
	}
	s, err := NewSMTPSender(cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

var (
	_ Sender = (*SMTPSender)(nil)
	_ Sender = (*LogSender)(nil)
)
