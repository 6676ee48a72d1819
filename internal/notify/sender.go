package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/config"
)

// Message is an outbound notification.
type Message struct {
	To       string            `json:"to"`
	ToName   string            `json:"to_name,omitempty"`
	Subject  string            `json:"subject"`
	Text     string            `json:"text"`
	HTML     string            `json:"html,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Sender delivers messages out of band.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// NewSender builds the sender selected by cfg.Provider.
func NewSender(cfg config.NotificationConfig, logger *zap.Logger) (Sender, error) {
	switch cfg.Provider {
	case "", "log":
		return NewLogSender(logger), nil
	case "smtp":
		return NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
		}), nil
	case "webhook":
		client := &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
		return NewWebhookSender(cfg.WebhookURL, client), nil
	default:
		return nil, fmt.Errorf("unknown notification provider %q", cfg.Provider)
	}
}

type logSender struct {
	logger *zap.Logger
}

// NewLogSender returns a sender that only logs messages.
func NewLogSender(logger *zap.Logger) Sender {
	return &logSender{logger: logger}
}

func (s *logSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("notification",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Any("metadata", msg.Metadata))
	return nil
}
