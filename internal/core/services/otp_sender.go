package services

import (
	"context"
	"fmt"
	"time"

	"votedesk/internal/config"
	"votedesk/internal/core/domain"
	"votedesk/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OTPChannel is the medium an OTP is delivered over
type OTPChannel string

const (
	ChannelSMS   OTPChannel = "sms"
	ChannelEmail OTPChannel = "email"
)

// OTPMessage is one code to deliver
type OTPMessage struct {
	Channel   OTPChannel `json:"channel"`
	To        string     `json:"to"`
	Code      string     `json:"code"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// OTPSender delivers one-time codes to users
type OTPSender interface {
	Send(ctx context.Context, msg OTPMessage) error
}

// NewOTPSender builds the sender selected by configuration
func NewOTPSender(cfg config.OTPConfig) (OTPSender, error) {
	switch cfg.Sender {
	case "", "log":
		return &LogOTPSender{}, nil
	case "webhook":
		return NewWebhookOTPSender(cfg.WebhookURL, cfg.WebhookToken, cfg.WebhookTimeout), nil
	default:
		return nil, fmt.Errorf("unknown OTP sender %q", cfg.Sender)
	}
}

// LogOTPSender writes codes to the application log. Development only.
type LogOTPSender struct{}

func (LogOTPSender) Send(_ context.Context, msg OTPMessage) error {
	logger.Info("otp issued",
		zap.String("channel", string(msg.Channel)),
		zap.String("to", msg.To),
		zap.String("code", msg.Code),
		zap.Time("expires_at", msg.ExpiresAt),
	)
	return nil
}

// WebhookOTPSender posts codes to an external SMS/email gateway
type WebhookOTPSender struct {
	url     string
	token   string
	timeout time.Duration
}

// NewWebhookOTPSender creates a webhook sender
func NewWebhookOTPSender(url, token string, timeout time.Duration) *WebhookOTPSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookOTPSender{url: url, token: token, timeout: timeout}
}

func (s *WebhookOTPSender) Send(ctx context.Context, msg OTPMessage) error {
	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	agent := fiber.Post(s.url).JSON(msg).Timeout(timeout)
	if s.token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+s.token)
	}

	if err := agent.Parse(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrOTPDelivery, err)
	}

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		logger.Error("otp webhook failed", zap.String("channel", string(msg.Channel)), zap.Error(errs[0]))
		return fmt.Errorf("%w: %w", domain.ErrOTPDelivery, errs[0])
	}
	if status < 200 || status >= 300 {
		logger.Error("otp webhook rejected",
			zap.String("channel", string(msg.Channel)),
			zap.Int("status", status),
			zap.ByteString("body", body),
		)
		return fmt.Errorf("%w: gateway returned status %d", domain.ErrOTPDelivery, status)
	}

	logger.Debug("otp delivered", zap.String("channel", string(msg.Channel)))
	return nil
}
