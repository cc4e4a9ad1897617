package provider

import (
	"context"

	"go.uber.org/zap"

	"github.com/dispatchkit/notifyd/internal/domain"
)

// LocalProvider is the universal fallback adapter. It "sends" by emitting one
// structured log line (no multi-line banner is printed) and always succeeds
// provided the payload carries the fields its
// channel requires; missing fields are a non-retryable failure.
type LocalProvider struct {
	logger *zap.Logger
}

func NewLocalProvider(logger *zap.Logger) *LocalProvider {
	return &LocalProvider{logger: logger}
}

func (p *LocalProvider) Name() string { return string(domain.ProviderLocal) }

func (p *LocalProvider) Send(_ context.Context, n *domain.Notification) (*Outcome, error) {
	switch n.Channel {
	case domain.ChannelEmail:
		email, err := parseEmailPayload(n.Payload)
		if err != nil {
			return &Outcome{Success: false, Message: err.Error(), Retryable: false}, nil
		}
		p.logger.Info("local provider: email",
			zap.String("notification_id", n.ID), zap.String("to", email.To), zap.String("subject", email.Subject))
		return &Outcome{Success: true, Response: map[string]any{"delivered_via": "local"}}, nil
	case domain.ChannelSMS:
		sms, err := parseSMSPayload(n.Payload)
		if err != nil {
			return &Outcome{Success: false, Message: err.Error(), Retryable: false}, nil
		}
		p.logger.Info("local provider: sms", zap.String("notification_id", n.ID), zap.String("to", sms.To))
		return &Outcome{Success: true, Response: map[string]any{"delivered_via": "local"}}, nil
	case domain.ChannelPush:
		push, err := parsePushPayload(n.Payload)
		if err != nil {
			return &Outcome{Success: false, Message: err.Error(), Retryable: false}, nil
		}
		p.logger.Info("local provider: push", zap.String("notification_id", n.ID), zap.String("token", push.Token))
		return &Outcome{Success: true, Response: map[string]any{"delivered_via": "local"}}, nil
	default:
		return &Outcome{Success: false, Message: "unsupported channel for local provider", Retryable: false}, nil
	}
}

// ConsoleSMSProvider is the guaranteed SMS fallback when no real SMS
// gateway is configured. Distinct from LocalProvider so SMS-only
// deployments can register it under its own provider identity.
type ConsoleSMSProvider struct {
	logger *zap.Logger
}

func NewConsoleSMSProvider(logger *zap.Logger) *ConsoleSMSProvider {
	return &ConsoleSMSProvider{logger: logger}
}

func (p *ConsoleSMSProvider) Name() string { return string(domain.ProviderConsoleSMS) }

func (p *ConsoleSMSProvider) Send(_ context.Context, n *domain.Notification) (*Outcome, error) {
	sms, err := parseSMSPayload(n.Payload)
	if err != nil {
		return &Outcome{Success: false, Message: err.Error(), Retryable: false}, nil
	}
	p.logger.Info("console sms",
		zap.String("notification_id", n.ID), zap.String("to", sms.To), zap.String("body", sms.Body))
	return &Outcome{Success: true, Response: map[string]any{"delivered_via": "console"}}, nil
}

var (
	_ Provider = (*LocalProvider)(nil)
	_ Provider = (*ConsoleSMSProvider)(nil)
)
