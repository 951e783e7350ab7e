package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/fredericlb/BespokeSynthPatches/internal/config"
)

// WebhookSender posts payloads as JSON to NOTIFY_WEBHOOK_URL.
type WebhookSender struct {
	url        string
	httpClient *resty.Client
	log        zerolog.Logger
}

func NewWebhookSender(cfg *config.Config, log zerolog.Logger) *WebhookSender {
	timeout := cfg.NotifyTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetHeader("User-Agent", "bespoke-patches-api/1.0").
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= 500
		})
	return &WebhookSender{
		url:        strings.TrimSpace(cfg.NotifyWebhookURL),
		httpClient: client,
		log:        log.With().Str("component", "webhook").Logger(),
	}
}

func (s *WebhookSender) Send(ctx context.Context, payload Payload) error {
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Bespoke-Event", payload.Event).
		SetHeader("X-Bespoke-Patch-ID", payload.Patch.UUID).
		SetBody(payload).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}

	s.log.Info().Str("event", payload.Event).Int("status", resp.StatusCode()).Str("patch_uuid", payload.Patch.UUID).Msg("webhook delivered successfully")
	return nil
}

// LogSender records notifications in the service log when no webhook is set.
// Moderation tokens are never written at info level; outside production they
// are logged at debug level so a local moderator can pick them up.
type LogSender struct {
	log          zerolog.Logger
	exposeTokens bool
}

func NewLogSender(log zerolog.Logger, exposeTokens bool) *LogSender {
	return &LogSender{
		log:          log.With().Str("component", "notifier").Logger(),
		exposeTokens: exposeTokens,
	}
}

func (s *LogSender) Send(ctx context.Context, payload Payload) error {
	event := s.log.Info().Str("event", payload.Event).Str("patch_uuid", payload.Patch.UUID)
	if payload.Approved != nil {
		event = event.Bool("approved", *payload.Approved)
	}
	event.Bool("moderation_token_issued", payload.ModerationToken != "").
		Msg("notification (no webhook configured)")

	if s.exposeTokens && payload.ModerationToken != "" {
		s.log.Debug().
			Str("patch_uuid", payload.Patch.UUID).
			Str("moderation_token", payload.ModerationToken).
			Msg("moderation token for local review")
	}
	return nil
}

// NewSender picks the webhook sender when a URL is configured.
func NewSender(cfg *config.Config, log zerolog.Logger) Sender {
	if strings.TrimSpace(cfg.NotifyWebhookURL) == "" {
		log.Warn().Msg("NOTIFY_WEBHOOK_URL is not set; notifications will only be logged")
		return NewLogSender(log, cfg.Environment != "production")
	}
	return NewWebhookSender(cfg, log)
}
