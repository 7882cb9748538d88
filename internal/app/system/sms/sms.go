// Package sms delivers verification codes to phone numbers. Production uses
// an HTTP gateway; dev environments log the message instead of sending it.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Sender delivers a text message to an E.164 phone number.
type Sender interface {
	Send(ctx context.Context, phone, body string) error
}

// LogSender writes messages to the log instead of sending them. Used in dev
// so sign-in flows work without a gateway account.
type LogSender struct {
	Log *zap.Logger
}

func (s *LogSender) Send(_ context.Context, phone, body string) error {
	s.Log.Info("sms (not sent, dev mode)",
		zap.String("phone", phone),
		zap.String("body", body))
	return nil
}

// GatewaySender posts messages to an SMS gateway's JSON API. Outbound sends
// are rate limited so a burst of sign-ups cannot exhaust the gateway quota.
type GatewaySender struct {
	url     string
	token   string
	client  *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewGatewaySender builds a sender for the given gateway endpoint.
// perSecond caps outbound message rate across all phones.
func NewGatewaySender(url, token string, perSecond float64, logger *zap.Logger) *GatewaySender {
	return &GatewaySender{
		url:     url,
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(perSecond), 3),
		log:     logger,
	}
}

type gatewayPayload struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

func (s *GatewaySender) Send(ctx context.Context, phone, body string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sms rate limiter: %w", err)
	}

	buf, err := json.Marshal(gatewayPayload{To: phone, Body: body})
	if err != nil {
		return fmt.Errorf("marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.log.Warn("sms gateway rejected message",
			zap.Int("status", resp.StatusCode),
			zap.String("phone", phone))
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}
	return nil
}
