package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dispatchkit/notifyd/internal/domain"
)

const fcmURL = "https://fcm.googleapis.com/fcm/send"

// FCMProvider delivers push notifications via Firebase Cloud Messaging's
// legacy HTTP API.
type FCMProvider struct {
	serverKey  string
	httpClient *http.Client
}

func NewFCMProvider(serverKey string, timeout time.Duration) *FCMProvider {
	return &FCMProvider{serverKey: serverKey, httpClient: &http.Client{Timeout: timeout}}
}

func (p *FCMProvider) Name() string { return string(domain.ProviderFCM) }

type fcmNotification struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
}

type fcmRequest struct {
	To           string          `json:"to,omitempty"`
	Notification fcmNotification `json:"notification,omitempty"`
	Data         map[string]any  `json:"data,omitempty"`
}

type fcmResult struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

type fcmResponse struct {
	Success int         `json:"success"`
	Failure int         `json:"failure"`
	Results []fcmResult `json:"results"`
}

func (p *FCMProvider) Send(ctx context.Context, n *domain.Notification) (*Outcome, error) {
	push, err := parsePushPayload(n.Payload)
	if err != nil {
		return &Outcome{Success: false, Message: err.Error(), Retryable: false}, nil
	}

	to := push.Token
	if to == "" {
		to = "/topics/" + push.Topic
	}

	body, err := json.Marshal(fcmRequest{
		To:           to,
		Notification: fcmNotification{Title: push.Title, Body: push.Body},
		Data:         push.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal fcm request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fcmURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build fcm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+p.serverKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return &Outcome{Success: false, Message: err.Error(), Retryable: true}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &Outcome{Success: false, Message: fmt.Sprintf("fcm status %d", resp.StatusCode), Retryable: true}, nil
	}

	var fr fcmResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return &Outcome{Success: false, Message: fmt.Sprintf("decode fcm response: %v", err), Retryable: true}, nil
	}

	if fr.Success <= 0 {
		msg := "fcm delivery failed"
		if len(fr.Results) > 0 && fr.Results[0].Error != "" {
			msg = fr.Results[0].Error
		}
		return &Outcome{Success: false, Message: msg, Retryable: true}, nil
	}

	resp2 := map[string]any{"success": fr.Success, "failure": fr.Failure}
	if len(fr.Results) > 0 {
		resp2["message_id"] = fr.Results[0].MessageID
	}
	return &Outcome{Success: true, Response: resp2}, nil
}

var _ Provider = (*FCMProvider)(nil)
