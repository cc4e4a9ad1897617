package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dispatchkit/notifyd/internal/domain"
)

const textbeltURL = "https://textbelt.com/text"

// TextbeltProvider sends SMS via the Textbelt HTTP API.
type TextbeltProvider struct {
	apiKey     string
	httpClient *http.Client
}

func NewTextbeltProvider(apiKey string, timeout time.Duration) *TextbeltProvider {
	return &TextbeltProvider{apiKey: apiKey, httpClient: &http.Client{Timeout: timeout}}
}

func (p *TextbeltProvider) Name() string { return string(domain.ProviderTextbelt) }

type textbeltResponse struct {
	Success   bool   `json:"success"`
	TextID    string `json:"textId"`
	QuotaLeft int    `json:"quotaRemaining"`
	Error     string `json:"error"`
}

func (p *TextbeltProvider) Send(ctx context.Context, n *domain.Notification) (*Outcome, error) {
	sms, err := parseSMSPayload(n.Payload)
	if err != nil {
		return &Outcome{Success: false, Message: err.Error(), Retryable: false}, nil
	}

	form := url.Values{"phone": {sms.To}, "message": {sms.Body}, "key": {p.apiKey}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, textbeltURL, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build textbelt request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return &Outcome{Success: false, Message: err.Error(), Retryable: true}, nil
	}
	defer resp.Body.Close()

	var tr textbeltResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return &Outcome{Success: false, Message: fmt.Sprintf("decode textbelt response: %v", err), Retryable: true}, nil
	}

	if !tr.Success {
		return &Outcome{Success: false, Message: tr.Error, Retryable: true}, nil
	}
	return &Outcome{
		Success:  true,
		Response: map[string]any{"text_id": tr.TextID, "quota_remaining": tr.QuotaLeft},
	}, nil
}

var _ Provider = (*TextbeltProvider)(nil)
