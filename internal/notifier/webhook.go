package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// WebhookChannel relays messages to an email gateway that accepts JSON over HTTP POST.
type WebhookChannel struct {
	URL    string
	To     string
	Client *http.Client
}

// NewWebhookChannel creates a channel with optional proxy support.
func NewWebhookChannel(webhookURL, to, proxyURL string) *WebhookChannel {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &WebhookChannel{
		URL: webhookURL,
		To:  to,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (w *WebhookChannel) Name() string { return "email" }

func (w *WebhookChannel) Send(ctx context.Context, subject, msg string) error {
	body, err := json.Marshal(map[string]string{
		"to":      w.To,
		"subject": subject,
		"body":    msg,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post email: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("email relay error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
