package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultWebhookTimeout = 30 * time.Second

// ErrWebhook wraps every webhook delivery failure.
var ErrWebhook = errors.New("webhook request failed")

// Webhook POSTs items as text/plain to a URL.
type Webhook struct {
	URL    string
	Client *http.Client
	// Header is added to every request, e.g. an auth token.
	Header http.Header
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		URL:    url,
		Client: &http.Client{Timeout: defaultWebhookTimeout},
	}
}

// Deliver sends one item. Any status >= 400 is an error.
func (w *Webhook) Deliver(ctx context.Context, item string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, strings.NewReader(item))
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrWebhook, err)
	}
	for k, vs := range w.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWebhook, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("%w: HTTP %d: %s", ErrWebhook, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
