// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/newthinker/quorum/internal/core"
	"github.com/newthinker/quorum/internal/events"
)

// Webhook posts each event as JSON to a fixed URL.
type Webhook struct {
	name   string
	url    string
	client *resty.Client
}

// New creates a webhook notifier. Headers are sent with every request.
func New(name, url string, headers map[string]string) (*Webhook, error) {
	if url == "" {
		return nil, core.Wrapf(core.ErrConfigMissing, "webhook %s: url is required", name)
	}
	if name == "" {
		name = "webhook"
	}

	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeaders(headers)

	return &Webhook{name: name, url: url, client: client}, nil
}

func (w *Webhook) Name() string { return w.name }

// Notify posts e in its JSON form: {"type", "symbol", "time", "data"}.
func (w *Webhook) Notify(ctx context.Context, e events.Event) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(e).
		Post(w.url)
	if err != nil {
		return core.Wrapf(core.ErrNotifierFailed, "webhook %s: request failed: %w", w.name, err)
	}
	if resp.StatusCode() >= 400 {
		return core.Wrapf(core.ErrNotifierFailed, "webhook %s: server returned %d", w.name, resp.StatusCode())
	}
	return nil
}
