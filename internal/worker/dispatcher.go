// Package worker delivers webhook notifications asynchronously so the
// mutation that produced an event never blocks on outbound HTTP.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"claycutter/internal/model"
)

// ConfigSource yields the active subscriptions for an event name.
type ConfigSource interface {
	ActiveForEvent(ctx context.Context, event string) ([]model.WebhookConfig, error)
}

type Event struct {
	Name string
	Data map[string]any
}

type envelope struct {
	ID         string         `json:"id"`
	Event      string         `json:"event"`
	OccurredAt string         `json:"occurred_at"`
	Data       map[string]any `json:"data"`
}

type Dispatcher struct {
	configs     ConfigSource
	client      *http.Client
	queue       chan Event
	maxAttempts int
	backoff     time.Duration
}

func NewDispatcher(configs ConfigSource) *Dispatcher {
	return &Dispatcher{
		configs:     configs,
		client:      &http.Client{Timeout: 10 * time.Second},
		queue:       make(chan Event, 64),
		maxAttempts: 3,
		backoff:     2 * time.Second,
	}
}

// Emit queues an event for delivery without blocking the caller. A full
// queue drops the event; delivery is fire-and-forget.
func (d *Dispatcher) Emit(event string, data map[string]any) {
	select {
	case d.queue <- Event{Name: event, Data: data}:
	default:
		slog.Warn("webhook queue full, dropping event", "event", event)
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	slog.Info("starting webhook dispatcher")
	for {
		select {
		case <-ctx.Done():
			slog.Info("webhook dispatcher stopped")
			return
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	configs, err := d.configs.ActiveForEvent(ctx, ev.Name)
	if err != nil {
		slog.Error("failed to load webhook configs", "event", ev.Name, "error", err)
		return
	}

	body, err := json.Marshal(newEnvelope(ev.Name, ev.Data))
	if err != nil {
		slog.Error("failed to encode webhook payload", "event", ev.Name, "error", err)
		return
	}

	for _, cfg := range configs {
		if err := d.postWithRetry(ctx, cfg.URL, body); err != nil {
			slog.Error("webhook delivery failed", "event", ev.Name, "url", cfg.URL, "error", err)
		} else {
			slog.Info("webhook delivered", "event", ev.Name, "url", cfg.URL)
		}
	}
}

func (d *Dispatcher) postWithRetry(ctx context.Context, url string, body []byte) error {
	var err error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if err = d.post(ctx, url, body); err == nil {
			return nil
		}
		if attempt < d.maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.backoff * time.Duration(attempt)):
			}
		}
	}
	return err
}

func (d *Dispatcher) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}

// TestURL sends a synthetic payload to the URL synchronously, one attempt,
// and reports the outcome to the caller.
func (d *Dispatcher) TestURL(ctx context.Context, url string) error {
	body, err := json.Marshal(newEnvelope("test", map[string]any{
		"message": "This is a test webhook",
	}))
	if err != nil {
		return fmt.Errorf("encode test payload: %w", err)
	}
	return d.post(ctx, url, body)
}

func newEnvelope(event string, data map[string]any) envelope {
	return envelope{
		ID:         uuid.NewString(),
		Event:      event,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
		Data:       data,
	}
}
