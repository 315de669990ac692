package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"claycutter/internal/model"
	"claycutter/internal/service"
)

type fakeWebhookStore struct {
	created *model.WebhookConfig
	err     error
}

func (f *fakeWebhookStore) Create(ctx context.Context, url string, events []string) (*model.WebhookConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = &model.WebhookConfig{ID: "w1", URL: url, Events: events, IsActive: true}
	return f.created, nil
}

func (f *fakeWebhookStore) List(ctx context.Context) ([]model.WebhookConfig, error) {
	return nil, f.err
}

func (f *fakeWebhookStore) Update(ctx context.Context, id string, in service.WebhookUpdate) (*model.WebhookConfig, error) {
	return nil, f.err
}

func (f *fakeWebhookStore) Delete(ctx context.Context, id string) error {
	return f.err
}

type fakeTester struct {
	err error
	url string
}

func (f *fakeTester) TestURL(ctx context.Context, url string) error {
	f.url = url
	return f.err
}

func TestCreateWebhookHandler(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		store := &fakeWebhookStore{}
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/config",
			strings.NewReader(`{"url":"https://example.com/hook","events":["order.ready"]}`))
		rec := httptest.NewRecorder()
		CreateWebhookHandler(store).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		if store.created == nil || store.created.URL != "https://example.com/hook" {
			t.Errorf("created = %+v", store.created)
		}
	})

	t.Run("validation error", func(t *testing.T) {
		store := &fakeWebhookStore{err: &service.ValidationError{Detail: "malformed webhook URL"}}
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/config",
			strings.NewReader(`{"url":"nope","events":["order.ready"]}`))
		rec := httptest.NewRecorder()
		CreateWebhookHandler(store).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestTestWebhookHandler(t *testing.T) {
	t.Run("reachable endpoint", func(t *testing.T) {
		tester := &fakeTester{}
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/test",
			strings.NewReader(`{"url":"https://example.com/hook"}`))
		rec := httptest.NewRecorder()
		TestWebhookHandler(tester).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
		if tester.url != "https://example.com/hook" {
			t.Errorf("tested url = %q", tester.url)
		}
	})

	t.Run("delivery failure reported", func(t *testing.T) {
		tester := &fakeTester{err: errors.New("connection refused")}
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/test",
			strings.NewReader(`{"url":"https://example.com/hook"}`))
		rec := httptest.NewRecorder()
		TestWebhookHandler(tester).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}
