package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"claycutter/internal/model"
	"claycutter/internal/service"
)

// WebhookStore is the slice of WebhookService the config endpoints need.
type WebhookStore interface {
	Create(ctx context.Context, url string, events []string) (*model.WebhookConfig, error)
	List(ctx context.Context) ([]model.WebhookConfig, error)
	Update(ctx context.Context, id string, in service.WebhookUpdate) (*model.WebhookConfig, error)
	Delete(ctx context.Context, id string) error
}

// WebhookTester performs a synchronous test delivery.
type WebhookTester interface {
	TestURL(ctx context.Context, url string) error
}

type createWebhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

func CreateWebhookHandler(webhookSvc WebhookStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createWebhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}

		cfg, err := webhookSvc.Create(r.Context(), req.URL, req.Events)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, cfg)
	}
}

func ListWebhooksHandler(webhookSvc WebhookStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		configs, err := webhookSvc.List(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if configs == nil {
			configs = []model.WebhookConfig{}
		}
		writeJSON(w, http.StatusOK, configs)
	}
}

func UpdateWebhookHandler(webhookSvc WebhookStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req service.WebhookUpdate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}

		cfg, err := webhookSvc.Update(r.Context(), chi.URLParam(r, "configID"), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, cfg)
	}
}

func DeleteWebhookHandler(webhookSvc WebhookStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := webhookSvc.Delete(r.Context(), chi.URLParam(r, "configID")); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "webhook config deleted"})
	}
}

type testWebhookRequest struct {
	URL string `json:"url"`
}

func TestWebhookHandler(tester WebhookTester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req testWebhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}

		if err := tester.TestURL(r.Context(), req.URL); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("webhook test failed: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	}
}
