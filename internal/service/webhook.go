package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"claycutter/internal/model"
)

type WebhookService struct {
	db *sql.DB
}

func NewWebhookService(db *sql.DB) *WebhookService {
	return &WebhookService{db: db}
}

func validateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return validation(fmt.Sprintf("malformed webhook URL %q", raw))
	}
	return nil
}

func validateWebhookEvents(events []string) error {
	if len(events) == 0 {
		return validation("at least one event is required")
	}
	for _, ev := range events {
		if !model.KnownEvent(ev) {
			return validation(fmt.Sprintf("unknown event %q", ev))
		}
	}
	return nil
}

func (s *WebhookService) Create(ctx context.Context, rawURL string, events []string) (*model.WebhookConfig, error) {
	if err := validateWebhookURL(rawURL); err != nil {
		return nil, err
	}
	if err := validateWebhookEvents(events); err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("encode events: %w", err)
	}

	cfg := model.WebhookConfig{
		ID:       uuid.NewString(),
		URL:      rawURL,
		Events:   events,
		IsActive: true,
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO webhook_configs (id, url, events, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING created_at, updated_at`,
		cfg.ID, cfg.URL, encoded)
	if err := row.Scan(&cfg.CreatedAt, &cfg.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert webhook config: %w", err)
	}

	return &cfg, nil
}

func (s *WebhookService) List(ctx context.Context) ([]model.WebhookConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, events, is_active, created_at, updated_at
		FROM webhook_configs ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query webhook configs: %w", err)
	}
	defer rows.Close()

	var configs []model.WebhookConfig
	for rows.Next() {
		cfg, err := scanWebhookConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return configs, nil
}

// WebhookUpdate carries the optional fields of a config edit; nil means keep.
type WebhookUpdate struct {
	URL      *string   `json:"url"`
	Events   *[]string `json:"events"`
	IsActive *bool     `json:"is_active"`
}

func (s *WebhookService) Update(ctx context.Context, id string, in WebhookUpdate) (*model.WebhookConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, url, events, is_active, created_at, updated_at
		FROM webhook_configs WHERE id = $1`, id)
	cfg, err := scanWebhookConfig(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if in.URL != nil {
		if err := validateWebhookURL(*in.URL); err != nil {
			return nil, err
		}
		cfg.URL = *in.URL
	}
	if in.Events != nil {
		if err := validateWebhookEvents(*in.Events); err != nil {
			return nil, err
		}
		cfg.Events = *in.Events
	}
	if in.IsActive != nil {
		cfg.IsActive = *in.IsActive
	}

	encoded, err := json.Marshal(cfg.Events)
	if err != nil {
		return nil, fmt.Errorf("encode events: %w", err)
	}
	row = s.db.QueryRowContext(ctx, `
		UPDATE webhook_configs SET url = $1, events = $2, is_active = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at`,
		cfg.URL, encoded, cfg.IsActive, id)
	if err := row.Scan(&cfg.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update webhook config: %w", err)
	}

	return cfg, nil
}

func (s *WebhookService) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM webhook_configs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete webhook config: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveForEvent returns the active subscriptions covering the named event.
// Used by the dispatcher on every delivery.
func (s *WebhookService) ActiveForEvent(ctx context.Context, event string) ([]model.WebhookConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, events, is_active, created_at, updated_at
		FROM webhook_configs WHERE is_active`)
	if err != nil {
		return nil, fmt.Errorf("query webhook configs: %w", err)
	}
	defer rows.Close()

	var configs []model.WebhookConfig
	for rows.Next() {
		cfg, err := scanWebhookConfig(rows)
		if err != nil {
			return nil, err
		}
		if cfg.WantsEvent(event) {
			configs = append(configs, *cfg)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return configs, nil
}

func scanWebhookConfig(row rowScanner) (*model.WebhookConfig, error) {
	var cfg model.WebhookConfig
	var encoded string
	err := row.Scan(&cfg.ID, &cfg.URL, &encoded, &cfg.IsActive, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan webhook config: %w", err)
	}
	if err := json.Unmarshal([]byte(encoded), &cfg.Events); err != nil {
		return nil, fmt.Errorf("decode events for config %s: %w", cfg.ID, err)
	}
	return &cfg, nil
}
