package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/edgemux/restream-server/internal/domain/settings"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const settingsKey = "restream:settings"

// SettingsRepository persists the single server-wide settings document.
type SettingsRepository struct {
	client *Client
	log    *zap.Logger
}

func newSettingsRepository(log *zap.Logger, client *Client) *SettingsRepository {
	log = log.Named("settings_repo")

	return &SettingsRepository{
		log:    log,
		client: client,
	}
}

// Get returns the stored settings, or defaults when nothing is stored yet.
func (r *SettingsRepository) Get(ctx context.Context) (*settings.Settings, error) {
	value, err := r.client.Get(ctx, settingsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return settings.Default(), nil
		}
		return nil, fmt.Errorf("get: %w", err)
	}

	var s settings.Settings
	if err := json.Unmarshal(value, &s); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &s, nil
}

// Set stores the settings document.
func (r *SettingsRepository) Set(ctx context.Context, s *settings.Settings) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := r.client.Set(ctx, settingsKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	return nil
}
