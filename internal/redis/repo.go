package redis

import "go.uber.org/zap"

// Repository aggregates the Redis-backed repositories behind one client.
type Repository struct {
	log    *zap.Logger
	client *Client

	Restreams *RestreamRepository
	Settings  *SettingsRepository
}

func NewRepository(addr string, db int, log *zap.Logger) *Repository {
	log = log.Named("repo")
	client := NewClient(addr, db, log)

	return &Repository{
		log,
		client,
		newRestreamRepository(log, client),
		newSettingsRepository(log, client),
	}
}

func (r *Repository) Close() error { return r.client.Close() }
