package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/edgemux/restream-server/internal/domain/restream"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrRestreamNotFound = errors.New("restream not found")

const (
	restreamKeyPrefix = "restream:cfg:"
	restreamIDsKey    = "restream:ids" // SET of restream IDs
)

// RestreamRepository provides Redis-backed persistence for restream
// definitions.
//
// Only configuration is persisted (the serialized form, statuses excluded);
// runtime state is rebuilt by the supervisor after every boot.
type RestreamRepository struct {
	client *Client
	log    *zap.Logger
}

func newRestreamRepository(log *zap.Logger, client *Client) *RestreamRepository {
	log = log.Named("restream_repo")

	return &RestreamRepository{
		log:    log,
		client: client,
	}
}

// Upsert persists a restream definition and adds its ID to the index set.
func (r *RestreamRepository) Upsert(ctx context.Context, spec *restream.RestreamSpec) error {
	payload, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, restreamKey(spec.ID), payload, 0)
	pipe.SAdd(ctx, restreamIDsKey, string(spec.ID))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

// GetByID fetches a restream definition by its ID.
// Returns ErrRestreamNotFound if the key does not exist.
func (r *RestreamRepository) GetByID(ctx context.Context, id restream.RestreamID) (*restream.RestreamSpec, error) {
	value, err := r.client.Get(ctx, restreamKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRestreamNotFound
		}
		return nil, fmt.Errorf("get: %w", err)
	}

	var spec restream.RestreamSpec
	if err := json.Unmarshal(value, &spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &spec, nil
}

// GetAll returns every persisted restream definition.
func (r *RestreamRepository) GetAll(ctx context.Context) ([]*restream.RestreamSpec, error) {
	ids, err := r.client.SMembers(ctx, restreamIDsKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("set members: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = restreamKeyPrefix + id
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget: %w", err)
	}

	out := make([]*restream.RestreamSpec, 0, len(vals))
	for i, v := range vals {
		if v == nil {
			// Index set and blob fell out of sync; skip and let the
			// next Upsert repair the entry.
			r.log.Warn("dangling index entry", zap.String("key", keys[i]))
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("key %s at index %d: unexpected type (got %T, want string)", keys[i], i, v)
		}
		var spec restream.RestreamSpec
		if err := json.Unmarshal([]byte(s), &spec); err != nil {
			return nil, fmt.Errorf("key %s at index %d: decode restream: %w", keys[i], i, err)
		}
		out = append(out, &spec)
	}
	return out, nil
}

// Delete removes a restream definition by ID.
// Returns ErrRestreamNotFound if the key was not present.
func (r *RestreamRepository) Delete(ctx context.Context, id restream.RestreamID) error {
	pipe := r.client.TxPipeline()
	del := pipe.Del(ctx, restreamKey(id))
	pipe.SRem(ctx, restreamIDsKey, string(id))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	if del.Val() == 0 {
		return ErrRestreamNotFound
	}
	return nil
}

func restreamKey(id restream.RestreamID) string {
	return restreamKeyPrefix + string(id)
}
