package sidechannel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "draft:state:"

// Redis implements Store on a Redis client.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed side-channel store.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

var _ Store = (*Redis)(nil)

func (r *Redis) ReadProjection(ctx context.Context, divisionID uuid.UUID) (*Projection, error) {
	raw, err := r.client.Get(ctx, keyPrefix+divisionID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read projection: %w", err)
	}

	var p Projection
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode projection: %w", err)
	}
	return &p, nil
}

func (r *Redis) WriteProjection(ctx context.Context, divisionID uuid.UUID, p Projection) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode projection: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+divisionID.String(), data, 0).Err(); err != nil {
		return fmt.Errorf("write projection: %w", err)
	}
	return nil
}
