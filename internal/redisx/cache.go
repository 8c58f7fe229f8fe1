package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// StatusCache keeps order status for the status endpoint.
type StatusCache struct{ RDB *redis.Client }

type cachedStatus struct {
	Status string `json:"status"`
}

func (c *StatusCache) SetStatus(ctx context.Context, orderID, status string) error {
	b, err := json.Marshal(cachedStatus{Status: status})
	if err != nil {
		return err
	}
	return c.RDB.Set(ctx, fmt.Sprintf(KeyOrderStatus, orderID), b, TTLStatusCache).Err()
}

func (c *StatusCache) GetStatus(ctx context.Context, orderID string) (string, bool, error) {
	s, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	var cs cachedStatus
	if err := json.Unmarshal([]byte(s), &cs); err != nil {
		return "", false, err
	}
	return cs.Status, cs.Status != "", nil
}

func (c *StatusCache) DeleteStatus(ctx context.Context, orderID string) error {
	return c.RDB.Del(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Err()
}
