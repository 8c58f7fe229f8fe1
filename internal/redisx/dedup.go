package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers event ids so a redelivered webhook is processed once.
type Deduper struct {
	RDB   *redis.Client
	Scope string
}

// FirstSeen marks id as seen and reports whether this call was the first.
func (d *Deduper) FirstSeen(ctx context.Context, id string) (bool, error) {
	return d.RDB.SetNX(ctx, fmt.Sprintf(KeyDedup, d.Scope, id), "1", TTLDedup).Result()
}

// Forget clears id so a failed delivery can be retried by the sender.
func (d *Deduper) Forget(ctx context.Context, id string) error {
	return d.RDB.Del(ctx, fmt.Sprintf(KeyDedup, d.Scope, id)).Err()
}
