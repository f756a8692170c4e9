package redisx

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// setIfNewer writes the on-hand hash only when the movement id moves forward,
// so redelivered or reordered events cannot roll the projection back.
var setIfNewer = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], 'movement_id') or '0')
if tonumber(ARGV[1]) <= cur then
  return 0
end
redis.call('HSET', KEYS[1], 'movement_id', ARGV[1], 'on_hand', ARGV[2])
return 1
`)

// StockProjection keeps the latest known on_hand per product plus the dedup
// markers of the consumer that feeds it.
type StockProjection struct {
	R       *redis.Client
	Service string
}

func (p *StockProjection) Seen(ctx context.Context, eventID string) (bool, error) {
	return Exists(ctx, p.R, fmt.Sprintf(KeyDedup, p.Service, eventID))
}

func (p *StockProjection) MarkSeen(ctx context.Context, eventID string) error {
	return p.R.Set(ctx, fmt.Sprintf(KeyDedup, p.Service, eventID), "1", TTLDedup).Err()
}

func (p *StockProjection) SetOnHand(ctx context.Context, productID, movementID int64, onHand int) (bool, error) {
	n, err := setIfNewer.Run(ctx, p.R, []string{fmt.Sprintf(KeyOnHand, productID)}, movementID, onHand).Int()
	return n == 1, err
}

func (p *StockProjection) OnHand(ctx context.Context, productID int64) (int, bool, error) {
	n, err := p.R.HGet(ctx, fmt.Sprintf(KeyOnHand, productID), "on_hand").Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	return n, err == nil, err
}
