package models

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// reserveScript seeds the counter on first use, then increments it only if the slot can take
// the requested quantity. Returns the remaining units, or -1 when the slot is full.
// KEYS[1] counter; ARGV[1] capacity, ARGV[2] seed, ARGV[3] quantity
var reserveScript = redis.NewScript(`
local reserved = redis.call('GET', KEYS[1])
if not reserved then
  reserved = tonumber(ARGV[2])
  redis.call('SET', KEYS[1], reserved)
else
  reserved = tonumber(reserved)
end
local capacity = tonumber(ARGV[1])
local quantity = tonumber(ARGV[3])
if reserved + quantity > capacity then
  return -1
end
return capacity - redis.call('INCRBY', KEYS[1], quantity)
`)

// releaseScript decrements without letting the counter go below zero.
// KEYS[1] counter; ARGV[1] quantity
var releaseScript = redis.NewScript(`
local reserved = tonumber(redis.call('GET', KEYS[1]) or '0')
local quantity = tonumber(ARGV[1])
if reserved < quantity then
  quantity = reserved
end
return redis.call('DECRBY', KEYS[1], quantity)
`)

// RedisReserver keeps per-slot counters in Redis and mutates them with Lua scripts.
type RedisReserver struct {
	client *redis.Client
}

func NewRedisReserver(client *redis.Client) *RedisReserver {
	return &RedisReserver{client: client}
}

func RedisReservationKey(key SlotKey) string {
	return fmt.Sprintf("slot:reserved:%s", key.String())
}

func (r *RedisReserver) Reserve(ctx context.Context, req ReserveRequest) (int, error) {
	if req.Quantity <= 0 {
		return 0, ErrInvalidQuantity
	}
	keys := []string{RedisReservationKey(req.Key)}
	remaining, err := reserveScript.Run(ctx, r.client, keys, req.Capacity, req.Booked, req.Quantity).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to execute reserve script: %w", err)
	}
	if remaining < 0 {
		return 0, ErrInsufficientCapacity
	}
	return remaining, nil
}

func (r *RedisReserver) Release(ctx context.Context, key SlotKey, quantity int) error {
	if quantity <= 0 {
		return nil
	}
	keys := []string{RedisReservationKey(key)}
	if err := releaseScript.Run(ctx, r.client, keys, quantity).Err(); err != nil {
		return fmt.Errorf("failed to execute release script: %w", err)
	}
	return nil
}
