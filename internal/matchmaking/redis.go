package matchmaking

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const queueKeyFormat = "mm:queue:%s"

// popScript removes the n oldest members only if at least n are queued.
// Running it as one script gives the all-or-nothing pop; ZPopMin alone would
// happily hand back a partial group.
var popScript = redis.NewScript(`
if redis.call('ZCARD', KEYS[1]) < tonumber(ARGV[1]) then
  return {}
end
local members = redis.call('ZRANGE', KEYS[1], 0, tonumber(ARGV[1]) - 1)
redis.call('ZREM', KEYS[1], unpack(members))
return members
`)

// RedisPool is the shared queue backend: a sorted set per mode scored by
// enqueue time, so multiple server processes drain the same queues.
type RedisPool struct {
	rdb *redis.Client
}

func NewRedisPool(rdb *redis.Client) *RedisPool {
	return &RedisPool{rdb: rdb}
}

func queueKey(mode string) string {
	return fmt.Sprintf(queueKeyFormat, mode)
}

func (p *RedisPool) Add(mode, playerID string) error {
	ctx := context.Background()
	return p.rdb.ZAdd(ctx, queueKey(mode), redis.Z{
		Score:  float64(time.Now().UnixMilli()),
		Member: playerID,
	}).Err()
}

func (p *RedisPool) Remove(mode, playerID string) error {
	ctx := context.Background()
	return p.rdb.ZRem(ctx, queueKey(mode), playerID).Err()
}

func (p *RedisPool) PopIfReady(mode string, n int) ([]string, error) {
	ctx := context.Background()
	res, err := popScript.Run(ctx, p.rdb, []string{queueKey(mode)}, n).Result()
	if err != nil {
		return nil, err
	}
	raw, ok := res.([]interface{})
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	players := make([]string, 0, len(raw))
	for _, m := range raw {
		if s, ok := m.(string); ok {
			players = append(players, s)
		}
	}
	return players, nil
}

func (p *RedisPool) Position(mode, playerID string) (int, error) {
	ctx := context.Background()
	rank, err := p.rdb.ZRank(ctx, queueKey(mode), playerID).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int(rank) + 1, nil
}

func (p *RedisPool) Count(mode string) (int, error) {
	ctx := context.Background()
	n, err := p.rdb.ZCard(ctx, queueKey(mode)).Result()
	return int(n), err
}

func (p *RedisPool) PurgeStale(mode string, maxWait time.Duration) (int, error) {
	ctx := context.Background()
	cutoff := time.Now().Add(-maxWait).UnixMilli()
	n, err := p.rdb.ZRemRangeByScore(ctx, queueKey(mode), "-inf", fmt.Sprintf("%d", cutoff)).Result()
	return int(n), err
}
