package repo

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const codeKeyPrefix = "otc"

// claimScript — атомарное «удалить, если совпало». TTL ключа истекает сам,
// поэтому отдельной проверки expiry здесь нет.
var claimScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("DEL", KEYS[1])
	return 1
end
return 0
`)

// RedisCodeStore — коды в Redis (когда задан redis.addr).
type RedisCodeStore struct {
	rdb *redis.Client
}

func NewRedisCodeStore(rdb *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{rdb: rdb}
}

func (s *RedisCodeStore) key(email string) string { return codeKeyPrefix + ":" + email }

func (s *RedisCodeStore) Put(ctx context.Context, email, code string, expiry time.Time) error {
	ttl := time.Until(expiry)
	if ttl <= 0 {
		ttl = time.Second
	}
	return s.rdb.Set(ctx, s.key(email), code, ttl).Err()
}

func (s *RedisCodeStore) Claim(ctx context.Context, email, code string, _ time.Time) (bool, error) {
	n, err := claimScript.Run(ctx, s.rdb, []string{s.key(email)}, code).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
