package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript returns {count, pttl_ms, allowed}. A key found without a TTL is
// given the window again so it cannot pin a client forever.
const hitScript = `
local current = redis.call("GET", KEYS[1])
local window = tonumber(ARGV[2])
if not current then
  redis.call("SET", KEYS[1], 1, "PX", window)
  return {1, window, 1}
end
local count = tonumber(current)
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], window)
  ttl = window
end
if count >= tonumber(ARGV[1]) then
  return {count, ttl, 0}
end
count = redis.call("INCR", KEYS[1])
return {count, ttl, 1}
`

var hitLua = redis.NewScript(hitScript)

// Redis is a [CounterStore] shared by every instance pointing at the same server.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis wraps client. The client is not closed by the store.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// Hit implements [CounterStore].
func (s *Redis) Hit(ctx context.Context, key string, limit int64, window time.Duration) (Window, error) {
	if err := validateHit(key, limit, window); err != nil {
		return Window{}, err
	}
	if s == nil || s.client == nil {
		return Window{}, fmt.Errorf("%w: nil redis client", ErrUnavailable)
	}

	res, err := hitLua.Run(ctx, s.client, []string{key}, limit, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(res) != 3 {
		return Window{}, fmt.Errorf("%w: unexpected script reply length %d", ErrUnavailable, len(res))
	}

	return Window{
		Count:   res[0],
		TTL:     time.Duration(res[1]) * time.Millisecond,
		Allowed: res[2] == 1,
	}, nil
}
