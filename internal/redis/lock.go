package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another request owns the session lock.
var ErrLockHeld = errors.New("session lock held")

// releaseScript deletes the key only if it still carries our token, so an
// expired lock re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

type Lock struct {
	client *Client
	key    string
	token  string
}

// AcquireSessionLock serializes answer submissions for one session. The lock
// expires after ttl even if Release is never called.
func (c *Client) AcquireSessionLock(ctx context.Context, sessionID string, ttl time.Duration) (*Lock, error) {
	key := submissionLockKey(sessionID)
	token := uuid.NewString()

	ok, err := c.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lock{client: c, key: key, token: token}, nil
}

func (l *Lock) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.client.Client, []string{l.key}, l.token).Err()
}
