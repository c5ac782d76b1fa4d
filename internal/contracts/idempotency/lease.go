// Package idempotency serializes concurrent issuance attempts for the same
// request identity so the check-then-act window cannot produce duplicate
// contracts.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "contracts:issue-lease:"

// releaseScript deletes the lease only when the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lease is a best-effort mutual exclusion around the idempotency lookup.
type Lease struct {
	client       *redis.Client
	ttl          time.Duration
	pollInterval time.Duration
}

func NewLease(client *redis.Client, ttl time.Duration) *Lease {
	return &Lease{client: client, ttl: ttl, pollInterval: 100 * time.Millisecond}
}

// Key builds the lease key for one issuance identity.
func Key(templateID, actorID, fingerprint string) string {
	return fmt.Sprintf("%s%s:%s:%s", keyPrefix, templateID, actorID, fingerprint)
}

// Acquire takes the lease, polling while another holder finishes. It returns
// a release func and whether the lease was actually taken. A nil client means
/// the guard is unavailable: callers fall back to the unguarded lookup.
func (l *Lease) Acquire(ctx context.Context, key string) (release func(context.Context), acquired bool, err error) {
	noop := func(context.Context) {}
	if l == nil || l.client == nil {
		return noop, false, nil
	}

	token := uuid.NewString()
	deadline := time.Now().Add(l.ttl)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return noop, false, fmt.Errorf("acquire issuance lease: %w", err)
		}
		if ok {
			return func(releaseCtx context.Context) {
				// Best effort: an expired lease has already been freed by TTL.
				_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
			}, true, nil
		}
		if time.Now().After(deadline) {
			// Holder outlived its TTL; proceed unguarded rather than
			// block the request forever.
			return noop, false, nil
		}
		select {
		case <-ctx.Done():
			return noop, false, ctx.Err()
		case <-time.After(l.pollInterval):
		}
	}
}
