//go:build integration

package idempotency_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"rentaldocs/internal/contracts/idempotency"
	"rentaldocs/pkg/testutil/containers"
)

func TestLeaseMutualExclusion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	lease := idempotency.NewLease(rc.Client, 5*time.Second)
	key := idempotency.Key("tpl-1", "user-1", "fp-1")

	var concurrent, maxConcurrent int32
	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			release, acquired, err := lease.Acquire(ctx, key)
			if err != nil {
				return err
			}
			defer release(ctx)
			if !acquired {
				return nil
			}

			current := atomic.AddInt32(&concurrent, 1)
			for {
				max := atomic.LoadInt32(&maxConcurrent)
				if current <= max || atomic.CompareAndSwapInt32(&maxConcurrent, max, current) {
					break
				}
			}
			time.Sleep(50 * time.Millisecond)
			atomic.AddInt32(&concurrent, -1)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.LessOrEqual(t, atomic.LoadInt32(&maxConcurrent), int32(1),
		"lease holders must not overlap")
}

func TestLeaseReleaseAllowsNextHolder(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	lease := idempotency.NewLease(rc.Client, 2*time.Second)
	key := idempotency.Key("tpl-1", "user-1", "fp-2")

	release, acquired, err := lease.Acquire(ctx, key)
	require.NoError(t, err)
	require.True(t, acquired)
	release(ctx)

	release, acquired, err = lease.Acquire(ctx, key)
	require.NoError(t, err)
	assert.True(t, acquired)
	release(ctx)
}
