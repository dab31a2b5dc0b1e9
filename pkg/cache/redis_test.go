package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmdirect/farmdirect/pkg/cache"
)

func TestNilClientIsNoop(t *testing.T) {
	ctx := context.Background()
	cache.RDB = nil

	var dest string
	assert.False(t, cache.Get(ctx, "k", &dest))
	assert.NoError(t, cache.Set(ctx, "k", "v", time.Minute))
	assert.NoError(t, cache.Del(ctx, "k"))
	assert.NoError(t, cache.Close())
}

func TestRememberWithoutRedisAlwaysComputes(t *testing.T) {
	ctx := context.Background()
	cache.RDB = nil

	calls := 0
	fn := func() (int, error) { calls++; return 42, nil }

	for i := 0; i < 2; i++ {
		v, err := cache.Remember(ctx, "test", "k", time.Minute, fn)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	assert.Equal(t, 2, calls)

	boom := errors.New("boom")
	_, err := cache.Remember(ctx, "test", "k", time.Minute, func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
}

func TestKey(t *testing.T) {
	a := cache.Key("geo", 28.6, 77.2, "vegetables")
	b := cache.Key("geo", 28.6, 77.2, "vegetables")
	c := cache.Key("geo", 28.6, 77.2, "fruits")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "geo:")
}
