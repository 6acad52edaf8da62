package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/barcut/internal/config"
	"github.com/piwi3910/barcut/internal/model"
)

func TestPlanTTL(t *testing.T) {
	assert.Equal(t, defaultCacheTTL, planTTL(config.CacheConfig{}))
	assert.Equal(t, defaultCacheTTL, planTTL(config.CacheConfig{PlanTTLSeconds: -1}))
	assert.Equal(t, 90*time.Second, planTTL(config.CacheConfig{PlanTTLSeconds: 90}))
}

func TestDialRedis_Errors(t *testing.T) {
	_, err := dialRedis(config.CacheConfig{RedisURL: "http://not-redis"})
	assert.Error(t, err)

	// Nothing listens on port 1
	_, err = dialRedis(config.CacheConfig{RedisHost: "127.0.0.1", RedisPort: "1"})
	assert.Error(t, err)
}

func TestInvalidate_SpansSeveralBatches(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	n := scanBatchSize*2 + 7
	for i := 0; i < n; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("k%d", i), model.Report{}))
	}
	require.NoError(t, c.InvalidateAll(ctx))
	assert.Empty(t, mr.Keys())
}
