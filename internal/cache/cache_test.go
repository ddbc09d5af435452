package cache

import (
	"context"
	"testing"
	"time"

	"github.com/ayo6706/salon-ledger/internal/testutil/redistest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type page struct {
	Gross string `json:"receita_bruta"`
}

func TestMemoryCacheInvalidateByRoute(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "/reports/financial/dre:a", page{Gross: "500.00"}))
	require.NoError(t, c.Set(ctx, "/dashboard:a", page{Gross: "1"}))
	require.NoError(t, c.Set(ctx, "/clients:a", page{Gross: "2"}))

	var got page
	hit, err := c.Get(ctx, "/reports/financial/dre:a", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "500.00", got.Gross)

	require.NoError(t, c.Invalidate(ctx, "/reports/financial", "/dashboard"))
	assert.Equal(t, 1, c.Len())

	hit, err = c.Get(ctx, "/reports/financial/dre:a", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestReportCacheRedis(t *testing.T) {
	client := redistest.Client(t)
	c := NewReportCache(client, time.Minute)
	ctx := context.Background()

	var got page
	hit, err := c.Get(ctx, "/reports/financial/dre:u1", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "/reports/financial/dre:u1", page{Gross: "800.00"}))
	require.NoError(t, c.Set(ctx, "/reports/financial/dre:u2", page{Gross: "10.00"}))
	require.NoError(t, c.Set(ctx, "/clients:u1", page{Gross: "0"}))

	hit, err = c.Get(ctx, "/reports/financial/dre:u1", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "800.00", got.Gross)

	ttl, err := client.TTL(ctx, redisKey("/reports/financial/dre:u1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Invalidate(ctx, "/reports/financial", "/dashboard"))

	hit, err = c.Get(ctx, "/reports/financial/dre:u2", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	hit, err = c.Get(ctx, "/clients:u1", &got)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestReportCacheDropsUndecodableEntries(t *testing.T) {
	client := redistest.Client(t)
	c := NewReportCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, redisKey("/reports/financial/dre:x"), "not json", time.Minute).Err())

	var got page
	hit, err := c.Get(ctx, "/reports/financial/dre:x", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	exists, err := client.Exists(ctx, redisKey("/reports/financial/dre:x")).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}
