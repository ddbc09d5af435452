// Package redistest provides a Redis client for integration tests.
package redistest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Client returns a client for REDIS_URL when set, otherwise for a disposable
// redis container. The selected database is flushed before use.
func Client(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	var opts *redis.Options
	if url := os.Getenv("REDIS_URL"); url != "" {
		parsed, err := redis.ParseURL(url)
		require.NoError(t, err)
		opts = parsed
	} else {
		if testing.Short() {
			t.Skip("Skipping redis integration test: REDIS_URL not set and -short given")
		}
		testcontainers.SkipIfProviderIsNotHealthy(t)

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
			},
			Started: true,
		})
		require.NoError(t, err, "start redis container")
		t.Cleanup(func() { _ = container.Terminate(context.Background()) })

		endpoint, err := container.Endpoint(ctx, "")
		require.NoError(t, err)
		opts = &redis.Options{Addr: endpoint}
	}

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	require.NoError(t, client.FlushDB(ctx).Err())
	return client
}
