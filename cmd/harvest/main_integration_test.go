//go:build integration

package main

import (
	"context"
	"strings"
	"testing"

	"github.com/Sternrassler/harvest-client/internal/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestRedis(t *testing.T) (*redis.Client, string) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	addr := host + ":" + port.Port()
	redisClient := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() {
		redisClient.Close()
		redisC.Terminate(ctx)
	})
	return redisClient, addr
}

func TestIntegration_Refresh(t *testing.T) {
	rdb, addr := setupTestRedis(t)

	mock := testutil.NewMockHarvest()
	defer mock.Close()
	setupEnv(t, mock)
	t.Setenv("REDIS_URL", addr)

	mock.SetJSON("/jobs", []map[string]any{{"id": 100, "name": "Engineer"}, {"id": 200, "name": "Designer"}})
	mock.SetJSON("/job_posts", []map[string]any{})
	mock.SetJSON("/jobs/100/stages", []map[string]any{})
	mock.SetStatus("/jobs/200/stages", 500)
	mock.SetJSON("/applications", []map[string]any{})

	code, stdout, stderr := runCmd(t, "refresh")
	if code != 0 {
		t.Fatalf("code = %d stderr = %q", code, stderr)
	}
	if strings.TrimSpace(stdout) != "Updated 1 jobs, 1 failed" {
		t.Errorf("stdout = %q", stdout)
	}

	ctx := context.Background()
	for _, key := range []string{"jobs:v4", "jobs:v4:updatedAt", "pipeline:100", "pipeline:100:updatedAt"} {
		if n, err := rdb.Exists(ctx, key).Result(); err != nil || n != 1 {
			t.Errorf("key %s exists = %d, %v", key, n, err)
		}
	}
	if n, _ := rdb.Exists(ctx, "pipeline:200").Result(); n != 0 {
		t.Error("failed pipeline should not be cached")
	}

	// jobs now served cache-first from Redis
	code, stdout, _ = runCmd(t, "jobs")
	if code != 0 || !strings.Contains(stdout, "Designer") {
		t.Errorf("jobs code = %d stdout = %q", code, stdout)
	}
}
