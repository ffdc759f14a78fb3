//go:build integration

package notify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) (*Redis, func()) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	r := NewRedis(fmt.Sprintf("%s:%s", host, port.Port()), "test:events")
	return r, func() {
		r.Close()
		container.Terminate(ctx)
	}
}

func TestRedisPublishAndNext(t *testing.T) {
	r, cleanup := setupRedis(t)
	if r == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	if !r.Healthy(ctx) {
		t.Fatal("expected redis to be healthy")
	}

	for _, id := range []string{"1", "2"} {
		if err := r.Publish(ctx, database.AttendanceRecord{ID: id, Name: "Alice"}); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	for _, want := range []string{"1", "2"} {
		ev, err := r.Next(ctx, time.Second)
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if ev == nil || ev.Record.ID != want {
			t.Fatalf("expected record %s, got %+v", want, ev)
		}
	}

	ev, err := r.Next(ctx, time.Second)
	if err != nil || ev != nil {
		t.Errorf("expected empty list, got %+v, %v", ev, err)
	}
}
