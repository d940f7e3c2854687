//go:build integration

package integration

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/tiercache/pkg/cache"
	"github.com/Sternrassler/tiercache/pkg/coldstore"
)

const (
	minioUser     = "tiercache"
	minioPassword = "tiercache-secret"
)

// startContainer starts req and returns its host:port for port.
func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) string {
	t.Helper()

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start %s container: %v", req.Image, err)
	}
	t.Cleanup(func() {
		container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	mapped, err := container.MappedPort(ctx, nat.Port(port))
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}
	return host + ":" + mapped.Port()
}

// setupRedis starts a Redis container and opens a hot store on it.
func setupRedis(t *testing.T) *cache.Store {
	t.Helper()

	addr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}, "6379")

	store, err := cache.Open(context.Background(), cache.Config{
		URL:       "redis://" + addr + "/0",
		OpTimeout: 2 * time.Second,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to open hot store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// setupMinIO starts a MinIO container and returns a public bucket on it.
func setupMinIO(t *testing.T, bucket string) *coldstore.S3Store {
	t.Helper()

	addr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Cmd:          []string{"server", "/data"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     minioUser,
			"MINIO_ROOT_PASSWORD": minioPassword,
		},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
	}, "9000")

	cfg := coldstore.DefaultS3Config()
	cfg.Endpoint = addr
	cfg.AccessKey = minioUser
	cfg.SecretKey = minioPassword
	cfg.UseSSL = false
	cfg.Bucket = bucket

	store, err := coldstore.NewS3Store(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create cold store: %v", err)
	}
	if err := store.EnsureBucket(context.Background()); err != nil {
		t.Fatalf("EnsureBucket failed: %v", err)
	}
	return store
}

func httpGet(t *testing.T, url string) (int, string) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}
