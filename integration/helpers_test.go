//go:build integration

package integration

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/d70-t/preffs"
	"github.com/d70-t/preffs/manifest"
)

const (
	minioUser     = "preffs"
	minioPassword = "preffs-secret"
)

// --- Registry Container Setup ---

var (
	registryOnce sync.Once
	registryAddr string
	registryErr  error
)

// getRegistry returns the shared registry address, starting the container if needed.
func getRegistry(tb testing.TB) string {
	tb.Helper()
	skipWithoutDocker(tb)

	registryOnce.Do(func() {
		registryAddr, registryErr = startContainer(context.Background(), testcontainers.ContainerRequest{
			Image:        "registry:2",
			ExposedPorts: []string{"5000/tcp"},
			WaitingFor:   wait.ForHTTP("/v2/").WithPort("5000/tcp").WithStatusCodeMatcher(isOKStatus),
		}, "5000/tcp")
	})
	if registryErr != nil {
		tb.Fatalf("start registry container: %v", registryErr)
	}
	return registryAddr
}

// --- MinIO Container Setup ---

var (
	minioOnce sync.Once
	minioAddr string
	minioErr  error
)

// getMinio returns the shared MinIO address, starting the container if needed.
func getMinio(tb testing.TB) string {
	tb.Helper()
	skipWithoutDocker(tb)

	minioOnce.Do(func() {
		minioAddr, minioErr = startContainer(context.Background(), testcontainers.ContainerRequest{
			Image:        "minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
			Cmd:          []string{"server", "/data"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     minioUser,
				"MINIO_ROOT_PASSWORD": minioPassword,
			},
			WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStatusCodeMatcher(isOKStatus),
		}, "9000/tcp")
	})
	if minioErr != nil {
		tb.Fatalf("start minio container: %v", minioErr)
	}
	return minioAddr
}

func skipWithoutDocker(tb testing.TB) {
	tb.Helper()
	if os.Getenv("SKIP_DOCKER_TESTS") == "1" {
		tb.Skip("SKIP_DOCKER_TESTS is set")
	}
}

// startContainer starts req and returns the host:port of port.
// Cleanup is handled by the testcontainers reaper.
func startContainer(ctx context.Context, req testcontainers.ContainerRequest, port string) (string, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start %s: %w", req.Image, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve %s host: %w", req.Image, err)
	}
	mapped, err := container.MappedPort(ctx, nat.Port(port))
	if err != nil {
		return "", fmt.Errorf("resolve %s port: %w", req.Image, err)
	}
	return fmt.Sprintf("%s:%s", host, mapped.Port()), nil
}

func isOKStatus(status int) bool {
	return status >= 200 && status < 300
}

// --- Test Data Helpers ---

// makeRandomContent creates random binary content.
func makeRandomContent(size int) []byte {
	data := make([]byte, size)
	_, _ = rand.Read(data)
	return data
}

// splitRecords describes key as the concatenation of every other chunk of
// uri, and returns the records with the bytes they should reassemble to.
func splitRecords(key, uri string, data []byte, chunk int) ([]manifest.Record, []byte) {
	var (
		records []manifest.Record
		want    []byte
	)
	for off := 0; off < len(data); off += 2 * chunk {
		end := min(off+chunk, len(data))
		records = append(records, manifest.RemoteRecord(key, uri, uint64(off), uint64(end-off)))
		want = append(want, data[off:end]...)
	}
	return records, want
}

// checkFS verifies whole-file and ranged reads of key against want.
func checkFS(tb testing.TB, fsys *preffs.FS, key string, want []byte) {
	tb.Helper()
	ctx := context.Background()

	got, err := fsys.Cat(ctx, key)
	require.NoError(tb, err)
	require.Equal(tb, want, got)

	n := uint64(len(want))
	for _, r := range [][2]uint64{{0, 1}, {1, n - 1}, {n / 3, 2 * n / 3}, {n - 1, n}} {
		got, err := fsys.ReadRange(ctx, key, preffs.RangeBetween(r[0], r[1]))
		require.NoError(tb, err)
		require.Equal(tb, want[r[0]:r[1]], got, "range [%d,%d)", r[0], r[1])
	}
}
