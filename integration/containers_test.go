//go:build integration

package integration

import (
	"context"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	testcontainers "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// service describes one backing container and how to reach it once started.
type service struct {
	image   string
	port    nat.Port
	env     map[string]string
	cmd     []string
	waitFor wait.Strategy
}

var (
	redisService = service{
		image:   "redis:7-bookworm",
		port:    "6379/tcp",
		waitFor: wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	natsService = service{
		image:   "nats:2",
		port:    "4222/tcp",
		cmd:     []string{"-js"},
		waitFor: wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
	}
	postgresService = service{
		image:   "postgres:16-bookworm",
		port:    "5432/tcp",
		env:     map[string]string{"POSTGRES_PASSWORD": "pass", "POSTGRES_USER": "user", "POSTGRES_DB": "app"},
		waitFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	mysqlService = service{
		image: "mysql:8",
		port:  "3306/tcp",
		env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "pass",
			"MYSQL_DATABASE":      "app",
			"MYSQL_USER":          "user",
			"MYSQL_PASSWORD":      "pass",
		},
		waitFor: wait.ForAll(
			wait.ForListeningPort("3306/tcp").WithStartupTimeout(90*time.Second),
			wait.ForLog("ready for connections").WithOccurrence(2).WithStartupTimeout(90*time.Second),
		),
	}
	dynamoService = service{
		image:   "amazon/dynamodb-local:latest",
		port:    "8000/tcp",
		waitFor: wait.ForListeningPort("8000/tcp").WithStartupTimeout(45 * time.Second),
	}
)

// start runs the container and returns host:port of its mapped service port.
// The container is terminated in t.Cleanup.
func (s service) start(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        s.image,
			Env:          s.env,
			Cmd:          s.cmd,
			ExposedPorts: []string{string(s.port)},
			WaitingFor:   s.waitFor,
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start %s container: %v", s.image, err)
	}
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = container.Terminate(shutdownCtx)
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("%s container host: %v", s.image, err)
	}
	port, err := container.MappedPort(ctx, s.port)
	if err != nil {
		t.Fatalf("%s container port: %v", s.image, err)
	}
	return net.JoinHostPort(host, port.Port())
}

// selectedIntegrationDrivers chooses which drivers run under the integration tag.
// INTEGRATION_DRIVER may be "all" (default) or a comma-separated list such as "redis,sqlite".
func selectedIntegrationDrivers() map[string]bool {
	selected := map[string]bool{
		"lru":      true,
		"memory":   true,
		"redis":    true,
		"nats":     true,
		"postgres": true,
		"mysql":    true,
		"sqlite":   true,
		"dynamodb": true,
	}
	value := strings.TrimSpace(strings.ToLower(os.Getenv("INTEGRATION_DRIVER")))
	if value == "" || value == "all" {
		return selected
	}
	for key := range selected {
		selected[key] = false
	}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		selected[part] = true
	}
	return selected
}

func integrationDriverEnabled(name string) bool {
	return selectedIntegrationDrivers()[strings.ToLower(name)]
}

// retry keeps calling fn until it succeeds or timeout passes; databases accept
// connections a little before they accept DDL.
func retry[T any](timeout, interval time.Duration, fn func() (T, error)) (T, error) {
	deadline := time.Now().Add(timeout)
	for {
		v, err := fn()
		if err == nil || time.Now().After(deadline) {
			return v, err
		}
		time.Sleep(interval)
	}
}
