// Package mongotest starts a throwaway MongoDB for tests.
package mongotest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ageniuscoder/pairchat/backend/internal/storage/mongodb"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
)

const image = "mongo:7"

var (
	once     sync.Once
	shared   *mongodb.Mongo
	startErr error
)

// Database returns an empty database on a MongoDB container shared by the
// test binary. It skips when -short is set or Docker is unavailable.
func Database(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("mongo container skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	once.Do(func() { shared, startErr = start(context.Background()) })
	if startErr != nil {
		t.Fatalf("start mongo container: %v", startErr)
	}

	name := "t_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	db := shared.Client.Database(name)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
	})
	return db
}

// start launches the container. It is left to the testcontainers reaper to
// remove once the test binary exits.
func start(ctx context.Context) (*mongodb.Mongo, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		return nil, err
	}
	host, err := container.Host(ctx)
	if err != nil {
		return nil, err
	}
	port, err := container.MappedPort(ctx, "27017/tcp")
	if err != nil {
		return nil, err
	}

	return mongodb.New(ctx, mongodb.Connection{
		URI:           fmt.Sprintf("mongodb://%s:%s", host, port.Port()),
		Database:      "pairchat_test",
		RetryCount:    5,
		RetryInterval: time.Second,
	})
}
