// Package testhelpers starts shared database containers for integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/daap14/taskhub/internal/database"
)

const (
	postgresImage = "postgres:16-alpine"
	mongoImage    = "mongo:7"
)

// PostgresDB holds a shared PostgreSQL container with migrations applied.
type PostgresDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	ConnStr   string
}

// MongoDB holds a shared MongoDB container and a connected client.
type MongoDB struct {
	Container testcontainers.Container
	Mongo     *database.Mongo
	URI       string
}

var (
	sharedPostgres     *PostgresDB
	sharedPostgresOnce sync.Once
	sharedPostgresErr  error

	sharedMongo     *MongoDB
	sharedMongoOnce sync.Once
	sharedMongoErr  error
)

// GetPostgres returns a shared PostgreSQL container for integration tests.
// The container is created once per test binary and reused. Tests are skipped
// in short mode or when Docker is unavailable.
func GetPostgres(t *testing.T) *PostgresDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedPostgresOnce.Do(func() {
		sharedPostgres, sharedPostgresErr = setupPostgres()
	})

	if sharedPostgresErr != nil {
		t.Skipf("skipping: cannot start postgres container: %v", sharedPostgresErr)
	}

	return sharedPostgres
}

// GetMongo returns a shared MongoDB container for integration tests.
func GetMongo(t *testing.T) *MongoDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedMongoOnce.Do(func() {
		sharedMongo, sharedMongoErr = setupMongo()
	})

	if sharedMongoErr != nil {
		t.Skipf("skipping: cannot start mongo container: %v", sharedMongoErr)
	}

	return sharedMongo
}

// FreshDatabase returns a uniquely named database on the shared MongoDB
// container. It is dropped when the test ends.
func (m *MongoDB) FreshDatabase(t *testing.T) *mongo.Database {
	t.Helper()

	name := fmt.Sprintf("test_%d", time.Now().UnixNano())
	db := m.Mongo.Database().Client().Database(name)
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
	})
	return db
}

func setupPostgres() (*PostgresDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "taskhub_test",
			"POSTGRES_USER":     "taskhub",
			"POSTGRES_PASSWORD": "test_password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := fmt.Sprintf("postgres://taskhub:test_password@%s:%s/taskhub_test?sslmode=disable",
		host, port.Port())

	if err := database.RunMigrations(connStr, zap.NewNop()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &PostgresDB{
		Container: container,
		Pool:      pool,
		ConnStr:   connStr,
	}, nil
}

func setupMongo() (*MongoDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        mongoImage,
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor: wait.ForListeningPort("27017/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start mongo container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "27017")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	uri := fmt.Sprintf("mongodb://%s:%s", host, port.Port())

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	m, err := database.NewMongo(connectCtx, uri, "taskhub_test")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	return &MongoDB{
		Container: container,
		Mongo:     m,
		URI:       uri,
	}, nil
}
