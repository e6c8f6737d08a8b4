package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/hero-arena/internal/api"
	"github.com/dom/hero-arena/internal/config"
	"github.com/dom/hero-arena/internal/repository"
	repoPostgres "github.com/dom/hero-arena/internal/repository/postgres"
	"github.com/dom/hero-arena/internal/service"
	"github.com/dom/hero-arena/internal/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestAdminID is the arena admin in TestConfig.
const TestAdminID = "00000000-0000-0000-0000-0000000000ad"

// TestCardContract is the card contract registered at genesis in TestConfig.
const TestCardContract = "cards-v1"

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_hero_arena"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := repoPostgres.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	tables := []string{
		"imported_batches",
		"outbox_effects",
		"filler_bots",
		"battle_participations",
		"battles",
		"seen_players",
		"player_pages",
		"tourney_stats",
		"player_stats",
		"arena_state",
		"user_sessions",
		"users",
	}

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:                "0", // Random port
		Environment:         "test",
		JWTSecret:           "test-jwt-secret-key-for-testing-only",
		JWTExpirationHours:  1,
		ServiceTokenTTL:     time.Hour,
		InstanceID:          "arena-test",
		AdminID:             TestAdminID,
		Entropy:             "test arena entropy",
		CardContractAddress: TestCardContract,
		CardContractURL:     "http://cards-v1.invalid",
		OutboxInterval:      50 * time.Millisecond,
		OutboxBatchSize:     50,
		RegistryTimeout:     5 * time.Second,
		SnapshotPrefix:      "arena-snapshots/",
	}
}

// TestEpoch is where the fake clock of every test arena starts.
var TestEpoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// TestArena is a genesis-initialized arena backed by a test database, a
// fake card contract and a fake clock.
type TestArena struct {
	DB       *TestDB
	Repos    *repository.Repositories
	Services *service.Services
	Registry *FakeRegistry
	Clock    *clockwork.FakeClock
	Config   *config.Config
}

// NewTestArena creates an arena on a fresh database.
func NewTestArena(t *testing.T) *TestArena {
	t.Helper()
	return newTestArena(t, NewTestDB(t), TestConfig())
}

func newTestArena(t *testing.T, testDB *TestDB, cfg *config.Config) *TestArena {
	t.Helper()

	repos := repoPostgres.NewRepositories(testDB.DB)
	registry := NewFakeRegistry()
	clock := clockwork.NewFakeClockAt(TestEpoch)
	services := service.NewServices(repos, repoPostgres.NewTransactor(testDB.DB), registry, clock, cfg)

	a := &TestArena{
		DB:       testDB,
		Repos:    repos,
		Services: services,
		Registry: registry,
		Clock:    clock,
		Config:   cfg,
	}
	a.genesis(t)
	return a
}

func (a *TestArena) genesis(t *testing.T) {
	t.Helper()
	if _, err := a.Services.Arena.Genesis(context.Background()); err != nil {
		t.Fatalf("failed to create arena: %v", err)
	}
}

// Reset wipes the database and recreates the arena.
func (a *TestArena) Reset(t *testing.T) {
	t.Helper()
	a.DB.Truncate(t)
	a.Registry.Reset()
	a.genesis(t)
}

// TestServer holds all components for integration testing
type TestServer struct {
	*TestArena
	Server *httptest.Server
	Hub    *websocket.Hub
}

// NewTestServer creates a complete test server with all dependencies
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	arena := NewTestArena(t)

	hub := websocket.NewHub(func(ctx context.Context, playerID string) (interface{}, error) {
		return arena.Services.Arena.Bullpen(ctx, playerID)
	})
	go hub.Run()
	arena.Services.Engine.SetNotifier(hub)

	router := api.NewRouter(arena.Services, hub)
	server := httptest.NewServer(router)

	ts := &TestServer{
		TestArena: arena,
		Server:    server,
		Hub:       hub,
	}

	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})

	return ts
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api/v1%s", ts.Server.URL, path)
}

// WebSocketURL returns the WebSocket URL with token
func (ts *TestServer) WebSocketURL(token string) string {
	wsURL := "ws" + ts.Server.URL[4:] // Replace "http" with "ws"
	return fmt.Sprintf("%s/api/v1/ws?token=%s", wsURL, token)
}
