//go:build integration

package containers

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"wealth/internal/platform/database"
	"wealth/migrations"
)

const payloadTable = "claim_check_payloads"

// PostgresContainer is a Postgres instance holding the claim-check payload table.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts Postgres and applies every up migration.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("wealth_test"),
		postgres.WithUsername("wealth"),
		postgres.WithPassword("wealth_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("postgres connection string: %v", err)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("open postgres: %v", err)
	}

	if err := database.Migrate(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("migrate: %v", err)
	}
	return &PostgresContainer{Container: container, DSN: dsn, DB: db}
}

// ResetPayloads deletes every stored payload.
func (p *PostgresContainer) ResetPayloads(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+payloadTable)
	return err
}

// InsertPayloadAt stores a payload row with an explicit creation time.
func (p *PostgresContainer) InsertPayloadAt(ctx context.Context, key string, data []byte, createdAt time.Time) error {
	_, err := p.DB.ExecContext(ctx,
		"INSERT INTO "+payloadTable+" (key, data, created_at) VALUES ($1, $2, $3)",
		key, data, createdAt)
	return err
}
