//go:build integration

// Package testinfra starts a throwaway Postgres seeded with the news schema.
package testinfra

import (
	"context"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/tern/v2/migrate"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/akave-ai/newsreport/internal/config"
	"github.com/akave-ai/newsreport/internal/model"
)

const (
	DefaultPostgresImage = "postgres:16-alpine"
	postgresPort         = "5432/tcp"

	DatabaseName = "news"
	user         = "vagrant"
	password     = "vagrant"
)

// SkipIfNoDocker skips the test if Docker is not available.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if exec.CommandContext(ctx, "docker", "info").Run() != nil {
		t.Skip("Skipping test: Docker not available")
	}
}

// Postgres is a running container with the news schema applied.
type Postgres struct {
	testcontainers.Container
	Config config.DatabaseConfig
}

// StartPostgres launches the container, applies the schema and registers
// cleanup on t.
func StartPostgres(t *testing.T) *Postgres {
	t.Helper()
	SkipIfNoDocker(t)

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        DefaultPostgresImage,
		ExposedPorts: []string{postgresPort},
		Env: map[string]string{
			"POSTGRES_DB":       DatabaseName,
			"POSTGRES_USER":     user,
			"POSTGRES_PASSWORD": password,
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(postgresPort),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("create postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, postgresPort)
	if err != nil {
		t.Fatalf("get mapped port: %v", err)
	}

	pg := &Postgres{
		Container: container,
		Config: config.DatabaseConfig{
			Host:           host,
			Port:           port.Int(),
			User:           user,
			Password:       password,
			Name:           DatabaseName,
			SSLMode:        "disable",
			ConnectTimeout: 10 * time.Second,
		},
	}
	if err := pg.migrate(ctx); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return pg
}

// Schema mirrors the tables the newsdata dump creates.
var schema = []struct{ name, up, down string }{
	{
		name: "authors",
		up: `CREATE TABLE authors (
	name text NOT NULL,
	bio  text,
	id   serial PRIMARY KEY
)`,
		down: `DROP TABLE authors`,
	},
	{
		name: "articles",
		up: `CREATE TABLE articles (
	author integer NOT NULL REFERENCES authors(id),
	title  text NOT NULL,
	slug   text UNIQUE NOT NULL,
	lead   text,
	body   text,
	time   timestamptz DEFAULT now(),
	id     serial PRIMARY KEY
)`,
		down: `DROP TABLE articles`,
	},
	{
		name: "log",
		up: `CREATE TABLE log (
	path   text,
	ip     inet,
	method text,
	status text,
	time   timestamptz DEFAULT now(),
	id     serial PRIMARY KEY
)`,
		down: `DROP TABLE log`,
	},
}

func (p *Postgres) migrate(ctx context.Context) error {
	conn, err := p.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	m, err := migrate.NewMigrator(ctx, conn, "schema_version")
	if err != nil {
		return fmt.Errorf("new migrator: %w", err)
	}
	for _, s := range schema {
		m.AppendMigration(s.name, s.up, s.down)
	}
	return m.Migrate(ctx)
}

// Connect opens a raw connection for seeding.
func (p *Postgres) Connect(ctx context.Context) (*pgx.Conn, error) {
	cfg := p.Config
	return pgx.Connect(ctx, fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name))
}

// Seed inserts authors, articles and log rows.
func (p *Postgres) Seed(t *testing.T, authors []model.Author, articles []model.Article, entries []model.LogEntry) {
	t.Helper()
	ctx := context.Background()

	conn, err := p.Connect(ctx)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close(ctx)

	for _, a := range authors {
		if _, err := conn.Exec(ctx, `INSERT INTO authors (id, name) VALUES ($1, $2)`, a.ID, a.Name); err != nil {
			t.Fatalf("insert author %q: %v", a.Name, err)
		}
	}
	for _, a := range articles {
		if _, err := conn.Exec(ctx, `INSERT INTO articles (author, title, slug) VALUES ($1, $2, $3)`, a.Author, a.Title, a.Slug); err != nil {
			t.Fatalf("insert article %q: %v", a.Slug, err)
		}
	}

	rows := make([][]any, len(entries))
	for i, e := range entries {
		rows[i] = []any{e.Path, e.Status, e.Time}
	}
	if _, err := conn.CopyFrom(ctx, pgx.Identifier{"log"}, []string{"path", "status", "time"}, pgx.CopyFromRows(rows)); err != nil {
		t.Fatalf("copy log rows: %v", err)
	}
}

// Requests builds n log entries for path at t with the given status.
func Requests(n int, path, status string, t time.Time) []model.LogEntry {
	out := make([]model.LogEntry, n)
	for i := range out {
		out[i] = model.LogEntry{Time: t, Path: path, Status: status}
	}
	return out
}
