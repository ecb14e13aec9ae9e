package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const writeTimeout = 2 * time.Second

// Postgres records transcripts in a relational store.
type Postgres struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// Open connects to the database, applies pending migrations and returns a
// ready recorder.
func Open(ctx context.Context, databaseURL string, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := migrate(databaseURL); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool, log: logger}, nil
}

// migrate runs goose over database/sql; pgx's stdlib driver registers
// itself as "pgx".
func migrate(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

func (p *Postgres) SessionStarted(ctx context.Context, clientID, mode string) {
	p.exec(ctx, "record session start",
		`INSERT INTO relay_sessions (client_id, mode) VALUES ($1, $2)`, clientID, mode)
}

func (p *Postgres) SessionEnded(ctx context.Context, clientID string) {
	p.exec(ctx, "record session end",
		`UPDATE relay_sessions SET ended_at = now() WHERE client_id = $1 AND ended_at IS NULL`, clientID)
}

func (p *Postgres) UserText(ctx context.Context, clientID, text string) {
	p.exec(ctx, "record user turn",
		`INSERT INTO relay_turns (client_id, role, content) VALUES ($1, 'user', $2)`, clientID, text)
}

func (p *Postgres) ModelText(ctx context.Context, clientID, text string) {
	p.exec(ctx, "record model turn",
		`INSERT INTO relay_turns (client_id, role, content) VALUES ($1, 'model', $2)`, clientID, text)
}

func (p *Postgres) Close() {
	if p == nil || p.pool == nil {
		return
	}
	p.pool.Close()
}

func (p *Postgres) exec(ctx context.Context, op, query string, args ...any) {
	if p == nil || p.pool == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		p.log.Error(op, "error", err)
	}
}
