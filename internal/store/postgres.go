package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/linkhoard/linkhoard/internal/model"
)

// PgxPool is the subset of pgxpool.Pool used by PostgresPersister.
// pgxmock satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresPersister implements Persister over a key-value table in Postgres.
type PostgresPersister struct {
	pool PgxPool
}

// NewPostgres connects to Postgres and creates the kv table.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresPersister, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	p := &PostgresPersister{pool: pool}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgresWithPool wraps an existing pool (used by tests).
func NewPostgresWithPool(pool PgxPool) *PostgresPersister {
	return &PostgresPersister{pool: pool}
}

func (p *PostgresPersister) migrate(ctx context.Context) error {
	const migration = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`
	_, err := p.pool.Exec(ctx, migration)
	return eris.Wrap(err, "postgres: migrate")
}

func (p *PostgresPersister) Save(ctx context.Context, records []model.Bookmark) error {
	data, err := encodeRecords(records)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		collectionKey, string(data), time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: save collection")
}

func (p *PostgresPersister) Load(ctx context.Context) ([]model.Bookmark, error) {
	var value string
	err := p.pool.QueryRow(ctx,
		`SELECT value FROM kv WHERE key = $1`, collectionKey,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load collection")
	}
	return decodeRecords([]byte(value))
}

func (p *PostgresPersister) Close() error {
	p.pool.Close()
	return nil
}
