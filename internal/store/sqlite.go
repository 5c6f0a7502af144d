package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/linkhoard/linkhoard/internal/model"
)

// SQLitePersister implements Persister over a key-value table in SQLite
// using modernc.org/sqlite.
type SQLitePersister struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path, configures WAL mode,
// and creates the kv table.
func NewSQLite(dsn string) (*SQLitePersister, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}

	const migration = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);`
	if _, err := db.Exec(migration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "sqlite: migrate")
	}

	return &SQLitePersister{db: db}, nil
}

func (p *SQLitePersister) Save(ctx context.Context, records []model.Bookmark) error {
	data, err := encodeRecords(records)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		collectionKey, string(data), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: save collection")
}

func (p *SQLitePersister) Load(ctx context.Context) ([]model.Bookmark, error) {
	var value string
	err := p.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ?`, collectionKey,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load collection")
	}
	return decodeRecords([]byte(value))
}

func (p *SQLitePersister) Close() error {
	return p.db.Close()
}
