package infra

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS recordings (
	id         TEXT PRIMARY KEY,
	start_time INTEGER NOT NULL,
	end_time   INTEGER,
	status     TEXT NOT NULL,
	samples    INTEGER NOT NULL,
	filename   TEXT
);

CREATE TABLE IF NOT EXISTS transcripts (
	recording_id TEXT NOT NULL REFERENCES recordings(id) ON DELETE CASCADE,
	seq          INTEGER NOT NULL,
	text         TEXT NOT NULL,
	created_at   INTEGER NOT NULL,
	PRIMARY KEY (recording_id, seq)
);
`

// OpenSQLite opens (creating if needed) the archive database at path and
// applies the schema.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return db, nil
}
