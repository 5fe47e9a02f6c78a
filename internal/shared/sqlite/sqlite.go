package sqlite

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/samber/oops"
)

// Open opens or creates the SQLite database backing the bot's durable
// state. WAL mode keeps concurrent searches from blocking on writes.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, oops.With("dir", dir).Wrap(err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, oops.With("db_path", path).Wrap(err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, oops.With("pragma", pragma).Wrap(err)
		}
	}

	return db, nil
}
