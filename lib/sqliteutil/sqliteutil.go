package sqliteutil

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// OpenDB opens a sqlite database at the given path (a file path,
// `:memory:`, or a `libsql://` url for a hosted replica) and applies
// the embedded schema to it. applying the schema to a database that
// already has it is not an error.
func OpenDB(schema, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("a database path was not specified")
	}

	driver := "sqlite"
	remote := strings.HasPrefix(path, "libsql://") ||
		strings.HasPrefix(path, "http://") ||
		strings.HasPrefix(path, "https://")
	if remote {
		driver = "libsql"
	} else if path != ":memory:" {
		_, statErr := os.Stat(path)
		if os.IsNotExist(statErr) {
			f, err := os.Create(path)
			if err != nil {
				return nil, err
			}
			f.Close()
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, err
	}

	if !remote {
		// sqlite will drop writes from concurrent connections unless
		// journaling is set to WAL and there is only a single writer
		_, err = db.Exec("PRAGMA journal_mode=WAL;")
		if err != nil {
			db.Close()
			return nil, err
		}
		db.SetMaxOpenConns(1)
	}

	_, err = db.Exec(schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		db.Close()
		return nil, err
	}

	return db, nil
}
