package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// BusyTimeoutMillis is how long a connection waits on another process's
// write lock before returning SQLITE_BUSY.
const BusyTimeoutMillis = 5000

// Open opens a sqlite database that a scan and a monitor process may share.
// Transactions begin IMMEDIATE so the write lock is taken before the first
// read, and the pool holds one connection so writers in this process queue
// in database/sql instead of inside sqlite.
func Open(dbPath string) (*sql.DB, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, errors.New("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	params := url.Values{}
	params.Set("_loc", "UTC")
	params.Set("_txlock", "immediate")
	params.Set("_busy_timeout", fmt.Sprint(BusyTimeoutMillis))
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "NORMAL")

	db, err := sql.Open("sqlite3", "file:"+dbPath+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	return db, nil
}
