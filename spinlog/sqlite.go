package spinlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteIndex is a queryable local index of settled spins.
type SQLiteIndex struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer connection; sqlite serialises anyway
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS spins (
			id TEXT PRIMARY KEY,
			product_id TEXT NOT NULL,
			product_name TEXT NOT NULL,
			idx INTEGER NOT NULL,
			angle REAL NOT NULL,
			ts TEXT NOT NULL,
			source TEXT NOT NULL,
			ip_address TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS spins_ts ON spins(ts);`,
		`CREATE INDEX IF NOT EXISTS spins_product ON spins(product_id);`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &SQLiteIndex{db: db}, nil
}

func (s *SQLiteIndex) Write(e Entry) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO spins (id, product_id, product_name, idx, angle, ts, source, ip_address)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ProductID, e.ProductName, e.Index, e.Angle,
		e.Timestamp.UTC().Format(time.RFC3339Nano), e.Source, e.IPAddress,
	)
	return err
}

// Recent returns up to n entries, newest first.
func (s *SQLiteIndex) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, product_id, product_name, idx, angle, ts, source, ip_address
		 FROM spins ORDER BY ts DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.ID, &e.ProductID, &e.ProductName, &e.Index, &e.Angle, &ts, &e.Source, &e.IPAddress); err != nil {
			return nil, err
		}
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountByProduct returns how many times each product has won.
func (s *SQLiteIndex) CountByProduct(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT product_id, COUNT(*) FROM spins GROUP BY product_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) Close() error { return s.db.Close() }
