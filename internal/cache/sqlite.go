package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"maScan/internal/model"
)

const metaKeyDate = "date"

// SQLiteStore 与 FileStore 相同的快照，存两张表，整库在一个事务内替换。
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore 打开（或创建）数据库并建表。
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &IOError{Op: "open", Path: path, Err: err}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, &IOError{Op: "open", Path: path, Err: fmt.Errorf("set WAL mode: %w", err)}
	}
	s := &SQLiteStore{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, &IOError{Op: "migrate", Path: path, Err: err}
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cache_meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bars (
			symbol_id TEXT    NOT NULL,
			seq       INTEGER NOT NULL,
			day       TEXT    NOT NULL,
			close     REAL    NOT NULL,
			PRIMARY KEY (symbol_id, seq)
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec %q: %w", q[:30], err)
		}
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.db.QueryRowContext(ctx, `SELECT value FROM cache_meta WHERE key = ?`, metaKeyDate).Scan(&snap.Date)
	if err == sql.ErrNoRows {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, &IOError{Op: "read", Path: s.path, Err: err}
	}
	rows, err := s.db.QueryContext(ctx, `SELECT symbol_id, day, close FROM bars ORDER BY symbol_id, seq`)
	if err != nil {
		return Snapshot{}, &IOError{Op: "read", Path: s.path, Err: err}
	}
	defer rows.Close()

	snap.Items = map[string]model.BarSeries{}
	for rows.Next() {
		var (
			id, day string
			closeVal float64
		)
		if err := rows.Scan(&id, &day, &closeVal); err != nil {
			return Snapshot{}, &IOError{Op: "read", Path: s.path, Err: err}
		}
		bs := snap.Items[id]
		bs.Dates = append(bs.Dates, day)
		bs.Closes = append(bs.Closes, closeVal)
		snap.Items[id] = bs
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, &IOError{Op: "read", Path: s.path, Err: err}
	}
	return snap, nil
}

func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	if err := s.replace(ctx, snap); err != nil {
		return &IOError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

func (s *SQLiteStore) replace(ctx context.Context, snap Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bars`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cache_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		metaKeyDate, snap.Date); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO bars (symbol_id, seq, day, close) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for id, bs := range snap.Items {
		for i := range bs.Closes {
			if _, err := stmt.ExecContext(ctx, id, i, bs.Dates[i], bs.Closes[i]); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
