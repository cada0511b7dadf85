package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

// SQL stores documents in a sqlite or postgres database.
type SQL struct {
	db     *sql.DB
	driver Driver
}

// OpenSQL opens the database and ensures the schema exists.
func OpenSQL(ctx context.Context, driver Driver, dsn string) (*SQL, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite"
		if dsn == "" {
			dsn = "classbook.db"
		}
		if dsn != ":memory:" && !strings.Contains(dsn, "?") {
			dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
		}
	case DriverPostgres:
		drvName = "pgx"
		if dsn == "" {
			dsn = "postgres://localhost:5432/classbook?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == DriverSQLite {
		// A second connection to :memory: would see an empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &SQL{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}

func (s *SQL) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		key TEXT NOT NULL,
		pos INTEGER NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (collection, key)
	);

	CREATE TABLE IF NOT EXISTS singletons (
		key TEXT PRIMARY KEY,
		data TEXT NOT NULL
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// rebind rewrites ? placeholders for postgres.
func (s *SQL) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Records returns a collection's records in position order.
func (s *SQL) Records(ctx context.Context, collection string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT key, data FROM documents WHERE collection = ? ORDER BY pos`), collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []Record
	for rows.Next() {
		var (
			r    Record
			data string
		)
		if err := rows.Scan(&r.Key, &data); err != nil {
			return nil, err
		}
		r.Data = []byte(data)
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// ReplaceRecords swaps a whole collection in one transaction.
func (s *SQL) ReplaceRecords(ctx context.Context, collection string, recs []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM documents WHERE collection = ?`), collection); err != nil {
		return err
	}
	for i, r := range recs {
		_, err := tx.ExecContext(ctx,
			s.rebind(`INSERT INTO documents (collection, key, pos, data) VALUES (?, ?, ?, ?)`),
			collection, r.Key, i, string(r.Data),
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// PutRecord updates a record in place or appends it.
func (s *SQL) PutRecord(ctx context.Context, collection string, rec Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		s.rebind(`UPDATE documents SET data = ? WHERE collection = ? AND key = ?`),
		string(rec.Data), collection, rec.Key,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var next int64
		err := tx.QueryRowContext(ctx,
			s.rebind(`SELECT COALESCE(MAX(pos), -1) + 1 FROM documents WHERE collection = ?`), collection,
		).Scan(&next)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			s.rebind(`INSERT INTO documents (collection, key, pos, data) VALUES (?, ?, ?, ?)`),
			collection, rec.Key, next, string(rec.Data),
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Value returns a singleton, or nil if it was never written.
func (s *SQL) Value(ctx context.Context, key string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT data FROM singletons WHERE key = ?`), key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

// SetValue upserts a singleton.
func (s *SQL) SetValue(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO singletons (key, data) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data`),
		key, string(data),
	)
	return err
}

// Collections lists the names of non-empty collections.
func (s *SQL) Collections(ctx context.Context) ([]string, error) {
	return s.strings(ctx, `SELECT DISTINCT collection FROM documents ORDER BY collection`)
}

// Keys lists singleton keys.
func (s *SQL) Keys(ctx context.Context) ([]string, error) {
	return s.strings(ctx, `SELECT key FROM singletons ORDER BY key`)
}

func (s *SQL) strings(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
