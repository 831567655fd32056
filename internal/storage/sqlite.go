package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLiteStore keeps records in the shared_plans table.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore initializes the store with an existing, migrated connection.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func (s *SQLiteStore) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// Create stores a new record.
func (s *SQLiteStore) Create(ctx context.Context, id string, data []byte) error {
	if err := validJSON(data); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return ErrInvalidID
	}
	ts := s.timestamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shared_plans (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, string(data), ts, ts)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrExists
		}
		return fmt.Errorf("failed to insert shared plan: %w", err)
	}
	return nil
}

// Get loads a record.
func (s *SQLiteStore) Get(ctx context.Context, id string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM shared_plans WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query shared plan: %w", err)
	}
	return []byte(data), nil
}

// Put overwrites an existing record.
func (s *SQLiteStore) Put(ctx context.Context, id string, data []byte) error {
	if err := validJSON(data); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE shared_plans SET data = ?, updated_at = ? WHERE id = ?`,
		string(data), s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("failed to update shared plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
