package postgres

import (
	"context"
	"fmt"

	"github.com/gd-practice/gd-coach/internal/infrastructure/persistence/kv"
)

// DefaultNamespace is used when the store is opened without one.
const DefaultNamespace = "default"

// Store is a kv.Store over the kv_blobs table, scoped to one namespace.
type Store struct {
	conn      *Connection
	namespace string
}

// NewStore wraps an open connection. Run the Migrator first.
func NewStore(conn *Connection, namespace string) *Store {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Store{conn: conn, namespace: namespace}
}

// Open connects, migrates and returns a ready store.
func Open(ctx context.Context, databaseURL, namespace string) (*Store, error) {
	conn, err := Connect(ctx, databaseURL, DefaultPoolSettings())
	if err != nil {
		return nil, err
	}
	if err := NewMigrator(conn).Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return NewStore(conn, namespace), nil
}

// Get implements kv.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.conn.QueryRow(ctx,
		`SELECT value FROM kv_blobs WHERE namespace = $1 AND key = $2`,
		s.namespace, key,
	).Scan(&value)
	if IsNoRows(err) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get %s: %w", key, err)
	}
	return value, nil
}

// Set implements kv.Store.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO kv_blobs (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (namespace, key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, s.namespace, key, value)
	if err != nil {
		return fmt.Errorf("postgres: set %s: %w", key, err)
	}
	return nil
}

// Delete implements kv.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.conn.Exec(ctx, `DELETE FROM kv_blobs WHERE namespace = $1 AND key = $2`, s.namespace, key)
	if err != nil {
		return fmt.Errorf("postgres: delete %s: %w", key, err)
	}
	return nil
}

// Ping implements kv.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close implements kv.Store.
func (s *Store) Close() error {
	s.conn.Close()
	return nil
}
