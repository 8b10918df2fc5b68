package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/story-cms-api/internal/database"
	"github.com/story-cms-api/internal/models"
)

// uniqueViolation is the SQLSTATE of a primary key conflict
const uniqueViolation = "23505"

// PostgresStore keeps documents in the documents table created by
// migrations/000001_create_documents. modified_at plays the role of a file mtime.
type PostgresStore struct {
	db  *database.DB
	now func() time.Time
}

var _ DocumentStore = (*PostgresStore)(nil)

// NewPostgresStore creates a store over an open connection
func NewPostgresStore(db *database.DB, opts ...Option) *PostgresStore {
	o := applyOptions(opts)
	return &PostgresStore{db: db, now: o.now}
}

// Exists checks if a row is stored under key
func (s *PostgresStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM documents WHERE key = $1)", key).Scan(&exists)
	if err != nil {
		return false, ioError("exists", key, err)
	}
	return exists, nil
}

// Read decodes the body stored under key
func (s *PostgresStore) Read(ctx context.Context, key string, doc interface{}) error {
	if err := checkKey(key); err != nil {
		return err
	}
	var body []byte
	err := s.db.QueryRowContext(ctx, "SELECT body FROM documents WHERE key = $1", key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", models.ErrNotFound, key)
	}
	if err != nil {
		return ioError("read", key, err)
	}
	return decodeDocument(key, body, doc)
}

// Write upserts doc under key
func (s *PostgresStore) Write(ctx context.Context, key string, doc interface{}) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO documents (key, body, modified_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET body = EXCLUDED.body, modified_at = EXCLUDED.modified_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, string(data), s.now().UTC()); err != nil {
		return ioError("write", key, err)
	}
	return nil
}

// Create inserts doc under key; an existing row is left untouched
func (s *PostgresStore) Create(ctx context.Context, key string, doc interface{}) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO documents (key, body, modified_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query, key, string(data), s.now().UTC())
	if err != nil {
		return ioError("create", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ioError("create", key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", models.ErrAlreadyExists, key)
	}
	return nil
}

// Archive re-keys the row in a single statement
func (s *PostgresStore) Archive(ctx context.Context, key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	archiveKey := ArchiveKey(key, s.now())
	res, err := s.db.ExecContext(ctx, "UPDATE documents SET key = $2 WHERE key = $1", key, archiveKey)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return "", fmt.Errorf("%w: %s", models.ErrAlreadyExists, archiveKey)
		}
		return "", ioError("archive", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", ioError("archive", key, err)
	}
	if n == 0 {
		return "", fmt.Errorf("%w: %s", models.ErrNotFound, key)
	}
	return archiveKey, nil
}

// List returns the rows whose key lies directly inside namespace
func (s *PostgresStore) List(ctx context.Context, namespace string) ([]Entry, error) {
	prefix := namespacePrefix(namespace)
	query := `
		SELECT key, modified_at FROM documents
		WHERE left(key, length($1)) = $1
		  AND strpos(substr(key, length($1) + 1), '/') = 0
	`
	rows, err := s.db.QueryContext(ctx, query, prefix)
	if err != nil {
		return nil, ioError("list", namespace, err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.ModTime); err != nil {
			return nil, ioError("list", namespace, err)
		}
		if isDirectChild(prefix, e.Key) {
			entries = append(entries, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, ioError("list", namespace, err)
	}
	return entries, nil
}

// HealthCheck pings the database
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}

// PostgresLocker holds a session-level advisory lock per key on a dedicated
// connection, so that several API processes sharing one database serialize.
type PostgresLocker struct {
	db    *database.DB
	local *MutexLocker
}

var _ KeyLocker = (*PostgresLocker)(nil)

// NewPostgresLocker creates a locker over an open connection pool
func NewPostgresLocker(db *database.DB) *PostgresLocker {
	return &PostgresLocker{db: db, local: NewMutexLocker()}
}

// Lock takes the in-process lock, then pg_advisory_lock(hashtext(key))
func (l *PostgresLocker) Lock(ctx context.Context, key string) (func(), error) {
	unlockLocal, err := l.local.Lock(ctx, key)
	if err != nil {
		return nil, err
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		unlockLocal()
		return nil, ioError("lock", key, err)
	}
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock(hashtext($1))", key); err != nil {
		conn.Close()
		unlockLocal()
		return nil, ioError("lock", key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the session lock dies with the connection if the unlock fails
			if _, err := conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock(hashtext($1))", key); err != nil {
				_ = conn.Raw(func(interface{}) error { return driver.ErrBadConn })
			}
			conn.Close()
			unlockLocal()
		})
	}, nil
}
