package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/johnqh/di-web/internal/platform/storage/sqlitemigrate"
	"github.com/johnqh/di-web/internal/services/worker/storage"
	"github.com/johnqh/di-web/internal/services/worker/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed cache bucket and worker event persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a worker SQLite store and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Open returns the bucket stored under name, creating it when absent.
func (s *Store) Open(ctx context.Context, name string) (storage.Cache, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO cache_namespaces (name, created_at) VALUES (?, ?)
ON CONFLICT (name) DO NOTHING
`, name, time.Now().UTC().UnixMilli()); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", name, err)
	}

	var namespaceID int64
	row := s.sqlDB.QueryRowContext(ctx, "SELECT id FROM cache_namespaces WHERE name = ?", name)
	if err := row.Scan(&namespaceID); err != nil {
		return nil, fmt.Errorf("resolve bucket %s: %w", name, err)
	}
	return &bucket{sqlDB: s.sqlDB, namespaceID: namespaceID, name: name}, nil
}

// Delete removes a bucket and its entries, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return false, fmt.Errorf("bucket name is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin bucket delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
DELETE FROM cache_entries
WHERE namespace_id IN (SELECT id FROM cache_namespaces WHERE name = ?)
`, name); err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("delete bucket entries %s: %w", name, err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM cache_namespaces WHERE name = ?", name)
	if err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("delete bucket %s: %w", name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("count deleted buckets: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit bucket delete: %w", err)
	}
	return affected > 0, nil
}

// Names returns all bucket names in lexical order.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, "SELECT name FROM cache_namespaces ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan bucket name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buckets: %w", err)
	}
	return names, nil
}

// RecordEvent persists one operational worker event.
func (s *Store) RecordEvent(ctx context.Context, record storage.EventRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	record.ID = strings.TrimSpace(record.ID)
	record.Source = strings.TrimSpace(record.Source)
	record.Kind = strings.TrimSpace(record.Kind)
	record.Detail = strings.TrimSpace(record.Detail)
	if record.ID == "" {
		return fmt.Errorf("event id is required")
	}
	if record.Source == "" {
		return fmt.Errorf("event source is required")
	}
	if record.Kind == "" {
		return fmt.Errorf("event kind is required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO worker_events (
	id,
	source,
	kind,
	detail,
	created_at
) VALUES (?, ?, ?, ?, ?)
`,
		record.ID,
		record.Source,
		record.Kind,
		record.Detail,
		record.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// ListEvents lists newest-first operational worker events.
func (s *Store) ListEvents(ctx context.Context, limit int) ([]storage.EventRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, source, kind, detail, created_at
FROM worker_events
ORDER BY created_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	records := make([]storage.EventRecord, 0, limit)
	for rows.Next() {
		var record storage.EventRecord
		var createdAt int64
		if err := rows.Scan(&record.ID, &record.Source, &record.Kind, &record.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		record.CreatedAt = time.UnixMilli(createdAt).UTC()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return records, nil
}

// bucket is one cache namespace bound to its row id.
type bucket struct {
	sqlDB       *sql.DB
	namespaceID int64
	name        string
}

// Match returns the entry stored under key, reporting whether one exists.
func (b *bucket) Match(ctx context.Context, key string) (storage.Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return storage.Entry{}, false, err
	}
	if b == nil || b.sqlDB == nil {
		return storage.Entry{}, false, fmt.Errorf("bucket is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return storage.Entry{}, false, fmt.Errorf("request key is required")
	}

	row := b.sqlDB.QueryRowContext(ctx, `
SELECT status_code, header_json, body, stored_at
FROM cache_entries
WHERE namespace_id = ? AND request_key = ?
`, b.namespaceID, key)

	var (
		statusCode int
		headerJSON string
		body       []byte
		storedAt   int64
	)
	if err := row.Scan(&statusCode, &headerJSON, &body, &storedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Entry{}, false, nil
		}
		return storage.Entry{}, false, fmt.Errorf("match %s: %w", key, err)
	}

	entry := storage.Entry{
		Key:      key,
		Response: storage.Response{StatusCode: statusCode, Body: body},
	}
	if headerJSON != "" {
		var header http.Header
		if err := json.Unmarshal([]byte(headerJSON), &header); err != nil {
			return storage.Entry{}, false, fmt.Errorf("decode headers for %s: %w", key, err)
		}
		entry.Response.Header = header
	}
	if storedAt > 0 {
		entry.StoredAt = time.UnixMilli(storedAt).UTC()
	}
	return entry, true, nil
}

// Put stores res under key, appending new keys and refreshing existing ones
// in place so the insertion position is preserved.
func (b *bucket) Put(ctx context.Context, key string, res storage.Response, storedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b == nil || b.sqlDB == nil {
		return fmt.Errorf("bucket is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("request key is required")
	}

	headerJSON := ""
	if len(res.Header) > 0 {
		encoded, err := json.Marshal(res.Header)
		if err != nil {
			return fmt.Errorf("encode headers for %s: %w", key, err)
		}
		headerJSON = string(encoded)
	}
	var storedAtMillis int64
	if !storedAt.IsZero() {
		storedAtMillis = storedAt.UTC().UnixMilli()
	}

	_, err := b.sqlDB.ExecContext(ctx, `
INSERT INTO cache_entries (
	namespace_id,
	request_key,
	status_code,
	header_json,
	body,
	stored_at
) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (namespace_id, request_key) DO UPDATE SET
	status_code = excluded.status_code,
	header_json = excluded.header_json,
	body = excluded.body,
	stored_at = excluded.stored_at
`,
		b.namespaceID,
		key,
		res.StatusCode,
		headerJSON,
		res.Body,
		storedAtMillis,
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Delete removes the entry under key, reporting whether one existed.
func (b *bucket) Delete(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if b == nil || b.sqlDB == nil {
		return false, fmt.Errorf("bucket is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return false, fmt.Errorf("request key is required")
	}

	result, err := b.sqlDB.ExecContext(ctx, `
DELETE FROM cache_entries WHERE namespace_id = ? AND request_key = ?
`, b.namespaceID, key)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("count deleted entries: %w", err)
	}
	return affected > 0, nil
}

// Keys returns all keys in insertion order, oldest first.
func (b *bucket) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b == nil || b.sqlDB == nil {
		return nil, fmt.Errorf("bucket is not configured")
	}

	rows, err := b.sqlDB.QueryContext(ctx, `
SELECT request_key FROM cache_entries WHERE namespace_id = ? ORDER BY id
`, b.namespaceID)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return keys, nil
}

// Len returns the live entry count.
func (b *bucket) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if b == nil || b.sqlDB == nil {
		return 0, fmt.Errorf("bucket is not configured")
	}

	var count int
	row := b.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(*) FROM cache_entries WHERE namespace_id = ?
`, b.namespaceID)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}

var _ storage.Storage = (*Store)(nil)
var _ storage.EventStore = (*Store)(nil)
var _ storage.Cache = (*bucket)(nil)
