package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/Aman-CERP/ancestry/internal/ancestry"
	ancerrors "github.com/Aman-CERP/ancestry/internal/errors"
)

// EntityRecord is an entity with all of its property values.
type EntityRecord struct {
	ID         string
	Type       string
	Label      string
	Properties map[string][]ancestry.Value
}

// Node returns the record as an ancestry.Entity.
func (r EntityRecord) Node() ancestry.Node {
	return ancestry.Node{EntityID: r.ID, EntityType: r.Type}
}

// SQLiteEntities is the entity repository. It stores entities and their
// ordered property values in SQLite and implements ancestry.Store.
type SQLiteEntities struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	retry  ancerrors.RetryConfig
	closed bool
}

var _ ancestry.Store = (*SQLiteEntities)(nil)

// OpenEntities opens or creates the entity database at path. An empty path
// opens an in-memory database.
func OpenEntities(path string) (*SQLiteEntities, error) {
	dsn := ":memory:"
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection: one writer, and ":memory:" stays one database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s, err := NewEntitiesFromDB(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.path = path
	return s, nil
}

// NewEntitiesFromDB wraps an already opened database, creating the schema if
// needed. Any database/sql SQLite driver works.
func NewEntitiesFromDB(db *sql.DB) (*SQLiteEntities, error) {
	if err := InitEntitySchema(db); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteEntities{db: db, retry: ancerrors.DefaultRetryConfig()}, nil
}

// InitEntitySchema creates the entity tables.
func InitEntitySchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS entities (
		id    TEXT PRIMARY KEY,
		type  TEXT NOT NULL,
		label TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(type);

	CREATE TABLE IF NOT EXISTS entity_properties (
		entity_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
		name      TEXT NOT NULL,
		position  INTEGER NOT NULL,
		value     TEXT NOT NULL DEFAULT '',
		ref_id    TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (entity_id, name, position)
	);
	CREATE INDEX IF NOT EXISTS idx_entity_properties_ref ON entity_properties(name, ref_id);
	`
	_, err := db.Exec(schema)
	return err
}

// Put inserts or replaces an entity and all of its properties.
func (s *SQLiteEntities) Put(ctx context.Context, records ...EntityRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ancerrors.StoreError("entity store is closed", nil)
	}

	return ancerrors.Retry(ctx, s.retry, func() error {
		return classify(s.put(ctx, records))
	})
}

func (s *SQLiteEntities) put(ctx context.Context, records []EntityRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range records {
		if r.ID == "" || r.Type == "" {
			return ancerrors.ValidationError("entity id and type are required", nil).
				WithDetail("id", r.ID)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entities (id, type, label) VALUES (?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET type = excluded.type, label = excluded.label`,
			r.ID, r.Type, r.Label); err != nil {
			return fmt.Errorf("failed to upsert entity %s: %w", r.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM entity_properties WHERE entity_id = ?`, r.ID); err != nil {
			return fmt.Errorf("failed to clear properties of %s: %w", r.ID, err)
		}

		names := make([]string, 0, len(r.Properties))
		for name := range r.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			for pos, v := range r.Properties[name] {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO entity_properties (entity_id, name, position, value, ref_id)
					 VALUES (?, ?, ?, ?, ?)`,
					r.ID, name, pos, v.Raw, v.Ref); err != nil {
					return fmt.Errorf("failed to insert property %s.%s: %w", r.ID, name, err)
				}
			}
		}
	}

	return tx.Commit()
}

// Delete removes entities and their properties. Unknown ids are ignored.
func (s *SQLiteEntities) Delete(ctx context.Context, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ancerrors.StoreError("entity store is closed", nil)
	}

	return ancerrors.Retry(ctx, s.retry, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return classify(err)
		}
		defer func() { _ = tx.Rollback() }()
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, `DELETE FROM entity_properties WHERE entity_id = ?`, id); err != nil {
				return classify(err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, id); err != nil {
				return classify(err)
			}
		}
		return classify(tx.Commit())
	})
}

// Resolve implements ancestry.Store.
func (s *SQLiteEntities) Resolve(ctx context.Context, id string) (ancestry.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ancerrors.StoreError("entity store is closed", nil)
	}

	return ancerrors.RetryWithResult(ctx, s.retry, func() (ancestry.Entity, error) {
		var n ancestry.Node
		err := s.db.QueryRowContext(ctx,
			`SELECT id, type FROM entities WHERE id = ?`, id).Scan(&n.EntityID, &n.EntityType)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ancestry.ErrNotFound
		}
		if err != nil {
			return nil, classify(err)
		}
		return n, nil
	})
}

// Property implements ancestry.Store. Values come back in stored order.
func (s *SQLiteEntities) Property(ctx context.Context, entity ancestry.Entity, name string) ([]ancestry.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ancerrors.StoreError("entity store is closed", nil)
	}

	return ancerrors.RetryWithResult(ctx, s.retry, func() ([]ancestry.Value, error) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT value, ref_id FROM entity_properties
			 WHERE entity_id = ? AND name = ? ORDER BY position`, entity.ID(), name)
		if err != nil {
			return nil, classify(err)
		}
		defer rows.Close()

		var values []ancestry.Value
		for rows.Next() {
			var v ancestry.Value
			if err := rows.Scan(&v.Raw, &v.Ref); err != nil {
				return nil, classify(err)
			}
			values = append(values, v)
		}
		return values, classify(rows.Err())
	})
}

// Get loads a full record.
func (s *SQLiteEntities) Get(ctx context.Context, id string) (EntityRecord, error) {
	records, err := s.load(ctx, `SELECT id, type, label FROM entities WHERE id = ?`, id)
	if err != nil {
		return EntityRecord{}, err
	}
	if len(records) == 0 {
		return EntityRecord{}, ancestry.ErrNotFound
	}
	return records[0], nil
}

// List returns every entity of entityType, ordered by id. An empty type
// lists all entities.
func (s *SQLiteEntities) List(ctx context.Context, entityType string) ([]EntityRecord, error) {
	if entityType == "" {
		return s.load(ctx, `SELECT id, type, label FROM entities ORDER BY id`)
	}
	return s.load(ctx, `SELECT id, type, label FROM entities WHERE type = ? ORDER BY id`, entityType)
}

// Referencing returns the ids of entities whose property name points at id.
func (s *SQLiteEntities) Referencing(ctx context.Context, name, id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ancerrors.StoreError("entity store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT entity_id FROM entity_properties
		 WHERE name = ? AND ref_id = ? ORDER BY entity_id`, name, id)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, classify(err)
		}
		ids = append(ids, ref)
	}
	return ids, classify(rows.Err())
}

// Count returns the number of stored entities.
func (s *SQLiteEntities) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ancerrors.StoreError("entity store is closed", nil)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities`).Scan(&n); err != nil {
		return 0, classify(err)
	}
	return n, nil
}

func (s *SQLiteEntities) load(ctx context.Context, query string, args ...any) ([]EntityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ancerrors.StoreError("entity store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	var records []EntityRecord
	for rows.Next() {
		r := EntityRecord{Properties: make(map[string][]ancestry.Value)}
		if err := rows.Scan(&r.ID, &r.Type, &r.Label); err != nil {
			_ = rows.Close()
			return nil, classify(err)
		}
		records = append(records, r)
	}
	if err := rows.Close(); err != nil {
		return nil, classify(err)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	for i := range records {
		if err := s.loadProperties(ctx, &records[i]); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (s *SQLiteEntities) loadProperties(ctx context.Context, r *EntityRecord) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, value, ref_id FROM entity_properties
		 WHERE entity_id = ? ORDER BY name, position`, r.ID)
	if err != nil {
		return classify(err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var v ancestry.Value
		if err := rows.Scan(&name, &v.Raw, &v.Ref); err != nil {
			return classify(err)
		}
		r.Properties[name] = append(r.Properties[name], v)
	}
	return classify(rows.Err())
}

// Path returns the database path, empty for in-memory stores.
func (s *SQLiteEntities) Path() string {
	return s.path
}

// Close closes the database.
func (s *SQLiteEntities) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// classify maps driver errors onto coded store errors. Lock contention is
// retryable; everything else is not.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := ancerrors.As(err); ok {
		return err
	}
	msg := err.Error()
	if strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked") {
		return ancerrors.New(ancerrors.ErrCodeStoreBusy, "entity store is busy", err)
	}
	return ancerrors.StoreError("entity store query failed", err)
}
