package scene

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"glow/internal/config"
	"glow/internal/plugin"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; users then need to delete the scene database.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store manages scene persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	sqliteConstraintUnique  = 2067
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the scene database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}

	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteConstraintUnique {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

const sceneColumns = `id, name, animation, params_json, brightness, created_at, updated_at`

// Save creates the named scene or replaces an existing one.
func (s *Store) Save(ctx context.Context, sc *Scene) (*Scene, error) {
	if sc == nil {
		return nil, errors.New("scene is nil")
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}

	params := sc.Params
	if params == nil {
		params = plugin.Params{}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO scenes (name, animation, params_json, brightness, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(name) DO UPDATE SET
             animation = excluded.animation,
             params_json = excluded.params_json,
             brightness = excluded.brightness,
             updated_at = excluded.updated_at`,
		sc.Name,
		sc.Animation,
		string(paramsJSON),
		sc.Brightness,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("save scene: %w", err)
	}

	return s.Get(ctx, sc.Name)
}

// Get fetches a scene by name.
func (s *Store) Get(ctx context.Context, name string) (*Scene, error) {
	trimmed, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+sceneColumns+` FROM scenes WHERE name = ?`, trimmed)
	sc, err := scanScene(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scene %q: %w", trimmed, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get scene: %w", err)
	}
	return sc, nil
}

// List returns all scenes ordered by name.
func (s *Store) List(ctx context.Context) ([]*Scene, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+sceneColumns+` FROM scenes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	defer rows.Close()

	var scenes []*Scene
	for rows.Next() {
		sc, err := scanScene(rows)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, sc)
	}
	return scenes, rows.Err()
}

// Delete removes a scene by name.
func (s *Store) Delete(ctx context.Context, name string) error {
	trimmed, err := normalizeName(name)
	if err != nil {
		return err
	}
	res, err := s.execWithRetry(ctx, `DELETE FROM scenes WHERE name = ?`, trimmed)
	if err != nil {
		return fmt.Errorf("delete scene: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete scene: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("scene %q: %w", trimmed, ErrNotFound)
	}
	return nil
}

// Rename changes a scene's name. The target name must be free.
func (s *Store) Rename(ctx context.Context, oldName, newName string) error {
	from, err := normalizeName(oldName)
	if err != nil {
		return err
	}
	to, err := normalizeName(newName)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx,
		`UPDATE scenes SET name = ?, updated_at = ? WHERE name = ?`, to, now, from)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("scene %q: %w", to, ErrDuplicateName)
		}
		return fmt.Errorf("rename scene: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rename scene: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("scene %q: %w", from, ErrNotFound)
	}
	return nil
}

// Count reports the number of stored scenes.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM scenes`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count scenes: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScene(scanner rowScanner) (*Scene, error) {
	var (
		sc         Scene
		paramsJSON string
		createdAt  string
		updatedAt  string
	)
	if err := scanner.Scan(&sc.ID, &sc.Name, &sc.Animation, &paramsJSON, &sc.Brightness, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if paramsJSON != "" {
		if err := json.Unmarshal([]byte(paramsJSON), &sc.Params); err != nil {
			return nil, fmt.Errorf("unmarshal params for scene %q: %w", sc.Name, err)
		}
	}
	if sc.Params == nil {
		sc.Params = plugin.Params{}
	}
	var err error
	if sc.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at for scene %q: %w", sc.Name, err)
	}
	if sc.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at for scene %q: %w", sc.Name, err)
	}
	return &sc, nil
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}
