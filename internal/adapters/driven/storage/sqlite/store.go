package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/scour/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/scour/internal/core/domain"
	"github.com/custodia-labs/scour/internal/core/ports/driven"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// Store is a SQLite-backed storage that provides access to the search
// store interface through a wrapper type.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.scour/data/scour.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".scour", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "scour.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SearchStore returns a SearchStore interface backed by this store.
func (s *Store) SearchStore() driven.SearchStore {
	return &searchStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Search Store ====================

// searchStore implements driven.SearchStore.
type searchStore struct {
	store *Store
}

var _ driven.SearchStore = (*searchStore)(nil)

// Create stores a new record.
func (s *searchStore) Create(ctx context.Context, record *domain.SearchRecord) error {
	scopeJSON, responsesJSON, err := marshalHeavyFields(record)
	if err != nil {
		return err
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO searches (id, query, token, scope, state, started_at, ended_at,
			response_count, file_count, locked_file_count, responses)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM searches WHERE id = ?)
	`, record.ID, record.Query, record.Token, scopeJSON, string(record.State),
		record.StartedAt.UTC(), nullTime(record.EndedAt),
		record.ResponseCount, record.FileCount, record.LockedFileCount, responsesJSON,
		record.ID)
	if err != nil {
		return fmt.Errorf("inserting search: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking insert result: %w", err)
	}
	if affected == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// Update overwrites an existing record.
func (s *searchStore) Update(ctx context.Context, record *domain.SearchRecord) error {
	scopeJSON, responsesJSON, err := marshalHeavyFields(record)
	if err != nil {
		return err
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE searches SET
			query = ?, token = ?, scope = ?, state = ?, started_at = ?, ended_at = ?,
			response_count = ?, file_count = ?, locked_file_count = ?, responses = ?
		WHERE id = ?
	`, record.Query, record.Token, scopeJSON, string(record.State),
		record.StartedAt.UTC(), nullTime(record.EndedAt),
		record.ResponseCount, record.FileCount, record.LockedFileCount, responsesJSON,
		record.ID)
	if err != nil {
		return fmt.Errorf("updating search: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a record by ID.
func (s *searchStore) Delete(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM searches WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting search: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Get retrieves a record by ID.
func (s *searchStore) Get(ctx context.Context, id string, includeResponses bool) (*domain.SearchRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, query, token, scope, state, started_at, ended_at,
			response_count, file_count, locked_file_count, `+responsesColumn(includeResponses)+`
		FROM searches WHERE id = ?
	`, id)

	record, err := scanSearch(row, includeResponses)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List returns records matching the filter, ordered by start time.
func (s *searchStore) List(ctx context.Context, filter domain.RecordFilter, includeResponses bool) ([]domain.SearchRecord, error) {
	query := `
		SELECT id, query, token, scope, state, started_at, ended_at,
			response_count, file_count, locked_file_count, ` + responsesColumn(includeResponses) + `
		FROM searches`

	var clauses []string
	var args []any

	if len(filter.States) > 0 {
		placeholders := make([]string, len(filter.States))
		for i, state := range filter.States {
			placeholders[i] = "?"
			args = append(args, string(state))
		}
		clauses = append(clauses, "state IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.OnlyTerminal || !filter.EndedBefore.IsZero() {
		clauses = append(clauses, "ended_at IS NOT NULL")
	}
	if !filter.EndedBefore.IsZero() {
		clauses = append(clauses, "ended_at < ?")
		args = append(args, filter.EndedBefore.UTC())
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY started_at"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying searches: %w", err)
	}
	defer rows.Close()

	var records []domain.SearchRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		record, err := scanSearch(rows, includeResponses)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating searches: %w", err)
	}

	return records, nil
}

// responsesColumn selects the heavy responses JSON only when the caller
// asked for it; otherwise a null literal keeps the blob out of the read.
func responsesColumn(include bool) string {
	if include {
		return "responses"
	}
	return "'" + jsonNull + "'"
}

// scanner abstracts sql.Row and sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

// scanSearch reads one search row.
func scanSearch(row scanner, includeResponses bool) (*domain.SearchRecord, error) {
	var record domain.SearchRecord
	var scopeJSON, responsesJSON, state string
	var startedAt time.Time
	var endedAt sql.NullTime

	err := row.Scan(&record.ID, &record.Query, &record.Token, &scopeJSON, &state,
		&startedAt, &endedAt,
		&record.ResponseCount, &record.FileCount, &record.LockedFileCount, &responsesJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning search: %w", err)
	}

	record.State = domain.SearchState(state)
	record.StartedAt = startedAt
	if endedAt.Valid {
		record.EndedAt = endedAt.Time
	}

	if scopeJSON != "" && scopeJSON != jsonNull {
		if err := json.Unmarshal([]byte(scopeJSON), &record.Scope); err != nil {
			return nil, fmt.Errorf("unmarshaling scope: %w", err)
		}
	}
	if includeResponses && responsesJSON != "" && responsesJSON != jsonNull {
		if err := json.Unmarshal([]byte(responsesJSON), &record.Responses); err != nil {
			return nil, fmt.Errorf("unmarshaling responses: %w", err)
		}
	}

	return &record, nil
}

// marshalHeavyFields serialises the JSON columns of a record.
func marshalHeavyFields(record *domain.SearchRecord) (scopeJSON, responsesJSON string, err error) {
	scope, err := json.Marshal(record.Scope)
	if err != nil {
		return "", "", fmt.Errorf("marshalling scope: %w", err)
	}
	responses, err := json.Marshal(record.Responses)
	if err != nil {
		return "", "", fmt.Errorf("marshalling responses: %w", err)
	}
	return string(scope), string(responses), nil
}

// nullTime converts a zero time to NULL.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
