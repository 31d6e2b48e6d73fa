package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5

	DefaultProjectKey = "default"
)

// Store persists compaction runs in a single-connection SQLite database.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts while watch mode recompacts.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun inserts run, assigning an ID and timestamp when missing. Saving a
// run with an existing ID replaces the stored row.
func (s *Store) SaveRun(run Run) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run.ProjectKey = strings.TrimSpace(run.ProjectKey)
	if run.ProjectKey == "" {
		run.ProjectKey = DefaultProjectKey
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now()
	}
	run.Timestamp = run.Timestamp.UTC()

	query := `
INSERT INTO runs (
  run_id, project_key, schema_version, ts_utc, root, total_files, files_processed,
  total_symbols, symbols_after_dedup, duplicates_removed, original_tokens,
  compacted_tokens, compression_ratio, duration_ms, error_count, query, task_type,
  secrets_redacted
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET
  project_key = excluded.project_key,
  ts_utc = excluded.ts_utc,
  root = excluded.root,
  total_files = excluded.total_files,
  files_processed = excluded.files_processed,
  total_symbols = excluded.total_symbols,
  symbols_after_dedup = excluded.symbols_after_dedup,
  duplicates_removed = excluded.duplicates_removed,
  original_tokens = excluded.original_tokens,
  compacted_tokens = excluded.compacted_tokens,
  compression_ratio = excluded.compression_ratio,
  duration_ms = excluded.duration_ms,
  error_count = excluded.error_count,
  query = excluded.query,
  task_type = excluded.task_type,
  secrets_redacted = excluded.secrets_redacted
`
	err := s.withRetry("save run", func() error {
		_, execErr := s.db.Exec(
			query,
			run.ID,
			run.ProjectKey,
			SchemaVersion,
			run.Timestamp.Format(time.RFC3339Nano),
			run.Root,
			run.TotalFiles,
			run.FilesProcessed,
			run.TotalSymbols,
			run.SymbolsAfterDedup,
			run.DuplicatesRemoved,
			run.OriginalTokens,
			run.CompactedTokens,
			run.CompressionRatio,
			run.Duration.Milliseconds(),
			run.ErrorCount,
			run.Query,
			run.TaskType,
			run.SecretsRedacted,
		)
		return execErr
	})
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// LoadRuns returns the runs of projectKey at or after since, oldest first.
// A zero since loads everything.
func (s *Store) LoadRuns(projectKey string, since time.Time) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projectKey = strings.TrimSpace(projectKey)
	if projectKey == "" {
		projectKey = DefaultProjectKey
	}

	base := `
SELECT
  run_id, project_key, ts_utc, root, total_files, files_processed, total_symbols,
  symbols_after_dedup, duplicates_removed, original_tokens, compacted_tokens,
  compression_ratio, duration_ms, error_count, query, task_type, secrets_redacted
FROM runs
WHERE project_key = ?`
	args := []any{projectKey}
	if !since.IsZero() {
		base += " AND ts_utc >= ?"
		args = append(args, since.UTC().Format(time.RFC3339Nano))
	}
	base += " ORDER BY ts_utc ASC, run_id ASC"

	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.Query(base, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			tsRaw      string
			durationMS int64
			run        Run
		)
		if err := rows.Scan(
			&run.ID,
			&run.ProjectKey,
			&tsRaw,
			&run.Root,
			&run.TotalFiles,
			&run.FilesProcessed,
			&run.TotalSymbols,
			&run.SymbolsAfterDedup,
			&run.DuplicatesRemoved,
			&run.OriginalTokens,
			&run.CompactedTokens,
			&run.CompressionRatio,
			&durationMS,
			&run.ErrorCount,
			&run.Query,
			&run.TaskType,
			&run.SecretsRedacted,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}

		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
		}
		run.Timestamp = ts.UTC()
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
