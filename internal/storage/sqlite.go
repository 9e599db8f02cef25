package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mindmate/mindmate/internal/session"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding the durable submission archive.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "mindmate.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Records ---

// SaveRecord inserts one archived submission.
func (s *Store) SaveRecord(r Record) error {
	completedAt := ""
	if !r.CompletedAt.IsZero() {
		completedAt = r.CompletedAt.UTC().Format(time.RFC3339)
	}
	_, err := s.db.Exec(`
		INSERT INTO records (id, created_at, problem, steps_json, final_answer, status, error_kind, error_message, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.Problem, r.StepsJSON,
		r.FinalAnswer, r.Status, r.ErrorKind, r.ErrorMessage, completedAt,
	)
	return err
}

// GetRecord fetches one archived submission by request ID.
func (s *Store) GetRecord(id string) (Record, error) {
	var r Record
	var createdAt, completedAt string
	err := s.db.QueryRow(`
		SELECT id, created_at, problem, steps_json, final_answer, status, error_kind, error_message, completed_at
		FROM records WHERE id = ?`, id,
	).Scan(&r.ID, &createdAt, &r.Problem, &r.StepsJSON, &r.FinalAnswer, &r.Status, &r.ErrorKind, &r.ErrorMessage, &completedAt)
	if err == sql.ErrNoRows {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Record{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if completedAt != "" {
		if r.CompletedAt, err = time.Parse(time.RFC3339, completedAt); err != nil {
			return Record{}, fmt.Errorf("parsing completed_at: %w", err)
		}
	}
	return r, nil
}

// ListRecords returns archived submissions, most recent first.
func (s *Store) ListRecords(limit, offset int) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, problem, steps_json, final_answer, status, error_kind, error_message, completed_at
		FROM records ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		var r Record
		var createdAt, completedAt string
		if err := rows.Scan(&r.ID, &createdAt, &r.Problem, &r.StepsJSON, &r.FinalAnswer, &r.Status, &r.ErrorKind, &r.ErrorMessage, &completedAt); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		if completedAt != "" {
			if r.CompletedAt, err = time.Parse(time.RFC3339, completedAt); err != nil {
				return nil, fmt.Errorf("parsing completed_at: %w", err)
			}
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// PurgeRecords deletes the entire archive.
func (s *Store) PurgeRecords() error {
	_, err := s.db.Exec("DELETE FROM records")
	return err
}

// Archive implements session.Archiver: each completed entry becomes one
// self-contained record keyed by the request ID.
func (s *Store) Archive(e session.Entry) error {
	r := Record{
		ID:        e.Request.ID,
		CreatedAt: e.Request.SubmittedAt,
		Problem:   e.Request.Text,
		StepsJSON: "[]",
	}

	if e.Failed() {
		r.Status = StatusFailed
		r.ErrorKind = string(e.ErrorKind)
		r.ErrorMessage = e.ErrorMsg
	} else {
		steps := make([]string, len(e.Result.Steps))
		for i, st := range e.Result.Steps {
			steps[i] = st.Description
		}
		b, err := json.Marshal(steps)
		if err != nil {
			return fmt.Errorf("marshaling steps: %w", err)
		}
		r.Status = StatusSolved
		r.StepsJSON = string(b)
		r.FinalAnswer = e.Result.FinalAnswer
		r.CompletedAt = e.Result.CompletedAt
	}

	return s.SaveRecord(r)
}
