// Package history persists completed scan decisions in a local SQLite
// database so past verdicts can be queried and re-emitted.
package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/skillgate/skillgate/internal/report"
	"github.com/skillgate/skillgate/internal/safefile"
)

const schema = `
CREATE TABLE IF NOT EXISTS scans (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	source_kind TEXT NOT NULL,
	source_location TEXT NOT NULL,
	source_hash TEXT NOT NULL,
	decision TEXT NOT NULL,
	score INTEGER NOT NULL,
	policy_name TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	artifact TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scans_timestamp ON scans(timestamp);
CREATE INDEX IF NOT EXISTS idx_scans_decision ON scans(decision);
CREATE INDEX IF NOT EXISTS idx_scans_source ON scans(source_location);
`

// ErrNotFound is returned when a scan id does not exist.
var ErrNotFound = errors.New("scan not found")

// Entry summarizes one recorded scan.
type Entry struct {
	ID             string `json:"id"`
	Timestamp      string `json:"timestamp"`
	SourceKind     string `json:"source_kind"`
	SourceLocation string `json:"source_location"`
	SourceHash     string `json:"source_hash"`
	Decision       string `json:"decision"`
	Score          int    `json:"score"`
	PolicyName     string `json:"policy_name"`
	DurationMS     int64  `json:"duration_ms"`
}

// QueryOpts filter history listings.
type QueryOpts struct {
	Decision string
	Source   string
	Limit    int
}

// Store manages the SQLite scan history.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// DefaultPath returns the per-user history database location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "skillgate-history.db")
	}
	return filepath.Join(home, ".skillgate", "history.db")
}

// Open opens (or creates) the history database. Symlinked database
// files and parent directories are rejected.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, fmt.Errorf("creating history dir: %w", err)
		}
		if info, err := os.Lstat(parent); err == nil && info.Mode()&os.ModeSymlink != 0 {
			return nil, fmt.Errorf("history db parent directory is a symlink: %s", parent)
		}
		if _, err := os.Stat(dbPath); err == nil {
			if err := safefile.RejectSymlink(dbPath); err != nil {
				return nil, fmt.Errorf("history db: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close() //nolint:errcheck // open failed anyway
		return nil, fmt.Errorf("applying history schema: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Record stores a completed scan's artifact and returns the scan id.
func (s *Store) Record(a *report.Artifact) (string, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("encoding artifact: %w", err)
	}
	id := uuid.New().String()
	_, err = s.db.Exec(
		`INSERT INTO scans (id, timestamp, source_kind, source_location, source_hash, decision, score, policy_name, duration_ms, artifact)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		a.Timestamp.UTC().Format(time.RFC3339),
		a.Source.Type,
		a.Source.Path,
		a.Source.Hash,
		string(a.Decision),
		a.Score,
		a.PolicyName,
		a.Duration,
		string(payload),
	)
	if err != nil {
		return "", fmt.Errorf("recording scan: %w", err)
	}
	s.logger.Debug("scan recorded", "id", id, "decision", a.Decision, "score", a.Score)
	return id, nil
}

// Query lists recorded scans, newest first.
func (s *Store) Query(opts QueryOpts) ([]Entry, error) {
	q := `SELECT id, timestamp, source_kind, source_location, source_hash, decision, score, policy_name, duration_ms FROM scans WHERE 1=1`
	var args []any
	if opts.Decision != "" {
		q += ` AND decision = ?`
		args = append(args, opts.Decision)
	}
	if opts.Source != "" {
		q += ` AND source_location LIKE ?`
		args = append(args, "%"+opts.Source+"%")
	}
	q += ` ORDER BY timestamp DESC`
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	q += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.SourceKind, &e.SourceLocation,
			&e.SourceHash, &e.Decision, &e.Score, &e.PolicyName, &e.DurationMS); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Artifact returns the stored decision artifact for a scan id.
func (s *Store) Artifact(id string) ([]byte, error) {
	var payload string
	err := s.db.QueryRow(`SELECT artifact FROM scans WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading artifact: %w", err)
	}
	return []byte(payload), nil
}

// Purge deletes entries older than retentionDays. Zero keeps forever.
func (s *Store) Purge(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(time.RFC3339)
	res, err := s.db.Exec(`DELETE FROM scans WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging history: %w", err)
	}
	n, _ := res.RowsAffected() //nolint:errcheck // sqlite supports RowsAffected
	if n > 0 {
		s.logger.Debug("history purged", "removed", n, "retention_days", retentionDays)
	}
	return n, nil
}
