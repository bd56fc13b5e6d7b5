package output

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"macroscan/internal/output/migrations"
	"macroscan/internal/report"
)

// HistorySink appends every report of a run to a SQLite database so verdicts
// can be compared across runs.
type HistorySink struct {
	db    *sql.DB
	path  string
	mu    sync.Mutex
	runID string
	now   func() time.Time
}

// HistoryEntry is one stored document verdict.
type HistoryEntry struct {
	RunID     string
	Path      string
	SHA256    string
	Status    report.Status
	Score     int
	Tier      string
	Message   string
	ScannedAt time.Time
}

func NewHistorySink(path string) (*HistorySink, error) {
	db, err := openHistory(path)
	if err != nil {
		return nil, err
	}
	return &HistorySink{db: db, path: path, now: time.Now}, nil
}

func openHistory(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("history database path required")
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	if err := migrate(db, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// migrate runs all pending migrations.
func migrate(db *sql.DB, fsys embed.FS) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_history.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *HistorySink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	switch t := v.(type) {
	case Event:
		switch t.Type {
		case "run.started":
			return s.startRun(ctx, t)
		case "run.finished":
			if s.runID == "" {
				return nil
			}
			_, err := s.db.ExecContext(ctx,
				"UPDATE runs SET finished_at = ?, exit_code = ? WHERE id = ?",
				s.now().UTC(), t.ExitCode, s.runID)
			if err != nil {
				return fmt.Errorf("finishing run: %w", err)
			}
		}
		return nil
	case report.Report:
		if s.runID == "" {
			runID := t.RunID
			if runID == "" {
				runID = "adhoc"
			}
			if err := s.startRun(ctx, Event{Type: "run.started", RunID: runID}); err != nil {
				return err
			}
		}
		return s.insertReport(ctx, t)
	}
	return nil
}

func (s *HistorySink) startRun(ctx context.Context, e Event) error {
	if e.RunID == "" {
		return fmt.Errorf("run.started event without run ID")
	}
	s.runID = e.RunID
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, files, rules) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET files = excluded.files, rules = excluded.rules
	`, e.RunID, s.now().UTC(), e.Files, e.Rules)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

func (s *HistorySink) insertReport(ctx context.Context, r report.Report) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var score sql.NullInt64
	var pct sql.NullFloat64
	var tier sql.NullString
	if r.Verdict != nil {
		score = sql.NullInt64{Int64: int64(r.Verdict.TotalScore), Valid: true}
		pct = sql.NullFloat64{Float64: r.Verdict.Percentage, Valid: true}
		tier = sql.NullString{String: string(r.Verdict.Tier), Valid: true}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO documents (run_id, path, sha256, size, container, outcome, status, score, percentage, tier, message, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.runID, r.Path, nullString(r.SHA256), r.Size, nullString(string(r.Container)), nullString(string(r.Outcome)),
		string(r.Status), score, pct, tier, nullString(r.Message), s.now().UTC())
	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}

	docID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading document id: %w", err)
	}

	for _, c := range r.Contributions {
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO contributions (document_id, rule_id, points, pattern, reason) VALUES (?, ?, ?, ?, ?)",
			docID, c.RuleID, c.Points, c.Pattern, c.Reason); err != nil {
			return fmt.Errorf("saving contribution: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing report: %w", err)
	}
	return nil
}

func (s *HistorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// ReadHistory returns stored verdicts, newest first. A non-empty path limits
// the result to that document path; limit <= 0 means no limit.
func ReadHistory(ctx context.Context, dbPath string, path string, limit int) ([]HistoryEntry, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("history database: %w", err)
	}
	db, err := openHistory(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := `SELECT run_id, path, COALESCE(sha256, ''), status, COALESCE(score, 0), COALESCE(tier, ''), COALESCE(message, ''), scanned_at
		FROM documents`
	var args []any
	if path != "" {
		query += " WHERE path = ?"
		args = append(args, path)
	}
	query += " ORDER BY scanned_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var status string
		if err := rows.Scan(&e.RunID, &e.Path, &e.SHA256, &status, &e.Score, &e.Tier, &e.Message, &e.ScannedAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.Status = report.Status(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

// nullString converts an empty string to a NULL column value.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
