// Package history journals every file an action touched to SQLite so past
// runs can be inspected with "filewatch history".
package history

import (
	"database/sql"
	"embed"
	"os"
	"path/filepath"
	"strings"
	"time"

	"filewatch/internal/errors"
	"filewatch/internal/log"
	"filewatch/pkg/types"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed db/schema.sql
var dbFS embed.FS

const timeLayout = time.RFC3339Nano

// Run is one invocation of the engine
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	RulesFile  string
	DryRun     bool
	Cancelled  bool
	Matched    int
	Succeeded  int
	Failed     int
	Skipped    int
}

// Operation is one file handled by one action, or one action that could
// not run (SourcePath empty, Outcome "error")
type Operation struct {
	ID              string
	RunID           string
	Timestamp       time.Time
	Rule            string
	ActionIndex     int
	Action          string
	SourcePath      string
	DestinationPath string
	Outcome         string
	Error           string
	DryRun          bool
}

// Filter narrows Operations queries. Zero values match everything.
type Filter struct {
	RunID      string
	Rule       string
	FailedOnly bool
	Limit      int
}

// Repository defines the journal's storage operations
type Repository interface {
	StartRun(rulesFile string, dryRun bool) (*Run, error)
	FinishRun(run *Run) error
	SaveOperations(ops []*Operation) error
	Operations(f Filter) ([]*Operation, error)
	RecentRuns(limit int) ([]*Run, error)
	Close() error
}

// SQLiteRepository implements Repository using SQLite
type SQLiteRepository struct {
	db     *sql.DB
	logger log.Logging
}

// DefaultPath returns $XDG_STATE_HOME/filewatch/history.db
func DefaultPath() string {
	return filepath.Join(xdg.StateHome, "filewatch", "history.db")
}

// Open opens (creating if needed) the journal at dbPath. An empty path
// opens a private in-memory database.
func Open(dbPath string, logger log.Logging) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Default()
	}
	if dbPath != "" && dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, errors.NewDatabaseError("failed to create history directory", err).
				WithContext("path", dbPath)
		}
	}
	db, err := InitDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	return &SQLiteRepository{db: db, logger: logger}, nil
}

// InitDatabase opens the database and applies the embedded schema
func InitDatabase(dbPath string) (*sql.DB, error) {
	connectionString := dbPath
	if connectionString == "" {
		connectionString = ":memory:"
	}

	db, err := sql.Open("sqlite3", connectionString)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to open SQLite database", err).
			WithContext("connectionString", connectionString)
	}
	// One connection: an in-memory database is per connection, and a single
	// writer avoids SQLITE_BUSY between concurrent reporters.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.NewDatabaseError("failed to enable foreign keys", err)
	}

	schemaSQL, err := dbFS.ReadFile("db/schema.sql")
	if err != nil {
		db.Close()
		return nil, errors.NewDatabaseError("failed to read schema SQL", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		db.Close()
		return nil, errors.NewDatabaseError("failed to initialize database schema", err).
			WithContext("connectionString", connectionString)
	}
	return db, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// StartRun records the beginning of a run and returns it with a fresh ID
func (r *SQLiteRepository) StartRun(rulesFile string, dryRun bool) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
		RulesFile: rulesFile,
		DryRun:    dryRun,
	}
	_, err := r.db.Exec(
		`INSERT INTO runs (id, started_at, rules_file, dry_run) VALUES (?, ?, ?, ?)`,
		run.ID, run.StartedAt.Format(timeLayout), run.RulesFile, run.DryRun,
	)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to save run", err).WithOperation("insert")
	}
	r.logger.Debugf("Started history run %s", run.ID)
	return run, nil
}

// FinishRun stores the run's end time and totals
func (r *SQLiteRepository) FinishRun(run *Run) error {
	if run == nil {
		return errors.NewInvalidInputError("run cannot be nil", nil)
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	res, err := r.db.Exec(`
		UPDATE runs
		SET finished_at = ?, cancelled = ?, matched = ?, succeeded = ?, failed = ?, skipped = ?
		WHERE id = ?`,
		run.FinishedAt.Format(timeLayout), run.Cancelled,
		run.Matched, run.Succeeded, run.Failed, run.Skipped, run.ID,
	)
	if err != nil {
		return errors.NewDatabaseError("failed to update run", err).
			WithOperation("update").WithContext("run_id", run.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewDatabaseError("run not found", nil).WithContext("run_id", run.ID)
	}
	return nil
}

// SaveOperations stores ops in one transaction
func (r *SQLiteRepository) SaveOperations(ops []*Operation) error {
	if len(ops) == 0 {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return errors.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(`
		INSERT INTO operations (
			id, run_id, timestamp, rule, action_index, action,
			source_path, destination_path, outcome, error, dry_run
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.NewDatabaseError("failed to prepare insert", err)
	}
	defer stmt.Close()

	for _, op := range ops {
		if op.ID == "" {
			op.ID = uuid.New().String()
		}
		if op.Timestamp.IsZero() {
			op.Timestamp = time.Now().UTC()
		}
		_, err := stmt.Exec(
			op.ID, op.RunID, op.Timestamp.Format(timeLayout), op.Rule, op.ActionIndex, op.Action,
			op.SourcePath, op.DestinationPath, op.Outcome, op.Error, op.DryRun,
		)
		if err != nil {
			return errors.NewDatabaseError("failed to save operation", err).
				WithOperation("insert").
				WithContext("run_id", op.RunID).
				WithContext("source_path", op.SourcePath)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewDatabaseError("failed to commit operations", err)
	}
	return nil
}

// Operations returns journaled operations, newest first
func (r *SQLiteRepository) Operations(f Filter) ([]*Operation, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.Rule != "" {
		where = append(where, "rule = ?")
		args = append(args, f.Rule)
	}
	if f.FailedOnly {
		where = append(where, "outcome IN ('failed', 'error')")
	}

	query := `
		SELECT id, run_id, timestamp, rule, action_index, action,
		       source_path, destination_path, outcome, error, dry_run
		FROM operations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to query operations", err)
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		var (
			op Operation
			ts string
		)
		if err := rows.Scan(
			&op.ID, &op.RunID, &ts, &op.Rule, &op.ActionIndex, &op.Action,
			&op.SourcePath, &op.DestinationPath, &op.Outcome, &op.Error, &op.DryRun,
		); err != nil {
			return nil, errors.NewDatabaseError("failed to scan operation", err)
		}
		op.Timestamp, err = time.Parse(timeLayout, ts)
		if err != nil {
			r.logger.Warnf("Invalid timestamp %q on operation %s", ts, op.ID)
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("failed to read operations", err)
	}
	return ops, nil
}

// RecentRuns returns the most recent runs, newest first
func (r *SQLiteRepository) RecentRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`
		SELECT id, started_at, COALESCE(finished_at, ''), rules_file, dry_run, cancelled,
		       matched, succeeded, failed, skipped
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to query runs", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var (
			run               Run
			started, finished string
		)
		if err := rows.Scan(
			&run.ID, &started, &finished, &run.RulesFile, &run.DryRun, &run.Cancelled,
			&run.Matched, &run.Succeeded, &run.Failed, &run.Skipped,
		); err != nil {
			return nil, errors.NewDatabaseError("failed to scan run", err)
		}
		run.StartedAt, _ = time.Parse(timeLayout, started)
		if finished != "" {
			run.FinishedAt, _ = time.Parse(timeLayout, finished)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("failed to read runs", err)
	}
	return runs, nil
}

// OperationFromResult converts an engine result into a journal row
func OperationFromResult(runID string, res types.FileResult) *Operation {
	op := &Operation{
		RunID:           runID,
		Rule:            res.Rule,
		ActionIndex:     res.ActionIndex,
		Action:          res.Action.String(),
		SourcePath:      res.SourcePath,
		DestinationPath: res.DestinationPath,
		Outcome:         res.Outcome(),
		DryRun:          res.DryRun,
	}
	if res.Error != nil {
		op.Error = res.Error.Error()
	}
	return op
}

var _ Repository = (*SQLiteRepository)(nil)
