package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Run is a persisted orchestration run.
type Run struct {
	RunID       string
	CreatedAt   string
	EndedAt     string
	Requirement string
	Status      string
	Phase       string
	Iteration   int
	Score       *int
	OutputDir   string
}

// Event is one entry in a run's timeline.
type Event struct {
	Seq      int
	TS       string
	Type     string
	Message  string
	DataJSON string
}

// Store persists runs and their events.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over an open journal database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// CreateRun inserts the run record and a run_started event.
func (s *Store) CreateRun(ctx context.Context, runID, requirement, outputDir string) error {
	createdAt := time.Now().UTC().Format(time.RFC3339)
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin create run: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO runs(run_id, created_at, requirement, status, phase, iteration, output_dir)
		VALUES(?, ?, ?, ?, ?, ?, ?)`,
		runID, createdAt, requirement, "running", "init", 0, outputDir); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert run: %w", err)
	}
	if err := insertEvent(ctx, tx, runID, "run_started", "run started", ""); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create run: %w", err)
	}
	return nil
}

// AppendEvent records a timeline event and updates the run's phase and
// iteration in one transaction.
func (s *Store) AppendEvent(ctx context.Context, runID, phase string, iteration int, ev Event) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin append event: %w", err)
	}
	if err := insertEvent(ctx, tx, runID, ev.Type, ev.Message, ev.DataJSON); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE runs SET phase=?, iteration=? WHERE run_id=?`,
		phase, iteration, runID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update run phase: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append event: %w", err)
	}
	return nil
}

// FinishRun marks the run terminal with its final status, phase, and score.
func (s *Store) FinishRun(ctx context.Context, runID, status, phase string, score *int) error {
	endedAt := time.Now().UTC().Format(time.RFC3339)
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin finish run: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE runs SET status=?, phase=?, score=?, ended_at=? WHERE run_id=?`,
		status, phase, nullableIntPtr(score), endedAt, runID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("finish run: %w", err)
	}
	if err := insertEvent(ctx, tx, runID, "run_finished", "run "+status, ""); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit finish run: %w", err)
	}
	return nil
}

// ListRuns returns runs newest first, up to limit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, created_at, COALESCE(ended_at, ''), requirement, status, phase, iteration, score, output_dir
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var score sql.NullInt64
		if err := rows.Scan(&r.RunID, &r.CreatedAt, &r.EndedAt, &r.Requirement, &r.Status, &r.Phase, &r.Iteration, &score, &r.OutputDir); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if score.Valid {
			v := int(score.Int64)
			r.Score = &v
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Events returns the full timeline for a run in sequence order.
func (s *Store) Events(ctx context.Context, runID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq, ts, type, message, COALESCE(data_json, '')
		FROM events WHERE run_id=? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.Seq, &ev.TS, &ev.Type, &ev.Message, &ev.DataJSON); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, runID, typ, message, dataJSON string) error {
	var seq int
	row := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM events WHERE run_id=?`, runID)
	if err := row.Scan(&seq); err != nil {
		return fmt.Errorf("read event seq: %w", err)
	}
	ts := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `INSERT INTO events(run_id, seq, ts, type, message, data_json) VALUES(?, ?, ?, ?, ?, ?)`,
		runID, seq+1, ts, typ, message, nullableString(dataJSON)); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableIntPtr(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}
