package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/de-tools/market-atlas/pkg/models/store"
	"github.com/de-tools/market-atlas/pkg/store/duckdb"
)

var ErrNotFound = errors.New("run not found")

const DefaultListLimit = 20

// Store is the ledger of completed runs and the artifacts each one wrote.
type Store interface {
	Record(ctx context.Context, run *store.Run) error
	List(ctx context.Context, limit int) ([]*store.Run, error)
	Get(ctx context.Context, id string) (*store.Run, error)
}

type runStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &runStore{db: db}, nil
}

// Record inserts the run and its artifacts atomically. When ctx carries a transaction the
// insert joins it and the caller owns the commit.
func (s *runStore) Record(ctx context.Context, run *store.Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run id is required")
	}

	if duckdb.GetTransaction(ctx) != nil {
		return s.insert(ctx, run)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := s.insert(duckdb.WithTransaction(ctx, tx), run); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", run.ID, err)
	}
	return nil
}

func (s *runStore) insert(ctx context.Context, run *store.Run) error {
	conn := duckdb.Conn(ctx, s.db)

	_, err := conn.ExecContext(ctx,
		`INSERT INTO runs (id, symbol, command, artifact_ts, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Symbol, run.Command, run.Timestamp, run.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	for i, a := range run.Artifacts {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO run_artifacts (run_id, seq, kind, dir, filename, path, bytes, sha256)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i+1, a.Kind, a.Dir, a.Filename, a.Path, a.Bytes, a.SHA256,
		)
		if err != nil {
			return fmt.Errorf("insert artifact %s: %w", a.Filename, err)
		}
	}
	return nil
}

// List returns up to limit runs, newest first. A non-positive limit means DefaultListLimit.
func (s *runStore) List(ctx context.Context, limit int) ([]*store.Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	conn := duckdb.Conn(ctx, s.db)
	rows, err := conn.QueryContext(ctx, `
		SELECT id, symbol, command, artifact_ts, started_at
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	var result []*store.Run
	for rows.Next() {
		var r store.Run
		if err := rows.Scan(&r.ID, &r.Symbol, &r.Command, &r.Timestamp, &r.StartedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	rows.Close()

	for _, r := range result {
		if r.Artifacts, err = s.artifacts(ctx, conn, r.ID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *runStore) Get(ctx context.Context, id string) (*store.Run, error) {
	conn := duckdb.Conn(ctx, s.db)

	var r store.Run
	err := conn.QueryRowContext(ctx, `
		SELECT id, symbol, command, artifact_ts, started_at
		FROM runs
		WHERE id = ?`, id).Scan(&r.ID, &r.Symbol, &r.Command, &r.Timestamp, &r.StartedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", id, err)
	}

	if r.Artifacts, err = s.artifacts(ctx, conn, id); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *runStore) artifacts(ctx context.Context, conn duckdb.Querier, runID string) ([]store.Artifact, error) {
	rows, err := conn.QueryContext(ctx, `
		SELECT run_id, kind, dir, filename, path, bytes, sha256
		FROM run_artifacts
		WHERE run_id = ?
		ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query artifacts of %s: %w", runID, err)
	}
	defer rows.Close()

	artifacts := []store.Artifact{}
	for rows.Next() {
		var (
			a      store.Artifact
			bytes  sql.NullInt64
			sha256 sql.NullString
		)
		if err := rows.Scan(&a.RunID, &a.Kind, &a.Dir, &a.Filename, &a.Path, &bytes, &sha256); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		a.Bytes = bytes.Int64
		a.SHA256 = sha256.String
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return artifacts, nil
}
