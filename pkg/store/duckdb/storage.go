package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/marcboeker/go-duckdb/v2"
)

const RunsTableSchema = `
	CREATE TABLE IF NOT EXISTS runs (
		id VARCHAR NOT NULL PRIMARY KEY,
		symbol VARCHAR NOT NULL,
		command VARCHAR NOT NULL,
		artifact_ts VARCHAR NOT NULL,
		started_at TIMESTAMP NOT NULL,
		recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
`

const RunArtifactsTableSchema = `
	CREATE TABLE IF NOT EXISTS run_artifacts (
		run_id VARCHAR NOT NULL,
		seq INTEGER NOT NULL,
		kind VARCHAR NOT NULL,
		dir VARCHAR NOT NULL,
		filename VARCHAR NOT NULL,
		path VARCHAR NOT NULL,
		bytes BIGINT,
		sha256 VARCHAR,
		PRIMARY KEY (run_id, filename)
	);
`

var bootQueries = []string{
	RunsTableSchema,
	RunArtifactsTableSchema,
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	if settings.DbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb at %s: %w", settings.DbPath, err)
	}

	db := sql.OpenDB(c)
	if strings.HasPrefix(settings.DbPath, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}
