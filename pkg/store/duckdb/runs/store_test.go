package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/de-tools/market-atlas/pkg/models/store"
	"github.com/de-tools/market-atlas/pkg/store/duckdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db    *sql.DB
	store Store
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	s, err := NewStore(db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return &fixture{db: db, store: s}
}

func sampleRun(id string, startedAt time.Time) *store.Run {
	ts := startedAt.Format("20060102_150405")
	return &store.Run{
		ID:        id,
		Symbol:    "AAPL",
		Command:   "strategy",
		Timestamp: ts,
		StartedAt: startedAt,
		Artifacts: []store.Artifact{
			{
				RunID:    id,
				Kind:     "data",
				Dir:      "/srv/atlas/data",
				Filename: "data_" + ts + ".csv",
				Path:     "/srv/atlas/data/data_" + ts + ".csv",
				Bytes:    2048,
				SHA256:   "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
			},
			{
				RunID:    id,
				Kind:     "plot",
				Dir:      "/srv/atlas/plots",
				Filename: "plot_" + ts + ".png",
				Path:     "/srv/atlas/plots/plot_" + ts + ".png",
				Bytes:    40960,
				SHA256:   "60303ae22b998861bce3b28f33eec1be758a213c86c93c076dbe9f558c11c752",
			},
		},
	}
}

func TestNewStore(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := setupFixture(t)
		assert.NotNil(t, f.store)
	})

	t.Run("nil db", func(t *testing.T) {
		s, err := NewStore(nil)
		assert.Error(t, err)
		assert.Nil(t, s)
	})
}

func TestStore_RecordAndGet(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	startedAt := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	run := sampleRun("run-001", startedAt)
	require.NoError(t, f.store.Record(ctx, run))

	got, err := f.store.Get(ctx, "run-001")
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Symbol, got.Symbol)
	assert.Equal(t, run.Command, got.Command)
	assert.Equal(t, run.Timestamp, got.Timestamp)
	assert.True(t, startedAt.Equal(got.StartedAt), "started_at %s", got.StartedAt)
	assert.Equal(t, run.Artifacts, got.Artifacts)
}

func TestStore_Record_DuplicateID(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	startedAt := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	require.NoError(t, f.store.Record(ctx, sampleRun("run-001", startedAt)))
	assert.Error(t, f.store.Record(ctx, sampleRun("run-001", startedAt.Add(time.Minute))))

	var count int
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM run_artifacts").Scan(&count))
	assert.Equal(t, 2, count, "failed record must not leave artifacts behind")
}

func TestStore_Record_RequiresID(t *testing.T) {
	f := setupFixture(t)
	assert.Error(t, f.store.Record(context.Background(), &store.Run{}))
	assert.Error(t, f.store.Record(context.Background(), nil))
}

func TestStore_Get_NotFound(t *testing.T) {
	f := setupFixture(t)
	_, err := f.store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_List(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.store.Record(ctx, sampleRun(fmt.Sprintf("run-%03d", i), base.Add(time.Duration(i)*time.Hour))))
	}

	t.Run("newest first", func(t *testing.T) {
		list, err := f.store.List(ctx, 10)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "run-002", list[0].ID)
		assert.Equal(t, "run-001", list[1].ID)
		assert.Equal(t, "run-000", list[2].ID)
		assert.Len(t, list[0].Artifacts, 2)
		assert.Equal(t, "data", list[0].Artifacts[0].Kind)
	})

	t.Run("limit", func(t *testing.T) {
		list, err := f.store.List(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("default limit", func(t *testing.T) {
		list, err := f.store.List(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, list, 3)
	})
}

func TestStore_Record_JoinsTransaction(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	tx, err := f.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	txCtx := duckdb.WithTransaction(ctx, tx)

	require.NoError(t, f.store.Record(txCtx, sampleRun("run-tx", time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))))
	got, err := f.store.Get(txCtx, "run-tx")
	require.NoError(t, err)
	assert.Equal(t, "run-tx", got.ID)

	require.NoError(t, tx.Rollback())

	_, err = f.store.Get(ctx, "run-tx")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Record_RollsBackOnArtifactFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := NewStore(db)
	require.NoError(t, err)

	run := sampleRun("run-001", time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO runs").
		WithArgs(run.ID, run.Symbol, run.Command, run.Timestamp, run.StartedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO run_artifacts").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = s.Record(context.Background(), run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := NewStore(db)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, symbol, command, artifact_ts, started_at").
		WithArgs("run-001").
		WillReturnError(errors.New("connection reset"))

	_, err = s.Get(context.Background(), "run-001")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
