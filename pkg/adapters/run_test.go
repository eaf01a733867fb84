package adapters

import (
	"testing"
	"time"

	"github.com/de-tools/market-atlas/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMapping(t *testing.T) {
	run := &domain.Run{
		ID:        "7b0e4c1a",
		Symbol:    "AAPL",
		Command:   domain.RunCommandStrategy,
		Timestamp: "20250314_092653",
		StartedAt: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
		Artifacts: []domain.OutputLocation{{
			Kind:     domain.ArtifactData,
			Dir:      "data",
			Filename: "data_20250314_092653.csv",
			Path:     "data/data_20250314_092653.csv",
			Bytes:    42,
			SHA256:   "abc",
		}},
	}

	t.Run("store round trip", func(t *testing.T) {
		stored := MapDomainRunToStore(run)
		require.NotNil(t, stored)
		assert.Equal(t, run.ID, stored.Artifacts[0].RunID)
		assert.Equal(t, run, MapStoreRunToDomain(stored))
	})

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, MapDomainRunToStore(nil))
		assert.Nil(t, MapStoreRunToDomain(nil))
	})

	t.Run("api", func(t *testing.T) {
		got := MapDomainRunToAPI(run)
		require.Len(t, got.Artifacts, 1)
		assert.Equal(t, "/api/v1/runs/7b0e4c1a/artifacts/data_20250314_092653.csv", got.Artifacts[0].URL)
		assert.Equal(t, "strategy", got.Command)
	})
}
