package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/pacing-core/pkg/config"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(id string, created time.Time) *RunRecord {
	return &RunRecord{
		ID:       id,
		Scenario: "flat_100m",
		Status:   models.RunStatusCompleted,
		Summary: models.RunSummary{
			Status:    models.StatusCompleted,
			TotalTime: 7.02,
			Distance:  100,
			Steps:     10,
			Strategy:  "constant",
		},
		Trace: []models.TraceRecord{
			{Time: 0, Distance: 0, Velocity: 10, Energy: 1e6},
			{Time: 1, Distance: 10, Velocity: 11.78, Energy: 976751.6, Power: 20000},
		},
		Policy:      []float64{20000},
		CreatedAt:   created,
		CompletedAt: created.Add(time.Second),
	}
}

// exerciseArchive runs the shared contract against any backend.
func exerciseArchive(t *testing.T, a Archive) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, a.Save(ctx, sampleRecord("run-a", base)))
	require.NoError(t, a.Save(ctx, sampleRecord("run-b", base.Add(time.Minute))))

	got, err := a.Get(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, "flat_100m", got.Scenario)
	assert.Equal(t, models.RunStatusCompleted, got.Status)
	assert.Equal(t, 10, got.Summary.Steps)
	assert.Equal(t, models.StatusCompleted, got.Summary.Status)
	require.Len(t, got.Trace, 2)
	assert.Equal(t, 20000.0, got.Trace[1].Power)
	assert.Equal(t, []float64{20000}, got.Policy)
	assert.True(t, got.CreatedAt.Equal(base), "created at %v", got.CreatedAt)

	list, err := a.List(ctx, 0, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "run-b", list[0].ID, "newest first")

	list, err = a.List(ctx, 1, "")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// upsert
	updated := sampleRecord("run-a", base)
	updated.Status = models.RunStatusFailed
	updated.Error = "boom"
	require.NoError(t, a.Save(ctx, updated))
	got, err = a.Get(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)

	list, err = a.List(ctx, 0, models.RunStatusFailed)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "run-a", list[0].ID)

	_, err = a.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLArchive(t *testing.T) {
	a, err := NewSQLArchive(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer a.Close()
	exerciseArchive(t, a)
}

func TestSQLArchiveRequiresDSN(t *testing.T) {
	_, err := NewSQLArchive("")
	assert.Error(t, err)
}

func TestMongoArchive(t *testing.T) {
	uri := os.Getenv("PACED_MONGO_URI")
	if uri == "" {
		t.Skip("PACED_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	coll := "runs_test_" + time.Now().Format("20060102150405")
	a, err := NewMongoArchive(ctx, uri, "pacing_test", coll)
	require.NoError(t, err)
	defer func() {
		_ = a.coll.Drop(context.Background())
		_ = a.Close()
	}()
	exerciseArchive(t, a)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	a, err := Open(ctx, config.StorageConfig{Driver: "none"})
	require.NoError(t, err)
	assert.IsType(t, Discard{}, a)
	require.NoError(t, a.Save(ctx, sampleRecord("x", time.Now())))
	_, err = a.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)

	a, err = Open(ctx, config.StorageConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "open.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLArchive{}, a)
	require.NoError(t, a.Close())

	_, err = Open(ctx, config.StorageConfig{Driver: "postgres"})
	assert.Error(t, err)

	_, err = Open(ctx, config.StorageConfig{Driver: "mongo"})
	assert.Error(t, err, "mongo without uri")
}
