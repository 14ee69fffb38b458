// Package storage persists finished runs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GoSim-25-26J-441/pacing-core/pkg/config"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/models"
)

// ErrNotFound is returned when a run is not in the archive.
var ErrNotFound = errors.New("run not found in archive")

// RunRecord is a finished run as stored.
type RunRecord struct {
	ID          string               `json:"id" bson:"_id"`
	Scenario    string               `json:"scenario" bson:"scenario"`
	Status      models.RunStatus     `json:"status" bson:"status"`
	Error       string               `json:"error,omitempty" bson:"error,omitempty"`
	Summary     models.RunSummary    `json:"summary" bson:"summary"`
	Trace       []models.TraceRecord `json:"trace" bson:"trace"`
	Policy      []float64            `json:"policy,omitempty" bson:"policy,omitempty"`
	CreatedAt   time.Time            `json:"created_at" bson:"created_at"`
	CompletedAt time.Time            `json:"completed_at" bson:"completed_at"`
}

// Archive stores and retrieves run records.
type Archive interface {
	Save(ctx context.Context, rec *RunRecord) error
	Get(ctx context.Context, id string) (*RunRecord, error)
	// List returns at most limit records, newest first. limit <= 0 means all;
	// an empty status matches every run.
	List(ctx context.Context, limit int, status models.RunStatus) ([]*RunRecord, error)
	Close() error
}

// Open returns the archive selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (Archive, error) {
	switch cfg.Driver {
	case "", "none":
		return Discard{}, nil
	case "sqlite":
		return NewSQLArchive(cfg.DSN)
	case "mongo":
		return NewMongoArchive(ctx, cfg.DSN, cfg.Database, cfg.Collection)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Discard is an archive that keeps nothing.
type Discard struct{}

func (Discard) Save(context.Context, *RunRecord) error { return nil }
func (Discard) Get(context.Context, string) (*RunRecord, error) {
	return nil, ErrNotFound
}
func (Discard) List(context.Context, int, models.RunStatus) ([]*RunRecord, error) {
	return nil, nil
}
func (Discard) Close() error { return nil }
