package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GoSim-25-26J-441/pacing-core/pkg/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// runRow is the table layout. Trace, summary and policy are JSON columns.
type runRow struct {
	ID          string               `gorm:"primaryKey"`
	Scenario    string               `gorm:"index"`
	Status      string               `gorm:"index"`
	Error       string
	Summary     models.RunSummary    `gorm:"serializer:json"`
	Trace       []models.TraceRecord `gorm:"serializer:json"`
	Policy      []float64            `gorm:"serializer:json"`
	CreatedAt   time.Time            `gorm:"index"`
	CompletedAt time.Time
}

func (runRow) TableName() string { return "runs" }

// SQLArchive stores runs in SQLite through gorm.
type SQLArchive struct {
	db *gorm.DB
}

// NewSQLArchive opens (creating if needed) the database at dsn and migrates it.
func NewSQLArchive(dsn string) (*SQLArchive, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite archive: dsn is required")
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite archive: open %s: %w", dsn, err)
	}
	if err := db.AutoMigrate(&runRow{}); err != nil {
		return nil, fmt.Errorf("sqlite archive: migrate: %w", err)
	}
	return &SQLArchive{db: db}, nil
}

// Save inserts or replaces rec.
func (a *SQLArchive) Save(ctx context.Context, rec *RunRecord) error {
	row := runRow{
		ID:          rec.ID,
		Scenario:    rec.Scenario,
		Status:      string(rec.Status),
		Error:       rec.Error,
		Summary:     rec.Summary,
		Trace:       rec.Trace,
		Policy:      rec.Policy,
		CreatedAt:   rec.CreatedAt,
		CompletedAt: rec.CompletedAt,
	}
	return a.db.WithContext(ctx).Save(&row).Error
}

// Get returns the run with id or ErrNotFound.
func (a *SQLArchive) Get(ctx context.Context, id string) (*RunRecord, error) {
	var row runRow
	err := a.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return row.record(), nil
}

// List returns runs ordered by creation time, newest first.
func (a *SQLArchive) List(ctx context.Context, limit int, status models.RunStatus) ([]*RunRecord, error) {
	var rows []runRow
	q := a.db.WithContext(ctx).Order("created_at desc")
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*RunRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].record()
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (a *SQLArchive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *runRow) record() *RunRecord {
	return &RunRecord{
		ID:          r.ID,
		Scenario:    r.Scenario,
		Status:      models.RunStatus(r.Status),
		Error:       r.Error,
		Summary:     r.Summary,
		Trace:       r.Trace,
		Policy:      r.Policy,
		CreatedAt:   r.CreatedAt,
		CompletedAt: r.CompletedAt,
	}
}
