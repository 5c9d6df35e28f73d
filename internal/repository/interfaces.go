// Package repository provides PostgreSQL persistence for engine state.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/matchcast/internal/models"
)

// FixtureRepository manages fixture rows mirrored from the upstream provider
type FixtureRepository interface {
	Upsert(ctx context.Context, fixture *models.Fixture) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Fixture, error)
	GetCompletedBetween(ctx context.Context, start, end time.Time) ([]*models.Fixture, error)
	// GetCompletedForTeam returns the team's completed fixtures in a
	// (league, season) with kickoff strictly before the cutoff, oldest first
	GetCompletedForTeam(ctx context.Context, teamID uuid.UUID, league, season string, before time.Time) ([]*models.Fixture, error)
}

// TeamStatsRepository manages rolling per-season aggregates
type TeamStatsRepository interface {
	Upsert(ctx context.Context, stats *models.TeamSeasonStats) error
	Get(ctx context.Context, teamID uuid.UUID, league, season string) (*models.TeamSeasonStats, error)
}

// EloRepository persists team strength ratings across seasons, plus the
// append-only change history used to read a rating as of a past instant
type EloRepository interface {
	GetAll(ctx context.Context) ([]*models.EloRating, error)
	UpsertBatch(ctx context.Context, ratings []*models.EloRating) error
	AppendHistory(ctx context.Context, entries []*models.EloHistoryEntry) error
	GetHistory(ctx context.Context) ([]*models.EloHistoryEntry, error)
}

// WeightConfigRepository manages versioned model weight configurations.
// Exactly one row is active at a time; activation is transactional.
type WeightConfigRepository interface {
	GetActive(ctx context.Context) (*models.ModelWeightConfig, error)
	InsertAndActivate(ctx context.Context, cfg *models.ModelWeightConfig) error
}

// BacktestRecordRepository appends and reads immutable backtest records
type BacktestRecordRepository interface {
	InsertBatch(ctx context.Context, records []*models.BacktestRecord) error
	GetSince(ctx context.Context, since time.Time) ([]*models.BacktestRecord, error)
}

// AccuracySummaryRepository stores rollups for the metrics dashboard
type AccuracySummaryRepository interface {
	Upsert(ctx context.Context, summary *models.AccuracySummary) error
	GetByWindow(ctx context.Context, window models.AccuracyWindow) (*models.AccuracySummary, error)
}
