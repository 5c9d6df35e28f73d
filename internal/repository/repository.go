package repository

import (
	"fmt"

	"github.com/yourusername/matchcast/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Fixture         FixtureRepository
	TeamStats       TeamStatsRepository
	Elo             EloRepository
	WeightConfig    WeightConfigRepository
	BacktestRecord  BacktestRecordRepository
	AccuracySummary AccuracySummaryRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Fixture:         NewPostgresFixtureRepository(db),
		TeamStats:       NewPostgresTeamStatsRepository(db),
		Elo:             NewPostgresEloRepository(db),
		WeightConfig:    NewPostgresWeightConfigRepository(db),
		BacktestRecord:  NewPostgresBacktestRecordRepository(db),
		AccuracySummary: NewPostgresAccuracySummaryRepository(db),
	}, nil
}
