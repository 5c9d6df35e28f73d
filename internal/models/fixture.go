package models

import (
	"time"

	"github.com/google/uuid"
)

// FixtureStatus describes the lifecycle state of a fixture
type FixtureStatus string

const (
	FixtureStatusScheduled FixtureStatus = "scheduled"
	FixtureStatusInPlay    FixtureStatus = "in_play"
	FixtureStatusFinished  FixtureStatus = "finished"
	FixtureStatusPostponed FixtureStatus = "postponed"
	FixtureStatusCancelled FixtureStatus = "cancelled"
)

// Fixture represents a football match as provided by the upstream data
// collaborator. Fixtures are referenced by the engine, never mutated by it.
type Fixture struct {
	ID          uuid.UUID     `db:"id" json:"id" validate:"required"`
	SourceID    string        `db:"source_id" json:"source_id"`
	League      string        `db:"league" json:"league" validate:"required"`
	Season      string        `db:"season" json:"season" validate:"required"`
	HomeTeamID  uuid.UUID     `db:"home_team_id" json:"home_team_id" validate:"required"`
	AwayTeamID  uuid.UUID     `db:"away_team_id" json:"away_team_id" validate:"required"`
	HomeTeam    string        `db:"home_team" json:"home_team"`
	AwayTeam    string        `db:"away_team" json:"away_team"`
	Competition string        `db:"competition" json:"competition"`
	KickoffAt   time.Time     `db:"kickoff_at" json:"kickoff_at" validate:"required"`
	Status      FixtureStatus `db:"status" json:"status"`
	HomeGoals   *int          `db:"home_goals" json:"home_goals,omitempty"`
	AwayGoals   *int          `db:"away_goals" json:"away_goals,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

// IsCompleted reports whether the fixture has a final result
func (f *Fixture) IsCompleted() bool {
	return f.Status == FixtureStatusFinished && f.HomeGoals != nil && f.AwayGoals != nil
}

// IsCrossCompetition reports whether the fixture is played outside the
// domestic league it is indexed under (continental cups, domestic cups).
// Domestic form is a weaker predictor for these ties.
func (f *Fixture) IsCrossCompetition() bool {
	return f.Competition != "" && f.Competition != f.League
}

// Result returns the observed outcome, or empty string when unresolved
func (f *Fixture) Result() Outcome {
	if !f.IsCompleted() {
		return ""
	}
	return OutcomeFromGoals(*f.HomeGoals, *f.AwayGoals)
}

// Outcome is a discrete match result from the home side's perspective
type Outcome string

const (
	OutcomeHomeWin Outcome = "H"
	OutcomeDraw    Outcome = "D"
	OutcomeAwayWin Outcome = "A"
)

// OutcomeFromGoals derives the discrete outcome from a final score
func OutcomeFromGoals(homeGoals, awayGoals int) Outcome {
	switch {
	case homeGoals > awayGoals:
		return OutcomeHomeWin
	case homeGoals < awayGoals:
		return OutcomeAwayWin
	default:
		return OutcomeDraw
	}
}
