package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Elo seed and bound constants. Persisted ratings live in this range;
// seeded estimates for unseen teams are derived inside it.
const (
	EloSeedFloor   = 1000.0
	EloSeedCeiling = 2200.0
	EloBaseline    = 1500.0
)

// EloRating is a scalar strength estimate for one team. It persists across
// seasons and is updated only from completed results.
type EloRating struct {
	TeamID    uuid.UUID `db:"team_id" json:"team_id" validate:"required"`
	League    string    `db:"league" json:"league"`
	Rating    float64   `db:"rating" json:"rating" validate:"gte=0"`
	Matches   int       `db:"matches" json:"matches"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// EloHistoryEntry records one rating change: the rating after a result was
// applied and the rating it replaced. The stream per team, ordered by
// EffectiveAt, reconstructs the rating at any past instant.
type EloHistoryEntry struct {
	TeamID      uuid.UUID `db:"team_id" json:"team_id"`
	League      string    `db:"league" json:"league"`
	Rating      float64   `db:"rating" json:"rating"`
	Previous    float64   `db:"previous" json:"previous"`
	EffectiveAt time.Time `db:"effective_at" json:"effective_at"`
}

// ExpectedScore returns the classic Elo expectation for a side rated r
// against an opponent rated opp: 1 / (1 + 10^(-(r-opp)/400)).
func ExpectedScore(r, opp float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (opp-r)/400.0))
}

// UpdatedRating applies the Elo update rule R' = R + K*(S - E) where S is
// the achieved score (1 win, 0.5 draw, 0 loss) and E the expectation.
func UpdatedRating(rating, k, score, expected float64) float64 {
	return rating + k*(score-expected)
}
