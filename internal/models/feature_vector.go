package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Neutral defaults substituted when upstream data is missing. Every
// FeatureVector field has a defined value; nothing downstream handles nil.
const (
	DefaultStrength       = 1.0
	DefaultFormRate       = 0.5
	DefaultH2HRate        = 1.0 / 3.0
	DefaultLeagueSize     = 20
	DefaultLeaguePosition = 10
	DefaultHomeGoalsAvg   = 1.5
	DefaultAwayGoalsAvg   = 1.1
)

// TeamFeatures carries the per-side slice of a feature vector
type TeamFeatures struct {
	TeamID         uuid.UUID `json:"team_id"`
	Name           string    `json:"name"`
	LeaguePosition int       `json:"league_position"`
	Played         int       `json:"played"`
	Points         int       `json:"points"`

	// Attack/defense strengths relative to league average (1.0 = average)
	AttackStrength  float64 `json:"attack_strength"`
	DefenseWeakness float64 `json:"defense_weakness"`

	// Points-per-match rates over rolling windows, scaled to [0,1]
	FormLast5  float64 `json:"form_last5"`
	FormLast10 float64 `json:"form_last10"`

	// Win/draw/loss rates over the last 10 matches
	WinRate10  float64 `json:"win_rate10"`
	DrawRate10 float64 `json:"draw_rate10"`
	LossRate10 float64 `json:"loss_rate10"`

	// Most recent results, oldest first, e.g. "WWDLW"
	RecentSequence string `json:"recent_sequence"`

	GoalsPerGame    float64 `json:"goals_per_game"`
	ConcededPerGame float64 `json:"conceded_per_game"`
	GoalDiffPerGame float64 `json:"goal_diff_per_game"`

	InjuryCount   int `json:"injury_count"`
	SuspendedKey  int `json:"suspended_key"`
	YellowPerGame float64 `json:"yellow_per_game"`
}

// FeatureVector is the immutable snapshot the sub-predictors consume.
// It is computed for a (fixture, as-of) pair; the as-of time never exceeds
// kickoff so replayed predictions carry no lookahead bias.
type FeatureVector struct {
	FixtureID uuid.UUID `json:"fixture_id"`
	League    string    `json:"league"`
	Season    string    `json:"season"`
	AsOf      time.Time `json:"as_of"`
	KickoffAt time.Time `json:"kickoff_at"`

	Home TeamFeatures `json:"home"`
	Away TeamFeatures `json:"away"`

	LeagueSize         int     `json:"league_size"`
	LeagueHomeGoalsAvg float64 `json:"league_home_goals_avg"`
	LeagueAwayGoalsAvg float64 `json:"league_away_goals_avg"`

	// Head-to-head outcome rates from the home side's perspective;
	// neutral 1/3 each when no history exists
	H2HHomeRate float64 `json:"h2h_home_rate"`
	H2HDrawRate float64 `json:"h2h_draw_rate"`
	H2HAwayRate float64 `json:"h2h_away_rate"`
	H2HMeetings int     `json:"h2h_meetings"`

	// Market odds from the upstream provider, when quoted
	HomeOdds *decimal.Decimal `json:"home_odds,omitempty"`
	DrawOdds *decimal.Decimal `json:"draw_odds,omitempty"`
	AwayOdds *decimal.Decimal `json:"away_odds,omitempty"`

	// FormReliability in (0,1]; discounted for cross-competition fixtures
	// where domestic form is a weaker signal
	FormReliability  float64 `json:"form_reliability"`
	CrossCompetition bool    `json:"cross_competition"`

	// Degraded marks a vector built entirely or partially from defaults
	// after an upstream failure
	Degraded bool `json:"degraded"`
}

// HasMarketOdds reports whether a full 1X2 price set is available
func (fv *FeatureVector) HasMarketOdds() bool {
	return fv.HomeOdds != nil && fv.DrawOdds != nil && fv.AwayOdds != nil
}

// NeutralTeamFeatures returns the defaults used when a side's data is
// entirely unavailable.
func NeutralTeamFeatures(teamID uuid.UUID, name string) TeamFeatures {
	return TeamFeatures{
		TeamID:          teamID,
		Name:            name,
		LeaguePosition:  DefaultLeaguePosition,
		AttackStrength:  DefaultStrength,
		DefenseWeakness: DefaultStrength,
		FormLast5:       DefaultFormRate,
		FormLast10:      DefaultFormRate,
		WinRate10:       DefaultH2HRate,
		DrawRate10:      DefaultH2HRate,
		LossRate10:      DefaultH2HRate,
		GoalsPerGame:    DefaultHomeGoalsAvg,
		ConcededPerGame: DefaultHomeGoalsAvg,
	}
}
