// Package datasource fetches fixture and team statistics from the upstream
// sports-data provider. Records are loosely structured; every field the
// engine cares about may be absent and is represented as a pointer.
package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Provider defines the interface for the upstream sports-data collaborator
type Provider interface {
	// FetchFixture retrieves one fixture by the provider's identifier
	FetchFixture(ctx context.Context, fixtureID string) (*FixtureData, error)

	// FetchTeamStats retrieves season aggregates for a team
	FetchTeamStats(ctx context.Context, teamID, league, season string) (*TeamStatsData, error)

	// FetchHeadToHead retrieves recent meetings between two teams
	FetchHeadToHead(ctx context.Context, homeTeamID, awayTeamID string, limit int) ([]MeetingData, error)

	// FetchInjuries retrieves the current injury list for a team
	FetchInjuries(ctx context.Context, teamID string) ([]InjuryData, error)

	// FetchResults retrieves completed fixtures for a league in a window
	FetchResults(ctx context.Context, league string, start, end time.Time) ([]FixtureData, error)

	// Name returns the name of the provider
	Name() string
}

// FixtureData represents a fixture as delivered by the provider
type FixtureData struct {
	SourceID    string           `json:"source_id"`
	League      string           `json:"league"`
	Season      string           `json:"season"`
	Competition *string          `json:"competition"`
	HomeTeamID  string           `json:"home_team_id"`
	AwayTeamID  string           `json:"away_team_id"`
	HomeTeam    *string          `json:"home_team"`
	AwayTeam    *string          `json:"away_team"`
	KickoffAt   time.Time        `json:"kickoff_at"`
	Status      *string          `json:"status"`
	HomeGoals   *int             `json:"home_goals"`
	AwayGoals   *int             `json:"away_goals"`
	HomeOdds    *decimal.Decimal `json:"home_odds"`
	DrawOdds    *decimal.Decimal `json:"draw_odds"`
	AwayOdds    *decimal.Decimal `json:"away_odds"`
}

// TeamStatsData represents season aggregates as delivered by the provider.
// Pointer fields are nil when the provider omits them.
type TeamStatsData struct {
	TeamID         string  `json:"team_id"`
	TeamName       *string `json:"team_name"`
	Played         *int    `json:"played"`
	Wins           *int    `json:"wins"`
	Draws          *int    `json:"draws"`
	Losses         *int    `json:"losses"`
	Points         *int    `json:"points"`
	GoalsFor       *int    `json:"goals_for"`
	GoalsAgainst   *int    `json:"goals_against"`
	LeaguePosition *int    `json:"league_position"`
	LeagueSize     *int    `json:"league_size"`
	HomePlayed     *int    `json:"home_played"`
	HomeGoalsFor   *int    `json:"home_goals_for"`
	HomeGoalsAgainst *int  `json:"home_goals_against"`
	AwayPlayed     *int    `json:"away_played"`
	AwayGoalsFor   *int    `json:"away_goals_for"`
	AwayGoalsAgainst *int  `json:"away_goals_against"`
	RecentForm     *string `json:"recent_form"`
	YellowCards    *int    `json:"yellow_cards"`
	RedCards       *int    `json:"red_cards"`
}

// MeetingData is one historical head-to-head meeting
type MeetingData struct {
	HomeTeamID string    `json:"home_team_id"`
	AwayTeamID string    `json:"away_team_id"`
	HomeGoals  int       `json:"home_goals"`
	AwayGoals  int       `json:"away_goals"`
	PlayedAt   time.Time `json:"played_at"`
}

// InjuryData is one entry of a team's injury list
type InjuryData struct {
	PlayerName string  `json:"player_name"`
	Position   *string `json:"position"`
	KeyPlayer  bool    `json:"key_player"`
	Status     *string `json:"status"`
}

// ProviderError represents errors from provider operations
type ProviderError struct {
	Provider string // Provider name
	Code     string // Error code (e.g., "rate_limit_exceeded")
	Message  string // Error message
	Err      error  // Underlying error
}

func (e ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Provider + ": " + e.Code + ": " + e.Message
}

func (e ProviderError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded = "rate_limit_exceeded"
	ErrCodeNotFound          = "not_found"
	ErrCodeInvalidData       = "invalid_data"
	ErrCodeNetworkError      = "network_error"
	ErrCodeServerError       = "server_error"
	ErrCodeTimeout           = "timeout"
)

// Sentinel errors
var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrNotFound          = errors.New("data not found")
	ErrInvalidData       = errors.New("invalid data format")
	ErrNetworkError      = errors.New("network error")
	ErrServerError       = errors.New("server error")
)

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, err error) ProviderError {
	return ProviderError{
		Provider: provider,
		Code:     code,
		Message:  message,
		Err:      err,
	}
}
