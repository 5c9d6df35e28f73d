package models

import (
	"time"

	"github.com/google/uuid"
)

// TeamSeasonStats holds rolling aggregates per (team, league, season).
// Updated incrementally as results are ingested; read-only on the
// prediction path.
type TeamSeasonStats struct {
	TeamID   uuid.UUID `db:"team_id" json:"team_id" validate:"required"`
	TeamName string    `db:"team_name" json:"team_name"`
	League   string    `db:"league" json:"league" validate:"required"`
	Season   string    `db:"season" json:"season" validate:"required"`

	Played         int `db:"played" json:"played"`
	Wins           int `db:"wins" json:"wins"`
	Draws          int `db:"draws" json:"draws"`
	Losses         int `db:"losses" json:"losses"`
	Points         int `db:"points" json:"points"`
	GoalsFor       int `db:"goals_for" json:"goals_for"`
	GoalsAgainst   int `db:"goals_against" json:"goals_against"`
	LeaguePosition int `db:"league_position" json:"league_position"`
	LeagueSize     int `db:"league_size" json:"league_size"`

	// Home/away splits
	HomePlayed       int `db:"home_played" json:"home_played"`
	HomeWins         int `db:"home_wins" json:"home_wins"`
	HomeGoalsFor     int `db:"home_goals_for" json:"home_goals_for"`
	HomeGoalsAgainst int `db:"home_goals_against" json:"home_goals_against"`
	AwayPlayed       int `db:"away_played" json:"away_played"`
	AwayWins         int `db:"away_wins" json:"away_wins"`
	AwayGoalsFor     int `db:"away_goals_for" json:"away_goals_for"`
	AwayGoalsAgainst int `db:"away_goals_against" json:"away_goals_against"`

	// Rolling result windows, most recent last, e.g. "WWDLW"
	Last5Results  string `db:"last5_results" json:"last5_results"`
	Last10Results string `db:"last10_results" json:"last10_results"`
	Last10Points  int    `db:"last10_points" json:"last10_points"`

	// Discipline counts for the season
	YellowCards int `db:"yellow_cards" json:"yellow_cards"`
	RedCards    int `db:"red_cards" json:"red_cards"`

	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ApplyMatch folds one completed result into the aggregates, the venue
// splits and the rolling result windows.
func (s *TeamSeasonStats) ApplyMatch(scored, conceded int, home bool) {
	s.Played++
	s.GoalsFor += scored
	s.GoalsAgainst += conceded

	var result byte
	switch {
	case scored > conceded:
		result = 'W'
		s.Wins++
		s.Points += 3
	case scored < conceded:
		result = 'L'
		s.Losses++
	default:
		result = 'D'
		s.Draws++
		s.Points++
	}

	if home {
		s.HomePlayed++
		s.HomeGoalsFor += scored
		s.HomeGoalsAgainst += conceded
		if result == 'W' {
			s.HomeWins++
		}
	} else {
		s.AwayPlayed++
		s.AwayGoalsFor += scored
		s.AwayGoalsAgainst += conceded
		if result == 'W' {
			s.AwayWins++
		}
	}

	s.Last5Results = AppendResult(s.Last5Results, result, 5)
	s.Last10Results = AppendResult(s.Last10Results, result, 10)
	s.Last10Points = windowPoints(s.Last10Results)
}

func windowPoints(window string) int {
	points := 0
	for i := 0; i < len(window); i++ {
		switch window[i] {
		case 'W':
			points += 3
		case 'D':
			points++
		}
	}
	return points
}

// GoalsPerGame returns the team's average goals scored per match
func (s *TeamSeasonStats) GoalsPerGame() float64 {
	if s.Played == 0 {
		return 0
	}
	return float64(s.GoalsFor) / float64(s.Played)
}

// ConcededPerGame returns the team's average goals conceded per match
func (s *TeamSeasonStats) ConcededPerGame() float64 {
	if s.Played == 0 {
		return 0
	}
	return float64(s.GoalsAgainst) / float64(s.Played)
}

// GoalDifferencePerGame returns average goal difference per match
func (s *TeamSeasonStats) GoalDifferencePerGame() float64 {
	if s.Played == 0 {
		return 0
	}
	return float64(s.GoalsFor-s.GoalsAgainst) / float64(s.Played)
}

// WinRate returns the fraction of matches won over a result window string
func WinRate(window string) float64 {
	return resultRate(window, 'W')
}

// DrawRate returns the fraction of matches drawn over a result window string
func DrawRate(window string) float64 {
	return resultRate(window, 'D')
}

// LossRate returns the fraction of matches lost over a result window string
func LossRate(window string) float64 {
	return resultRate(window, 'L')
}

func resultRate(window string, result byte) float64 {
	if len(window) == 0 {
		return 0
	}
	count := 0
	for i := 0; i < len(window); i++ {
		if window[i] == result {
			count++
		}
	}
	return float64(count) / float64(len(window))
}

// AppendResult pushes a result letter onto a rolling window, dropping the
// oldest entry once the window is full.
func AppendResult(window string, result byte, size int) string {
	window += string(result)
	if len(window) > size {
		window = window[len(window)-size:]
	}
	return window
}

// HeadToHead summarizes historical meetings between two specific teams,
// always oriented to the fixture's home side.
type HeadToHead struct {
	Meetings  int `json:"meetings"`
	HomeWins  int `json:"home_wins"`
	Draws     int `json:"draws"`
	AwayWins  int `json:"away_wins"`
	HomeGoals int `json:"home_goals"`
	AwayGoals int `json:"away_goals"`
}
