// Package rating maintains the in-memory Elo rating store. Reads are served
// from an immutable snapshot; result ingestion swaps in a new snapshot after
// each batch of updates, so the prediction path never blocks on writers.
package rating

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/matchcast/internal/models"
	"github.com/yourusername/matchcast/internal/repository"
)

// Store is a copy-on-write Elo rating store backed by the repository. Besides
// the current ratings it keeps each team's change history, so backtest replay
// can read the rating a team held before a past kickoff.
type Store struct {
	mu      sync.RWMutex
	ratings map[uuid.UUID]*models.EloRating
	history map[uuid.UUID][]models.EloHistoryEntry
	repo    repository.EloRepository
	kFactor float64
	logger  *logrus.Logger
}

// NewStore creates an empty rating store
func NewStore(repo repository.EloRepository, kFactor float64, logger *logrus.Logger) *Store {
	return &Store{
		ratings: make(map[uuid.UUID]*models.EloRating),
		history: make(map[uuid.UUID][]models.EloHistoryEntry),
		repo:    repo,
		kFactor: kFactor,
		logger:  logger,
	}
}

// Load populates the store from the repository
func (s *Store) Load(ctx context.Context) error {
	ratings, err := s.repo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load elo ratings: %w", err)
	}
	entries, err := s.repo.GetHistory(ctx)
	if err != nil {
		return fmt.Errorf("failed to load elo history: %w", err)
	}

	loaded := make(map[uuid.UUID]*models.EloRating, len(ratings))
	for _, r := range ratings {
		loaded[r.TeamID] = r
	}
	loadedHistory := make(map[uuid.UUID][]models.EloHistoryEntry)
	for _, entry := range entries {
		loadedHistory[entry.TeamID] = append(loadedHistory[entry.TeamID], *entry)
	}
	for teamID := range loadedHistory {
		sortHistory(loadedHistory[teamID])
	}

	s.mu.Lock()
	s.ratings = loaded
	s.history = loadedHistory
	s.mu.Unlock()

	s.logger.WithField("teams", len(loaded)).Info("Loaded Elo ratings")
	return nil
}

// Rating returns a team's current rating and whether it was found
func (s *Store) Rating(teamID uuid.UUID) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.ratings[teamID]
	if !ok {
		return models.EloBaseline, false
	}
	return r.Rating, true
}

// RatingOrSeed returns a team's rating, seeding an estimate from the team's
// league standing when no persisted rating exists. The seed is not stored;
// it becomes real only once a result is applied.
func (s *Store) RatingOrSeed(teamID uuid.UUID, tf models.TeamFeatures, leagueSize int) float64 {
	if rating, ok := s.Rating(teamID); ok {
		return rating
	}
	return SeedFromStanding(tf, leagueSize)
}

// RatingAt returns the rating a team held at the given instant, rolling the
// change history back past any updates applied after it.
func (s *Store) RatingAt(teamID uuid.UUID, asOf time.Time) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.history[teamID]
	for i := len(entries) - 1; i >= 0; i-- {
		if !entries[i].EffectiveAt.After(asOf) {
			return entries[i].Rating, true
		}
	}
	if len(entries) > 0 {
		// Every recorded change postdates asOf; the earliest entry's
		// pre-update value is the rating held back then
		return entries[0].Previous, true
	}

	r, ok := s.ratings[teamID]
	if !ok {
		return models.EloBaseline, false
	}
	return r.Rating, true
}

// RatingOrSeedAt is RatingAt with the standing-derived seed fallback
func (s *Store) RatingOrSeedAt(teamID uuid.UUID, tf models.TeamFeatures, leagueSize int, asOf time.Time) float64 {
	if rating, ok := s.RatingAt(teamID, asOf); ok {
		return rating
	}
	return SeedFromStanding(tf, leagueSize)
}

// SeedFromStanding estimates a rating from league position, recent form and
// goal difference. Output is clamped to the seed range.
func SeedFromStanding(tf models.TeamFeatures, leagueSize int) float64 {
	if leagueSize <= 1 {
		leagueSize = models.DefaultLeagueSize
	}
	if tf.LeaguePosition <= 0 {
		return models.EloBaseline
	}

	// Position 1 maps near the ceiling, bottom near the floor
	span := models.EloSeedCeiling - models.EloSeedFloor
	positionFrac := 1.0 - float64(tf.LeaguePosition-1)/float64(leagueSize-1)
	seed := models.EloSeedFloor + span*positionFrac

	// Nudge by recent form (centered on 0.5) and per-game goal difference
	seed += (tf.FormLast10 - 0.5) * 100
	seed += tf.GoalDiffPerGame * 50

	if seed < models.EloSeedFloor {
		seed = models.EloSeedFloor
	}
	if seed > models.EloSeedCeiling {
		seed = models.EloSeedCeiling
	}
	return seed
}

// Snapshot returns a point-in-time copy of all ratings
func (s *Store) Snapshot() map[uuid.UUID]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[uuid.UUID]float64, len(s.ratings))
	for id, r := range s.ratings {
		snap[id] = r.Rating
	}
	return snap
}

// ResultUpdate is one completed match to fold into the ratings
type ResultUpdate struct {
	HomeTeamID uuid.UUID
	AwayTeamID uuid.UUID
	League     string
	Outcome    models.Outcome
	// HomeAdvantage is added to the home rating for the expectation only
	HomeAdvantage float64
	// PlayedAt stamps the history entries; zero falls back to apply time
	PlayedAt time.Time
}

// ApplyResults folds a batch of completed results into the ratings and
// persists the changed rows. The in-memory map is replaced wholesale so
// concurrent readers keep a consistent view.
func (s *Store) ApplyResults(ctx context.Context, updates []ResultUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	s.mu.Lock()
	next := make(map[uuid.UUID]*models.EloRating, len(s.ratings)+len(updates))
	for id, r := range s.ratings {
		clone := *r
		next[id] = &clone
	}
	s.mu.Unlock()

	now := time.Now().UTC()
	changed := make(map[uuid.UUID]*models.EloRating)
	entries := make([]*models.EloHistoryEntry, 0, len(updates)*2)

	for _, u := range updates {
		home := ratingEntry(next, u.HomeTeamID, u.League, now)
		away := ratingEntry(next, u.AwayTeamID, u.League, now)
		previousHome, previousAway := home.Rating, away.Rating

		expectedHome := models.ExpectedScore(home.Rating+u.HomeAdvantage, away.Rating)
		scoreHome := achievedScore(u.Outcome)

		home.Rating = models.UpdatedRating(home.Rating, s.kFactor, scoreHome, expectedHome)
		away.Rating = models.UpdatedRating(away.Rating, s.kFactor, 1-scoreHome, 1-expectedHome)
		home.Matches++
		away.Matches++
		home.UpdatedAt = now
		away.UpdatedAt = now

		changed[home.TeamID] = home
		changed[away.TeamID] = away

		effectiveAt := u.PlayedAt
		if effectiveAt.IsZero() {
			effectiveAt = now
		}
		entries = append(entries,
			&models.EloHistoryEntry{TeamID: home.TeamID, League: u.League, Rating: home.Rating, Previous: previousHome, EffectiveAt: effectiveAt},
			&models.EloHistoryEntry{TeamID: away.TeamID, League: u.League, Rating: away.Rating, Previous: previousAway, EffectiveAt: effectiveAt},
		)
	}

	batch := make([]*models.EloRating, 0, len(changed))
	for _, r := range changed {
		batch = append(batch, r)
	}
	if err := s.repo.UpsertBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to persist elo ratings: %w", err)
	}
	if err := s.repo.AppendHistory(ctx, entries); err != nil {
		return fmt.Errorf("failed to persist elo history: %w", err)
	}

	s.mu.Lock()
	s.ratings = next
	touched := make(map[uuid.UUID]bool)
	for _, entry := range entries {
		s.history[entry.TeamID] = append(s.history[entry.TeamID], *entry)
		touched[entry.TeamID] = true
	}
	// Ingestion windows can arrive out of order
	for teamID := range touched {
		sortHistory(s.history[teamID])
	}
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"results": len(updates),
		"teams":   len(changed),
	}).Info("Applied Elo updates")
	return nil
}

func ratingEntry(ratings map[uuid.UUID]*models.EloRating, teamID uuid.UUID, league string, now time.Time) *models.EloRating {
	if r, ok := ratings[teamID]; ok {
		return r
	}
	r := &models.EloRating{
		TeamID:    teamID,
		League:    league,
		Rating:    models.EloBaseline,
		UpdatedAt: now,
	}
	ratings[teamID] = r
	return r
}

func sortHistory(entries []models.EloHistoryEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].EffectiveAt.Before(entries[j].EffectiveAt)
	})
}

func achievedScore(outcome models.Outcome) float64 {
	switch outcome {
	case models.OutcomeHomeWin:
		return 1.0
	case models.OutcomeAwayWin:
		return 0.0
	default:
		return 0.5
	}
}
