// Package cache memoizes ensemble predictions per (fixture, season, as-of
// bucket). Concurrent requests for the same key are coalesced so the
// pipeline runs at most once per key.
package cache

import (
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/yourusername/matchcast/internal/models"
)

// PredictionCache stores computed predictions with a TTL and coalesces
// concurrent computations of the same key
type PredictionCache struct {
	store   *gocache.Cache
	group   singleflight.Group
	ttl     time.Duration
	maxSize int
	logger  *logrus.Logger
}

// NewPredictionCache creates a cache with the given TTL and entry cap.
// A non-positive maxSize leaves the cache unbounded.
func NewPredictionCache(ttl time.Duration, maxSize int, logger *logrus.Logger) *PredictionCache {
	return &PredictionCache{
		store:   gocache.New(ttl, 2*ttl),
		ttl:     ttl,
		maxSize: maxSize,
		logger:  logger,
	}
}

// Key builds the cache key for a fixture at a point in time
func Key(fixtureID, season string, asOf time.Time) string {
	return fmt.Sprintf("%s|%s|%s", fixtureID, season, models.AsOfBucketFor(asOf))
}

// GetOrCompute returns the cached prediction for key, or runs compute and
// caches its result. Concurrent callers with the same key share one
// computation; errors are not cached.
func (c *PredictionCache) GetOrCompute(key string, compute func() (*models.EnsemblePrediction, error)) (*models.EnsemblePrediction, error) {
	if cached, ok := c.store.Get(key); ok {
		return cached.(*models.EnsemblePrediction), nil
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Double-check after winning the flight; a previous winner may
		// have populated the entry
		if cached, ok := c.store.Get(key); ok {
			return cached, nil
		}
		prediction, err := compute()
		if err != nil {
			return nil, err
		}
		// At capacity the result is still returned, just not retained;
		// expiry frees room for later keys
		if c.maxSize <= 0 || c.store.ItemCount() < c.maxSize {
			c.store.Set(key, prediction, c.ttl)
		} else {
			c.logger.WithField("max_size", c.maxSize).Debug("Prediction cache full, entry not stored")
		}
		return prediction, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.EnsemblePrediction), nil
}

// InvalidateFixture drops every cached prediction for a fixture, across all
// as-of buckets. Called when team news lands after a prediction was cached.
func (c *PredictionCache) InvalidateFixture(fixtureID string) {
	prefix := fixtureID + "|"
	dropped := 0
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
			dropped++
		}
	}
	if dropped > 0 {
		c.logger.WithFields(logrus.Fields{
			"fixture_id": fixtureID,
			"entries":    dropped,
		}).Debug("Invalidated cached predictions")
	}
}

// Len returns the number of live entries
func (c *PredictionCache) Len() int {
	return c.store.ItemCount()
}

// Flush drops every entry
func (c *PredictionCache) Flush() {
	c.store.Flush()
}
