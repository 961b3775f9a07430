package handlers

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spilist/tokscale/server/internal/database"
)

const leaderboardLimit = 100

// LeaderboardCache keeps the all-time standings in memory and refreshes
// them on a debounce timer, so a burst of submissions triggers one
// recompute instead of one per submission.
type LeaderboardCache struct {
	db     *database.DB
	logger *zap.Logger
	delay  time.Duration

	mu         sync.Mutex
	generation int
	rows       []database.LeaderboardRow
	valid      bool
}

// NewLeaderboardCache creates a cache that recomputes delay after the
// last invalidation.
func NewLeaderboardCache(db *database.DB, logger *zap.Logger, delay time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		db:     db,
		logger: logger,
		delay:  delay,
	}
}

// Invalidate marks the standings stale and schedules a refresh,
// resetting the timer if one is already pending.
func (c *LeaderboardCache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	time.AfterFunc(c.delay, func() {
		c.refresh(gen)
	})
}

func (c *LeaderboardCache) refresh(generation int) {
	c.mu.Lock()
	if c.generation != generation {
		// a newer invalidation reset the timer
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	rows, err := c.db.Leaderboard("", "", leaderboardLimit)
	if err != nil {
		c.logger.Warn("leaderboard refresh failed", zap.Error(err))
		return
	}

	c.mu.Lock()
	if c.generation == generation {
		c.rows = rows
		c.valid = true
	}
	c.mu.Unlock()
}

// Top returns the all-time standings, from cache when fresh.
func (c *LeaderboardCache) Top() ([]database.LeaderboardRow, error) {
	c.mu.Lock()
	if c.valid {
		rows := c.rows
		c.mu.Unlock()
		return rows, nil
	}
	c.mu.Unlock()

	rows, err := c.db.Leaderboard("", "", leaderboardLimit)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.rows = rows
	c.valid = true
	c.mu.Unlock()
	return rows, nil
}
