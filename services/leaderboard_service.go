package services

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"

	"github.com/sobercast/sobercast/config"
	"github.com/sobercast/sobercast/models"
	"github.com/sobercast/sobercast/streak"
	"github.com/sobercast/sobercast/utils"
)

const defaultLeaderboardLimit = 50

// LeaderboardRow is one public leaderboard entry.
type LeaderboardRow = streak.Entry

// LeaderboardService serves the community leaderboard.
type LeaderboardService struct {
	db    *gorm.DB
	cache *utils.Cache
	cal   calendar
	limit int
	key   streak.SortKey
}

func NewLeaderboardService(db *gorm.DB, cache *utils.Cache, cfg config.LeaderboardConfig, loc *time.Location) (*LeaderboardService, error) {
	key, err := streak.ParseSortKey(cfg.SortKey)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidInput, err.Error())
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	return &LeaderboardService{db: db, cache: cache, cal: newCalendar(loc), limit: limit, key: key}, nil
}

// WithClock replaces the time source used for days-sober annotations.
func (s *LeaderboardService) WithClock(now func() time.Time) *LeaderboardService {
	s.cal.now = now
	return s
}

// SortKey reports the configured ordering.
func (s *LeaderboardService) SortKey() streak.SortKey { return s.key }

// Limit reports the maximum number of rows returned.
func (s *LeaderboardService) Limit() int { return s.limit }

// Top returns at most Limit members ordered by the sort key, with ranks
// assigned. Results are cached until the next accepted check-in or TTL.
func (s *LeaderboardService) Top(ctx context.Context) ([]LeaderboardRow, error) {
	today := s.cal.today()
	cacheKey := fmt.Sprintf("%s%s:%d:%s", LeaderboardCachePrefix, s.key, s.limit, today)

	var cached []LeaderboardRow
	if s.cache.GetJSON(ctx, cacheKey, &cached) {
		return cached, nil
	}

	var members []models.Member
	if err := s.db.WithContext(ctx).
		Order(orderFor(s.key)).
		Limit(s.limit).
		Find(&members).Error; err != nil {
		return nil, errors.Wrap(err, "load leaderboard")
	}

	rows := make([]LeaderboardRow, 0, len(members))
	for _, m := range members {
		username, displayName := streak.DisplayNames(m.Username, m.DisplayName)
		rows = append(rows, LeaderboardRow{
			FID:           m.FID,
			Username:      username,
			DisplayName:   displayName,
			PfpURL:        m.PfpURL,
			TotalPoints:   m.TotalPoints,
			TotalCheckins: m.TotalCheckins,
			CurrentStreak: m.CurrentStreak,
			DaysSober:     streak.DaysSober(m.SobrietyStartDate, today),
		})
	}
	rows = streak.Rank(rows, s.key)

	s.cache.SetJSON(ctx, cacheKey, rows)
	return rows, nil
}

// orderFor mirrors streak.Rank so that LIMIT keeps the right rows.
func orderFor(key streak.SortKey) string {
	if key == streak.SortByStreak {
		return "current_streak DESC, total_points DESC, fid ASC"
	}
	return "total_points DESC, fid ASC"
}
