package services

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"

	"github.com/sobercast/sobercast/models"
	"github.com/sobercast/sobercast/utils"
)

// CommunityStats aggregates activity across all members.
type CommunityStats struct {
	Members       int64 `json:"members"`
	TotalCheckins int64 `json:"totalCheckins"`
	CheckinsToday int64 `json:"checkinsToday"`
	TotalPoints   int64 `json:"totalPoints"`
	LongestStreak int64 `json:"longestStreak"`
}

type StatsService struct {
	db    *gorm.DB
	cache *utils.Cache
	cal   calendar
}

func NewStatsService(db *gorm.DB, cache *utils.Cache, loc *time.Location) *StatsService {
	return &StatsService{db: db, cache: cache, cal: newCalendar(loc)}
}

// WithClock replaces the time source.
func (s *StatsService) WithClock(now func() time.Time) *StatsService {
	s.cal.now = now
	return s
}

// Community returns community-wide totals for today.
func (s *StatsService) Community(ctx context.Context) (CommunityStats, error) {
	today := s.cal.today()
	cacheKey := StatsCachePrefix + today.String()

	var out CommunityStats
	if s.cache.GetJSON(ctx, cacheKey, &out) {
		return out, nil
	}

	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Member{}).Count(&out.Members).Error; err != nil {
		return CommunityStats{}, errors.Wrap(err, "count members")
	}
	if err := db.Model(&models.Checkin{}).Count(&out.TotalCheckins).Error; err != nil {
		return CommunityStats{}, errors.Wrap(err, "count checkins")
	}
	if err := db.Model(&models.Checkin{}).
		Where("checkin_date = ?", today).
		Count(&out.CheckinsToday).Error; err != nil {
		return CommunityStats{}, errors.Wrap(err, "count checkins today")
	}
	if err := db.Model(&models.Member{}).
		Select("COALESCE(SUM(total_points),0)").
		Scan(&out.TotalPoints).Error; err != nil {
		return CommunityStats{}, errors.Wrap(err, "sum points")
	}
	if err := db.Model(&models.Member{}).
		Select("COALESCE(MAX(longest_streak),0)").
		Scan(&out.LongestStreak).Error; err != nil {
		return CommunityStats{}, errors.Wrap(err, "max streak")
	}

	s.cache.SetJSON(ctx, cacheKey, out)
	return out, nil
}
