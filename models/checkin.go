package models

import (
	"time"

	"github.com/sobercast/sobercast/streak"
)

// Checkin stores one scored daily check-in. The (fid, checkin_date) index
// is what makes a second same-day insert a no-op.
type Checkin struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	MemberID       uint       `gorm:"index;not null" json:"member_id"`
	FID            uint64     `gorm:"column:fid;not null;uniqueIndex:idx_checkins_fid_date" json:"fid"`
	CheckinDate    streak.Day `gorm:"type:date;not null;uniqueIndex:idx_checkins_fid_date;index" json:"checkin_date"`
	PointsEarned   int        `gorm:"not null" json:"points_earned"`
	StreakAchieved int        `json:"streak_achieved"`
	CreatedAt      time.Time  `json:"created_at"`
}
