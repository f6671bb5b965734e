package models

import (
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"

	"github.com/sobercast/sobercast/streak"
)

// Member is a tracker participant identified by their Farcaster fid.
type Member struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	FID               uint64      `gorm:"column:fid;uniqueIndex;not null" json:"fid"`
	Username          string      `gorm:"size:64" json:"username"`
	DisplayName       string      `gorm:"size:128" json:"display_name"`
	PfpURL            string      `gorm:"size:512" json:"pfp_url"`
	SobrietyStartDate *streak.Day `gorm:"type:date" json:"sobriety_start_date"`
	StreakMode        streak.Mode `gorm:"size:16;not null;default:'history'" json:"streak_mode"`
	TotalPoints       int         `gorm:"not null;default:0;index" json:"total_points"`
	TotalCheckins     int         `gorm:"not null;default:0" json:"total_checkins"`
	CurrentStreak     int         `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak     int         `gorm:"not null;default:0" json:"longest_streak"`
	LastCheckinDate   *streak.Day `gorm:"type:date" json:"last_checkin_date"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// DeclaredStart returns the start date the evaluator should use: the
// sobriety start for declared-start members, nil for history-mode members.
func (m *Member) DeclaredStart() *streak.Day {
	if m.StreakMode != streak.ModeDeclaredStart {
		return nil
	}
	return m.SobrietyStartDate
}

// BeforeSave defaults the streak mode and rejects unknown ones.
func (m *Member) BeforeSave(tx *gorm.DB) error {
	if m.StreakMode == "" {
		m.StreakMode = streak.ModeHistory
	}
	if !m.StreakMode.Valid() {
		return errors.Newf("unknown streak mode %q", m.StreakMode)
	}
	return nil
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (m *Member) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (m *Member) BeforeUpdate(tx *gorm.DB) error {
	m.UpdatedAt = time.Now()
	return nil
}
