package services

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sobercast/sobercast/models"
	"github.com/sobercast/sobercast/streak"
	"github.com/sobercast/sobercast/utils"
)

const (
	defaultHistoryLimit = 30
	maxHistoryLimit     = 366
)

// RecordInput is one check-in request. Profile fields are optional and
// overwrite the stored profile when non-empty.
type RecordInput struct {
	FID               uint64
	Username          string
	DisplayName       string
	PfpURL            string
	SobrietyStartDate string
}

// RecordResult carries the evaluator outcome and the member after the
// attempt. Member is the unchanged stored member when the attempt was
// rejected.
type RecordResult struct {
	streak.Result
	Member *models.Member
}

// StatusResult describes a member's standing for today.
type StatusResult struct {
	Member         *models.Member    `json:"user"`
	CheckedInToday bool              `json:"checkedInToday"`
	DaysSober      int               `json:"daysSober"`
	Milestones     streak.Milestones `json:"milestones"`
}

// CheckinService records daily check-ins against the database.
type CheckinService struct {
	db      *gorm.DB
	cache   *utils.Cache
	metrics utils.Metrics
	cal     calendar
}

func NewCheckinService(db *gorm.DB, cache *utils.Cache, metrics utils.Metrics, loc *time.Location) *CheckinService {
	if metrics == nil {
		metrics = utils.NopMetrics{}
	}
	return &CheckinService{db: db, cache: cache, metrics: metrics, cal: newCalendar(loc)}
}

// WithClock replaces the time source; tests use it to pin "today".
func (s *CheckinService) WithClock(now func() time.Time) *CheckinService {
	s.cal.now = now
	return s
}

// Today returns the current calendar day in the service timezone.
func (s *CheckinService) Today() streak.Day {
	return s.cal.today()
}

// Record scores today's check-in for in.FID. A second attempt on the same
// day, including one that loses a race with a concurrent request, returns
// AlreadyCheckedIn and changes nothing.
func (s *CheckinService) Record(ctx context.Context, in RecordInput) (RecordResult, error) {
	if in.FID == 0 {
		return RecordResult{}, errors.Wrap(ErrInvalidInput, "fid is required")
	}
	today := s.Today()

	var start *streak.Day
	if in.SobrietyStartDate != "" {
		d, err := streak.ParseDay(in.SobrietyStartDate)
		if err != nil {
			return RecordResult{}, errors.Wrapf(ErrInvalidInput, "sobriety start date %q", in.SobrietyStartDate)
		}
		if d.After(today) {
			return RecordResult{}, errors.Wrap(ErrInvalidInput, "sobriety start date is in the future")
		}
		start = &d
	}

	var out RecordResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := s.lockOrCreate(tx, in, start, today)
		if err != nil {
			return err
		}

		// A run ending yesterday is never longer than the stored streak, so
		// the newest CurrentStreak+1 days are all the evaluator can use.
		var history []streak.Day
		if member.DeclaredStart() == nil {
			if history, err = checkinDays(tx, member.FID, member.CurrentStreak+1); err != nil {
				return err
			}
		}

		res := streak.Evaluate(streak.Input{
			Today:         today,
			LastCheckin:   member.LastCheckinDate,
			History:       history,
			SobrietyStart: member.DeclaredStart(),
		})
		if !res.Accepted {
			out = RecordResult{Result: res, Member: member}
			return nil
		}

		record := models.Checkin{
			MemberID:       member.ID,
			FID:            member.FID,
			CheckinDate:    today,
			PointsEarned:   res.PointsDelta,
			StreakAchieved: res.Streak,
		}
		inserted := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "fid"}, {Name: "checkin_date"}},
			DoNothing: true,
		}).Create(&record)
		if inserted.Error != nil {
			return errors.Wrap(inserted.Error, "insert checkin")
		}
		if inserted.RowsAffected == 0 {
			return ErrAlreadyCheckedIn
		}

		member.TotalPoints += res.PointsDelta
		member.TotalCheckins++
		member.CurrentStreak = res.Streak
		member.LongestStreak = max(member.LongestStreak, res.Streak)
		member.LastCheckinDate = &today
		applyProfile(member, in)

		if err := tx.Save(member).Error; err != nil {
			return errors.Wrap(err, "update member")
		}
		out = RecordResult{Result: res, Member: member}
		return nil
	})

	if errors.Is(err, ErrAlreadyCheckedIn) {
		s.metrics.IncCheckins(utils.OutcomeAlreadyCheckedIn)
		member, ferr := s.find(ctx, in.FID)
		if ferr != nil {
			return RecordResult{}, ferr
		}
		return RecordResult{Result: streak.Result{AlreadyCheckedIn: true}, Member: member}, nil
	}
	if err != nil {
		s.metrics.IncCheckins(utils.OutcomeFailed)
		return RecordResult{}, errors.Wrapf(err, "record checkin fid=%d", in.FID)
	}

	if !out.Accepted {
		s.metrics.IncCheckins(utils.OutcomeAlreadyCheckedIn)
		return out, nil
	}

	s.metrics.IncCheckins(utils.OutcomeAccepted)
	s.metrics.ObserveStreak(out.Streak)
	s.cache.InvalidateByPrefix(ctx, LeaderboardCachePrefix)
	s.cache.InvalidateByPrefix(ctx, StatsCachePrefix)
	utils.Sugar.Infow("checkin recorded",
		"fid", in.FID,
		"date", today.String(),
		"streak", out.Streak,
		"total_points", out.Member.TotalPoints,
	)
	return out, nil
}

// Status returns the member (nil if unknown) with today's flag and milestones.
func (s *CheckinService) Status(ctx context.Context, fid uint64) (StatusResult, error) {
	if fid == 0 {
		return StatusResult{}, errors.Wrap(ErrInvalidInput, "fid is required")
	}
	today := s.Today()

	member, err := s.find(ctx, fid)
	if errors.Is(err, ErrNotFound) {
		return StatusResult{Milestones: streak.MilestonesFor(0, 0)}, nil
	}
	if err != nil {
		return StatusResult{}, err
	}

	return StatusResult{
		Member:         member,
		CheckedInToday: !streak.CanCheckinToday(today, member.LastCheckinDate),
		DaysSober:      streak.DaysSober(member.SobrietyStartDate, today),
		Milestones:     streak.MilestonesFor(member.CurrentStreak, member.TotalCheckins),
	}, nil
}

// History lists the member's most recent check-in days, newest first.
func (s *CheckinService) History(ctx context.Context, fid uint64, limit int) ([]streak.Day, error) {
	if fid == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "fid is required")
	}
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}
	days, err := checkinDays(s.db.WithContext(ctx), fid, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "load history fid=%d", fid)
	}
	return days, nil
}

func (s *CheckinService) find(ctx context.Context, fid uint64) (*models.Member, error) {
	var m models.Member
	err := s.db.WithContext(ctx).Where("fid = ?", fid).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(ErrNotFound, "member fid=%d", fid)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load member fid=%d", fid)
	}
	return &m, nil
}

// lockOrCreate loads the member row for update, creating it first when the
// fid is new. Two first-time requests may race on the create; the loser's
// insert is a no-op and both then read the same row.
func (s *CheckinService) lockOrCreate(tx *gorm.DB, in RecordInput, start *streak.Day, today streak.Day) (*models.Member, error) {
	var m models.Member
	err := forUpdate(tx).Where("fid = ?", in.FID).First(&m).Error
	if err == nil {
		return &m, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "lock member")
	}

	fresh := models.Member{FID: in.FID, StreakMode: streak.ModeHistory, SobrietyStartDate: &today}
	if start != nil {
		fresh.StreakMode = streak.ModeDeclaredStart
		fresh.SobrietyStartDate = start
	}
	applyProfile(&fresh, in)

	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fid"}},
		DoNothing: true,
	}).Create(&fresh).Error; err != nil {
		return nil, errors.Wrap(err, "create member")
	}

	var created models.Member
	if err := forUpdate(tx).Where("fid = ?", in.FID).First(&created).Error; err != nil {
		return nil, errors.Wrap(err, "reload member")
	}
	return &created, nil
}

// forUpdate adds SELECT ... FOR UPDATE where the dialect supports it.
// SQLite already serializes writers.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// checkinDays returns check-in days for fid, newest first. limit <= 0
// returns all of them.
func checkinDays(tx *gorm.DB, fid uint64, limit int) ([]streak.Day, error) {
	var rows []models.Checkin
	q := tx.Select("checkin_date").Where("fid = ?", fid).Order("checkin_date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	days := make([]streak.Day, 0, len(rows))
	for _, r := range rows {
		days = append(days, r.CheckinDate)
	}
	return days, nil
}

func applyProfile(m *models.Member, in RecordInput) {
	if v := utils.SanitizeLimit(in.Username, 64); v != "" {
		m.Username = v
	}
	if v := utils.SanitizeLimit(in.DisplayName, 128); v != "" {
		m.DisplayName = v
	}
	if v := utils.SanitizeURL(in.PfpURL, 512); v != "" {
		m.PfpURL = v
	}
}
