package tracker

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/sobercast/sobercast/streak"
)

// ErrFutureStart rejects a sobriety start date after today.
var ErrFutureStart = errors.New("start date cannot be in the future")

// Status is a member's State as seen today.
type Status struct {
	State
	CheckedInToday bool              `json:"checkedInToday"`
	DaysSober      int               `json:"daysSober"`
	Milestones     streak.Milestones `json:"milestones"`
}

// Tracker scores check-ins for the member whose State lives in store.
type Tracker struct {
	store StateStore
	loc   *time.Location
	now   func() time.Time
	fid   uint64
	name  string
}

// New returns a Tracker computing days in loc (UTC when nil).
func New(store StateStore, loc *time.Location) *Tracker {
	if loc == nil {
		loc = time.UTC
	}
	return &Tracker{store: store, loc: loc, now: time.Now, name: "You"}
}

// WithClock replaces the time source.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// WithIdentity sets the fid and name the member appears under on leaderboards.
func (t *Tracker) WithIdentity(fid uint64, name string) *Tracker {
	t.fid = fid
	if name != "" {
		t.name = name
	}
	return t
}

// Today is the current calendar day in the tracker's timezone.
func (t *Tracker) Today() streak.Day {
	return streak.DayOf(t.now(), t.loc)
}

// StartToday begins a journey today with a zero streak.
func (t *Tracker) StartToday(ctx context.Context) (State, error) {
	st, err := t.store.Load(ctx)
	if err != nil {
		return State{}, err
	}
	today := t.Today()
	st.SobrietyStartDate = &today
	st.IsSetupComplete = true
	st.CurrentStreak = 0
	return st, t.store.Save(ctx, st)
}

// StartFrom back-dates the journey to start. The streak becomes the days
// already elapsed and points are estimated at PointsPerCheckin per day.
func (t *Tracker) StartFrom(ctx context.Context, start streak.Day) (State, error) {
	today := t.Today()
	if start.After(today) {
		return State{}, errors.Wrapf(ErrFutureStart, "start %s, today %s", start, today)
	}
	st, err := t.store.Load(ctx)
	if err != nil {
		return State{}, err
	}
	elapsed := streak.DaysSober(&start, today)
	st.SobrietyStartDate = &start
	st.IsSetupComplete = true
	st.CurrentStreak = elapsed
	st.TotalPoints = elapsed * streak.PointsPerCheckin
	return st, t.store.Save(ctx, st)
}

// Checkin scores today's check-in. A rejected attempt returns the stored
// State untouched and does not write to the store.
func (t *Tracker) Checkin(ctx context.Context) (streak.Result, State, error) {
	st, err := t.store.Load(ctx)
	if err != nil {
		return streak.Result{}, State{}, err
	}
	today := t.Today()
	res := streak.Evaluate(streak.Input{
		Today:         today,
		LastCheckin:   st.LastCheckin,
		History:       st.CheckinDates,
		SobrietyStart: st.SobrietyStartDate,
	})
	if !res.Accepted {
		return res, st, nil
	}

	st.LastCheckin = &today
	st.CurrentStreak = res.Streak
	st.TotalPoints += res.PointsDelta
	st.TotalCheckins++
	st.CheckinDates = append(st.CheckinDates, today)
	if err := t.store.Save(ctx, st); err != nil {
		return streak.Result{}, State{}, err
	}
	return res, st, nil
}

// Status reports the stored State with today's derived fields.
func (t *Tracker) Status(ctx context.Context) (Status, error) {
	st, err := t.store.Load(ctx)
	if err != nil {
		return Status{}, err
	}
	today := t.Today()
	return Status{
		State:          st,
		CheckedInToday: !streak.CanCheckinToday(today, st.LastCheckin),
		DaysSober:      streak.DaysSober(st.SobrietyStartDate, today),
		Milestones:     streak.MilestonesFor(st.CurrentStreak, st.TotalCheckins),
	}, nil
}

// Leaderboard ranks the member among peers by streak, then points.
func (t *Tracker) Leaderboard(ctx context.Context, peers []streak.Entry) ([]streak.Entry, error) {
	st, err := t.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]streak.Entry, 0, len(peers)+1)
	entries = append(entries, peers...)
	entries = append(entries, streak.Entry{
		FID:           t.fid,
		Username:      t.name,
		DisplayName:   t.name,
		TotalPoints:   st.TotalPoints,
		TotalCheckins: st.TotalCheckins,
		CurrentStreak: st.CurrentStreak,
		DaysSober:     streak.DaysSober(st.SobrietyStartDate, t.Today()),
		IsCurrentUser: true,
	})
	return streak.Rank(entries, streak.SortByStreak), nil
}

// DemoPeers is the fixed peer list shown when no server is reachable.
func DemoPeers() []streak.Entry {
	peers := []struct {
		name           string
		streak, points int
	}{
		{"SoberWarrior", 127, 1850},
		{"DayByDay", 89, 1340},
		{"StrongMind", 76, 1180},
		{"NewBeginning", 45, 720},
		{"OneStepAhead", 34, 580},
		{"FreshStart", 28, 450},
		{"Determined", 21, 350},
		{"RisingUp", 15, 280},
	}
	out := make([]streak.Entry, 0, len(peers))
	for i, p := range peers {
		out = append(out, streak.Entry{
			FID:           uint64(i + 1),
			Username:      p.name,
			DisplayName:   p.name,
			TotalPoints:   p.points,
			TotalCheckins: p.points / streak.PointsPerCheckin,
			CurrentStreak: p.streak,
		})
	}
	return out
}
