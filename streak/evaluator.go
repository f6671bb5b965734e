// Package streak holds the check-in rules shared by the server and the
// offline tracker: one scored check-in per calendar day, a consecutive-day
// streak, and a fixed point award.
package streak

import "sort"

// PointsPerCheckin is awarded for every accepted check-in. There is no
// streak bonus or scaling.
const PointsPerCheckin = 10

// Mode selects how a member's streak is derived. It is fixed at onboarding.
type Mode string

const (
	// ModeHistory counts consecutive recorded check-ins and breaks on a gap.
	ModeHistory Mode = "history"
	// ModeDeclaredStart counts calendar days since the declared start date
	// and never breaks on missed days.
	ModeDeclaredStart Mode = "declared_start"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeHistory || m == ModeDeclaredStart
}

// Input is everything the evaluator needs for one check-in attempt.
// SobrietyStart is nil (or the zero Day) for history-mode members.
type Input struct {
	Today         Day
	LastCheckin   *Day
	History       []Day
	SobrietyStart *Day
}

// Result is the outcome of a check-in attempt.
type Result struct {
	Accepted         bool `json:"accepted"`
	AlreadyCheckedIn bool `json:"alreadyCheckedIn"`
	Streak           int  `json:"streak"`
	PointsDelta      int  `json:"pointsDelta"`
}

// CanCheckinToday is false only when the last check-in is today. Callers
// must not pass a today earlier than any recorded check-in.
func CanCheckinToday(today Day, last *Day) bool {
	return last == nil || !last.Equal(today)
}

// AwardCheckin returns the points for one accepted check-in.
func AwardCheckin() int {
	return PointsPerCheckin
}

// ComputeStreak returns the streak after recording newDate. With a declared
// start the streak is elapsed days since start plus the day being recorded;
// otherwise it is the run of consecutive days ending at newDate.
func ComputeStreak(today Day, history []Day, newDate Day, start *Day) int {
	if hasStart(start) {
		return max(today.DaysSince(*start), 0) + 1
	}

	days := make([]Day, 0, len(history)+1)
	days = append(days, history...)
	days = append(days, newDate)
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	streak := 0
	expected := newDate
	for i, d := range days {
		if d.After(newDate) {
			continue
		}
		if i > 0 && d.Equal(days[i-1]) {
			continue
		}
		if !d.Equal(expected) {
			break
		}
		streak++
		expected = expected.AddDays(-1)
	}
	return streak
}

// Evaluate decides whether the attempt is accepted and, if so, the new
// streak and points delta. A rejected attempt reports the zero streak and
// no points; the caller keeps its stored values.
func Evaluate(in Input) Result {
	if !CanCheckinToday(in.Today, in.LastCheckin) {
		return Result{AlreadyCheckedIn: true}
	}
	return Result{
		Accepted:    true,
		Streak:      ComputeStreak(in.Today, in.History, in.Today, in.SobrietyStart),
		PointsDelta: AwardCheckin(),
	}
}

// DaysSober is the whole number of days since start, or 0 without a start
// date or when start lies in the future.
func DaysSober(start *Day, today Day) int {
	if !hasStart(start) {
		return 0
	}
	return max(today.DaysSince(*start), 0)
}

// hasStart treats a zero Day like nil; an empty JSON date decodes to one.
func hasStart(start *Day) bool {
	return start != nil && !start.IsZero()
}
