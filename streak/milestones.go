package streak

// Badge is a display label earned by streak or check-in count.
type Badge struct {
	Text    string `json:"text"`
	Variant string `json:"variant"`
}

const (
	VariantDefault   = "default"
	VariantSecondary = "secondary"
	VariantOutline   = "outline"
)

type threshold struct {
	days  int
	badge Badge
}

// Descending so the first match wins.
var streakBadges = []threshold{
	{1825, Badge{"5+ Year Legend", VariantDefault}},
	{1460, Badge{"4 Year Master", VariantDefault}},
	{1095, Badge{"3 Year Warrior", VariantDefault}},
	{730, Badge{"2 Year Champion", VariantDefault}},
	{365, Badge{"1 Year Champion", VariantDefault}},
	{180, Badge{"6 Months Strong", VariantDefault}},
	{90, Badge{"90 Days Strong", VariantDefault}},
	{60, Badge{"2 Months", VariantSecondary}},
	{30, Badge{"One Month", VariantSecondary}},
	{15, Badge{"Two Weeks", VariantSecondary}},
	{7, Badge{"One Week", VariantSecondary}},
	{3, Badge{"3 Days Strong", VariantOutline}},
	{1, Badge{"Getting Started", VariantOutline}},
}

// BadgeFor returns the highest streak badge reached, or nil at streak 0.
func BadgeFor(streak int) *Badge {
	for _, t := range streakBadges {
		if streak >= t.days {
			b := t.badge
			return &b
		}
	}
	return nil
}

// Level describes progress through the streak levels.
type Level struct {
	Level      int    `json:"level"`
	Title      string `json:"title"`
	NextLevel  int    `json:"nextLevel,omitempty"`
	DaysToNext int    `json:"daysToNext"`
}

var levels = []struct {
	from  int
	title string
}{
	{0, "Beginning"},
	{7, "Starter"},
	{30, "Rising"},
	{60, "Steady"},
	{90, "Committed"},
	{180, "Strong"},
	{365, "Hero"},
	{730, "Warrior"},
	{1095, "Champion"},
	{1460, "Legendary"},
	{1825, "Sobriety Master"},
}

// LevelFor maps a streak to its level. The top level has no next level.
func LevelFor(streak int) Level {
	idx := 0
	for i, l := range levels {
		if streak >= l.from {
			idx = i
		}
	}
	lv := Level{Level: idx, Title: levels[idx].title}
	if idx+1 < len(levels) {
		lv.NextLevel = idx + 1
		lv.DaysToNext = levels[idx+1].from - streak
	}
	return lv
}

// AchievementsFor lists every badge earned for the given streak and total
// check-ins, streak badge first.
func AchievementsFor(streak, totalCheckins int) []Badge {
	out := make([]Badge, 0, 8)
	if b := BadgeFor(streak); b != nil {
		out = append(out, *b)
	}

	for _, m := range []struct {
		days int
		text string
	}{
		{100, "Century Club"},
		{500, "500 Day Hero"},
		{1000, "1000 Day Legend"},
		{1500, "1500 Day Master"},
	} {
		if streak >= m.days {
			out = append(out, Badge{m.text, VariantDefault})
		}
	}

	for _, m := range []struct {
		count int
		text  string
	}{
		{10, "Consistent"},
		{50, "Dedicated"},
		{100, "Committed"},
	} {
		if totalCheckins >= m.count {
			out = append(out, Badge{m.text, VariantSecondary})
		}
	}

	if streak >= 365 && totalCheckins >= 300 {
		out = append(out, Badge{"Year of Commitment", VariantDefault})
	}
	return out
}

var motivationalMessages = []string{
	"Every day is a victory! Keep going strong.",
	"You're building something amazing, one day at a time.",
	"Your strength inspires others. Well done!",
	"Progress, not perfection. You're doing great!",
	"Each day sober is a day closer to your goals.",
	"You're proving to yourself that you can do this!",
	"Consistency is key, and you're nailing it!",
	"Your future self will thank you for today's choice.",
}

// MotivationalMessage rotates through the encouragement messages by streak.
func MotivationalMessage(streak int) string {
	if streak <= 0 {
		return "Welcome! Today is the first day of your journey."
	}
	return motivationalMessages[streak%len(motivationalMessages)]
}

// Milestones bundles the derived progress indicators for a streak.
type Milestones struct {
	Badge        *Badge  `json:"badge"`
	Level        Level   `json:"level"`
	Achievements []Badge `json:"achievements"`
	Message      string  `json:"message"`
}

// MilestonesFor computes all progress indicators at once.
func MilestonesFor(streak, totalCheckins int) Milestones {
	return Milestones{
		Badge:        BadgeFor(streak),
		Level:        LevelFor(streak),
		Achievements: AchievementsFor(streak, totalCheckins),
		Message:      MotivationalMessage(streak),
	}
}
