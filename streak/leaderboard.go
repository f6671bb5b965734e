package streak

import (
	"fmt"
	"sort"
)

// SortKey names the ordering of a leaderboard.
type SortKey string

const (
	// SortByPoints orders by total points, highest first.
	SortByPoints SortKey = "points"
	// SortByStreak orders by current streak, then total points.
	SortByStreak SortKey = "streak"
)

// ParseSortKey validates a configured or requested sort key. The empty
// string selects SortByPoints.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case "", SortByPoints:
		return SortByPoints, nil
	case SortByStreak:
		return SortByStreak, nil
	default:
		return "", fmt.Errorf("unknown leaderboard sort key %q", s)
	}
}

// Entry is one ranked leaderboard row.
type Entry struct {
	Rank          int    `json:"rank"`
	FID           uint64 `json:"fid"`
	Username      string `json:"username"`
	DisplayName   string `json:"displayName"`
	PfpURL        string `json:"pfpUrl,omitempty"`
	TotalPoints   int    `json:"totalPoints"`
	TotalCheckins int    `json:"totalCheckins"`
	CurrentStreak int    `json:"currentStreak"`
	DaysSober     int    `json:"daysSober"`
	IsCurrentUser bool   `json:"isCurrentUser,omitempty"`
}

func less(a, b Entry, key SortKey) bool {
	if key == SortByStreak && a.CurrentStreak != b.CurrentStreak {
		return a.CurrentStreak > b.CurrentStreak
	}
	if a.TotalPoints != b.TotalPoints {
		return a.TotalPoints > b.TotalPoints
	}
	return a.FID < b.FID
}

// Rank sorts entries in place by key and assigns 1-based ranks. Ties fall
// back to fid so the order is reproducible across calls.
func Rank(entries []Entry, key SortKey) []Entry {
	sort.SliceStable(entries, func(i, j int) bool {
		return less(entries[i], entries[j], key)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// DisplayNames applies the public fallbacks: an empty username becomes
// "Anonymous" and an empty display name falls back to the username.
func DisplayNames(username, displayName string) (string, string) {
	if username == "" {
		username = "Anonymous"
	}
	if displayName == "" {
		displayName = username
	}
	return username, displayName
}
