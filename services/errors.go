package services

import "github.com/cockroachdb/errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("resource not found")
	ErrAlreadyCheckedIn = errors.New("already checked in today")
)

// Cache key prefixes. Every accepted check-in invalidates both.
const (
	LeaderboardCachePrefix = "sobercast:leaderboard:"
	StatsCachePrefix       = "sobercast:stats:"
)
