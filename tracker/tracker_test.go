package tracker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sobercast/sobercast/streak"
)

type countingStore struct {
	StateStore
	saves int
}

func (c *countingStore) Save(ctx context.Context, st State) error {
	c.saves++
	return c.StateStore.Save(ctx, st)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(days int) { c.t = c.t.AddDate(0, 0, days) }

func newTracker(day string) (*Tracker, *countingStore, *clock) {
	c := &clock{t: streak.MustParseDay(day).Time().Add(8 * time.Hour)}
	store := &countingStore{StateStore: NewMemoryStore(State{})}
	return New(store, time.UTC).WithClock(c.now), store, c
}

func TestCheckin_HistoryMode(t *testing.T) {
	tr, _, c := newTracker("2024-01-01")
	ctx := context.Background()

	var got []int
	for _, step := range []int{0, 1, 1, 2} {
		c.advance(step)
		res, _, err := tr.Checkin(ctx)
		require.NoError(t, err)
		require.True(t, res.Accepted)
		got = append(got, res.Streak)
	}
	assert.Equal(t, []int{1, 2, 3, 1}, got)

	st, err := tr.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, st.TotalPoints)
	assert.Equal(t, 4, st.TotalCheckins)
	assert.Len(t, st.CheckinDates, 4)
	assert.True(t, st.CheckedInToday)
	assert.False(t, st.IsSetupComplete)
}

func TestCheckin_SameDayDoesNotSave(t *testing.T) {
	tr, store, _ := newTracker("2024-01-03")
	ctx := context.Background()

	_, first, err := tr.Checkin(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, store.saves)

	res, second, err := tr.Checkin(ctx)
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.True(t, res.AlreadyCheckedIn)
	assert.Zero(t, res.PointsDelta)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.saves)
}

func TestStartToday(t *testing.T) {
	tr, _, c := newTracker("2024-02-01")
	ctx := context.Background()

	st, err := tr.StartToday(ctx)
	require.NoError(t, err)
	assert.True(t, st.IsSetupComplete)
	assert.Equal(t, "2024-02-01", st.SobrietyStartDate.String())
	assert.Zero(t, st.CurrentStreak)

	res, _, err := tr.Checkin(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak)

	// a declared start keeps counting across missed days
	c.advance(3)
	res, st, err = tr.Checkin(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Streak)
	assert.Equal(t, 20, st.TotalPoints)
}

func TestStartFrom(t *testing.T) {
	tr, _, _ := newTracker("2024-01-11")
	ctx := context.Background()

	st, err := tr.StartFrom(ctx, streak.MustParseDay("2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, 10, st.CurrentStreak)
	assert.Equal(t, 100, st.TotalPoints)

	res, st, err := tr.Checkin(ctx)
	require.NoError(t, err)
	assert.Equal(t, 11, res.Streak)
	assert.Equal(t, 110, st.TotalPoints)

	_, err = tr.StartFrom(ctx, streak.MustParseDay("2024-01-12"))
	assert.True(t, errors.Is(err, ErrFutureStart))
}

func TestLeaderboard_RanksByStreak(t *testing.T) {
	tr, _, _ := newTracker("2024-01-11")
	tr.WithIdentity(900, "")
	ctx := context.Background()

	_, err := tr.StartFrom(ctx, streak.MustParseDay("2023-11-22"))
	require.NoError(t, err)

	board, err := tr.Leaderboard(ctx, DemoPeers())
	require.NoError(t, err)
	require.Len(t, board, 9)

	for i := 1; i < len(board); i++ {
		assert.GreaterOrEqual(t, board[i-1].CurrentStreak, board[i].CurrentStreak)
		assert.Equal(t, i+1, board[i].Rank)
	}

	var me streak.Entry
	for _, e := range board {
		if e.IsCurrentUser {
			me = e
		}
	}
	assert.Equal(t, "You", me.Username)
	assert.Equal(t, 50, me.CurrentStreak)
	assert.Equal(t, 4, me.Rank)
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	store := NewFileStore(path)

	st, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, State{}, st)

	day := streak.MustParseDay("2024-03-01")
	want := State{
		LastCheckin:       &day,
		CurrentStreak:     2,
		TotalPoints:       20,
		TotalCheckins:     2,
		CheckinDates:      []streak.Day{streak.MustParseDay("2024-02-29"), day},
		SobrietyStartDate: &day,
		IsSetupComplete:   true,
	}
	require.NoError(t, store.Save(ctx, want))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"lastCheckin": "2024-03-01"`)

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err = store.Load(ctx)
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	ctx := context.Background()

	store := NewRedisStore(rc, 42)
	st, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, State{}, st)

	tr := New(store, time.UTC).WithClock(func() time.Time {
		return streak.MustParseDay("2024-05-05").Time()
	})
	_, _, err = tr.Checkin(ctx)
	require.NoError(t, err)

	assert.True(t, mr.Exists("sobercast:tracker:42"))
	loaded, err := NewRedisStore(rc, 42).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.CurrentStreak)
	assert.Equal(t, "2024-05-05", loaded.LastCheckin.String())
}
