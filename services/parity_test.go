package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sobercast/sobercast/streak"
	"github.com/sobercast/sobercast/tracker"
)

// The server and the offline tracker share one evaluator; the same
// sequence of check-in days must yield the same streaks on both.
func TestServerAndTrackerAgree(t *testing.T) {
	steps := []int{0, 1, 1, 3, 1, 1, 1, 5, 1}

	run := func(t *testing.T, start string) {
		clock := clockAt("2024-01-10")
		svc, _ := newCheckinService(t, clock)
		tr := tracker.New(tracker.NewMemoryStore(tracker.State{}), time.UTC).WithClock(clock.now)
		ctx := context.Background()

		in := RecordInput{FID: 1, SobrietyStartDate: start}
		if start != "" {
			_, err := tr.StartFrom(ctx, streak.MustParseDay(start))
			require.NoError(t, err)
		}

		for _, step := range steps {
			clock.advance(step)
			server, err := svc.Record(ctx, in)
			require.NoError(t, err)
			local, _, err := tr.Checkin(ctx)
			require.NoError(t, err)
			assert.Equal(t, server.Result, local, "day %s", streak.DayOf(clock.now(), time.UTC))
		}
	}

	t.Run("history", func(t *testing.T) { run(t, "") })
	t.Run("declared start", func(t *testing.T) { run(t, "2024-01-01") })
}
