// streakctl tracks one member's sobriety check-ins without a server.
//
// State is kept in a JSON file (default) or, with --redis, in Redis under
// the member's fid. Streaks and points follow the same rules as the
// check-in API.
//
// The token command issues the bearer tokens the API requires on
// /api/checkin when app.authSecret is set.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/sobercast/sobercast/config"
	"github.com/sobercast/sobercast/streak"
	"github.com/sobercast/sobercast/tracker"
	"github.com/sobercast/sobercast/utils"
)

const usage = `Usage: streakctl [flags] <command>

Commands:
  setup [--start YYYY-MM-DD]   begin tracking today, or from a past start date
  checkin                      record today's check-in
  status                       show streak, points and milestones
  leaderboard                  rank yourself against the demo peers
  token --fid N                print an API identity token for fid N

Flags:
`

type options struct {
	statePath  string
	redisAddr  string
	configPath string
	fid        uint64
	name       string
	timezone   string
	start      string
	secret     string
	tokenTTL   time.Duration
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, time.Now); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer, now func() time.Time) error {
	var opts options
	flagSet := pflag.NewFlagSet("streakctl", pflag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.StringVar(&opts.statePath, "state", defaultStatePath(), "path to the local state file")
	flagSet.StringVar(&opts.redisAddr, "redis", "", "keep state in Redis at host:port instead of a file")
	flagSet.StringVar(&opts.configPath, "config", "", "read timezone and Redis settings from this config file")
	flagSet.Uint64Var(&opts.fid, "fid", 0, "member fid (required with Redis)")
	flagSet.StringVar(&opts.name, "name", "", "name shown on the leaderboard (default \"You\")")
	flagSet.StringVar(&opts.timezone, "tz", "", "timezone used to decide the current day (default UTC)")
	flagSet.StringVar(&opts.start, "start", "", "sobriety start date for setup, YYYY-MM-DD")
	flagSet.StringVar(&opts.secret, "secret", "", "signing secret for token (default app.authSecret from --config)")
	flagSet.DurationVar(&opts.tokenTTL, "ttl", 24*time.Hour, "lifetime of an issued token")
	flagSet.Usage = func() {
		fmt.Fprint(out, usage)
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 1 {
		flagSet.Usage()
		return errors.New("expected exactly one command")
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if flagSet.Arg(0) == "token" {
		return issueToken(out, opts, cfg)
	}

	tr, closeFn, err := newTracker(opts, cfg, now)
	if err != nil {
		return err
	}
	defer closeFn()

	switch cmd := flagSet.Arg(0); cmd {
	case "setup":
		var st tracker.State
		if opts.start == "" {
			st, err = tr.StartToday(ctx)
		} else {
			var start streak.Day
			if start, err = streak.ParseDay(opts.start); err != nil {
				return err
			}
			st, err = tr.StartFrom(ctx, start)
		}
		if err != nil {
			return err
		}
		return printJSON(out, st)

	case "checkin":
		res, st, err := tr.Checkin(ctx)
		if err != nil {
			return err
		}
		if res.AlreadyCheckedIn {
			fmt.Fprintln(out, "Already checked in today.")
		} else {
			fmt.Fprintf(out, "Checked in! +%d points, streak %d. %s\n",
				res.PointsDelta, res.Streak, streak.MotivationalMessage(res.Streak))
		}
		return printJSON(out, st)

	case "status":
		st, err := tr.Status(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, st)

	case "leaderboard":
		board, err := tr.Leaderboard(ctx, tracker.DemoPeers())
		if err != nil {
			return err
		}
		for _, e := range board {
			marker := " "
			if e.IsCurrentUser {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %2d. %-14s streak %4d  points %5d\n",
				marker, e.Rank, e.DisplayName, e.CurrentStreak, e.TotalPoints)
		}
		return nil

	default:
		flagSet.Usage()
		return errors.Newf("unknown command %q", cmd)
	}
}

func loadConfig(path string) (config.AppConfig, error) {
	if path == "" {
		return config.AppConfig{}, nil
	}
	return config.LoadFrom(path)
}

func issueToken(out io.Writer, opts options, cfg config.AppConfig) error {
	if opts.fid == 0 {
		return errors.New("--fid is required for token")
	}
	secret := opts.secret
	if secret == "" {
		secret = cfg.App.AuthSecret
	}
	if secret == "" {
		return errors.New("no signing secret: pass --secret or a config with app.authSecret")
	}
	if opts.tokenTTL <= 0 {
		return errors.Newf("invalid --ttl %s", opts.tokenTTL)
	}
	tok, err := utils.GenerateToken(secret, opts.fid, opts.tokenTTL)
	if err != nil {
		return errors.Wrap(err, "sign token")
	}
	_, err = fmt.Fprintln(out, tok)
	return err
}

func newTracker(opts options, cfg config.AppConfig, now func() time.Time) (*tracker.Tracker, func(), error) {
	loc := time.UTC
	tz := opts.timezone
	if tz == "" {
		tz = cfg.App.Timezone
	}
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "timezone %q", tz)
		}
		loc = l
	}

	var (
		store   tracker.StateStore
		closeFn = func() {}
	)
	switch {
	case opts.redisAddr != "" || cfg.Redis.Host != "":
		if opts.fid == 0 {
			return nil, nil, errors.New("--fid is required with Redis")
		}
		var rc *redis.Client
		if opts.redisAddr != "" {
			rc = redis.NewClient(&redis.Options{Addr: opts.redisAddr})
		} else {
			rc = utils.NewRedis(cfg.Redis)
		}
		store = tracker.NewRedisStore(rc, opts.fid)
		closeFn = func() { _ = rc.Close() }
	default:
		store = tracker.NewFileStore(opts.statePath)
	}

	tr := tracker.New(store, loc).WithIdentity(opts.fid, opts.name)
	if now != nil {
		tr.WithClock(now)
	}
	return tr, closeFn, nil
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "sobriety-tracker-data.json"
	}
	return filepath.Join(home, ".sobercast", "sobriety-tracker-data.json")
}

func printJSON(out io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}
