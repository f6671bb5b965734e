package routes

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sobercast/sobercast/config"
	"github.com/sobercast/sobercast/streak"
	"github.com/sobercast/sobercast/utils"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testApp struct {
	t     *testing.T
	r     http.Handler
	clock time.Time
}

func testConfig(t *testing.T) config.AppConfig {
	t.Helper()
	cfg, err := config.LoadFrom("")
	require.NoError(t, err)
	cfg.App.GinMode = "test"
	cfg.App.GinLogPath = ""
	cfg.App.RateLimitPerMinute = 1000
	cfg.Database.Driver = "sqlite"
	cfg.Database.URI = ":memory:"
	cfg.Log.Level = "silent"
	return cfg
}

func newTestApp(t *testing.T, mutate func(*config.AppConfig)) *testApp {
	t.Helper()
	cfg := testConfig(t)
	if mutate != nil {
		mutate(&cfg)
	}

	db, err := config.OpenDatabase(cfg)
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	app := &testApp{t: t, clock: streak.MustParseDay("2024-01-03").Time().Add(9 * time.Hour)}
	metrics := utils.NewMetrics(cfg.App.MetricsEnabled)
	r, err := SetupRouter(Dependencies{
		Config:  cfg,
		DB:      db,
		Cache:   utils.NewCache(1, nil, time.Minute, metrics),
		Metrics: metrics,
		Now:     func() time.Time { return app.clock },
	})
	require.NoError(t, err)
	app.r = r
	return app
}

func (a *testApp) do(method, path string, body interface{}, header http.Header) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(a.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)

	var env envelope
	if bytes.HasPrefix(bytes.TrimSpace(w.Body.Bytes()), []byte("{")) {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, nil)
	code, env := app.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))
}

func TestCheckinFlow(t *testing.T) {
	app := newTestApp(t, nil)

	code, env := app.do(http.MethodPost, "/api/checkin", map[string]interface{}{
		"fid":         101,
		"username":    "alice",
		"displayName": "Alice",
		"pfpUrl":      "https://img.example/alice.png",
	}, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, utils.CodeOK, env.Code)

	var first struct {
		Success      bool `json:"success"`
		PointsEarned int  `json:"pointsEarned"`
		Streak       int  `json:"streak"`
		User         struct {
			FID           uint64 `json:"fid"`
			TotalPoints   int    `json:"total_points"`
			CurrentStreak int    `json:"current_streak"`
			LastCheckin   string `json:"last_checkin_date"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.True(t, first.Success)
	assert.Equal(t, 10, first.PointsEarned)
	assert.Equal(t, 1, first.Streak)
	assert.Equal(t, uint64(101), first.User.FID)
	assert.Equal(t, 10, first.User.TotalPoints)
	assert.Equal(t, "2024-01-03", first.User.LastCheckin)

	code, env = app.do(http.MethodPost, "/api/checkin", map[string]interface{}{"fid": 101}, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, utils.CodeAlreadyCheckedIn, env.Code)
	var again struct {
		AlreadyCheckedIn bool `json:"alreadyCheckedIn"`
		User             struct {
			TotalPoints int `json:"total_points"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &again))
	assert.True(t, again.AlreadyCheckedIn)
	assert.Equal(t, 10, again.User.TotalPoints)

	code, env = app.do(http.MethodGet, "/api/checkin?fid=101", nil, nil)
	require.Equal(t, http.StatusOK, code)
	var status struct {
		User           map[string]interface{} `json:"user"`
		CheckedInToday bool                   `json:"checkedInToday"`
		Milestones     streak.Milestones      `json:"milestones"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.NotNil(t, status.User)
	assert.True(t, status.CheckedInToday)
	require.NotNil(t, status.Milestones.Badge)

	app.clock = app.clock.AddDate(0, 0, 1)
	code, env = app.do(http.MethodPost, "/api/checkin", map[string]interface{}{"fid": 101}, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.Equal(t, 2, first.Streak)
	assert.Equal(t, 20, first.User.TotalPoints)

	code, env = app.do(http.MethodGet, "/api/checkin/history?fid=101", nil, nil)
	require.Equal(t, http.StatusOK, code)
	var hist struct {
		Checkins []string `json:"checkins"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &hist))
	assert.Equal(t, []string{"2024-01-04", "2024-01-03"}, hist.Checkins)
}

func TestCheckin_Validation(t *testing.T) {
	app := newTestApp(t, nil)

	cases := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"missing fid", http.MethodPost, "/api/checkin", map[string]interface{}{"username": "x"}},
		{"malformed json", http.MethodPost, "/api/checkin", `{"fid":`},
		{"bad start date", http.MethodPost, "/api/checkin", map[string]interface{}{"fid": 1, "sobrietyStartDate": "yesterday"}},
		{"future start date", http.MethodPost, "/api/checkin", map[string]interface{}{"fid": 1, "sobrietyStartDate": "2030-01-01"}},
		{"status without fid", http.MethodGet, "/api/checkin", nil},
		{"history with bad fid", http.MethodGet, "/api/checkin/history?fid=abc", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, env := app.do(tc.method, tc.path, tc.body, nil)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, utils.CodeInvalidInput, env.Code)
		})
	}
}

func TestCheckin_UnknownMemberStatus(t *testing.T) {
	app := newTestApp(t, nil)
	code, env := app.do(http.MethodGet, "/api/checkin?fid=5", nil, nil)
	require.Equal(t, http.StatusOK, code)

	var status struct {
		User           map[string]interface{} `json:"user"`
		CheckedInToday bool                   `json:"checkedInToday"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Nil(t, status.User)
	assert.False(t, status.CheckedInToday)
}

func TestCheckin_IdentityToken(t *testing.T) {
	app := newTestApp(t, func(c *config.AppConfig) { c.App.AuthSecret = "topsecret" })
	token, err := utils.GenerateToken("topsecret", 55, time.Hour)
	require.NoError(t, err)
	auth := http.Header{"Authorization": []string{"Bearer " + token}}

	code, env := app.do(http.MethodPost, "/api/checkin", map[string]interface{}{"fid": 55}, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, utils.CodeUnauthorized, env.Code)

	code, env = app.do(http.MethodPost, "/api/checkin", map[string]interface{}{"fid": 56}, auth)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, utils.CodeIdentityMismatch, env.Code)

	code, env = app.do(http.MethodPost, "/api/checkin", map[string]interface{}{"fid": 55}, auth)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, utils.CodeOK, env.Code)

	// public endpoints stay open
	code, _ = app.do(http.MethodGet, "/api/leaderboard", nil, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestLeaderboardAndStats(t *testing.T) {
	app := newTestApp(t, nil)
	for _, fid := range []int{3, 1, 2} {
		code, _ := app.do(http.MethodPost, "/api/checkin", map[string]interface{}{"fid": fid}, nil)
		require.Equal(t, http.StatusOK, code)
	}
	app.clock = app.clock.AddDate(0, 0, 1)
	code, _ := app.do(http.MethodPost, "/api/checkin", map[string]interface{}{"fid": 2, "username": "bee"}, nil)
	require.Equal(t, http.StatusOK, code)

	code, env := app.do(http.MethodGet, "/api/leaderboard", nil, nil)
	require.Equal(t, http.StatusOK, code)
	var board struct {
		Leaderboard []streak.Entry `json:"leaderboard"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &board))
	require.Len(t, board.Leaderboard, 3)
	assert.Equal(t, uint64(2), board.Leaderboard[0].FID)
	assert.Equal(t, "bee", board.Leaderboard[0].DisplayName)
	assert.Equal(t, 20, board.Leaderboard[0].TotalPoints)
	assert.Equal(t, uint64(1), board.Leaderboard[1].FID)
	assert.Equal(t, uint64(3), board.Leaderboard[2].FID)
	assert.Equal(t, "Anonymous", board.Leaderboard[2].Username)

	code, env = app.do(http.MethodGet, "/api/stats", nil, nil)
	require.Equal(t, http.StatusOK, code)
	var stats map[string]int
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 3, stats["members"])
	assert.Equal(t, 4, stats["totalCheckins"])
	assert.Equal(t, 1, stats["checkinsToday"])
	assert.Equal(t, 40, stats["totalPoints"])
}

func TestConfigWebhookAndMetrics(t *testing.T) {
	app := newTestApp(t, nil)

	code, env := app.do(http.MethodGet, "/api/config/app", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{
		"pointsPerCheckin": 10,
		"leaderboard": {"limit": 50, "sortKey": "points"},
		"timezone": "UTC",
		"authRequired": false
	}`, string(env.Data))

	code, env = app.do(http.MethodPost, "/api/webhook", map[string]interface{}{"event": "frame_added"}, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"success": true, "message": "Webhook received"}`, string(env.Data))

	code, env = app.do(http.MethodPost, "/api/webhook", "not json", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, utils.CodeInvalidPayload, env.Code)

	code, env = app.do(http.MethodGet, "/api/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, utils.CodeNotFound, env.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	app.r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `sobercast_requests_total{endpoint="/api/webhook",status="2xx"} 1`)
}
