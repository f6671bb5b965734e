// Package tracker is the single-member, offline counterpart of the
// check-in service. It keeps one member's progress in a StateStore and
// scores check-ins with the same streak rules as the server.
package tracker

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/sobercast/sobercast/streak"
)

// State is the persisted progress of one member.
type State struct {
	LastCheckin       *streak.Day  `json:"lastCheckin"`
	CurrentStreak     int          `json:"currentStreak"`
	TotalPoints       int          `json:"totalPoints"`
	TotalCheckins     int          `json:"totalCheckins"`
	CheckinDates      []streak.Day `json:"checkinDates"`
	SobrietyStartDate *streak.Day  `json:"sobrietyStartDate"`
	IsSetupComplete   bool         `json:"isSetupComplete"`
}

// StateStore loads and saves a member's State. Load on an empty store
// returns the zero State.
type StateStore interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, st State) error
}

// FileStore keeps State as a JSON document on disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

func (f *FileStore) Load(_ context.Context) (State, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, errors.Wrapf(err, "read state %s", f.path)
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return State{}, errors.Wrapf(err, "decode state %s", f.path)
	}
	return st, nil
}

// Save writes to a temp file in the same directory and renames it over the
// old state, so readers never see a partial document.
func (f *FileStore) Save(_ context.Context, st State) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode state")
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return errors.Wrap(err, "create temp state")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write temp state")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp state")
	}
	return errors.Wrap(os.Rename(tmp.Name(), f.path), "replace state")
}

// RedisStore keeps each member's State under its own key.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore stores the State of member fid in client.
func NewRedisStore(client *redis.Client, fid uint64) *RedisStore {
	return &RedisStore{client: client, key: RedisKey(fid)}
}

// RedisKey is the key holding fid's State.
func RedisKey(fid uint64) string {
	return "sobercast:tracker:" + strconv.FormatUint(fid, 10)
}

func (r *RedisStore) Load(ctx context.Context) (State, error) {
	b, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, nil
	}
	if err != nil {
		return State{}, errors.Wrapf(err, "get %s", r.key)
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return State{}, errors.Wrapf(err, "decode %s", r.key)
	}
	return st, nil
}

func (r *RedisStore) Save(ctx context.Context, st State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return errors.Wrap(err, "encode state")
	}
	return errors.Wrapf(r.client.Set(ctx, r.key, b, 0).Err(), "set %s", r.key)
}

// MemoryStore holds State in process memory.
type MemoryStore struct {
	mu sync.Mutex
	st State
}

func NewMemoryStore(initial State) *MemoryStore { return &MemoryStore{st: initial} }

func (m *MemoryStore) Load(_ context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.st
	st.CheckinDates = append([]streak.Day(nil), m.st.CheckinDates...)
	return st, nil
}

func (m *MemoryStore) Save(_ context.Context, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st.CheckinDates = append([]streak.Day(nil), st.CheckinDates...)
	m.st = st
	return nil
}
