package schedule

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Alijeyrad/carevisit_backend/internal/model"
	"github.com/Alijeyrad/carevisit_backend/internal/repo"
)

type rangeCall struct {
	facilityID string
	from, to   time.Time
}

type fakeStore struct {
	mu sync.Mutex

	tz       string
	tzErr    error
	entries  []model.Schedule
	listErr  error
	inserted [][]model.Schedule
	insErr   error
	updates  map[string]repo.ScheduleUpdate
	deleted  []string
	series   map[string][]model.Schedule
	types    []model.ServiceType
	ranges   []rangeCall
}

func newFakeStore() *fakeStore {
	return &fakeStore{tz: "UTC", updates: map[string]repo.ScheduleUpdate{}, series: map[string][]model.Schedule{}}
}

func (f *fakeStore) ListByRange(_ context.Context, facilityID string, from, to time.Time) ([]model.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ranges = append(f.ranges, rangeCall{facilityID, from, to})
	return f.entries, f.listErr
}

func (f *fakeStore) ListByRecurrence(_ context.Context, _, rid string) ([]model.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.series[rid], nil
}

func (f *fakeStore) GetSchedule(_ context.Context, _, id string) (model.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return model.Schedule{}, repo.ErrNotFound
}

func (f *fakeStore) InsertSchedules(_ context.Context, rows []model.Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insErr != nil {
		return f.insErr
	}
	f.inserted = append(f.inserted, rows)
	return nil
}

func (f *fakeStore) UpdateSchedule(_ context.Context, _, id string, u repo.ScheduleUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == "missing" {
		return repo.ErrNotFound
	}
	f.updates[id] = u
	return nil
}

func (f *fakeStore) DeleteSchedule(_ context.Context, _, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == "missing" {
		return repo.ErrNotFound
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore) DeleteSeries(_ context.Context, _, rid string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.series[rid]))
	delete(f.series, rid)
	return n, nil
}

func (f *fakeStore) FacilityTimezone(context.Context, string) (string, error) {
	return f.tz, f.tzErr
}

func (f *fakeStore) ListServiceTypes(context.Context, string) ([]model.ServiceType, error) {
	return f.types, nil
}

// memCache is an in-memory RangeCache storing values without encoding.
type memCache struct {
	mu     sync.Mutex
	gens   map[string]int64
	values map[string]any
	sets   int
}

func newMemCache() *memCache {
	return &memCache{gens: map[string]int64{}, values: map[string]any{}}
}

func (c *memCache) Key(ns string, gen int64, parts ...string) string {
	key := ns + ":" + strconv.FormatInt(gen, 10)
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

func (c *memCache) Generation(_ context.Context, ns string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[ns], nil
}

func (c *memCache) Bump(_ context.Context, ns string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[ns]++
	return c.gens[ns], nil
}

func (c *memCache) Get(_ context.Context, key string, v any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.values[key]
	if !ok {
		return false, nil
	}
	*(v.(*[]model.Schedule)) = val.([]model.Schedule)
	return true, nil
}

func (c *memCache) Set(_ context.Context, key string, v any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = v
	c.sets++
	return nil
}

type fakeNotifier struct {
	calls []model.Signal
}

func (n *fakeNotifier) Notify(_ context.Context, scope model.Scope, id string, action model.Action) error {
	n.calls = append(n.calls, model.Signal{ID: id, Action: action, FacilityID: scope.FacilityID, StaffID: scope.StaffID})
	return nil
}
