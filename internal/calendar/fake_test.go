package calendar

import (
	"context"
	"sync"

	"github.com/Alijeyrad/carevisit_backend/internal/model"
)

type fetchCall struct {
	FacilityID string
	Start      string
	End        string
}

type notifyCall struct {
	ID     string
	Action model.Action
}

// fakeBackend records every call. A fetch whose start date has a gate blocks
// until the gate is closed and reports on started first.
type fakeBackend struct {
	mu sync.Mutex

	fetches  []fetchCall
	entries  map[string][]model.Schedule
	fetchErr error
	gates    map[string]chan struct{}
	started  chan string

	created   model.Created
	createErr error
	updateErr error
	deleteErr error
	series    []model.Schedule
	notifies  []notifyCall
	notifyErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		entries: map[string][]model.Schedule{},
		gates:   map[string]chan struct{}{},
		started: make(chan string, 16),
	}
}

func (f *fakeBackend) FetchSchedulesByRange(ctx context.Context, facilityID, start, end string) ([]model.Schedule, error) {
	f.mu.Lock()
	f.fetches = append(f.fetches, fetchCall{FacilityID: facilityID, Start: start, End: end})
	gate := f.gates[start]
	f.mu.Unlock()

	if gate != nil {
		f.started <- start
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.entries[start], nil
}

func (f *fakeBackend) CreateSchedule(ctx context.Context, in model.ScheduleInput) (model.Created, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created, f.createErr
}

func (f *fakeBackend) UpdateSchedule(ctx context.Context, id string, in model.ScheduleInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updateErr
}

func (f *fakeBackend) DeleteSchedule(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteErr
}

func (f *fakeBackend) GetSchedulesByRecurrenceID(ctx context.Context, recurrenceID string) ([]model.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.series, nil
}

func (f *fakeBackend) NotifyUpdate(ctx context.Context, id string, action model.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifies = append(f.notifies, notifyCall{ID: id, Action: action})
	return f.notifyErr
}

func (f *fakeBackend) setEntries(start string, entries []model.Schedule) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[start] = entries
}

func (f *fakeBackend) gate(start string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[start] = ch
	return ch
}

func (f *fakeBackend) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetches)
}

func (f *fakeBackend) notified() []notifyCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notifyCall(nil), f.notifies...)
}

type fakeSubscriber struct {
	mu           sync.Mutex
	facilityID   string
	staffID      string
	handler      func(model.Signal)
	unsubscribed int
	err          error
}

func (s *fakeSubscriber) Subscribe(facilityID, staffID string, onUpdate func(model.Signal)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.facilityID = facilityID
	s.staffID = staffID
	s.handler = onUpdate
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.unsubscribed++
	}, nil
}

func (s *fakeSubscriber) deliver(sig model.Signal) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	h(sig)
}
