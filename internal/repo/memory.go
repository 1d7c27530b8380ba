package repo

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/Alijeyrad/carevisit_backend/internal/model"
)

// Memory keeps one facility in process. It answers the same schedule queries
// as Store and backs demo sessions that have no database.
type Memory struct {
	mu        sync.RWMutex
	facility  model.Facility
	staff     map[string]model.Staff
	clients   map[string]model.Client
	types     map[string]model.ServiceType
	schedules map[string]model.Schedule
}

func NewMemory(data FacilityData) *Memory {
	m := &Memory{}
	m.load(data)
	return m
}

func (m *Memory) load(data FacilityData) {
	m.facility = data.Facility
	// rows without a facility belong to the held one
	staff := lo.Map(data.Staff, func(s model.Staff, _ int) model.Staff {
		s.FacilityID = cmp.Or(s.FacilityID, data.Facility.ID)
		return s
	})
	clients := lo.Map(data.Clients, func(c model.Client, _ int) model.Client {
		c.FacilityID = cmp.Or(c.FacilityID, data.Facility.ID)
		return c
	})
	m.staff = lo.KeyBy(staff, func(s model.Staff) string { return s.ID })
	m.clients = lo.KeyBy(clients, func(c model.Client) string { return c.ID })
	m.types = lo.KeyBy(data.ServiceTypes, func(t model.ServiceType) string { return t.ID })
	m.schedules = make(map[string]model.Schedule, len(data.Schedules))
	for _, sc := range data.Schedules {
		m.schedules[sc.ID] = m.decorate(sc)
	}
}

// ReplaceFacility swaps the held facility for data.
func (m *Memory) ReplaceFacility(_ context.Context, data FacilityData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.load(data)
	return nil
}

// decorate fills the joined display fields the way the SQL read does.
func (m *Memory) decorate(sc model.Schedule) model.Schedule {
	sc.ClientName = m.clients[sc.ClientID].Name
	sc.StaffName = m.staff[sc.StaffID].Name
	if sc.ServiceType != nil {
		if t, ok := m.types[sc.ServiceType.ID]; ok {
			sc.ServiceType = lo.ToPtr(t)
		} else {
			sc.ServiceType = nil
		}
	}
	return sc
}

// checkRefs accepts only clients and staff of the held facility.
func (m *Memory) checkRefs(clientID, staffID string, typeID *string) error {
	if c, ok := m.clients[clientID]; !ok || !m.owns(c.FacilityID) {
		return ErrInvalidReference
	}
	if st, ok := m.staff[staffID]; !ok || !m.owns(st.FacilityID) {
		return ErrInvalidReference
	}
	if typeID != nil && *typeID != "" {
		if _, ok := m.types[*typeID]; !ok {
			return ErrInvalidReference
		}
	}
	return nil
}

func (m *Memory) owns(facilityID string) bool {
	return facilityID == m.facility.ID
}

func (m *Memory) collect(keep func(model.Schedule) bool) []model.Schedule {
	out := []model.Schedule{}
	for _, sc := range m.schedules {
		if keep(sc) {
			out = append(out, sc)
		}
	}
	slices.SortFunc(out, func(a, b model.Schedule) int {
		return cmp.Or(a.StartTime.Compare(b.StartTime), cmp.Compare(a.ID, b.ID))
	})
	return out
}

func (m *Memory) ListByRange(_ context.Context, facilityID string, from, to time.Time) ([]model.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.owns(facilityID) {
		return []model.Schedule{}, nil
	}
	return m.collect(func(sc model.Schedule) bool {
		return !sc.StartTime.Before(from) && sc.StartTime.Before(to)
	}), nil
}

func (m *Memory) ListByRecurrence(_ context.Context, facilityID, recurrenceID string) ([]model.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.owns(facilityID) {
		return []model.Schedule{}, nil
	}
	return m.collect(func(sc model.Schedule) bool {
		return sc.IsRecurring() && *sc.RecurrenceID == recurrenceID
	}), nil
}

func (m *Memory) GetSchedule(_ context.Context, facilityID, id string) (model.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sc, ok := m.schedules[id]
	if !ok || !m.owns(facilityID) {
		return model.Schedule{}, ErrNotFound
	}
	return sc, nil
}

func (m *Memory) InsertSchedules(_ context.Context, rows []model.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sc := range rows {
		var typeID *string
		if sc.ServiceType != nil {
			typeID = &sc.ServiceType.ID
		}
		if !m.owns(sc.FacilityID) {
			return ErrInvalidReference
		}
		if err := m.checkRefs(sc.ClientID, sc.StaffID, typeID); err != nil {
			return err
		}
	}
	for _, sc := range rows {
		m.schedules[sc.ID] = m.decorate(sc)
	}
	return nil
}

func (m *Memory) UpdateSchedule(_ context.Context, facilityID, id string, u ScheduleUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.schedules[id]
	if !ok || !m.owns(facilityID) {
		return ErrNotFound
	}
	if err := m.checkRefs(u.ClientID, u.StaffID, u.ServiceTypeID); err != nil {
		return err
	}

	sc.StartTime = u.StartTime.UTC()
	sc.EndTime = u.EndTime.UTC()
	sc.ClientID = u.ClientID
	sc.StaffID = u.StaffID
	sc.Notes = u.Notes
	sc.UpdatedAt = u.UpdatedAt.UTC()
	sc.ServiceType = nil
	if u.ServiceTypeID != nil && *u.ServiceTypeID != "" {
		sc.ServiceType = &model.ServiceType{ID: *u.ServiceTypeID}
	}
	if u.DetachRecurrence {
		sc.RecurrenceID = nil
	}
	m.schedules[id] = m.decorate(sc)
	return nil
}

func (m *Memory) DeleteSchedule(_ context.Context, facilityID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[id]; !ok || !m.owns(facilityID) {
		return ErrNotFound
	}
	delete(m.schedules, id)
	return nil
}

func (m *Memory) DeleteSeries(_ context.Context, facilityID, recurrenceID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.owns(facilityID) {
		return 0, nil
	}
	var n int64
	for id, sc := range m.schedules {
		if sc.IsRecurring() && *sc.RecurrenceID == recurrenceID {
			delete(m.schedules, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) FacilityTimezone(_ context.Context, facilityID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.owns(facilityID) {
		return "", ErrNotFound
	}
	return cmp.Or(m.facility.Timezone, "UTC"), nil
}

func (m *Memory) ListServiceTypes(_ context.Context, facilityID string) ([]model.ServiceType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.owns(facilityID) {
		return []model.ServiceType{}, nil
	}
	out := lo.Values(m.types)
	slices.SortFunc(out, func(a, b model.ServiceType) int {
		return cmp.Or(cmp.Compare(a.Category, b.Category), cmp.Compare(a.Name, b.Name))
	})
	return out, nil
}

// StaffByID mirrors Store.StaffByID.
func (m *Memory) StaffByID(_ context.Context, id string) (model.Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.staff[id]
	if !ok {
		return model.Staff{}, ErrNotFound
	}
	return st, nil
}
