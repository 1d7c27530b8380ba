package repo

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/Alijeyrad/carevisit_backend/internal/model"
)

// StaffByID returns a staff member regardless of facility. Scope resolution
// starts from here.
func (s *Store) StaffByID(ctx context.Context, id string) (model.Staff, error) {
	sel := s.b.Select("id", "facility_id", "name", "role", "active").
		From(s.b.Table(tableStaff)).
		Where(entsql.EQ("id", id)).
		Limit(1)

	var (
		out   model.Staff
		found bool
	)
	err := queryQ(ctx, s.drv, sel, func(rows *entsql.Rows) error {
		found = true
		return rows.Scan(&out.ID, &out.FacilityID, &out.Name, &out.Role, &out.Active)
	})
	if err != nil {
		return model.Staff{}, fmt.Errorf("get staff: %w", err)
	}
	if !found {
		return model.Staff{}, ErrNotFound
	}
	return out, nil
}

// ListStaff returns the active staff of a facility.
func (s *Store) ListStaff(ctx context.Context, facilityID string) ([]model.Staff, error) {
	sel := s.b.Select("id", "facility_id", "name", "role", "active").
		From(s.b.Table(tableStaff)).
		Where(entsql.And(entsql.EQ("facility_id", facilityID), entsql.EQ("active", true))).
		OrderBy("name")

	out := []model.Staff{}
	err := queryQ(ctx, s.drv, sel, func(rows *entsql.Rows) error {
		var st model.Staff
		if err := rows.Scan(&st.ID, &st.FacilityID, &st.Name, &st.Role, &st.Active); err != nil {
			return err
		}
		out = append(out, st)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return out, nil
}

// FacilityTimezone returns the IANA zone the facility plans its days in.
func (s *Store) FacilityTimezone(ctx context.Context, facilityID string) (string, error) {
	sel := s.b.Select("timezone").
		From(s.b.Table(tableFacilities)).
		Where(entsql.EQ("id", facilityID)).
		Limit(1)

	var (
		tz    string
		found bool
	)
	err := queryQ(ctx, s.drv, sel, func(rows *entsql.Rows) error {
		found = true
		return rows.Scan(&tz)
	})
	if err != nil {
		return "", fmt.Errorf("get facility timezone: %w", err)
	}
	if !found {
		return "", ErrNotFound
	}
	return tz, nil
}

func (s *Store) ListServiceTypes(ctx context.Context, facilityID string) ([]model.ServiceType, error) {
	sel := s.b.Select("id", "name", "category", "color").
		From(s.b.Table(tableServiceTypes)).
		Where(entsql.EQ("facility_id", facilityID)).
		OrderBy("category", "name")

	out := []model.ServiceType{}
	err := queryQ(ctx, s.drv, sel, func(rows *entsql.Rows) error {
		var st model.ServiceType
		if err := rows.Scan(&st.ID, &st.Name, &st.Category, &st.Color); err != nil {
			return err
		}
		out = append(out, st)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list service types: %w", err)
	}
	return out, nil
}

// FacilityData is everything that belongs to one facility.
type FacilityData struct {
	Facility     model.Facility
	Staff        []model.Staff
	Clients      []model.Client
	ServiceTypes []model.ServiceType
	Schedules    []model.Schedule
}

// ReplaceFacility deletes a facility with all its rows and writes data in its
// place, atomically.
func (s *Store) ReplaceFacility(ctx context.Context, data FacilityData) error {
	fid := data.Facility.ID
	return s.withTx(ctx, func(tx dialect.Tx) error {
		// children cascade from the facility row
		if _, err := execQ(ctx, tx, s.b.Delete(tableFacilities).Where(entsql.EQ("id", fid))); err != nil {
			return fmt.Errorf("purge facility: %w", err)
		}

		for _, q := range s.facilityInserts(data) {
			if _, err := execQ(ctx, tx, q); err != nil {
				return fmt.Errorf("seed facility: %w", err)
			}
		}
		return s.insertSchedulesTx(ctx, tx, data.Schedules)
	})
}

func (s *Store) facilityInserts(data FacilityData) []querier {
	fid := data.Facility.ID
	tz := data.Facility.Timezone
	if tz == "" {
		tz = "UTC"
	}

	qs := []querier{
		s.b.Insert(tableFacilities).Columns("id", "name", "timezone").Values(fid, data.Facility.Name, tz),
	}
	if len(data.Staff) > 0 {
		ins := s.b.Insert(tableStaff).Columns("id", "facility_id", "name", "role", "active")
		for _, st := range data.Staff {
			ins.Values(st.ID, fid, st.Name, st.Role, st.Active)
		}
		qs = append(qs, ins)
	}
	if len(data.Clients) > 0 {
		ins := s.b.Insert(tableClients).Columns("id", "facility_id", "name")
		for _, c := range data.Clients {
			ins.Values(c.ID, fid, c.Name)
		}
		qs = append(qs, ins)
	}
	if len(data.ServiceTypes) > 0 {
		ins := s.b.Insert(tableServiceTypes).Columns("id", "facility_id", "name", "category", "color")
		for _, t := range data.ServiceTypes {
			ins.Values(t.ID, fid, t.Name, t.Category, t.Color)
		}
		qs = append(qs, ins)
	}
	return qs
}
