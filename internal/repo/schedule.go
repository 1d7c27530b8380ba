package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/samber/lo"

	"github.com/Alijeyrad/carevisit_backend/internal/model"
)

// ScheduleUpdate replaces the editable fields of one entry.
type ScheduleUpdate struct {
	StartTime        time.Time
	EndTime          time.Time
	ClientID         string
	StaffID          string
	ServiceTypeID    *string
	Notes            string
	DetachRecurrence bool
	UpdatedAt        time.Time
}

var scheduleInsertColumns = []string{
	"id", "facility_id", "recurrence_id", "start_time", "end_time",
	"client_id", "staff_id", "service_type_id", "notes", "created_at", "updated_at",
}

// scheduleSelect joins the display names every read returns. Joined rows must
// share the schedule's facility.
func (s *Store) scheduleSelect() (*entsql.Selector, *entsql.SelectTable) {
	t := s.b.Table(tableSchedules).As("s")
	c := s.b.Table(tableClients).As("c")
	sf := s.b.Table(tableStaff).As("sf")
	st := s.b.Table(tableServiceTypes).As("st")

	sel := s.b.Select(
		t.C("id"), t.C("facility_id"), t.C("recurrence_id"), t.C("start_time"), t.C("end_time"),
		t.C("client_id"), c.C("name"), t.C("staff_id"), sf.C("name"),
		st.C("id"), st.C("name"), st.C("category"), st.C("color"),
		t.C("notes"), t.C("created_at"), t.C("updated_at"),
	).
		From(t).
		LeftJoin(c).OnP(sameFacility(t, c, "client_id")).
		LeftJoin(sf).OnP(sameFacility(t, sf, "staff_id")).
		LeftJoin(st).OnP(sameFacility(t, st, "service_type_id"))
	return sel, t
}

func sameFacility(t, ref *entsql.SelectTable, column string) *entsql.Predicate {
	return entsql.And(
		entsql.ColumnsEQ(t.C(column), ref.C("id")),
		entsql.ColumnsEQ(t.C("facility_id"), ref.C("facility_id")),
	)
}

func scanSchedule(rows *entsql.Rows) (model.Schedule, error) {
	var (
		sc                                  model.Schedule
		recurrenceID, clientName, staffName sql.NullString
		typeID, typeName, typeCat, typeCol  sql.NullString
	)
	err := rows.Scan(
		&sc.ID, &sc.FacilityID, &recurrenceID, &sc.StartTime, &sc.EndTime,
		&sc.ClientID, &clientName, &sc.StaffID, &staffName,
		&typeID, &typeName, &typeCat, &typeCol,
		&sc.Notes, &sc.CreatedAt, &sc.UpdatedAt,
	)
	if err != nil {
		return model.Schedule{}, fmt.Errorf("scan schedule: %w", err)
	}
	if recurrenceID.Valid {
		sc.RecurrenceID = &recurrenceID.String
	}
	sc.ClientName = clientName.String
	sc.StaffName = staffName.String
	if typeID.Valid {
		sc.ServiceType = &model.ServiceType{
			ID:       typeID.String,
			Name:     typeName.String,
			Category: typeCat.String,
			Color:    typeCol.String,
		}
	}
	return sc, nil
}

func (s *Store) listSchedules(ctx context.Context, sel *entsql.Selector) ([]model.Schedule, error) {
	out := []model.Schedule{}
	err := queryQ(ctx, s.drv, sel, func(rows *entsql.Rows) error {
		sc, err := scanSchedule(rows)
		if err != nil {
			return err
		}
		out = append(out, sc)
		return nil
	})
	return out, err
}

func (s *Store) rangeSelector(facilityID string, from, to time.Time) *entsql.Selector {
	sel, t := s.scheduleSelect()
	return sel.Where(entsql.And(
		entsql.EQ(t.C("facility_id"), facilityID),
		entsql.GTE(t.C("start_time"), from),
		entsql.LT(t.C("start_time"), to),
	)).OrderBy(t.C("start_time"), t.C("id"))
}

// ListByRange returns the schedules of a facility starting in [from, to).
func (s *Store) ListByRange(ctx context.Context, facilityID string, from, to time.Time) ([]model.Schedule, error) {
	out, err := s.listSchedules(ctx, s.rangeSelector(facilityID, from, to))
	if err != nil {
		return nil, fmt.Errorf("list schedules by range: %w", err)
	}
	return out, nil
}

func (s *Store) recurrenceSelector(facilityID, recurrenceID string) *entsql.Selector {
	sel, t := s.scheduleSelect()
	return sel.Where(entsql.And(
		entsql.EQ(t.C("facility_id"), facilityID),
		entsql.EQ(t.C("recurrence_id"), recurrenceID),
	)).OrderBy(t.C("start_time"))
}

// ListByRecurrence returns every entry of a series, oldest first.
func (s *Store) ListByRecurrence(ctx context.Context, facilityID, recurrenceID string) ([]model.Schedule, error) {
	out, err := s.listSchedules(ctx, s.recurrenceSelector(facilityID, recurrenceID))
	if err != nil {
		return nil, fmt.Errorf("list schedules by recurrence: %w", err)
	}
	return out, nil
}

func (s *Store) GetSchedule(ctx context.Context, facilityID, id string) (model.Schedule, error) {
	sel, t := s.scheduleSelect()
	sel.Where(entsql.And(
		entsql.EQ(t.C("facility_id"), facilityID),
		entsql.EQ(t.C("id"), id),
	)).Limit(1)

	out, err := s.listSchedules(ctx, sel)
	if err != nil {
		return model.Schedule{}, fmt.Errorf("get schedule: %w", err)
	}
	if len(out) == 0 {
		return model.Schedule{}, ErrNotFound
	}
	return out[0], nil
}

func serviceTypeID(sc model.Schedule) string {
	if sc.ServiceType == nil {
		return ""
	}
	return sc.ServiceType.ID
}

func (s *Store) insertSchedules(rows []model.Schedule) *entsql.InsertBuilder {
	ins := s.b.Insert(tableSchedules).Columns(scheduleInsertColumns...)
	for _, sc := range rows {
		var typeID any
		if id := serviceTypeID(sc); id != "" {
			typeID = id
		}
		var recurrenceID any
		if sc.IsRecurring() {
			recurrenceID = *sc.RecurrenceID
		}
		ins.Values(
			sc.ID, sc.FacilityID, recurrenceID, sc.StartTime.UTC(), sc.EndTime.UTC(),
			sc.ClientID, sc.StaffID, typeID, sc.Notes, sc.CreatedAt.UTC(), sc.UpdatedAt.UTC(),
		)
	}
	return ins
}

// InsertSchedules writes a batch of entries in one transaction. A series is
// stored entirely or not at all.
func (s *Store) InsertSchedules(ctx context.Context, rows []model.Schedule) error {
	if len(rows) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx dialect.Tx) error {
		for fid, batch := range lo.GroupBy(rows, func(sc model.Schedule) string { return sc.FacilityID }) {
			refs := scheduleRefs{facilityID: fid}
			for _, sc := range batch {
				refs.add(sc.ClientID, sc.StaffID, serviceTypeID(sc))
			}
			if err := s.checkRefs(ctx, tx, refs); err != nil {
				return err
			}
		}
		return s.insertSchedulesTx(ctx, tx, rows)
	})
}

// scheduleRefs are the rows a batch of schedules points at within one
// facility.
type scheduleRefs struct {
	facilityID string
	clients    []string
	staff      []string
	types      []string
}

func (r *scheduleRefs) add(clientID, staffID, typeID string) {
	r.clients = append(r.clients, clientID)
	r.staff = append(r.staff, staffID)
	if typeID != "" {
		r.types = append(r.types, typeID)
	}
}

// checkRefs fails with ErrInvalidReference unless every referenced row exists
// in refs.facilityID.
func (s *Store) checkRefs(ctx context.Context, ex dialect.ExecQuerier, refs scheduleRefs) error {
	for _, r := range []struct {
		table string
		ids   []string
	}{
		{tableClients, lo.Uniq(refs.clients)},
		{tableStaff, lo.Uniq(refs.staff)},
		{tableServiceTypes, lo.Uniq(refs.types)},
	} {
		if len(r.ids) == 0 {
			continue
		}
		sel := s.b.Select(entsql.Count("*")).
			From(s.b.Table(r.table)).
			Where(entsql.And(
				entsql.EQ("facility_id", refs.facilityID),
				entsql.In("id", lo.ToAnySlice(r.ids)...),
			))

		var n int64
		err := queryQ(ctx, ex, sel, func(rows *entsql.Rows) error { return rows.Scan(&n) })
		switch {
		case errors.Is(err, ErrNotFound):
			return fmt.Errorf("%w: malformed %s id", ErrInvalidReference, r.table)
		case err != nil:
			return fmt.Errorf("check %s: %w", r.table, err)
		case n != int64(len(r.ids)):
			return fmt.Errorf("%w: %s outside facility %s", ErrInvalidReference, r.table, refs.facilityID)
		}
	}
	return nil
}

// insertSchedulesTx splits large series so the statement stays under the
// Postgres bind parameter limit.
func (s *Store) insertSchedulesTx(ctx context.Context, ex dialect.ExecQuerier, rows []model.Schedule) error {
	const chunk = 500
	for start := 0; start < len(rows); start += chunk {
		end := min(start+chunk, len(rows))
		if _, err := execQ(ctx, ex, s.insertSchedules(rows[start:end])); err != nil {
			return fmt.Errorf("insert schedules: %w", err)
		}
	}
	return nil
}

func (s *Store) updateSchedule(facilityID, id string, u ScheduleUpdate) *entsql.UpdateBuilder {
	upd := s.b.Update(tableSchedules).
		Set("start_time", u.StartTime.UTC()).
		Set("end_time", u.EndTime.UTC()).
		Set("client_id", u.ClientID).
		Set("staff_id", u.StaffID).
		Set("notes", u.Notes).
		Set("updated_at", u.UpdatedAt.UTC())
	if u.ServiceTypeID != nil && *u.ServiceTypeID != "" {
		upd.Set("service_type_id", *u.ServiceTypeID)
	} else {
		upd.SetNull("service_type_id")
	}
	if u.DetachRecurrence {
		upd.SetNull("recurrence_id")
	}
	return upd.Where(entsql.And(
		entsql.EQ("facility_id", facilityID),
		entsql.EQ("id", id),
	))
}

// UpdateSchedule returns ErrNotFound when no entry of the facility has id.
func (s *Store) UpdateSchedule(ctx context.Context, facilityID, id string, u ScheduleUpdate) error {
	refs := scheduleRefs{facilityID: facilityID}
	refs.add(u.ClientID, u.StaffID, lo.FromPtr(u.ServiceTypeID))

	return s.withTx(ctx, func(tx dialect.Tx) error {
		if err := s.checkRefs(ctx, tx, refs); err != nil {
			return err
		}
		n, err := execQ(ctx, tx, s.updateSchedule(facilityID, id, u))
		if err != nil {
			return fmt.Errorf("update schedule: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// DeleteSchedule returns ErrNotFound when no entry of the facility has id.
func (s *Store) DeleteSchedule(ctx context.Context, facilityID, id string) error {
	del := s.b.Delete(tableSchedules).Where(entsql.And(
		entsql.EQ("facility_id", facilityID),
		entsql.EQ("id", id),
	))
	n, err := execQ(ctx, s.drv, del)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSeries removes every entry of a series and reports how many went.
func (s *Store) DeleteSeries(ctx context.Context, facilityID, recurrenceID string) (int64, error) {
	del := s.b.Delete(tableSchedules).Where(entsql.And(
		entsql.EQ("facility_id", facilityID),
		entsql.EQ("recurrence_id", recurrenceID),
	))
	n, err := execQ(ctx, s.drv, del)
	if err != nil {
		return 0, fmt.Errorf("delete series: %w", err)
	}
	return n, nil
}
