// Package fixtures holds the demo facility and materialises its visits
// around a reference date.
package fixtures

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/Alijeyrad/carevisit_backend/internal/model"
	"github.com/Alijeyrad/carevisit_backend/internal/repo"
)

//go:embed seed.yaml
var seedYAML []byte

type visit struct {
	Client      string `yaml:"client"`
	Staff       string `yaml:"staff"`
	ServiceType string `yaml:"service_type"`
	Day         int    `yaml:"day"`
	Start       string `yaml:"start"`
	Minutes     int    `yaml:"minutes"`
	Weekly      int    `yaml:"weekly"`
	Notes       string `yaml:"notes"`
}

type seed struct {
	Facility     model.Facility      `yaml:"facility"`
	Staff        []model.Staff       `yaml:"staff"`
	Clients      []model.Client      `yaml:"clients"`
	ServiceTypes []model.ServiceType `yaml:"service_types"`
	Visits       []visit             `yaml:"visits"`
}

func parse(data []byte) (seed, error) {
	var s seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return seed{}, fmt.Errorf("parse fixtures: %w", err)
	}
	if s.Facility.ID == "" {
		return seed{}, fmt.Errorf("parse fixtures: facility id is missing")
	}
	return s, nil
}

// Facility returns the demo facility without building any visits.
func Facility() (model.Facility, error) {
	s, err := parse(seedYAML)
	if err != nil {
		return model.Facility{}, err
	}
	return s.Facility, nil
}

// Load builds the demo facility with visits placed relative to the week of now.
// facilityID overrides the fixture id when set.
func Load(now time.Time, facilityID string) (repo.FacilityData, error) {
	return build(seedYAML, now, facilityID)
}

func build(data []byte, now time.Time, facilityID string) (repo.FacilityData, error) {
	s, err := parse(data)
	if err != nil {
		return repo.FacilityData{}, err
	}
	if facilityID != "" {
		s.Facility.ID = facilityID
	}
	fid := s.Facility.ID

	loc, err := time.LoadLocation(s.Facility.Timezone)
	if err != nil {
		return repo.FacilityData{}, fmt.Errorf("fixtures timezone: %w", err)
	}

	types := lo.KeyBy(s.ServiceTypes, func(t model.ServiceType) string { return t.ID })
	clients := lo.KeyBy(s.Clients, func(c model.Client) string { return c.ID })
	staff := lo.KeyBy(s.Staff, func(st model.Staff) string { return st.ID })

	local := now.In(loc)
	monday := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	monday = monday.AddDate(0, 0, -((int(monday.Weekday()) + 6) % 7))
	stamp := now.UTC()

	var schedules []model.Schedule
	for i, v := range s.Visits {
		if _, ok := clients[v.Client]; !ok {
			return repo.FacilityData{}, fmt.Errorf("visit %d: unknown client %s", i, v.Client)
		}
		if _, ok := staff[v.Staff]; !ok {
			return repo.FacilityData{}, fmt.Errorf("visit %d: unknown staff %s", i, v.Staff)
		}
		clock, err := time.Parse("15:04", v.Start)
		if err != nil {
			return repo.FacilityData{}, fmt.Errorf("visit %d: %w", i, err)
		}

		var recurrenceID *string
		repeat := max(v.Weekly, 1)
		if v.Weekly > 1 {
			recurrenceID = lo.ToPtr(uuid.NewString())
		}

		for w := range repeat {
			day := monday.AddDate(0, 0, v.Day+7*w)
			start := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
			sc := model.Schedule{
				ID:           uuid.NewString(),
				FacilityID:   fid,
				RecurrenceID: recurrenceID,
				StartTime:    start.UTC(),
				EndTime:      start.Add(time.Duration(v.Minutes) * time.Minute).UTC(),
				ClientID:     v.Client,
				ClientName:   clients[v.Client].Name,
				StaffID:      v.Staff,
				StaffName:    staff[v.Staff].Name,
				Notes:        v.Notes,
				CreatedAt:    stamp,
				UpdatedAt:    stamp,
			}
			if t, ok := types[v.ServiceType]; ok {
				sc.ServiceType = lo.ToPtr(t)
			}
			schedules = append(schedules, sc)
		}
	}

	for i := range s.Staff {
		s.Staff[i].FacilityID = fid
	}
	for i := range s.Clients {
		s.Clients[i].FacilityID = fid
	}

	return repo.FacilityData{
		Facility:     s.Facility,
		Staff:        s.Staff,
		Clients:      s.Clients,
		ServiceTypes: s.ServiceTypes,
		Schedules:    schedules,
	}, nil
}
