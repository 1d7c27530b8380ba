package model

import (
	"errors"
	"time"
)

// ServiceType classifies a visit (e.g. bathing assistance, home nursing).
type ServiceType struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Category string `json:"category" yaml:"category"`
	Color    string `json:"color" yaml:"color"`
}

// Schedule is one planned care visit.
type Schedule struct {
	ID           string       `json:"id"`
	FacilityID   string       `json:"facility_id"`
	RecurrenceID *string      `json:"recurrence_id,omitempty"`
	StartTime    time.Time    `json:"start_time"`
	EndTime      time.Time    `json:"end_time"`
	ClientID     string       `json:"client_id"`
	ClientName   string       `json:"client_name,omitempty"`
	StaffID      string       `json:"staff_id"`
	StaffName    string       `json:"staff_name,omitempty"`
	ServiceType  *ServiceType `json:"service_type,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// IsRecurring reports whether the entry belongs to a recurrence group.
func (s Schedule) IsRecurring() bool {
	return s.RecurrenceID != nil && *s.RecurrenceID != ""
}

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Recurrence describes how a created entry repeats. Either Count or Until bounds the series.
type Recurrence struct {
	Frequency Frequency  `json:"freq"`
	Interval  int        `json:"interval,omitempty"`
	Count     int        `json:"count,omitempty"`
	Until     *time.Time `json:"until,omitempty"`
}

// ScheduleInput is the body of create and update mutations.
type ScheduleInput struct {
	FacilityID       string      `json:"facility_id"`
	ClientID         string      `json:"client_id"`
	StaffID          string      `json:"staff_id"`
	ServiceTypeID    *string     `json:"service_type_id,omitempty"`
	StartTime        time.Time   `json:"start_time"`
	EndTime          time.Time   `json:"end_time"`
	Notes            string      `json:"notes,omitempty"`
	Recurrence       *Recurrence `json:"recurrence,omitempty"`
	DetachRecurrence bool        `json:"detach_recurrence,omitempty"`
}

var (
	ErrMissingFacility  = errors.New("facility_id is required")
	ErrMissingClient    = errors.New("client_id is required")
	ErrMissingStaff     = errors.New("staff_id is required")
	ErrMissingTimes     = errors.New("start_time and end_time are required")
	ErrInvalidTimeRange = errors.New("end_time must be after start_time")
)

// Validate checks the fields every create must carry.
func (in ScheduleInput) Validate() error {
	switch {
	case in.FacilityID == "":
		return ErrMissingFacility
	case in.ClientID == "":
		return ErrMissingClient
	case in.StaffID == "":
		return ErrMissingStaff
	case in.StartTime.IsZero() || in.EndTime.IsZero():
		return ErrMissingTimes
	case !in.EndTime.After(in.StartTime):
		return ErrInvalidTimeRange
	}
	return nil
}

// Created is returned by create mutations.
type Created struct {
	ID string `json:"id"`
}
