package model

import (
	"errors"
	"fmt"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

var ErrUnknownAction = errors.New("unknown action")

func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return "", fmt.Errorf("%w %q", ErrUnknownAction, s)
	}
	return a, nil
}

const KindSchedule = "schedule"

// Signal asks peer sessions of a facility to refetch. It is never persisted.
type Signal struct {
	Kind       string `json:"kind"`
	ID         string `json:"id"`
	Action     Action `json:"action"`
	FacilityID string `json:"facility_id"`
	StaffID    string `json:"staff_id"`
}

// Scope is the acting staff member and the facility they belong to.
type Scope struct {
	FacilityID string
	StaffID    string
	Role       string
}

func (s Scope) Bound() bool { return s.FacilityID != "" }
