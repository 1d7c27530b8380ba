// Package realtime carries schedule change signals between sessions of a
// facility over NATS.
package realtime

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Alijeyrad/carevisit_backend/internal/model"
	"github.com/Alijeyrad/carevisit_backend/pkg/constants"
)

// Subject is the NATS subject signals of one facility are published on.
func Subject(facilityID string) string {
	return constants.SubjectScheduleChanged + "." + facilityID
}

// WildcardSubject matches the signals of every facility.
func WildcardSubject() string {
	return constants.SubjectScheduleChanged + ".*"
}

// FacilityFromSubject extracts the facility id from a signal subject.
func FacilityFromSubject(subject string) (string, bool) {
	rest, ok := strings.CutPrefix(subject, constants.SubjectScheduleChanged+".")
	if !ok || rest == "" || strings.Contains(rest, ".") {
		return "", false
	}
	return rest, true
}

func encodeSignal(sig model.Signal) ([]byte, error) {
	if sig.Kind == "" {
		sig.Kind = model.KindSchedule
	}
	if !sig.Action.Valid() {
		return nil, fmt.Errorf("encode signal: %w %q", model.ErrUnknownAction, sig.Action)
	}
	return json.Marshal(sig)
}

// DecodeSignal parses a message published on subject. Signals that name a
// different facility than their subject are rejected.
func DecodeSignal(subject string, data []byte) (model.Signal, error) {
	var sig model.Signal
	if err := json.Unmarshal(data, &sig); err != nil {
		return model.Signal{}, fmt.Errorf("decode signal: %w", err)
	}
	if sig.Kind != model.KindSchedule {
		return model.Signal{}, fmt.Errorf("decode signal: unexpected kind %q", sig.Kind)
	}
	if !sig.Action.Valid() {
		return model.Signal{}, fmt.Errorf("decode signal: %w %q", model.ErrUnknownAction, sig.Action)
	}
	if facilityID, ok := FacilityFromSubject(subject); ok && sig.FacilityID != facilityID {
		return model.Signal{}, fmt.Errorf("decode signal: facility %q on subject %q", sig.FacilityID, subject)
	}
	return sig, nil
}

// accept reports whether a subscriber of staffID should see sig. A session never
// reacts to its own signals.
func accept(sig model.Signal, facilityID, staffID string) bool {
	if sig.FacilityID != facilityID {
		return false
	}
	return staffID == "" || sig.StaffID != staffID
}
