package schedule

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/Alijeyrad/carevisit_backend/internal/model"
)

// MaxOccurrences bounds a single series.
const MaxOccurrences = 366

var frequencies = map[model.Frequency]rrule.Frequency{
	model.FrequencyDaily:   rrule.DAILY,
	model.FrequencyWeekly:  rrule.WEEKLY,
	model.FrequencyMonthly: rrule.MONTHLY,
}

// occurrence is one expanded [start, end) slot.
type occurrence struct {
	start, end time.Time
}

// expand lists the occurrences of rec starting at start. Occurrences keep the
// wall clock of start in loc, so a 09:00 weekly visit stays at 09:00 across
// daylight saving changes.
func expand(rec model.Recurrence, start, end time.Time, loc *time.Location) ([]occurrence, error) {
	freq, ok := frequencies[rec.Frequency]
	if !ok || rec.Interval < 0 || rec.Count < 0 || (rec.Count == 0 && rec.Until == nil) {
		return nil, ErrInvalidRecurrence
	}
	if rec.Count > MaxOccurrences {
		return nil, ErrTooManyOccurrences
	}

	opt := rrule.ROption{
		Freq:     freq,
		Dtstart:  start.In(loc),
		Interval: max(rec.Interval, 1),
		Count:    rec.Count,
	}
	if rec.Until != nil {
		if rec.Until.Before(start) {
			return nil, ErrInvalidRecurrence
		}
		opt.Until = rec.Until.In(loc)
	}
	if opt.Count == 0 {
		// one past the cap so an oversized until bound is detected without
		// walking the whole range
		opt.Count = MaxOccurrences + 1
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}

	starts := r.All()
	if len(starts) > MaxOccurrences {
		return nil, ErrTooManyOccurrences
	}

	d := end.Sub(start)
	out := make([]occurrence, 0, len(starts))
	for _, s := range starts {
		out = append(out, occurrence{start: s, end: s.Add(d)})
	}
	return out, nil
}
