package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Alijeyrad/carevisit_backend/internal/model"
)

// Snapshot is a consistent copy of the coordinator state for rendering.
type Snapshot struct {
	ReferenceDate time.Time
	View          ViewMode
	// Window is the range the current date and view ask for.
	Window Window
	// Loaded is the range the held entries were fetched for.
	Loaded  Window
	Key     string
	Entries []model.Schedule
	Err     error
	// Loading is true only while the first fetch of the session is outstanding.
	Loading bool
}

// Coordinator fetches the schedules of the visible window, skipping the call
// when the window has not changed since the last fetch.
type Coordinator struct {
	fetcher RangeFetcher
	logger  *slog.Logger

	mu         sync.Mutex
	facilityID string
	refDate    time.Time
	mode       ViewMode

	lastKey    string
	generation uint64
	inFlight   int
	loadedOnce bool
	closed     bool

	loaded  Window
	entries []model.Schedule
	err     error
}

func NewCoordinator(fetcher RangeFetcher, ref time.Time, mode ViewMode, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		fetcher: fetcher,
		logger:  logger,
		refDate: DateOf(ref),
		mode:    mode,
	}
}

// BindFacility sets the facility scope. Changing it forgets the last range key
// and the held entries.
func (c *Coordinator) BindFacility(facilityID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.facilityID == facilityID {
		return
	}
	c.facilityID = facilityID
	c.lastKey = ""
	c.entries = nil
	c.loaded = Window{}
	c.err = nil
}

// SetReferenceDate reports whether the date actually changed. Dates are compared
// by their YYYY-MM-DD rendering so re-reporting the same day is a no-op.
func (c *Coordinator) SetReferenceDate(d time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if FormatDate(d) == FormatDate(c.refDate) {
		return false
	}
	c.refDate = DateOf(d)
	return true
}

// SetViewMode reports whether the mode actually changed.
func (c *Coordinator) SetViewMode(m ViewMode) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if string(m) == string(c.mode) {
		return false
	}
	c.mode = m
	return true
}

// LastKey returns the range key of the most recently issued fetch.
func (c *Coordinator) LastKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastKey
}

// FetchIfNeeded loads the current window unless its key equals the last issued
// one. force bypasses that check. It reports whether a fetch was issued.
//
// The key is recorded before the call goes out, so a second request for the same
// window while the first is pending is skipped. Only the response of the latest
// issued fetch is applied; older ones are dropped when they arrive. On failure the
// previous entries stay in place and the key is kept, so nothing retries until
// a forced fetch.
func (c *Coordinator) FetchIfNeeded(ctx context.Context, force bool) (bool, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, ErrClosed
	}
	if c.facilityID == "" {
		c.mu.Unlock()
		return false, nil
	}

	window := Resolve(c.refDate, c.mode)
	key := window.Key()
	if !force && key == c.lastKey {
		c.mu.Unlock()
		return false, nil
	}

	c.lastKey = key
	c.generation++
	gen := c.generation
	facilityID := c.facilityID
	c.inFlight++
	c.mu.Unlock()

	entries, err := c.fetcher.FetchSchedulesByRange(ctx, facilityID, window.StartString(), window.EndString())

	c.mu.Lock()
	defer c.mu.Unlock()

	c.inFlight--
	c.loadedOnce = true

	if c.closed {
		c.logger.Debug("calendar: dropping result after close", "key", key)
		return true, nil
	}
	if gen != c.generation {
		c.logger.Debug("calendar: dropping stale result", "key", key, "generation", gen, "latest", c.generation)
		return true, nil
	}
	if err != nil {
		c.err = fmt.Errorf("load schedules %s: %w", key, err)
		c.logger.Warn("calendar: fetch failed", "key", key, "facility_id", facilityID, "error", err)
		return true, c.err
	}

	if entries == nil {
		entries = []model.Schedule{}
	}
	c.entries = entries
	c.loaded = window
	c.err = nil
	return true, nil
}

// Snapshot copies the current state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make([]model.Schedule, len(c.entries))
	copy(entries, c.entries)

	window := Resolve(c.refDate, c.mode)
	return Snapshot{
		ReferenceDate: c.refDate,
		View:          c.mode,
		Window:        window,
		Loaded:        c.loaded,
		Key:           c.lastKey,
		Entries:       entries,
		Err:           c.err,
		Loading:       !c.loadedOnce && c.inFlight > 0,
	}
}

// Close marks the coordinator unmounted. Results that arrive later are dropped.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}
