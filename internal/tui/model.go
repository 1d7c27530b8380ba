// Package tui is the terminal calendar: a bubbletea program over a
// calendar.Controller. It never edits entries locally; every change shows up
// through the refetch the controller runs after it.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Alijeyrad/carevisit_backend/internal/calendar"
	"github.com/Alijeyrad/carevisit_backend/internal/model"
)

// SignalMsg carries a peer change signal into the update loop. Send it with
// tea.Program.Send from the realtime callback.
type SignalMsg struct {
	Signal model.Signal
}

type loadedMsg struct{ err error }

type deletedMsg struct {
	id  string
	err error
}

type Options struct {
	Controller *calendar.Controller
	// Title names the facility or session in the header.
	Title string
	// Location is the zone entries are shown in; time.Local when nil.
	Location *time.Location
	// Timeout bounds each backend call started from the UI.
	Timeout time.Duration
	Now     func() time.Time
	// ScopeErr is set when the session could not be bound to a facility. The
	// model then shows it in place of the calendar and loads nothing.
	ScopeErr error
}

type Model struct {
	ctrl    *calendar.Controller
	title   string
	loc     *time.Location
	timeout time.Duration
	now     func() time.Time

	scopeErr error

	keys   keyMap
	help   help.Model
	styles styles

	snap     calendar.Snapshot
	days     []calendar.DayView
	selected int
	status   string
	width    int
	height   int
}

func New(opts Options) Model {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := Model{
		ctrl:     opts.Controller,
		title:    opts.Title,
		loc:      opts.Location,
		timeout:  opts.Timeout,
		now:      opts.Now,
		scopeErr: opts.ScopeErr,
		keys:     defaultKeys(),
		help:     help.New(),
		styles:   defaultStyles(),
	}
	m.sync()
	return m
}

func (m Model) Init() tea.Cmd {
	if m.scopeErr != nil {
		return nil
	}
	return m.load(false)
}

// load fetches the current window; force refetches even when the range key
// is unchanged.
func (m Model) load(force bool) tea.Cmd {
	ctrl, timeout := m.ctrl, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if force {
			return loadedMsg{err: ctrl.Refresh(ctx)}
		}
		return loadedMsg{err: ctrl.Load(ctx)}
	}
}

func (m Model) remove(id string) tea.Cmd {
	ctrl, timeout := m.ctrl, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return deletedMsg{id: id, err: ctrl.Delete(ctx, id)}
	}
}

// sync copies the controller state and lays it out for the current view.
func (m *Model) sync() {
	m.snap = m.ctrl.Snapshot()
	m.days = calendar.BuildDays(m.snap, m.loc, m.now())
	if n := len(m.entries()); m.selected >= n {
		m.selected = max(n-1, 0)
	}
}

// entries lists the visible entries in display order; selection indexes it.
func (m Model) entries() []calendar.EntryView {
	var out []calendar.EntryView
	for _, d := range m.days {
		out = append(out, d.Entries...)
	}
	return out
}

func (m Model) selectedEntry() (calendar.EntryView, bool) {
	entries := m.entries()
	if m.selected < 0 || m.selected >= len(entries) {
		return calendar.EntryView{}, false
	}
	return entries[m.selected], true
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case loadedMsg:
		// fetch errors render from the snapshot
		m.sync()
		m.status = ""
		return m, nil

	case deletedMsg:
		m.sync()
		if msg.err != nil {
			m.status = calendar.UserMessage(msg.err)
		} else {
			m.status = "Visit deleted."
		}
		return m, nil

	case SignalMsg:
		if m.scopeErr != nil {
			return m, nil
		}
		m.status = "Schedule changed in another session, reloading."
		return m, m.load(true)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case m.scopeErr != nil:
		// nothing to show or change without a facility
		return m, nil

	case key.Matches(msg, m.keys.Prev):
		return m.navigate(step(m.snap.ReferenceDate, m.snap.View, -1), m.snap.View)
	case key.Matches(msg, m.keys.Next):
		return m.navigate(step(m.snap.ReferenceDate, m.snap.View, 1), m.snap.View)
	case key.Matches(msg, m.keys.Today):
		return m.navigate(calendar.DateOf(m.now().In(m.loc)), m.snap.View)

	case key.Matches(msg, m.keys.Month):
		return m.navigate(m.snap.ReferenceDate, calendar.ViewMonth)
	case key.Matches(msg, m.keys.Week):
		return m.navigate(m.snap.ReferenceDate, calendar.ViewWeek)
	case key.Matches(msg, m.keys.Day):
		return m.navigate(m.snap.ReferenceDate, calendar.ViewDay)
	case key.Matches(msg, m.keys.List):
		return m.navigate(m.snap.ReferenceDate, calendar.ViewList)

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.entries())-1 {
			m.selected++
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.status = "Reloading."
		return m, m.load(true)

	case key.Matches(msg, m.keys.Delete):
		e, ok := m.selectedEntry()
		if !ok {
			return m, nil
		}
		m.status = "Deleting visit of " + e.Client + "."
		return m, m.remove(e.ID)
	}
	return m, nil
}

func (m Model) navigate(ref time.Time, mode calendar.ViewMode) (tea.Model, tea.Cmd) {
	if !m.ctrl.Navigate(ref, mode) {
		return m, nil
	}
	m.selected = 0
	m.status = ""
	m.sync()
	return m, m.load(false)
}

// step moves ref by one period of mode. Months step from the first of the
// month so short months are never skipped.
func step(ref time.Time, mode calendar.ViewMode, dir int) time.Time {
	switch mode {
	case calendar.ViewMonth:
		first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first.AddDate(0, dir, 0)
	case calendar.ViewWeek:
		return ref.AddDate(0, 0, 7*dir)
	default:
		return ref.AddDate(0, 0, dir)
	}
}
