package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/Alijeyrad/carevisit_backend/internal/calendar"
)

var viewTabs = []struct {
	mode  calendar.ViewMode
	label string
}{
	{calendar.ViewMonth, "Month"},
	{calendar.ViewWeek, "Week"},
	{calendar.ViewDay, "Day"},
	{calendar.ViewList, "Agenda"},
}

func (m Model) View() string {
	if m.scopeErr != nil {
		return m.scopeView()
	}

	var b strings.Builder

	b.WriteString(m.header())
	b.WriteString("\n\n")

	switch {
	case m.snap.Loading:
		b.WriteString(m.styles.Muted.Render("Loading visits..."))
		b.WriteString("\n")
	case m.snap.Err != nil:
		b.WriteString(m.styles.Error.Render(calendar.UserMessage(m.snap.Err)))
		b.WriteString("\n")
	}

	if !m.snap.Loading {
		if m.snap.View == calendar.ViewMonth {
			b.WriteString(m.monthGrid())
			b.WriteString("\n")
			b.WriteString(m.selectedDetail())
		} else {
			b.WriteString(m.agenda())
		}
	}

	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(m.styles.Status.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// scopeView replaces the calendar while the session has no facility.
func (m Model) scopeView() string {
	var b strings.Builder
	if m.title != "" {
		b.WriteString(m.styles.Title.Render(m.title))
		b.WriteString("\n\n")
	}
	b.WriteString(m.styles.Error.Render(calendar.UserMessage(m.scopeErr)))
	b.WriteString("\n\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.Quit}))
	return b.String()
}

func (m Model) header() string {
	tabs := make([]string, 0, len(viewTabs))
	for _, t := range viewTabs {
		style := m.styles.Tab
		if t.mode == m.snap.View {
			style = m.styles.ActiveTab
		}
		tabs = append(tabs, style.Render(t.label))
	}

	title := m.styles.Title.Render(m.periodTitle())
	if m.title != "" {
		title = m.styles.Title.Render(m.title) + "  " + title
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "   ", strings.Join(tabs, ""))
}

func (m Model) periodTitle() string {
	ref := m.snap.ReferenceDate
	display := calendar.DisplayRange(ref, m.snap.View)
	switch m.snap.View {
	case calendar.ViewMonth:
		return ref.Format("January 2006")
	case calendar.ViewWeek:
		return display.Start.Format("Mon 2 Jan") + " - " + display.End.Format("Mon 2 Jan 2006")
	default:
		return ref.Format("Monday 2 January 2006")
	}
}

// monthGrid draws the displayed weeks with a visit count per day.
func (m Model) monthGrid() string {
	var b strings.Builder
	for _, wd := range []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"} {
		b.WriteString(m.styles.Cell.Render(m.styles.DayHeader.Render(wd)))
	}
	b.WriteString("\n")

	selectedID := ""
	if e, ok := m.selectedEntry(); ok {
		selectedID = e.ID
	}

	for i, d := range m.days {
		label := fmt.Sprintf("%2d", d.Date.Day())
		if n := len(d.Entries); n > 0 {
			label += fmt.Sprintf(" •%d", n)
		}
		for _, e := range d.Entries {
			if e.ID == selectedID {
				label += " <"
				break
			}
		}

		style := m.styles.Cell
		switch {
		case d.IsToday:
			style = style.Inherit(m.styles.Today)
		case !d.InFocus:
			style = style.Inherit(m.styles.OutOfFocus)
		}
		b.WriteString(style.Render(label))
		if i%7 == 6 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) selectedDetail() string {
	e, ok := m.selectedEntry()
	if !ok {
		return m.styles.Muted.Render("No visits this month.") + "\n"
	}
	return m.styles.Selected.Render(e.Start.Format("Mon 2 Jan")+"  "+entryLine(e)) + "\n"
}

// agenda lists the entries day by day for the week, day and list views.
func (m Model) agenda() string {
	var b strings.Builder
	idx := 0
	for _, d := range m.days {
		header := d.Date.Format("Mon 02.01.")
		if d.IsToday {
			header = m.styles.Today.Render(header + " today")
		} else {
			header = m.styles.DayHeader.Render(header)
		}
		b.WriteString(header)
		b.WriteString("\n")

		if len(d.Entries) == 0 {
			b.WriteString(m.styles.Entry.Render(m.styles.Muted.Render("no visits")))
			b.WriteString("\n")
		}
		for _, e := range d.Entries {
			style := m.styles.Entry
			if idx == m.selected {
				style = m.styles.Selected
			}
			b.WriteString(style.Render(entryLine(e)))
			b.WriteString("\n")
			idx++
		}
	}
	return b.String()
}

func entryLine(e calendar.EntryView) string {
	parts := []string{e.Span, swatch(e.Color), e.Client, "with " + e.Staff}
	if e.Service != "" {
		parts = append(parts, "("+e.Service+")")
	}
	if e.Recurring {
		parts = append(parts, "↻")
	}
	return strings.Join(parts, " ")
}
