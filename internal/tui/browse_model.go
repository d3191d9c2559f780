// Package tui implements the interactive browse view over a grid engine.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/rshade/gridcore/grid"
	"github.com/rshade/gridcore/internal/demo"
	"github.com/rshade/gridcore/windowcache"
)

const (
	// defaultWidth/defaultHeight are used until the first WindowSizeMsg.
	defaultWidth  = 100
	defaultHeight = 24

	// chromeRows is the screen space reserved for header and footer.
	chromeRows = 4

	// eventBuffer sizes the engine event channel. Events published while
	// the channel is full are dropped; the view re-reads engine state on
	// every render, so a dropped notification only delays a repaint.
	eventBuffer = 64
)

// Styles shared by the browse view.
//
//nolint:gochecknoglobals // Lip Gloss styles are conventionally package-level.
var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	pendingStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	detailStyle   = lipgloss.NewStyle().Faint(true).PaddingLeft(4)
	footerStyle   = lipgloss.NewStyle().Faint(true)
)

// engineEventMsg wraps an engine event for the Bubble Tea loop.
type engineEventMsg struct {
	event grid.Event
}

// coverageMsg reports the outcome of an EnsureCoverage pass.
type coverageMsg struct {
	issued int
	err    error
}

// BrowseModel is the Bubble Tea model driving a grid engine over the demo
// release dataset. The engine owns all row, selection, sort, and detail
// state; the model only tracks the cursor and viewport.
//
//nolint:recvcheck // Bubble Tea requires value receivers for Init/Update/View interface methods.
type BrowseModel struct {
	eng    *grid.Engine[demo.Release]
	log    zerolog.Logger
	events chan grid.Event
	sub    string

	cursor int
	top    int
	width  int
	height int

	spin    spinner.Model
	loading bool
	status  string
	err     error
}

// NewBrowseModel creates the browse model and subscribes it to the engine's
// event hub.
func NewBrowseModel(eng *grid.Engine[demo.Release], log zerolog.Logger) BrowseModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := BrowseModel{
		eng:    eng,
		log:    log,
		events: make(chan grid.Event, eventBuffer),
		width:  defaultWidth,
		height: defaultHeight,
		spin:   sp,
	}

	events := m.events
	m.sub = eng.Subscribe(func(ev grid.Event) {
		select {
		case events <- ev:
		default:
		}
	})
	return m
}

// Init starts the spinner, the first coverage pass, and the event pump.
func (m BrowseModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.ensureCoverage(), m.waitForEvent())
}

// viewRows returns how many data rows fit the current terminal height.
func (m BrowseModel) viewRows() int {
	rows := m.height - chromeRows
	if rows < 1 {
		rows = 1
	}
	return rows
}

// ensureCoverage declares the viewport to the engine and fetches whatever
// the buffered window is missing.
func (m BrowseModel) ensureCoverage() tea.Cmd {
	eng := m.eng
	start, end := m.top, m.top+m.viewRows()
	return func() tea.Msg {
		if err := eng.SetVisibleRange(start, end); err != nil {
			return coverageMsg{err: err}
		}
		issued, err := eng.EnsureCoverage(context.Background())
		eng.Wait()
		return coverageMsg{issued: issued, err: err}
	}
}

// waitForEvent blocks on the engine event channel.
func (m BrowseModel) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return engineEventMsg{event: <-events}
	}
}

// Update handles messages and updates the model state (Bubble Tea interface).
func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampCursor()
		return m, m.ensureCoverage()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case coverageMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		return m, nil

	case engineEventMsg:
		return m.handleEngineEvent(msg.event)

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, nil
}

// handleEngineEvent reacts to engine notifications. Row content is always
// re-read from the engine at render time, so most events only update the
// status line; an invalidation additionally triggers a coverage pass.
func (m BrowseModel) handleEngineEvent(ev grid.Event) (tea.Model, tea.Cmd) {
	switch ev := ev.(type) {
	case grid.RangeInvalidated:
		m.loading = true
		m.clampCursor()
		return m, tea.Batch(m.ensureCoverage(), m.waitForEvent())
	case grid.SortChanged:
		if len(ev.Criteria) == 0 {
			m.status = "sort cleared"
		} else {
			m.status = "sorted by " + strings.Join(ev.Criteria, ", ")
		}
	case grid.SelectionChanged:
		m.status = fmt.Sprintf("%d selected", len(ev.Selection))
	case grid.CoverageFailed:
		m.status = fmt.Sprintf("fetch [%d, %d) failed", ev.Start, ev.End)
		m.log.Warn().Err(ev.Err).Int("start", ev.Start).Int("end", ev.End).Msg("coverage fetch failed")
	case grid.CoverageLoaded, grid.RowRefreshed, grid.DetailsToggled:
		// Repaint only.
	}
	return m, m.waitForEvent()
}

// handleKeyMsg processes navigation and mutation keys.
//
//nolint:gocognit // Key handling inherently requires multiple branches.
func (m BrowseModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count, _ := m.eng.Count()

	switch msg.String() {
	case "q", "ctrl+c":
		m.eng.Unsubscribe(m.sub)
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < count-1 {
			m.cursor++
		}
	case "pgup":
		m.cursor -= m.viewRows()
		if m.cursor < 0 {
			m.cursor = 0
		}
	case "pgdown":
		m.cursor += m.viewRows()
		if m.cursor >= count {
			m.cursor = count - 1
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = count - 1

	case " ":
		m.eng.RowClick(m.cursor)
		return m, m.ensureCoverage()
	case "enter":
		row := m.eng.Row(m.cursor)
		if row.State == windowcache.RowLoaded {
			m.eng.ToggleDetails(row.ID)
		}
		return m, nil
	case "a":
		if err := m.eng.SelectAll(); err != nil {
			m.status = err.Error()
		}
		return m, nil
	case "d":
		if err := m.eng.DeselectAll(); err != nil {
			m.status = err.Error()
		}
		return m, nil

	case "1", "2", "3", "4":
		keys := demo.ColumnKeys()
		idx := int(msg.String()[0] - '1')
		if idx < len(keys) {
			m.loading = true
			m.eng.ToggleColumn(keys[idx])
		}
		return m, nil
	case "c":
		m.eng.ClearSort()
		return m, nil

	case "r":
		m.loading = true
		m.eng.RefreshAll()
		return m, nil
	case "R":
		row := m.eng.Row(m.cursor)
		if row.State == windowcache.RowLoaded {
			return m, m.refreshItem(row.ID)
		}
		return m, nil
	}

	m.clampCursor()
	return m, m.ensureCoverage()
}

// refreshItem re-fetches a single row off the Update loop.
func (m BrowseModel) refreshItem(id string) tea.Cmd {
	eng := m.eng
	return func() tea.Msg {
		err := eng.RefreshItem(context.Background(), id)
		return coverageMsg{err: err}
	}
}

// clampCursor keeps the cursor inside the dataset and scrolls the viewport
// so the cursor stays visible.
func (m *BrowseModel) clampCursor() {
	count, _ := m.eng.Count()
	if count > 0 && m.cursor >= count {
		m.cursor = count - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	rows := m.viewRows()
	if m.cursor < m.top {
		m.top = m.cursor
	}
	if m.cursor >= m.top+rows {
		m.top = m.cursor - rows + 1
	}
	if m.top < 0 {
		m.top = 0
	}
}

// View renders the visible window (Bubble Tea interface).
func (m BrowseModel) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(m.headerLine()))
	b.WriteString("\n")

	count, exact := m.eng.Count()
	end := m.top + m.viewRows()
	if end > count {
		end = count
	}

	for i := m.top; i < end; i++ {
		b.WriteString(m.renderRow(i))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(footerStyle.Render(m.footerLine(count, exact)))
	return b.String()
}

// headerLine renders the column titles with sort key hints.
func (m BrowseModel) headerLine() string {
	cols := m.eng.Columns()
	parts := make([]string, 0, len(cols)+1)
	parts = append(parts, fmt.Sprintf("%-4s", " "))
	for i, col := range cols {
		parts = append(parts, fmt.Sprintf("%-18s", fmt.Sprintf("[%d] %s", i+1, col.Title)))
	}
	return strings.Join(parts, " ")
}

func (m BrowseModel) renderRow(index int) string {
	row := m.eng.Row(index)

	marker := "  "
	if index == m.cursor {
		marker = "> "
	}

	switch row.State {
	case windowcache.RowPending, windowcache.RowMissing:
		return pendingStyle.Render(fmt.Sprintf("%s%-4d %s", marker, index, "loading..."))
	case windowcache.RowErrored:
		return errorStyle.Render(fmt.Sprintf("%s%-4d fetch failed: %v", marker, index, row.Err))
	case windowcache.RowLoaded:
	}

	check := " "
	if row.Selected {
		check = "*"
	}

	cells := make([]string, 0, len(row.Cells))
	for _, cell := range row.Cells {
		cells = append(cells, fmt.Sprintf("%-18s", cell))
	}
	line := fmt.Sprintf("%s%s%-3d %s", marker, check, index, strings.Join(cells, " "))

	style := lipgloss.NewStyle()
	if row.Selected {
		style = selectedStyle
	}
	if index == m.cursor {
		style = cursorStyle
	}
	rendered := style.Render(line)

	if row.DetailsOpen {
		rendered += "\n" + detailStyle.Render(demo.Describe(row.Item))
	}
	return rendered
}

// footerLine summarizes dataset size, selection, and key bindings.
func (m BrowseModel) footerLine(count int, exact bool) string {
	total := fmt.Sprintf("%d rows", count)
	if !exact {
		total = fmt.Sprintf("~%d rows", count)
	}

	parts := []string{
		fmt.Sprintf("row %d/%s", m.cursor+1, total),
		fmt.Sprintf("%d selected", len(m.eng.Selection())),
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	if m.err != nil {
		parts = append(parts, errorStyle.Render(m.err.Error()))
	}
	if m.loading {
		parts = append(parts, m.spin.View()+"loading")
	}
	parts = append(parts, "1-4 sort · space select · enter details · a/d all · r refresh · q quit")
	return strings.Join(parts, "  |  ")
}
