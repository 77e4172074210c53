package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mohrezaeib/cyto-compound-client/pkg/browser"
	"github.com/mohrezaeib/cyto-compound-client/pkg/compound"
)

// focusRegion identifies which pane has keyboard focus.
type focusRegion int

const (
	// focusList means navigation keys move the listing cursor.
	focusList focusRegion = iota
	// focusFilter means keystrokes go to the filter input.
	focusFilter
	// focusDetail means the detail view is open.
	focusDetail
)

// fetchDoneMsg is sent when an asynchronous page fetch settles.
type fetchDoneMsg struct {
	err error
}

// keyMap defines the key bindings of the browser.
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	PrevPage key.Binding
	NextPage key.Binding
	Open     key.Binding
	Back     key.Binding
	Next     key.Binding
	Prev     key.Binding
	Filter   key.Binding
	Refresh  key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k")),
		Down:     key.NewBinding(key.WithKeys("down", "j")),
		PrevPage: key.NewBinding(key.WithKeys("left", "h")),
		NextPage: key.NewBinding(key.WithKeys("right", "l")),
		Open:     key.NewBinding(key.WithKeys("enter")),
		Back:     key.NewBinding(key.WithKeys("esc")),
		Next:     key.NewBinding(key.WithKeys("n")),
		Prev:     key.NewBinding(key.WithKeys("p")),
		Filter:   key.NewBinding(key.WithKeys("/")),
		Refresh:  key.NewBinding(key.WithKeys("r")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c")),
	}
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	cursorStyle   = lipgloss.NewStyle().Reverse(true)
	statusStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	titleStyle    = lipgloss.NewStyle().Bold(true)
	fieldKeyStyle = lipgloss.NewStyle().Faint(true)
)

// listColumns are the attributes shown in the listing table.
var listColumns = []struct {
	title string
	field string
	width int
}{
	{title: "Name", field: "Compound Name", width: 28},
	{title: "Molweight", field: "Total Molweight", width: 12},
	{title: "IC50", field: "IC50", width: 14},
	{title: "Activity", field: "Actin Disruption Activity", width: 10},
}

// model is the bubbletea model of the compound browser. List/detail mode
// and all fetch coordination live in the browser.Browser; the model only
// renders its state and translates keys into operations.
type model struct {
	browser     *browser.Browser
	keys        keyMap
	filterInput textinput.Model
	focus       focusRegion
	cursor      int
	width       int
	height      int
	status      string
}

func newModel(b *browser.Browser) model {
	input := textinput.New()
	input.Placeholder = "free-text query, e.g. latrunculin"
	input.CharLimit = 120

	return model{
		browser:     b,
		keys:        defaultKeyMap(),
		filterInput: input,
	}
}

// Init triggers the initial unfiltered fetch.
func (m model) Init() tea.Cmd {
	return m.fetch(func() error {
		return m.browser.ApplyFilters(context.Background(), compound.FilterParams{})
	})
}

// fetch wraps a coordinator operation in a command so the fetch runs off
// the update loop; the result comes back as a fetchDoneMsg.
func (m model) fetch(op func() error) tea.Cmd {
	return func() tea.Msg {
		return fetchDoneMsg{err: op()}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case fetchDoneMsg:
		if msg.err != nil {
			m.status = "fetch failed: " + msg.err.Error()
		} else {
			m.status = ""
		}
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) && m.focus != focusFilter {
			return m, tea.Quit
		}

		switch m.focus {
		case focusFilter:
			return m.updateFilter(msg)
		case focusDetail:
			return m.updateDetail(msg)
		default:
			return m.updateList(msg)
		}
	}

	return m, nil
}

// updateFilter routes keystrokes to the filter input until the user
// submits (enter) or cancels (esc).
func (m model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Open):
		query := strings.TrimSpace(m.filterInput.Value())
		m.focus = focusList
		m.filterInput.Blur()
		m.cursor = 0
		return m, m.fetch(func() error {
			return m.browser.ApplyFilters(context.Background(), compound.FilterParams{Query: query})
		})

	case key.Matches(msg, m.keys.Back):
		m.focus = focusList
		m.filterInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

// updateDetail handles keys while the detail view is open.
func (m model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.browser.Back()
		m.focus = focusList
	case key.Matches(msg, m.keys.Next):
		m.browser.NextCompound()
	case key.Matches(msg, m.keys.Prev):
		m.browser.PreviousCompound()
	}
	return m, nil
}

// updateList handles keys in list mode.
func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	data := m.browser.Data()

	switch {
	case key.Matches(msg, m.keys.Filter):
		m.focus = focusFilter
		m.filterInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if data != nil && m.cursor < len(data.Items)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Open):
		if data != nil && m.cursor < len(data.Items) {
			m.browser.ViewDetail(data.Items[m.cursor])
			m.focus = focusDetail
		}

	case key.Matches(msg, m.keys.NextPage):
		if data != nil && data.Page < data.TotalPages {
			page := data.Page + 1
			m.cursor = 0
			return m, m.fetch(func() error {
				return m.browser.ChangePage(context.Background(), page)
			})
		}

	case key.Matches(msg, m.keys.PrevPage):
		if data != nil && data.Page > 1 {
			page := data.Page - 1
			m.cursor = 0
			return m, m.fetch(func() error {
				return m.browser.ChangePage(context.Background(), page)
			})
		}

	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetch(func() error {
			return m.browser.Refresh(context.Background())
		})
	}

	return m, nil
}

// clampCursor keeps the cursor inside the freshly fetched page.
func (m *model) clampCursor() {
	data := m.browser.Data()
	if data == nil || len(data.Items) == 0 {
		m.cursor = 0
		return
	}
	if m.cursor >= len(data.Items) {
		m.cursor = len(data.Items) - 1
	}
}

func (m model) View() string {
	if selected := m.browser.Selected(); selected != nil {
		return m.detailView(selected)
	}
	return m.listView()
}

// listView renders the filter bar, the compound table, and the status line.
func (m model) listView() string {
	var b strings.Builder

	if m.focus == focusFilter {
		b.WriteString("Filter: " + m.filterInput.View() + "\n\n")
	} else if query := m.browser.Filters().Query; query != "" {
		b.WriteString(statusStyle.Render("Filter: "+query) + "\n\n")
	}

	data := m.browser.Data()
	if data == nil {
		if m.browser.Loading() {
			b.WriteString("Loading compounds...\n")
		} else if m.status != "" {
			b.WriteString(errorStyle.Render(m.status) + "\n")
		}
		return b.String()
	}

	// Header
	cells := []string{padCell("MolIdx", 8)}
	for _, col := range listColumns {
		cells = append(cells, padCell(col.title, col.width))
	}
	b.WriteString(headerStyle.Render(strings.Join(cells, " ")) + "\n")

	// Rows
	for i, c := range data.Items {
		cells := []string{padCell(fmt.Sprintf("%d", c.MolIdx), 8)}
		for _, col := range listColumns {
			cells = append(cells, padCell(c.FieldString(col.field), col.width))
		}
		row := strings.Join(cells, " ")
		if i == m.cursor && m.focus == focusList {
			row = cursorStyle.Render(row)
		}
		b.WriteString(row + "\n")
	}

	// Status line
	status := fmt.Sprintf("page %d/%d · %d compounds · / filter · ←/→ page · enter detail · q quit",
		data.Page, data.TotalPages, data.TotalItems)
	if m.browser.Loading() {
		status = "loading... · " + status
	}
	b.WriteString("\n" + statusStyle.Render(status))
	if m.status != "" {
		b.WriteString("\n" + errorStyle.Render(m.status))
	}

	return b.String()
}

// detailView renders the selected compound's attributes sorted by name.
func (m model) detailView(c *compound.Compound) string {
	var b strings.Builder

	name := c.FieldString("Compound Name")
	if name == "" {
		name = fmt.Sprintf("Compound %d", c.MolIdx)
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s (mol_idx %d)", name, c.MolIdx)) + "\n\n")

	fields := make([]string, 0, len(c.Fields))
	for field := range c.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		b.WriteString(fieldKeyStyle.Render(padCell(field, 30)))
		b.WriteString(fmt.Sprintf("%v\n", c.Fields[field]))
	}

	b.WriteString("\n" + statusStyle.Render("n next · p previous · esc back"))
	return b.String()
}

// padCell pads or truncates a value to the column width.
func padCell(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width {
		return string(runes[:width-1]) + "…"
	}
	return s + strings.Repeat(" ", width-len(runes))
}
