package picker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// debounceInterval is the delay after the last keystroke before triggering a fetch.
const debounceInterval = 100 * time.Millisecond

// DefaultHeight is the number of list rows shown when no height is configured.
const DefaultHeight = 10

// pickerState represents the current state of the picker's state machine.
type pickerState int

const (
	stateIdle      pickerState = iota // Initial state before first fetch
	stateLoading                      // Fetch in progress
	stateLoaded                       // Items loaded successfully (len > 0)
	stateEmpty                        // Fetch succeeded but returned 0 items
	stateError                        // Fetch failed
	stateCancelled                    // User cancelled (Esc / Ctrl+C)
)

// fetchDoneMsg is sent when an async Provider.Fetch completes.
type fetchDoneMsg struct {
	requestID uint64
	offset    int
	items     []string
	atEnd     bool
	err       error
}

// debounceMsg fires after the debounce timer expires.
type debounceMsg struct {
	id uint64 // Must match current debounceID to be accepted
}

// initMsg triggers the first fetch through Update.
type initMsg struct{}

// Model is the Bubble Tea model for the history search picker.
type Model struct {
	state     pickerState
	tabs      []Tab
	activeTab int
	items     []string
	selection int // Index into items; -1 when empty
	offset    int // Offset of the page being fetched
	atEnd     bool
	err       error

	input textinput.Model

	requestID uint64
	provider  Provider

	width  int
	height int // List rows

	result string

	cancelFetch context.CancelFunc
	debounceID  uint64
}

// NewModel creates a picker seeded with query, showing height list rows.
func NewModel(tabs []Tab, provider Provider, query string, height int) Model {
	if len(tabs) == 0 {
		tabs = DefaultTabs()
	}
	if height < 1 {
		height = DefaultHeight
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.PromptStyle = queryStyle
	ti.Placeholder = "search history"
	ti.SetValue(query)
	ti.Focus()

	return Model{
		state:     stateIdle,
		tabs:      tabs,
		selection: -1,
		provider:  provider,
		input:     ti,
		height:    height,
	}
}

// Result returns the selected command string, or "" if cancelled.
func (m Model) Result() string {
	return m.result
}

// Query returns the current search text.
func (m Model) Query() string {
	return m.input.Value()
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, func() tea.Msg { return initMsg{} })
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case fetchDoneMsg:
		return m.handleFetchDone(msg)

	case debounceMsg:
		return m.handleDebounce(msg)

	case initMsg:
		return m, m.startFetch(0)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.state = stateCancelled
		m.cancelInflight()
		return m, tea.Quit

	case tea.KeyEnter:
		if m.selection >= 0 && m.selection < len(m.items) {
			m.result = m.items[m.selection]
		}
		m.cancelInflight()
		return m, tea.Quit

	case tea.KeyUp, tea.KeyCtrlP:
		if m.state == stateLoading {
			return m, nil
		}
		if m.selection > 0 {
			m.selection--
		}
		return m, nil

	case tea.KeyDown, tea.KeyCtrlN:
		if m.state == stateLoading {
			return m, nil
		}
		if m.selection < len(m.items)-1 {
			m.selection++
			return m, nil
		}
		if !m.atEnd && len(m.items) > 0 {
			return m, m.startFetch(len(m.items))
		}
		return m, nil

	case tea.KeyTab:
		if len(m.tabs) > 1 {
			m.activeTab = (m.activeTab + 1) % len(m.tabs)
			return m, m.startFetch(0)
		}
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() == before {
		return m, cmd
	}
	return m, tea.Batch(cmd, m.startDebounce())
}

func (m Model) handleFetchDone(msg fetchDoneMsg) (tea.Model, tea.Cmd) {
	// Discard stale responses.
	if msg.requestID != m.requestID {
		return m, nil
	}

	if msg.err != nil {
		m.state = stateError
		m.err = msg.err
		m.items = nil
		m.selection = -1
		return m, nil
	}

	if msg.offset > 0 {
		m.items = append(m.items, msg.items...)
	} else {
		m.items = msg.items
	}
	m.atEnd = msg.atEnd

	if len(m.items) == 0 {
		m.state = stateEmpty
		m.selection = -1
	} else {
		m.state = stateLoaded
		m.clampSelection()
	}

	return m, nil
}

func (m Model) handleDebounce(msg debounceMsg) (tea.Model, tea.Cmd) {
	if msg.id != m.debounceID {
		return m, nil
	}
	return m, m.startFetch(0)
}

func (m *Model) startDebounce() tea.Cmd {
	m.debounceID++
	id := m.debounceID
	return tea.Tick(debounceInterval, func(time.Time) tea.Msg {
		return debounceMsg{id: id}
	})
}

// startFetch cancels any in-flight fetch and returns a tea.Cmd that asks
// the provider for the page starting at offset.
func (m *Model) startFetch(offset int) tea.Cmd {
	m.cancelInflight()
	m.requestID++
	m.state = stateLoading
	m.offset = offset

	reqID := m.requestID
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelFetch = cancel

	req := Request{
		RequestID: reqID,
		Query:     m.input.Value(),
		TabID:     m.currentTab().ID,
		Limit:     m.height,
		Offset:    offset,
	}

	p := m.provider
	return func() tea.Msg {
		resp, err := p.Fetch(ctx, req)
		if err != nil {
			return fetchDoneMsg{requestID: reqID, offset: offset, err: err}
		}
		return fetchDoneMsg{
			requestID: reqID,
			offset:    offset,
			items:     resp.Items,
			atEnd:     resp.AtEnd,
		}
	}
}

func (m *Model) cancelInflight() {
	if m.cancelFetch != nil {
		m.cancelFetch()
		m.cancelFetch = nil
	}
}

func (m *Model) clampSelection() {
	if len(m.items) == 0 {
		m.selection = -1
		return
	}
	if m.selection < 0 {
		m.selection = 0
	}
	if m.selection >= len(m.items) {
		m.selection = len(m.items) - 1
	}
}

func (m Model) currentTab() Tab {
	if m.activeTab >= 0 && m.activeTab < len(m.tabs) {
		return m.tabs[m.activeTab]
	}
	return Tab{ID: TabAll, Label: "History"}
}

// --- View rendering ---

var (
	activeTabStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62"))
	inactiveTabStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	selectedStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	normalStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	queryStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// View implements tea.Model.
func (m Model) View() string {
	if m.state == stateCancelled || m.result != "" {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.viewTabBar())
	b.WriteRune('\n')
	b.WriteString(m.viewContent())
	b.WriteRune('\n')
	b.WriteString(m.input.View())
	return b.String()
}

func (m Model) viewTabBar() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		label := " " + tab.Label + " "
		if i == m.activeTab {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, inactiveTabStyle.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

func (m Model) viewContent() string {
	switch m.state {
	case stateIdle, stateLoading:
		if len(m.items) > 0 {
			return m.viewList()
		}
		return dimStyle.Render("Loading...")

	case stateEmpty:
		return dimStyle.Render("No matches")

	case stateError:
		msg := "Error"
		if m.err != nil {
			msg = fmt.Sprintf("Error: %s", m.err)
		}
		return errorStyle.Render(msg)

	case stateLoaded:
		return m.viewList()

	default:
		return ""
	}
}

// viewList renders the window of items around the selection.
func (m Model) viewList() string {
	first := 0
	if m.selection >= m.height {
		first = m.selection - m.height + 1
	}
	last := min(first+m.height, len(m.items))

	var b strings.Builder
	for i := first; i < last; i++ {
		display := displayItem(m.items[i], max(m.width-4, 0))

		if i == m.selection {
			b.WriteString(selectedStyle.Render("> " + display))
		} else {
			b.WriteString(normalStyle.Render("  " + display))
		}
		if i < last-1 {
			b.WriteRune('\n')
		}
	}
	return b.String()
}
