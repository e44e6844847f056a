package wizard

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SearchType is the catalog filter of a search.
type SearchType int

const (
	SearchAll SearchType = iota
	SearchTracks
	SearchAlbums
	SearchArtists
	SearchPlaylists
)

var searchTypeNames = []string{"all", "track", "album", "artist", "playlist"}

func (t SearchType) String() string {
	if t < 0 || int(t) >= len(searchTypeNames) {
		return "unknown"
	}
	return searchTypeNames[t]
}

// SearchResult is one playable catalog entry.
type SearchResult struct {
	ID       string
	URI      string
	Title    string
	Subtitle string
	Type     SearchType
}

// SearchFunc runs a search.
type SearchFunc func(query string, searchType SearchType) ([]SearchResult, error)

// SearchModel is the bubbletea model for the search wizard.
type SearchModel struct {
	input      textinput.Model
	results    []SearchResult
	cursor     int
	searchType SearchType
	searchFunc SearchFunc
	selected   *SearchResult
	err        error
	debounce   time.Duration
	lastQuery  string
	searching  bool
	width      int
	height     int
}

var (
	searchTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("42"))

	searchTabStyle = lipgloss.NewStyle().
			Padding(0, 2)

	searchActiveTabStyle = lipgloss.NewStyle().
				Padding(0, 2).
				Background(lipgloss.Color("42")).
				Foreground(lipgloss.Color("0"))

	searchResultStyle = lipgloss.NewStyle().
				PaddingLeft(2)

	searchSelectedStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Background(lipgloss.Color("237"))

	searchSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243"))

	searchErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196"))
)

// SearchOption configures a SearchModel.
type SearchOption func(*SearchModel)

// WithQuery pre-fills the input and searches immediately.
func WithQuery(q string) SearchOption {
	return func(m *SearchModel) {
		m.input.SetValue(q)
		m.lastQuery = q
	}
}

// WithSearchType selects the initial filter tab.
func WithSearchType(t SearchType) SearchOption {
	return func(m *SearchModel) {
		m.searchType = t
	}
}

// NewSearchModel creates a new search wizard model.
func NewSearchModel(searchFunc SearchFunc, opts ...SearchOption) SearchModel {
	ti := textinput.New()
	ti.Placeholder = "Search Spotify..."
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 50

	m := SearchModel{
		input:      ti,
		searchFunc: searchFunc,
		debounce:   300 * time.Millisecond,
		searchType: SearchAll,
		width:      80,
		height:     20,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init starts the cursor blink and any pre-filled search.
func (m SearchModel) Init() tea.Cmd {
	if q := m.input.Value(); q != "" {
		return tea.Batch(textinput.Blink, m.doSearch(q, m.searchType))
	}
	return textinput.Blink
}

type debounceMsg struct {
	query string
}

type searchResultsMsg struct {
	query      string
	searchType SearchType
	results    []SearchResult
	err        error
}

// Update handles messages.
func (m SearchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			if len(m.results) > 0 && m.cursor < len(m.results) {
				m.selected = &m.results[m.cursor]
				return m, tea.Quit
			}

		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case "down", "ctrl+n":
			if m.cursor < len(m.results)-1 {
				m.cursor++
			}
			return m, nil

		case "tab", "shift+tab":
			step := SearchType(1)
			if msg.String() == "shift+tab" {
				step = SearchType(len(searchTypeNames) - 1)
			}
			m.searchType = (m.searchType + step) % SearchType(len(searchTypeNames))
			if q := m.input.Value(); q != "" {
				m.searching = true
				return m, m.doSearch(q, m.searchType)
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 4

	case debounceMsg:
		if msg.query == m.input.Value() && msg.query != m.lastQuery {
			m.lastQuery = msg.query
			m.searching = true
			return m, m.doSearch(msg.query, m.searchType)
		}
		return m, nil

	case searchResultsMsg:
		// Drop answers to queries the user has already moved past.
		if msg.query != m.input.Value() || msg.searchType != m.searchType {
			return m, nil
		}
		m.searching = false
		m.results = msg.results
		m.err = msg.err
		m.cursor = 0
		return m, nil
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	if q := m.input.Value(); q != m.lastQuery {
		cmds = append(cmds, tea.Tick(m.debounce, func(time.Time) tea.Msg {
			return debounceMsg{query: q}
		}))
	}

	return m, tea.Batch(cmds...)
}

func (m SearchModel) doSearch(query string, t SearchType) tea.Cmd {
	return func() tea.Msg {
		if query == "" {
			return searchResultsMsg{query: query, searchType: t}
		}
		results, err := m.searchFunc(query, t)
		return searchResultsMsg{query: query, searchType: t, results: results, err: err}
	}
}

// View renders the model.
func (m SearchModel) View() string {
	var b strings.Builder

	b.WriteString(searchTitleStyle.Render("Search"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	for i, name := range []string{"All", "Tracks", "Albums", "Artists", "Playlists"} {
		if SearchType(i) == m.searchType {
			b.WriteString(searchActiveTabStyle.Render(name))
		} else {
			b.WriteString(searchTabStyle.Render(name))
		}
	}
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(searchErrorStyle.Render("Error: " + m.err.Error()))
	case m.searching:
		b.WriteString("Searching...")
	case len(m.results) == 0 && m.input.Value() != "":
		b.WriteString("No results found")
	default:
		maxResults := max(m.height-10, 5)
		for i, result := range m.results {
			if i >= maxResults {
				b.WriteString(searchSubtitleStyle.Render("  ...and more"))
				break
			}
			line := result.Title
			if m.searchType == SearchAll {
				line = "[" + result.Type.String() + "] " + line
			}
			if result.Subtitle != "" {
				line += " " + searchSubtitleStyle.Render(result.Subtitle)
			}
			if i == m.cursor {
				b.WriteString(searchSelectedStyle.Render("▸ " + line))
			} else {
				b.WriteString(searchResultStyle.Render("  " + line))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(searchSubtitleStyle.Render("↑/↓ navigate • tab switch type • enter play • esc quit"))
	return b.String()
}

// Selected returns the selected result, or nil if none.
func (m SearchModel) Selected() *SearchResult {
	return m.selected
}

// RunSearch runs the search wizard and returns the selected result.
func RunSearch(searchFunc SearchFunc, opts ...SearchOption) (*SearchResult, error) {
	p := tea.NewProgram(NewSearchModel(searchFunc, opts...), tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}
	return finalModel.(SearchModel).Selected(), nil
}
