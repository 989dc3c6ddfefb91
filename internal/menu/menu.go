// Package menu is the interactive main menu shown when macmole runs with
// no subcommand on a terminal.
package menu

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lakshaymaurya-felt/macmole/internal/ui"
)

// Item is one menu entry. Args are the command-line arguments the entry
// runs, e.g. {"clean", "--dry-run"}.
type Item struct {
	Title       string
	Description string
	Args        []string
}

// ─── Styles ──────────────────────────────────────────────────────────────────

var (
	cursorStyle   = lipgloss.NewStyle().Foreground(ui.ColorPrimary).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(ui.ColorPrimary).Bold(true)
	itemStyle     = lipgloss.NewStyle().Foreground(ui.ColorText)
	descStyle     = lipgloss.NewStyle().Foreground(ui.ColorTextDim)
)

// ─── Model ───────────────────────────────────────────────────────────────────

// Model is the bubbletea model for the main menu.
type Model struct {
	items    []Item
	cursor   int
	chosen   int
	keys     KeyMap
	help     help.Model
	header   string
	width    int
	quitting bool
}

// New creates a menu over items. header is printed above the list.
func New(header string, items []Item) Model {
	return Model{
		items:  items,
		chosen: -1,
		keys:   DefaultKeyMap(),
		help:   help.New(),
		header: header,
		width:  80,
	}
}

// Chosen returns the selected item, if any.
func (m Model) Chosen() (Item, bool) {
	if m.chosen < 0 || m.chosen >= len(m.items) {
		return Item{}, false
	}
	return m.items[m.chosen], true
}

// Cursor returns the highlighted index.
func (m Model) Cursor() int { return m.cursor }

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			} else if len(m.items) > 0 {
				m.cursor = len(m.items) - 1
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.items)-1 {
				m.cursor++
			} else {
				m.cursor = 0
			}
		case key.Matches(msg, m.keys.Select):
			if len(m.items) > 0 {
				m.chosen = m.cursor
				m.quitting = true
				return m, tea.Quit
			}
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		default:
			// Digits jump straight to an entry.
			if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 && n <= len(m.items) {
				m.cursor = n - 1
				m.chosen = m.cursor
				m.quitting = true
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(ui.TitleStyle.Render(m.header))
	b.WriteString("\n\n")

	for i, it := range m.items {
		prefix := "  "
		title := itemStyle.Render(it.Title)
		if i == m.cursor {
			prefix = cursorStyle.Render(ui.IconArrow + " ")
			title = selectedStyle.Render(it.Title)
		}
		fmt.Fprintf(&b, "%s%d. %s\n", prefix, i+1, title)
		if it.Description != "" {
			fmt.Fprintf(&b, "     %s\n", descStyle.Render(it.Description))
		}
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

// Run shows the menu and returns the chosen item. ok is false when the
// operator quit without choosing.
func Run(header string, items []Item, in io.Reader, out io.Writer) (Item, bool, error) {
	p := tea.NewProgram(New(header, items), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return Item{}, false, fmt.Errorf("menu: %w", err)
	}
	it, ok := final.(Model).Chosen()
	return it, ok, nil
}
