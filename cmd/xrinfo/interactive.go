package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type viewTab int

const (
	tabRuntime viewTab = iota
	tabLayers
	tabExtensions
)

var tabNames = []string{"runtime", "layers", "extensions"}

type interactiveModel struct {
	err error

	runtime    *runtimeInfo
	runtimeErr error
	layers     []layerInfo
	extensions []extensionInfo

	tab       viewTab
	selected  int
	filter    textinput.Model
	filtering bool
	loaded    bool
}

func newInteractiveModel() *interactiveModel {
	filter := textinput.New()
	filter.Placeholder = "filter"
	filter.Prompt = "/"
	filter.Width = 30
	return &interactiveModel{filter: filter}
}

type loadedMsg struct {
	err        error
	runtime    *runtimeInfo
	runtimeErr error
	layers     []layerInfo
	extensions []extensionInfo
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.load
}

// load runs discovery once, off the update loop.
func (m *interactiveModel) load() tea.Msg {
	msg := loadedMsg{}
	msg.runtime, msg.runtimeErr = probeRuntime()

	layers, err := collectLayers()
	if err != nil {
		return loadedMsg{err: err}
	}
	msg.layers = layers

	exts, err := collectExtensions("")
	if err != nil && msg.runtime != nil {
		return loadedMsg{err: err}
	}
	msg.extensions = exts
	return msg
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filtering {
			switch msg.String() {
			case "enter", "esc":
				m.filtering = false
				m.filter.Blur()
				m.selected = 0
			default:
				var cmd tea.Cmd
				m.filter, cmd = m.filter.Update(msg)
				return m, cmd
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "tab", "right", "l":
			m.tab = (m.tab + 1) % 3
			m.selected = 0

		case "shift+tab", "left", "h":
			m.tab = (m.tab + 2) % 3
			m.selected = 0

		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.selected < m.listLen()-1 {
				m.selected++
			}

		case "/":
			if m.tab == tabExtensions {
				m.filtering = true
				m.filter.Focus()
			}
		}

	case loadedMsg:
		m.loaded = true
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.runtime = msg.runtime
		m.runtimeErr = msg.runtimeErr
		m.layers = msg.layers
		m.extensions = msg.extensions
	}

	return m, nil
}

func (m *interactiveModel) listLen() int {
	switch m.tab {
	case tabLayers:
		return len(m.layers)
	case tabExtensions:
		return len(m.filteredExtensions())
	}
	return 0
}

func (m *interactiveModel) filteredExtensions() []extensionInfo {
	needle := strings.ToLower(m.filter.Value())
	if needle == "" {
		return m.extensions
	}
	var out []extensionInfo
	for _, e := range m.extensions {
		if strings.Contains(strings.ToLower(e.Name), needle) {
			out = append(out, e)
		}
	}
	return out
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if !m.loaded {
		return "Discovering runtime and layers..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("OpenXR Loader Info"))
	b.WriteString("  ")
	for i, name := range tabNames {
		if viewTab(i) == m.tab {
			b.WriteString(selectedStyle.Render(" " + name + " "))
		} else {
			b.WriteString(" " + name + " ")
		}
	}
	b.WriteString("\n\n")

	switch m.tab {
	case tabRuntime:
		if m.runtime != nil {
			b.WriteString(nameStyle.Render(m.runtime.Name))
			b.WriteString("\n")
			b.WriteString(detailStyle.Render("version " + m.runtime.Version))
		} else {
			b.WriteString(errorStyle.Render(fmt.Sprintf("runtime unavailable: %v", m.runtimeErr)))
		}
		b.WriteString("\n")

	case tabLayers:
		if len(m.layers) == 0 {
			b.WriteString("No API layers discovered.\n")
		}
		for i, l := range m.layers {
			line := fmt.Sprintf("%s  spec %s  version %d", l.Name, l.SpecVersion, l.Version)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + nameStyle.Render(l.Name) +
					detailStyle.Render(fmt.Sprintf("  spec %s  version %d", l.SpecVersion, l.Version)))
			}
			b.WriteString("\n")
			if i == m.selected && l.Description != "" {
				b.WriteString(helpStyle.Render("    " + l.Description))
				b.WriteString("\n")
			}
		}

	case tabExtensions:
		exts := m.filteredExtensions()
		if m.filtering || m.filter.Value() != "" {
			b.WriteString(m.filter.View())
			b.WriteString("\n\n")
		}
		if len(exts) == 0 {
			b.WriteString("No instance extensions.\n")
		}
		for i, e := range exts {
			line := fmt.Sprintf("%s  version %d", e.Name, e.Version)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + nameStyle.Render(e.Name) +
					detailStyle.Render(fmt.Sprintf("  version %d", e.Version)))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	help := "tab switch view • ↑/↓ select • q quit"
	if m.tab == tabExtensions {
		help = "tab switch view • ↑/↓ select • / filter • q quit"
	}
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

func runInteractive() error {
	p := tea.NewProgram(newInteractiveModel(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
