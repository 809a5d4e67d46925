package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/concordium/concordium-build/names"
	"github.com/concordium/concordium-build/schema"
	"github.com/concordium/concordium-build/wasm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	contractStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <module>",
		Short: "Browse a module's contracts and entrypoints interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := tea.NewProgram(newInspectModel(args[0]), tea.WithAltScreen())
			m, err := p.Run()
			if err != nil {
				return err
			}
			if im, ok := m.(*inspectModel); ok && im.err != nil {
				return im.err
			}
			return nil
		},
	}
	return cmd
}

type inspectState int

const (
	stateContracts inspectState = iota
	stateDetail
)

type contractInfo struct {
	name        string
	entrypoints []string
	fn          *Functions
}

// Functions carries the schema-derived typing information for one contract,
// when the module embeds a schema.
type Functions struct {
	version  schema.Version
	contract *schema.Contract
}

type inspectModel struct {
	path      string
	err       error
	contracts []contractInfo
	hasSchema bool
	cursor    int
	state     inspectState
	viewport  viewport.Model
	width     int
	height    int
	ready     bool
}

func newInspectModel(path string) *inspectModel {
	return &inspectModel{path: path, state: stateContracts}
}

type inspectLoadedMsg struct {
	err       error
	contracts []contractInfo
	hasSchema bool
}

func (m *inspectModel) Init() tea.Cmd {
	return m.loadModule
}

// loadModule reads the module, lists contracts and entrypoints from the
// exports, and enriches them with the embedded schema when present.
func (m *inspectModel) loadModule() tea.Msg {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return inspectLoadedMsg{err: err}
	}
	sk, err := parseModuleFile(data)
	if err != nil {
		return inspectLoadedMsg{err: err}
	}

	entrypoints := map[string][]string{}
	for _, exp := range sk.Exports {
		if exp.Kind != wasm.KindFunc {
			continue
		}
		if in, err := names.ParseInit(exp.Name); err == nil {
			if _, ok := entrypoints[in.Contract()]; !ok {
				entrypoints[in.Contract()] = nil
			}
		} else if rn, err := names.ParseReceive(exp.Name); err == nil {
			entrypoints[rn.Contract()] = append(entrypoints[rn.Contract()], rn.Entrypoint())
		}
	}

	ms, err := schema.FindEmbedded(sk)
	if err != nil && !errors.Is(err, schema.ErrNoEmbeddedSchema) {
		return inspectLoadedMsg{err: err}
	}

	cnames := make([]string, 0, len(entrypoints))
	for name := range entrypoints {
		cnames = append(cnames, name)
	}
	sort.Strings(cnames)

	contracts := make([]contractInfo, 0, len(cnames))
	for _, name := range cnames {
		eps := entrypoints[name]
		sort.Strings(eps)
		ci := contractInfo{name: name, entrypoints: eps}
		if ms != nil {
			if c, ok := ms.Contracts[name]; ok {
				ci.fn = &Functions{version: ms.Version, contract: c}
			}
		}
		contracts = append(contracts, ci)
	}
	return inspectLoadedMsg{contracts: contracts, hasSchema: ms != nil}
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case inspectLoadedMsg:
		m.err = msg.err
		m.contracts = msg.contracts
		m.hasSchema = msg.hasSchema
		if m.err != nil {
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state == stateDetail {
				m.state = stateContracts
				return m, nil
			}
			return m, tea.Quit
		case "up", "k":
			if m.state == stateContracts && m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.state == stateContracts && m.cursor < len(m.contracts)-1 {
				m.cursor++
			}
		case "enter":
			if m.state == stateContracts && len(m.contracts) > 0 {
				m.state = stateDetail
				m.viewport.SetContent(m.detailContent(m.contracts[m.cursor]))
				m.viewport.GotoTop()
				return m, nil
			}
		case "esc":
			if m.state == stateDetail {
				m.state = stateContracts
				return m, nil
			}
		}
	}

	if m.state == stateDetail && m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *inspectModel) View() string {
	if m.err != nil {
		return errStyle.Render("Error: "+m.err.Error()) + "\n"
	}
	if m.state == stateDetail && m.ready {
		var b strings.Builder
		b.WriteString(titleStyle.Render(m.contracts[m.cursor].name) + "\n\n")
		b.WriteString(m.viewport.View() + "\n")
		b.WriteString(helpStyle.Render("↑/↓ scroll · esc back · ctrl+c quit"))
		return b.String()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Contracts in "+m.path) + "\n\n")
	if len(m.contracts) == 0 {
		b.WriteString("  (no contracts exported)\n")
	}
	for i, c := range m.contracts {
		line := fmt.Sprintf("%s (%d entrypoints)", c.name, len(c.entrypoints))
		if c.fn != nil {
			line += " [schema]"
		}
		if i == m.cursor {
			b.WriteString("  " + selectedStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString("    " + contractStyle.Render(line) + "\n")
		}
	}
	b.WriteString("\n" + helpStyle.Render("↑/↓ move · enter details · q quit"))
	return b.String()
}

// detailContent renders one contract's entrypoints, with typing information
// from the schema when available.
func (m *inspectModel) detailContent(c contractInfo) string {
	var b strings.Builder

	if c.fn != nil {
		b.WriteString(detailStyle.Render(fmt.Sprintf("schema version %s", c.fn.version)) + "\n")
		if c.fn.contract.Init != nil {
			b.WriteString("init: " + describeFunction(c.fn.contract.Init) + "\n")
		}
		if c.fn.contract.State != nil {
			b.WriteString("state: typed\n")
		}
		if c.fn.contract.Event != nil {
			b.WriteString("event: typed\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("entrypoints:\n")
	for _, ep := range c.entrypoints {
		label := ep
		if ep == "" {
			label = "(fallback)"
		}
		line := "  " + label
		if c.fn != nil {
			if fn, ok := c.fn.contract.Receive[ep]; ok {
				line += "  " + detailStyle.Render(describeFunction(fn))
			}
		}
		b.WriteString(line + "\n")
	}
	if len(c.entrypoints) == 0 {
		b.WriteString("  (none)\n")
	}
	return b.String()
}

func describeFunction(fn *schema.Function) string {
	var parts []string
	if fn.Parameter != nil {
		parts = append(parts, "parameter")
	}
	if fn.ReturnValue != nil {
		parts = append(parts, "return value")
	}
	if fn.Error != nil {
		parts = append(parts, "error")
	}
	if len(parts) == 0 {
		return "no typed interface"
	}
	return strings.Join(parts, ", ")
}
